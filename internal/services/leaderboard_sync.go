package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ad/insight-quest/internal/db"
	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// LeaderboardSync periodically rebuilds the Redis leaderboard from the
// progression table, healing updates that were lost after commit.
type LeaderboardSync struct {
	repo      *db.ProgressionRepository
	board     *RedisLeaderboard
	scheduler gocron.Scheduler
	interval  time.Duration
	log       *logrus.Entry
}

func NewLeaderboardSync(repo *db.ProgressionRepository, board *RedisLeaderboard, interval time.Duration, clock clockwork.Clock) (*LeaderboardSync, error) {
	sched, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &LeaderboardSync{
		repo:      repo,
		board:     board,
		scheduler: sched,
		interval:  interval,
		log:       logrus.WithField("component", "leaderboard_sync"),
	}, nil
}

// Start schedules the rebuild to run now and then every interval.
func (j *LeaderboardSync) Start(ctx context.Context) error {
	_, err := j.scheduler.NewJob(
		gocron.DurationJob(j.interval),
		gocron.NewTask(func() {
			if _, err := j.RunOnce(ctx); err != nil {
				j.log.WithError(err).Error("[SCHEDULER] leaderboard rebuild failed")
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule leaderboard rebuild: %w", err)
	}
	j.scheduler.Start()
	return nil
}

func (j *LeaderboardSync) RunOnce(ctx context.Context) (int, error) {
	list, err := j.repo.GetAll()
	if err != nil {
		return 0, fmt.Errorf("load progressions: %w", err)
	}
	if err := j.board.Rebuild(ctx, list); err != nil {
		return 0, err
	}
	j.log.Debugf("[SCHEDULER] leaderboard rebuilt with %d entries", len(list))
	return len(list), nil
}

func (j *LeaderboardSync) Shutdown() error {
	return j.scheduler.Shutdown()
}

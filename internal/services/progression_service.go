package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ad/insight-quest/internal/db"
	"github.com/ad/insight-quest/internal/models"
	"github.com/ad/insight-quest/internal/progression"
	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const (
	SourceObserve = "observe"
	SourceLogin   = "daily_login"
)

var ErrInvalidIdentity = errors.New("identity must not be empty")

// Outcome is a committed progression update.
type Outcome struct {
	Progression models.UserProgression `json:"progression"`
	Events      []models.Event         `json:"events"`
	Created     bool                   `json:"created"`
}

type ProgressionService struct {
	repo        *db.ProgressionRepository
	events      *db.EventRepository
	leaderboard Leaderboard
	sink        NotificationSink
	metrics     *Metrics
	clock       clockwork.Clock
	location    *time.Location
	log         *logrus.Entry
	newBackOff  func() backoff.BackOff
}

func NewProgressionService(
	repo *db.ProgressionRepository,
	events *db.EventRepository,
	leaderboard Leaderboard,
	sink NotificationSink,
	metrics *Metrics,
	clock clockwork.Clock,
	location *time.Location,
) *ProgressionService {
	if sink == nil {
		sink = NopSink{}
	}
	if location == nil {
		location = time.UTC
	}
	return &ProgressionService{
		repo:        repo,
		events:      events,
		leaderboard: leaderboard,
		sink:        sink,
		metrics:     metrics,
		clock:       clock,
		location:    location,
		log:         logrus.WithField("component", "progression"),
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
		},
	}
}

// Today is the current calendar day in the configured time zone.
func (s *ProgressionService) Today() models.Date {
	return models.DateIn(s.clock.Now(), s.location)
}

// Get returns the record for identity, creating the initial one on first sight.
func (s *ProgressionService) Get(ctx context.Context, identity string) (*models.UserProgression, error) {
	out, err := s.apply(ctx, identity, SourceObserve, func(p models.UserProgression) (models.UserProgression, []models.Event) {
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return &out.Progression, nil
}

// DailyLogin grants the login reward for today unless it was already granted.
func (s *ProgressionService) DailyLogin(ctx context.Context, identity string) (*Outcome, error) {
	today := s.Today()
	return s.apply(ctx, identity, SourceLogin, func(p models.UserProgression) (models.UserProgression, []models.Event) {
		return progression.EvaluateDailyLogin(p, today)
	})
}

func (s *ProgressionService) AwardXP(ctx context.Context, identity string, amount int64, source string) (*Outcome, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		source = "award"
	}
	return s.apply(ctx, identity, source, func(p models.UserProgression) (models.UserProgression, []models.Event) {
		return progression.AwardXP(p, amount)
	})
}

// Leaderboard returns the top entries with their profile names filled in.
func (s *ProgressionService) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	entries, err := s.leaderboard.Top(ctx, limit)
	if err != nil || len(entries) == 0 {
		return entries, err
	}
	identities := make([]string, len(entries))
	for i, e := range entries {
		identities[i] = e.Identity
	}
	names, err := s.repo.UsernamesOf(identities)
	if err != nil {
		s.log.WithError(err).Warn("[PROGRESSION] leaderboard names unavailable")
		return entries, nil
	}
	for i := range entries {
		entries[i].Username = names[entries[i].Identity]
	}
	return entries, nil
}

// SetUsername changes the display name shown on the profile and the
// leaderboard. It never touches XP or login state.
func (s *ProgressionService) SetUsername(ctx context.Context, identity, username string) (*models.UserProgression, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, ErrInvalidIdentity
	}
	name, err := models.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	p, created, err := s.repo.SetUsername(identity, name, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("set username for %s: %w", identity, err)
	}
	if created {
		s.afterCommit(ctx, "username", &Outcome{Progression: *p, Events: []models.Event{}, Created: true})
	}
	s.log.WithFields(logrus.Fields{"identity": identity, "username": name}).Info("[PROGRESSION] username updated")
	return p, nil
}

func (s *ProgressionService) Rank(ctx context.Context, identity string) (int64, error) {
	return s.leaderboard.Rank(ctx, identity)
}

func (s *ProgressionService) History(_ context.Context, identity string, limit int) ([]*models.StoredEvent, error) {
	return s.events.ListByIdentity(identity, limit)
}

func (s *ProgressionService) apply(ctx context.Context, identity, source string, mutate db.Mutation) (*Outcome, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, ErrInvalidIdentity
	}

	res, err := s.repo.Apply(identity, source, s.clock.Now(), mutate)
	if err != nil {
		return nil, fmt.Errorf("apply %s for %s: %w", source, identity, err)
	}
	out := &Outcome{Progression: res.Progression, Events: res.Events, Created: res.Created}
	if out.Events == nil {
		out.Events = []models.Event{}
	}

	if res.Created || len(res.Events) > 0 {
		s.afterCommit(ctx, source, out)
	}
	return out, nil
}

// afterCommit runs the side effects of a stored update. None of them can
// undo the update, so failures are only logged.
func (s *ProgressionService) afterCommit(ctx context.Context, source string, out *Outcome) {
	entry := s.log.WithFields(logrus.Fields{
		"identity": out.Progression.Identity,
		"source":   source,
	})

	s.metrics.observe(out.Created, out.Events)

	update := func() error {
		return s.leaderboard.Update(ctx, out.Progression)
	}
	if err := backoff.Retry(update, backoff.WithContext(s.newBackOff(), ctx)); err != nil {
		entry.WithError(err).Warn("[PROGRESSION] leaderboard update failed, waiting for resync")
	}

	if len(out.Events) > 0 {
		if err := s.sink.Publish(ctx, out.Progression.Identity, out.Progression, out.Events); err != nil {
			entry.WithError(err).Warn("[PROGRESSION] notification failed")
		}
	}

	entry.WithFields(logrus.Fields{
		"xp":     out.Progression.ExperiencePoints,
		"level":  out.Progression.Level,
		"streak": out.Progression.LoginStreak,
		"events": len(out.Events),
	}).Info("[PROGRESSION] updated")
}

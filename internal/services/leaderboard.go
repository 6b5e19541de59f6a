package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ad/insight-quest/internal/db"
	"github.com/ad/insight-quest/internal/models"
	"github.com/ad/insight-quest/internal/progression"
	"github.com/go-redis/redis/v8"
)

const leaderboardKey = "insightquest:leaderboard:xp"

var ErrNotRanked = errors.New("identity is not on the leaderboard")

type Leaderboard interface {
	Update(ctx context.Context, p models.UserProgression) error
	Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	Rank(ctx context.Context, identity string) (int64, error)
}

func entryFor(rank int64, identity string, xp int64) models.LeaderboardEntry {
	level := progression.LevelFromXP(xp)
	return models.LeaderboardEntry{
		Rank:             rank,
		Identity:         identity,
		AvatarURL:        models.AvatarURL(identity),
		ExperiencePoints: xp,
		Level:            level,
		Stage:            progression.StageFromLevel(level),
	}
}

// scoreToXP converts a sorted set score back to XP. Scores are float64, so
// values near math.MaxInt64 round up past the int64 range and are clamped.
func scoreToXP(score float64) int64 {
	switch {
	case score >= math.MaxInt64:
		return math.MaxInt64
	case score <= 0:
		return 0
	default:
		return int64(score)
	}
}

// StoreLeaderboard ranks straight from the progression table. Updates are
// no-ops because the table is always current.
type StoreLeaderboard struct {
	repo *db.ProgressionRepository
}

func NewStoreLeaderboard(repo *db.ProgressionRepository) *StoreLeaderboard {
	return &StoreLeaderboard{repo: repo}
}

func (l *StoreLeaderboard) Update(context.Context, models.UserProgression) error {
	return nil
}

func (l *StoreLeaderboard) Top(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	list, err := l.repo.TopByXP(limit)
	if err != nil {
		return nil, fmt.Errorf("load top progressions: %w", err)
	}
	entries := make([]models.LeaderboardEntry, 0, len(list))
	for i, p := range list {
		entries = append(entries, entryFor(int64(i+1), p.Identity, p.ExperiencePoints))
	}
	return entries, nil
}

func (l *StoreLeaderboard) Rank(_ context.Context, identity string) (int64, error) {
	rank, err := l.repo.RankOf(identity)
	if errors.Is(err, db.ErrNotFound) {
		return 0, ErrNotRanked
	}
	return rank, err
}

// RedisLeaderboard keeps XP in a sorted set. Equal scores are ordered by
// member in reverse lexicographic order, as ZREVRANGE does.
type RedisLeaderboard struct {
	client redis.UniversalClient
	key    string
}

func NewRedisLeaderboard(client redis.UniversalClient) *RedisLeaderboard {
	return &RedisLeaderboard{client: client, key: leaderboardKey}
}

func (l *RedisLeaderboard) Update(ctx context.Context, p models.UserProgression) error {
	err := l.client.ZAdd(ctx, l.key, &redis.Z{
		Score:  float64(p.ExperiencePoints),
		Member: p.Identity,
	}).Err()
	if err != nil {
		return fmt.Errorf("update leaderboard: %w", err)
	}
	return nil
}

func (l *RedisLeaderboard) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	zs, err := l.client.ZRevRangeWithScores(ctx, l.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	entries := make([]models.LeaderboardEntry, 0, len(zs))
	for i, z := range zs {
		identity, _ := z.Member.(string)
		entries = append(entries, entryFor(int64(i+1), identity, scoreToXP(z.Score)))
	}
	return entries, nil
}

func (l *RedisLeaderboard) Rank(ctx context.Context, identity string) (int64, error) {
	rank, err := l.client.ZRevRank(ctx, l.key, identity).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotRanked
	}
	if err != nil {
		return 0, fmt.Errorf("read leaderboard rank: %w", err)
	}
	return rank + 1, nil
}

// Rebuild replaces the whole sorted set with list in one MULTI/EXEC.
func (l *RedisLeaderboard) Rebuild(ctx context.Context, list []*models.UserProgression) error {
	members := make([]*redis.Z, 0, len(list))
	for _, p := range list {
		members = append(members, &redis.Z{Score: float64(p.ExperiencePoints), Member: p.Identity})
	}
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, l.key)
		if len(members) > 0 {
			pipe.ZAdd(ctx, l.key, members...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rebuild leaderboard: %w", err)
	}
	return nil
}

// Package progression holds the XP, level, stage and login streak rules.
// Every function is pure: callers pass the current record and, for daily
// logins, the calendar day, and persist whatever comes back.
package progression

import (
	"math"

	"github.com/ad/insight-quest/internal/models"
)

const (
	BaseLoginReward = 100

	ShortStreakDays  = 3
	ShortStreakBonus = 50
	LongStreakDays   = 7
	LongStreakBonus  = 100
)

// New returns the initial record for an identity seen for the first time.
func New(identity string) models.UserProgression {
	return models.UserProgression{
		Identity: identity,
		Level:    1,
		Stage:    models.StageSpark,
	}
}

// Normalize re-derives Level and Stage from ExperiencePoints.
func Normalize(record models.UserProgression) models.UserProgression {
	if record.ExperiencePoints < 0 {
		record.ExperiencePoints = 0
	}
	if record.LoginStreak < 0 {
		record.LoginStreak = 0
	}
	record.Level = LevelFromXP(record.ExperiencePoints)
	record.Stage = StageFromLevel(record.Level)
	return record
}

// StreakBonus returns the extra login XP for a streak of the given length.
func StreakBonus(streak int) int64 {
	switch {
	case streak >= LongStreakDays:
		return LongStreakBonus
	case streak >= ShortStreakDays:
		return ShortStreakBonus
	default:
		return 0
	}
}

// EvaluateDailyLogin grants the daily login reward at most once per
// calendar day. A second call for the same day returns the record
// unchanged and no events.
func EvaluateDailyLogin(record models.UserProgression, today models.Date) (models.UserProgression, []models.Event) {
	if record.LoggedInOn(today) {
		return record, nil
	}

	streak := 1
	if record.LastLoginDate != nil && *record.LastLoginDate == today.AddDays(-1) {
		streak = record.LoginStreak + 1
	}
	reward := BaseLoginReward + StreakBonus(streak)

	oldLevel := record.Level
	updated := withXP(record, addXP(record.ExperiencePoints, reward))
	day := today
	updated.LastLoginDate = &day
	updated.LoginStreak = streak

	events := []models.Event{{
		Kind:   models.EventLoginReward,
		Streak: streak,
		Reward: reward,
	}}
	if ev, ok := levelUp(oldLevel, updated); ok {
		events = append(events, ev)
	}
	return updated, events
}

// AwardXP applies amount to the record. Zero and negative amounts are
// applied as given; the total never drops below zero and saturates at
// math.MaxInt64.
func AwardXP(record models.UserProgression, amount int64) (models.UserProgression, []models.Event) {
	oldLevel := record.Level
	updated := withXP(record, addXP(record.ExperiencePoints, amount))

	events := []models.Event{{
		Kind:   models.EventXPAwarded,
		Amount: amount,
	}}
	if ev, ok := levelUp(oldLevel, updated); ok {
		events = append(events, ev)
	}
	return updated, events
}

// addXP returns xp+amount saturated to [0, math.MaxInt64].
func addXP(xp, amount int64) int64 {
	if xp < 0 {
		xp = 0
	}
	if amount > 0 && xp > math.MaxInt64-amount {
		return math.MaxInt64
	}
	if sum := xp + amount; sum > 0 {
		return sum
	}
	return 0
}

func withXP(record models.UserProgression, xp int64) models.UserProgression {
	if xp < 0 {
		xp = 0
	}
	record.ExperiencePoints = xp
	record.Level = LevelFromXP(xp)
	record.Stage = StageFromLevel(record.Level)
	return record
}

func levelUp(oldLevel int, updated models.UserProgression) (models.Event, bool) {
	if updated.Level == oldLevel {
		return models.Event{}, false
	}
	return models.Event{
		Kind:     models.EventLevelUp,
		NewLevel: updated.Level,
		Stage:    updated.Stage,
	}, true
}

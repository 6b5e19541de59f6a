package models

import (
	"encoding/json"
	"time"
)

type EventKind string

const (
	EventLoginReward EventKind = "login_reward"
	EventXPAwarded   EventKind = "xp_awarded"
	EventLevelUp     EventKind = "level_up"
)

// Event is a notification produced by a progression update.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind     EventKind `json:"kind"`
	Streak   int       `json:"streak,omitempty"`
	Reward   int64     `json:"reward,omitempty"`
	Amount   int64     `json:"amount,omitempty"`
	NewLevel int       `json:"newLevel,omitempty"`
	Stage    Stage     `json:"stage,omitempty"`
}

// MarshalJSON writes exactly the payload of the event's kind, zero
// values included: login_reward{streak, reward}, xp_awarded{amount},
// level_up{newLevel, stage}.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case EventLoginReward:
		return json.Marshal(struct {
			Kind   EventKind `json:"kind"`
			Streak int       `json:"streak"`
			Reward int64     `json:"reward"`
		}{e.Kind, e.Streak, e.Reward})
	case EventXPAwarded:
		return json.Marshal(struct {
			Kind   EventKind `json:"kind"`
			Amount int64     `json:"amount"`
		}{e.Kind, e.Amount})
	case EventLevelUp:
		return json.Marshal(struct {
			Kind     EventKind `json:"kind"`
			NewLevel int       `json:"newLevel"`
			Stage    Stage     `json:"stage"`
		}{e.Kind, e.NewLevel, e.Stage})
	default:
		type plain Event
		return json.Marshal(plain(e))
	}
}

// StoredEvent is an Event as recorded in the progression event log.
type StoredEvent struct {
	ID        string    `json:"id"`
	Identity  string    `json:"identity"`
	Source    string    `json:"source"`
	Event     Event     `json:"event"`
	CreatedAt time.Time `json:"createdAt"`
}

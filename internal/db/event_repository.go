package db

import (
	"database/sql"

	"github.com/ad/insight-quest/internal/models"
)

type EventRepository struct {
	queue *DBQueue
}

func NewEventRepository(queue *DBQueue) *EventRepository {
	return &EventRepository{queue: queue}
}

// ListByIdentity returns the newest events first.
func (r *EventRepository) ListByIdentity(identity string, limit int) ([]*models.StoredEvent, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		rows, err := db.Query(`
			SELECT id, identity, kind, source, streak, reward, amount, new_level, stage, created_at
			FROM progression_events
			WHERE identity = ?
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?
		`, identity, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var events []*models.StoredEvent
		for rows.Next() {
			var ev models.StoredEvent
			var kind, stage string
			if err := rows.Scan(&ev.ID, &ev.Identity, &kind, &ev.Source, &ev.Event.Streak, &ev.Event.Reward,
				&ev.Event.Amount, &ev.Event.NewLevel, &stage, &ev.CreatedAt); err != nil {
				return nil, err
			}
			ev.Event.Kind = models.EventKind(kind)
			ev.Event.Stage = models.Stage(stage)
			events = append(events, &ev)
		}
		return events, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.StoredEvent), nil
}

func (r *EventRepository) CountByKind(kind models.EventKind) (int, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		var count int
		err := db.QueryRow(`SELECT COUNT(*) FROM progression_events WHERE kind = ?`, string(kind)).Scan(&count)
		return count, err
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

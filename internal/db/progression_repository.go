package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ad/insight-quest/internal/models"
	"github.com/ad/insight-quest/internal/progression"
	"github.com/google/uuid"
)

// Mutation computes the next record and its events from the current one.
type Mutation func(models.UserProgression) (models.UserProgression, []models.Event)

type ApplyResult struct {
	Progression models.UserProgression
	Events      []models.Event
	Created     bool
}

type ProgressionRepository struct {
	queue *DBQueue
}

func NewProgressionRepository(queue *DBQueue) *ProgressionRepository {
	return &ProgressionRepository{queue: queue}
}

const progressionColumns = `identity, username, experience_points, level, stage, last_login_date, login_streak, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProgression(row rowScanner) (*models.UserProgression, error) {
	var p models.UserProgression
	var stage string
	var lastLogin sql.NullString
	err := row.Scan(&p.Identity, &p.Username, &p.ExperiencePoints, &p.Level, &stage, &lastLogin, &p.LoginStreak, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Stage = models.Stage(stage)
	if lastLogin.Valid && lastLogin.String != "" {
		d, err := models.ParseDate(lastLogin.String)
		if err != nil {
			return nil, fmt.Errorf("progression %s: %w", p.Identity, err)
		}
		p.LastLoginDate = &d
	}
	return &p, nil
}

func lastLoginValue(p models.UserProgression) interface{} {
	if p.LastLoginDate == nil {
		return nil
	}
	return p.LastLoginDate.String()
}

func (r *ProgressionRepository) Get(identity string) (*models.UserProgression, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		row := db.QueryRow(`SELECT `+progressionColumns+` FROM progressions WHERE identity = ?`, identity)
		p, err := scanProgression(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return p, err
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.UserProgression), nil
}

// Apply loads the record for identity (creating it if absent), runs
// mutate on it and stores the result together with the emitted events,
// all in one transaction on the queue worker. Concurrent Apply calls for
// the same identity therefore observe each other's writes.
func (r *ProgressionRepository) Apply(identity, source string, now time.Time, mutate Mutation) (*ApplyResult, error) {
	result, err := r.queue.ExecuteTx(func(tx *sql.Tx) (interface{}, error) {
		row := tx.QueryRow(`SELECT `+progressionColumns+` FROM progressions WHERE identity = ?`, identity)
		current, err := scanProgression(row)
		created := false
		switch {
		case errors.Is(err, sql.ErrNoRows):
			fresh := progression.New(identity)
			fresh.CreatedAt = now
			fresh.UpdatedAt = now
			current = &fresh
			created = true
		case err != nil:
			return nil, fmt.Errorf("load progression: %w", err)
		}

		updated, events := mutate(*current)
		updated.Identity = identity
		updated.CreatedAt = current.CreatedAt

		if !created && len(events) == 0 {
			return &ApplyResult{Progression: *current}, nil
		}
		updated.UpdatedAt = now

		if err := saveProgression(tx, updated); err != nil {
			return nil, err
		}

		for _, ev := range events {
			_, err := tx.Exec(`
				INSERT INTO progression_events (id, identity, kind, source, streak, reward, amount, new_level, stage, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, uuid.NewString(), identity, string(ev.Kind), source, ev.Streak, ev.Reward, ev.Amount, ev.NewLevel, string(ev.Stage), now)
			if err != nil {
				return nil, fmt.Errorf("record %s event: %w", ev.Kind, err)
			}
		}

		return &ApplyResult{Progression: updated, Events: events, Created: created}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*ApplyResult), nil
}

func saveProgression(tx *sql.Tx, p models.UserProgression) error {
	_, err := tx.Exec(`
		INSERT INTO progressions (`+progressionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			username = excluded.username,
			experience_points = excluded.experience_points,
			level = excluded.level,
			stage = excluded.stage,
			last_login_date = excluded.last_login_date,
			login_streak = excluded.login_streak,
			updated_at = excluded.updated_at
	`, p.Identity, p.Username, p.ExperiencePoints, p.Level, string(p.Stage),
		lastLoginValue(p), p.LoginStreak, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save progression: %w", err)
	}
	return nil
}

// SetUsername stores the display name of identity, creating the record
// when it does not exist yet. XP and login state are left untouched.
func (r *ProgressionRepository) SetUsername(identity, username string, now time.Time) (*models.UserProgression, bool, error) {
	result, err := r.queue.ExecuteTx(func(tx *sql.Tx) (interface{}, error) {
		row := tx.QueryRow(`SELECT `+progressionColumns+` FROM progressions WHERE identity = ?`, identity)
		current, err := scanProgression(row)
		created := false
		switch {
		case errors.Is(err, sql.ErrNoRows):
			fresh := progression.New(identity)
			fresh.CreatedAt = now
			current = &fresh
			created = true
		case err != nil:
			return nil, fmt.Errorf("load progression: %w", err)
		}

		current.Username = username
		current.UpdatedAt = now
		if err := saveProgression(tx, *current); err != nil {
			return nil, err
		}
		return &ApplyResult{Progression: *current, Created: created}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := result.(*ApplyResult)
	return &res.Progression, res.Created, nil
}

// UsernamesOf returns the non-empty usernames of the given identities.
func (r *ProgressionRepository) UsernamesOf(identities []string) (map[string]string, error) {
	names := make(map[string]string)
	if len(identities) == 0 {
		return names, nil
	}
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(identities)), ",")
		args := make([]interface{}, len(identities))
		for i, id := range identities {
			args[i] = id
		}
		rows, err := db.Query(`
			SELECT identity, username FROM progressions
			WHERE username != '' AND identity IN (`+placeholders+`)
		`, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var identity, username string
			if err := rows.Scan(&identity, &username); err != nil {
				return nil, err
			}
			names[identity] = username
		}
		return nil, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *ProgressionRepository) GetAll() ([]*models.UserProgression, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		rows, err := db.Query(`SELECT ` + progressionColumns + ` FROM progressions ORDER BY identity`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var list []*models.UserProgression
		for rows.Next() {
			p, err := scanProgression(rows)
			if err != nil {
				return nil, err
			}
			list = append(list, p)
		}
		return list, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.UserProgression), nil
}

// TopByXP returns the highest-XP records; ties are broken by identity.
func (r *ProgressionRepository) TopByXP(limit int) ([]*models.UserProgression, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		rows, err := db.Query(`
			SELECT `+progressionColumns+` FROM progressions
			ORDER BY experience_points DESC, identity ASC
			LIMIT ?
		`, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var list []*models.UserProgression
		for rows.Next() {
			p, err := scanProgression(rows)
			if err != nil {
				return nil, err
			}
			list = append(list, p)
		}
		return list, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.UserProgression), nil
}

// RankOf returns the 1-based position of identity in TopByXP order.
func (r *ProgressionRepository) RankOf(identity string) (int64, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		var xp int64
		err := db.QueryRow(`SELECT experience_points FROM progressions WHERE identity = ?`, identity).Scan(&xp)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}

		var ahead int64
		err = db.QueryRow(`
			SELECT COUNT(*) FROM progressions
			WHERE experience_points > ? OR (experience_points = ? AND identity < ?)
		`, xp, xp, identity).Scan(&ahead)
		return ahead + 1, err
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// RepairDerived rewrites level and stage of every record whose stored
// values disagree with its experience points. It returns the number of
// corrected rows.
func (r *ProgressionRepository) RepairDerived(now time.Time) (int, error) {
	result, err := r.queue.ExecuteTx(func(tx *sql.Tx) (interface{}, error) {
		rows, err := tx.Query(`SELECT ` + progressionColumns + ` FROM progressions`)
		if err != nil {
			return nil, err
		}
		var broken []models.UserProgression
		for rows.Next() {
			p, err := scanProgression(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			fixed := progression.Normalize(*p)
			if fixed.Level != p.Level || fixed.Stage != p.Stage ||
				fixed.ExperiencePoints != p.ExperiencePoints || fixed.LoginStreak != p.LoginStreak {
				broken = append(broken, fixed)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()

		for _, p := range broken {
			_, err := tx.Exec(`
				UPDATE progressions
				SET experience_points = ?, level = ?, stage = ?, login_streak = ?, updated_at = ?
				WHERE identity = ?
			`, p.ExperiencePoints, p.Level, string(p.Stage), p.LoginStreak, now, p.Identity)
			if err != nil {
				return nil, fmt.Errorf("repair %s: %w", p.Identity, err)
			}
		}
		return len(broken), nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

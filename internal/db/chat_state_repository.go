package db

import (
	"database/sql"
	"errors"

	"github.com/ad/insight-quest/internal/models"
)

type ChatStateRepository struct {
	queue *DBQueue
}

func NewChatStateRepository(queue *DBQueue) *ChatStateRepository {
	return &ChatStateRepository{queue: queue}
}

func (r *ChatStateRepository) Save(state *models.ChatState) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		_, err := db.Exec(`
			INSERT INTO user_chat_state (user_id, state)
			VALUES (?, ?)
			ON CONFLICT(user_id) DO UPDATE SET state = excluded.state
		`, state.UserID, state.State)
		return nil, err
	})
	return err
}

// Get returns an empty state for users that never had one.
func (r *ChatStateRepository) Get(userID int64) (*models.ChatState, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		state := &models.ChatState{UserID: userID}
		err := db.QueryRow(`SELECT state FROM user_chat_state WHERE user_id = ?`, userID).Scan(&state.State)
		if errors.Is(err, sql.ErrNoRows) {
			return state, nil
		}
		return state, err
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.ChatState), nil
}

package db

import (
	"database/sql"
	"errors"

	"github.com/ad/insight-quest/internal/models"
)

type UserRepository struct {
	queue *DBQueue
}

func NewUserRepository(queue *DBQueue) *UserRepository {
	return &UserRepository{queue: queue}
}

const userColumns = `id, first_name, last_name, username, wallet_address, connected, created_at`

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var firstName, lastName, username sql.NullString
	err := row.Scan(&user.ID, &firstName, &lastName, &username, &user.WalletAddress, &user.Connected, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	user.FirstName = firstName.String
	user.LastName = lastName.String
	user.Username = username.String
	return &user, nil
}

func (r *UserRepository) CreateOrUpdate(user *models.User) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		_, err := db.Exec(`
			INSERT INTO users (id, first_name, last_name, username)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				first_name = excluded.first_name,
				last_name = excluded.last_name,
				username = excluded.username
		`, user.ID, user.FirstName, user.LastName, user.Username)
		return nil, err
	})
	return err
}

func (r *UserRepository) GetByID(id int64) (*models.User, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		user, err := scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return user, err
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.User), nil
}

// GetByWallet returns the connected user linked to address. When several
// Telegram accounts linked the same wallet the most recently created wins.
func (r *UserRepository) GetByWallet(address string) (*models.User, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		user, err := scanUser(db.QueryRow(`
			SELECT `+userColumns+` FROM users
			WHERE wallet_address = ? AND connected = TRUE
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		`, address))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return user, err
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.User), nil
}

func (r *UserRepository) LinkWallet(userID int64, address string) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		res, err := db.Exec(`UPDATE users SET wallet_address = ?, connected = TRUE WHERE id = ?`, address, userID)
		if err != nil {
			return nil, err
		}
		return nil, requireAffected(res)
	})
	return err
}

// Disconnect ends the session but keeps the wallet so /connect can restore it.
func (r *UserRepository) Disconnect(userID int64) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		res, err := db.Exec(`UPDATE users SET connected = FALSE WHERE id = ?`, userID)
		if err != nil {
			return nil, err
		}
		return nil, requireAffected(res)
	})
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

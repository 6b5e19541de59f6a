package db

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS progressions (
    identity TEXT PRIMARY KEY,
    username TEXT NOT NULL DEFAULT '',
    experience_points INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    stage TEXT NOT NULL DEFAULT 'Spark',
    last_login_date TEXT,
    login_streak INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_progressions_xp ON progressions(experience_points DESC, identity);

CREATE TABLE IF NOT EXISTS progression_events (
    id TEXT PRIMARY KEY,
    identity TEXT NOT NULL REFERENCES progressions(identity),
    kind TEXT NOT NULL,
    source TEXT NOT NULL DEFAULT '',
    streak INTEGER NOT NULL DEFAULT 0,
    reward INTEGER NOT NULL DEFAULT 0,
    amount INTEGER NOT NULL DEFAULT 0,
    new_level INTEGER NOT NULL DEFAULT 0,
    stage TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_progression_events_identity ON progression_events(identity, created_at);

CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY,
    first_name TEXT,
    last_name TEXT,
    username TEXT,
    wallet_address TEXT NOT NULL DEFAULT '',
    connected BOOLEAN NOT NULL DEFAULT FALSE,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_users_wallet ON users(wallet_address);

CREATE TABLE IF NOT EXISTS user_chat_state (
    user_id INTEGER PRIMARY KEY,
    state TEXT NOT NULL DEFAULT ''
);
`

// Columns added after the first release. Each statement fails harmlessly
// when the column already exists.
var migrations = []string{
	`ALTER TABLE progressions ADD COLUMN username TEXT NOT NULL DEFAULT ''`,
}

func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	for _, m := range migrations {
		db.Exec(m)
	}
	return nil
}

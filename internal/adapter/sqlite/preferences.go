package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"nexus-chat/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS preferences (
	client_id  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (client_id, key)
)`

const themeKey = "theme"

// Preferences is a PreferenceStore backed by a sqlite file.
type Preferences struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Preferences, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serialises
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Preferences{db: db}, nil
}

func (p *Preferences) Theme(ctx context.Context, clientID string) (domain.Theme, error) {
	var raw string
	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE client_id = ? AND key = ?`,
		clientID, themeKey,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNoPreference
	}
	if err != nil {
		return "", err
	}
	return domain.ParseTheme(raw)
}

func (p *Preferences) SetTheme(ctx context.Context, clientID string, theme domain.Theme) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO preferences (client_id, key, value, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (client_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		clientID, themeKey, string(theme),
	)
	return err
}

func (p *Preferences) Close() error {
	return p.db.Close()
}

package domain

import (
	"context"
	"errors"
)

var ErrNoPreference = errors.New("no stored preference")

// PreferenceStore keeps per-client display preferences across restarts.
// Theme returns ErrNoPreference when nothing was stored for the client.
type PreferenceStore interface {
	Theme(ctx context.Context, clientID string) (Theme, error)
	SetTheme(ctx context.Context, clientID string, theme Theme) error
}

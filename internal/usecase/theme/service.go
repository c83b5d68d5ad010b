package theme

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"nexus-chat/internal/domain"
)

type Service struct {
	store    domain.PreferenceStore
	fallback domain.Theme
	log      *log.Logger
}

func NewService(store domain.PreferenceStore, fallback domain.Theme, logger *log.Logger) *Service {
	return &Service{
		store:    store,
		fallback: fallback,
		log:      logger,
	}
}

// Current returns the stored theme for a client, or the fallback when
// nothing is stored or the store cannot be read.
func (s *Service) Current(ctx context.Context, clientID string) domain.Theme {
	t, err := s.store.Theme(ctx, clientID)
	if err != nil {
		if !errors.Is(err, domain.ErrNoPreference) {
			s.log.Warn("could not read theme", "client", clientID, "err", err)
		}
		return s.fallback
	}
	return t
}

// Toggle flips and persists the theme. The flipped theme is returned even
// when persisting fails so the current page still reflects the click.
func (s *Service) Toggle(ctx context.Context, clientID string) (domain.Theme, error) {
	next := s.Current(ctx, clientID).Toggle()
	if err := s.store.SetTheme(ctx, clientID, next); err != nil {
		return next, fmt.Errorf("save theme: %w", err)
	}
	return next, nil
}

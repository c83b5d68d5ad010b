package memory

import (
	"context"
	"sync"

	"nexus-chat/internal/domain"
)

type Preferences struct {
	mu     sync.Mutex
	themes map[string]domain.Theme
}

func NewPreferences() *Preferences {
	return &Preferences{
		themes: make(map[string]domain.Theme),
	}
}

func (p *Preferences) Theme(_ context.Context, clientID string) (domain.Theme, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.themes[clientID]
	if !ok {
		return "", domain.ErrNoPreference
	}
	return t, nil
}

func (p *Preferences) SetTheme(_ context.Context, clientID string, theme domain.Theme) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.themes[clientID] = theme
	return nil
}

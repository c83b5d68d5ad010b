package theme

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus-chat/internal/adapter/memory"
	"nexus-chat/internal/domain"
	"nexus-chat/internal/logger"
)

type brokenStore struct{}

func (brokenStore) Theme(context.Context, string) (domain.Theme, error) {
	return "", errors.New("disk on fire")
}

func (brokenStore) SetTheme(context.Context, string, domain.Theme) error {
	return errors.New("disk on fire")
}

func TestCurrentFallsBackWhenNothingStored(t *testing.T) {
	svc := NewService(memory.NewPreferences(), domain.ThemeDark, logger.Discard())
	assert.Equal(t, domain.ThemeDark, svc.Current(context.Background(), "c"))
}

func TestTogglePersists(t *testing.T) {
	ctx := context.Background()
	prefs := memory.NewPreferences()
	svc := NewService(prefs, domain.ThemeLight, logger.Discard())

	next, err := svc.Toggle(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeDark, next)
	assert.Equal(t, domain.ThemeDark, svc.Current(ctx, "c"))

	stored, err := prefs.Theme(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeDark, stored)

	next, err = svc.Toggle(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeLight, next)

	assert.Equal(t, domain.ThemeLight, svc.Current(ctx, "other"))
}

func TestToggleWithBrokenStore(t *testing.T) {
	svc := NewService(brokenStore{}, domain.ThemeLight, logger.Discard())

	assert.Equal(t, domain.ThemeLight, svc.Current(context.Background(), "c"))
	next, err := svc.Toggle(context.Background(), "c")
	assert.Error(t, err)
	assert.Equal(t, domain.ThemeDark, next)
}

package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus-chat/internal/adapter/memory"
	"nexus-chat/internal/adapter/simulated"
	"nexus-chat/internal/config"
	"nexus-chat/internal/domain"
	"nexus-chat/internal/usecase/chat"
)

func baseConfig() config.Config {
	return config.Config{
		Backend:         config.BackendLive,
		Model:           "gpt-test",
		MaxTokens:       10,
		AssistantPrompt: "sys",
		RequestTimeout:  time.Second,
		SessionTTL:      time.Hour,
		PrefsDB:         ":memory:",
		Tools:           config.DefaultTools(),
	}
}

func TestBackendSelection(t *testing.T) {
	cfg := baseConfig()
	cfg.Backend = config.BackendSimulated
	client, transcriber := (&app{cfg: cfg}).backend()
	assert.IsType(t, &simulated.Client{}, client)
	assert.Nil(t, transcriber)

	cfg = baseConfig()
	client, transcriber = (&app{cfg: cfg}).backend()
	assert.NotNil(t, client)
	assert.Nil(t, transcriber)

	cfg.OpenAIKey = "sk-real"
	_, transcriber = (&app{cfg: cfg}).backend()
	assert.NotNil(t, transcriber)
}

func TestNewAppWithMemoryPreferences(t *testing.T) {
	a, err := newApp(context.Background(), baseConfig(), domain.ThemeDark)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, chat.StatusKeyNeeded, a.chat.Status())
	assert.False(t, a.speech.Available())
	assert.Equal(t, domain.ThemeDark, a.theme.Current(context.Background(), "anyone"))
	assert.Empty(t, a.closers)
}

func TestNewAppWithSQLitePreferences(t *testing.T) {
	cfg := baseConfig()
	cfg.PrefsDB = filepath.Join(t.TempDir(), "prefs.db")

	a, err := newApp(context.Background(), cfg, domain.ThemeLight)
	require.NoError(t, err)

	next, err := a.theme.Toggle(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeDark, next)
	require.Len(t, a.closers, 1)
	require.NoError(t, a.Close())
}

func TestSweepSessionsStopsWithContext(t *testing.T) {
	a := &app{cfg: baseConfig(), sessions: memory.NewStore(time.Hour)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, a.sweepSessions(ctx, nil))
}

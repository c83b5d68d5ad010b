package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"nexus-chat/internal/adapter/clipboard"
	"nexus-chat/internal/adapter/memory"
	"nexus-chat/internal/adapter/openai"
	"nexus-chat/internal/adapter/simulated"
	"nexus-chat/internal/adapter/sqlite"
	"nexus-chat/internal/config"
	"nexus-chat/internal/domain"
	"nexus-chat/internal/logger"
	"nexus-chat/internal/usecase/chat"
	"nexus-chat/internal/usecase/speech"
	"nexus-chat/internal/usecase/theme"
)

// app holds the services shared by every surface.
type app struct {
	cfg      config.Config
	sessions *memory.Store
	chat     *chat.Service
	speech   *speech.Service
	theme    *theme.Service
	closers  []io.Closer
}

func newApp(ctx context.Context, cfg config.Config, fallbackTheme domain.Theme) (*app, error) {
	a := &app{
		cfg:      cfg,
		sessions: memory.NewStore(cfg.SessionTTL),
	}

	prefs, err := a.openPreferences(ctx)
	if err != nil {
		return nil, err
	}

	client, transcriber := a.backend()
	a.chat = chat.NewService(a.sessions, client, clipboard.NewSystem(), cfg, logger.New("chat"))
	a.speech = speech.NewService(transcriber, cfg)
	a.theme = theme.NewService(prefs, fallbackTheme, logger.New("theme"))

	logger.New("app").Info("services ready",
		"backend", cfg.Backend,
		"model", cfg.Model,
		"status", a.chat.Status(),
		"speech", a.speech.Available())
	return a, nil
}

func (a *app) openPreferences(ctx context.Context) (domain.PreferenceStore, error) {
	if a.cfg.PrefsDB == "" || a.cfg.PrefsDB == ":memory:" {
		return memory.NewPreferences(), nil
	}
	prefs, err := sqlite.Open(ctx, a.cfg.PrefsDB)
	if err != nil {
		return nil, fmt.Errorf("open preferences %s: %w", a.cfg.PrefsDB, err)
	}
	a.closers = append(a.closers, prefs)
	return prefs, nil
}

// backend picks the completion client. Speech recognition is only offered
// by the live backend with a usable key.
func (a *app) backend() (chat.Client, speech.Transcriber) {
	if a.cfg.Backend == config.BackendSimulated {
		return simulated.NewClient(a.cfg.SimulatedSeed, a.cfg.SimulatedDelayMin, a.cfg.SimulatedDelayMax, nil), nil
	}

	client := openai.NewClient(a.cfg.OpenAIKey, a.cfg.BaseURL, &http.Client{Timeout: a.cfg.RequestTimeout + 5*time.Second})
	if !a.cfg.HasAPIKey() {
		return client, nil
	}
	return client, client
}

// sweepSessions evicts idle sessions until ctx is done.
func (a *app) sweepSessions(ctx context.Context, l *log.Logger) error {
	if a.cfg.SessionTTL <= 0 {
		return nil
	}
	ticker := time.NewTicker(max(a.cfg.SessionTTL/4, time.Minute))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := a.sessions.Sweep(); n > 0 {
				l.Debug("evicted idle sessions", "count", n)
			}
		}
	}
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Package logger configures the structured loggers shared by every surface.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	mu     sync.Mutex
	output io.Writer = os.Stderr
	level            = log.InfoLevel
)

// Configure sets the level and destination used by loggers created
// afterwards. An empty file keeps stderr.
func Configure(logLevel, logFile string) (io.Closer, error) {
	mu.Lock()
	defer mu.Unlock()

	level = ParseLevel(logLevel)
	if logFile == "" {
		output = os.Stderr
		return nopCloser{}, nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	output = file
	return file, nil
}

// ParseLevel falls back to info for anything it does not recognise.
func ParseLevel(raw string) log.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// New returns a component logger, e.g. New("web") or New("telegram").
func New(component string) *log.Logger {
	mu.Lock()
	w, lvl := output, level
	mu.Unlock()

	l := log.NewWithOptions(w, log.Options{
		Prefix:          component,
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	l.SetStyles(styles())
	return l
}

// Discard is for tests and for components that must stay silent.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func styles() *log.Styles {
	s := log.DefaultStyles()
	s.Levels[log.InfoLevel] = lipgloss.NewStyle().
		SetString("INFO").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("33")).
		Foreground(lipgloss.Color("15"))
	s.Levels[log.WarnLevel] = lipgloss.NewStyle().
		SetString("WARN").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("214")).
		Foreground(lipgloss.Color("15"))
	s.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("196")).
		Foreground(lipgloss.Color("15"))
	s.Keys["session"] = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	s.Keys["err"] = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	s.Values["err"] = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	return s
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"nexus-chat/internal/domain"
)

const (
	BackendLive      = "live"
	BackendSimulated = "simulated"
)

const DefaultAssistantPrompt = "You are Nexus AI, a helpful AI assistant. Be concise, friendly, and professional."

type QuickPrompt struct {
	Label  string
	Prompt string
}

type Config struct {
	OpenAIKey       string
	BaseURL         string
	Model           string
	MaxTokens       int
	Temperature     float32
	TranscribeModel string

	Backend           string
	SimulatedDelayMin time.Duration
	SimulatedDelayMax time.Duration
	SimulatedSeed     int64

	AssistantPrompt string
	QuickPrompts    []QuickPrompt
	Tools           []string

	Listen         string
	RequestTimeout time.Duration
	SessionTTL     time.Duration
	PrefsDB        string
	DefaultTheme   domain.Theme

	TelegramToken  string
	AdminUserIDs   []int64
	AllowedUserIDs []int64

	LogLevel string
	LogFile  string
}

// flagKeys maps command line flags onto configuration keys. A flag that
// was set explicitly wins over the environment.
var flagKeys = map[string]string{
	"backend":   "NEXUS_BACKEND",
	"listen":    "NEXUS_LISTEN",
	"log-level": "NEXUS_LOG_LEVEL",
	"log-file":  "NEXUS_LOG_FILE",
	"prefs-db":  "NEXUS_PREFS_DB",
}

func Load(envFile string, flags *pflag.FlagSet) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := Config{
		OpenAIKey:         strings.TrimSpace(v.GetString("OPENAI_API_KEY")),
		BaseURL:           v.GetString("OPENAI_BASE_URL"),
		Model:             v.GetString("OPENAI_MODEL"),
		MaxTokens:         v.GetInt("MAX_TOKENS"),
		Temperature:       float32(v.GetFloat64("TEMPERATURE")),
		TranscribeModel:   v.GetString("OPENAI_TRANSCRIBE_MODEL"),
		Backend:           strings.ToLower(v.GetString("NEXUS_BACKEND")),
		SimulatedDelayMin: v.GetDuration("NEXUS_SIMULATED_DELAY_MIN"),
		SimulatedDelayMax: v.GetDuration("NEXUS_SIMULATED_DELAY_MAX"),
		SimulatedSeed:     v.GetInt64("NEXUS_SIMULATED_SEED"),
		AssistantPrompt:   v.GetString("ASSISTANT_PROMPT"),
		QuickPrompts:      DefaultQuickPrompts(),
		Tools:             DefaultTools(),
		Listen:            v.GetString("NEXUS_LISTEN"),
		RequestTimeout:    v.GetDuration("NEXUS_REQUEST_TIMEOUT"),
		SessionTTL:        v.GetDuration("NEXUS_SESSION_TTL"),
		PrefsDB:           v.GetString("NEXUS_PREFS_DB"),
		TelegramToken:     strings.TrimSpace(v.GetString("TELEGRAM_BOT_TOKEN")),
		LogLevel:          v.GetString("NEXUS_LOG_LEVEL"),
		LogFile:           v.GetString("NEXUS_LOG_FILE"),
	}

	theme, err := domain.ParseTheme(v.GetString("NEXUS_THEME"))
	if err != nil {
		return cfg, err
	}
	cfg.DefaultTheme = theme

	if cfg.AdminUserIDs, err = parseIDs(v.GetString("ADMIN_USER_IDS")); err != nil {
		return cfg, fmt.Errorf("ADMIN_USER_IDS: %w", err)
	}
	if cfg.AllowedUserIDs, err = parseIDs(v.GetString("ALLOWED_TELEGRAM_USER_IDS")); err != nil {
		return cfg, fmt.Errorf("ALLOWED_TELEGRAM_USER_IDS: %w", err)
	}

	return cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("OPENAI_MODEL", "gpt-3.5-turbo")
	v.SetDefault("MAX_TOKENS", 1000)
	v.SetDefault("TEMPERATURE", 0.7)
	v.SetDefault("OPENAI_TRANSCRIBE_MODEL", "whisper-1")
	v.SetDefault("NEXUS_BACKEND", BackendLive)
	v.SetDefault("NEXUS_SIMULATED_DELAY_MIN", "800ms")
	v.SetDefault("NEXUS_SIMULATED_DELAY_MAX", "2s")
	v.SetDefault("NEXUS_SIMULATED_SEED", 0)
	v.SetDefault("ASSISTANT_PROMPT", DefaultAssistantPrompt)
	v.SetDefault("NEXUS_LISTEN", "127.0.0.1:8080")
	v.SetDefault("NEXUS_REQUEST_TIMEOUT", "60s")
	v.SetDefault("NEXUS_SESSION_TTL", "120m")
	v.SetDefault("NEXUS_PREFS_DB", "nexus.db")
	v.SetDefault("NEXUS_THEME", string(domain.ThemeLight))
	v.SetDefault("NEXUS_LOG_LEVEL", "info")
	v.SetDefault("NEXUS_LOG_FILE", "")
}

func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendLive, BackendSimulated:
	default:
		errs = append(errs, fmt.Errorf("NEXUS_BACKEND must be %q or %q, got %q", BackendLive, BackendSimulated, c.Backend))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("MAX_TOKENS must be positive, got %d", c.MaxTokens))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("TEMPERATURE must be within [0, 2], got %v", c.Temperature))
	}
	if c.SimulatedDelayMin < 0 || c.SimulatedDelayMax < c.SimulatedDelayMin {
		errs = append(errs, fmt.Errorf("simulated delay range %s..%s is invalid", c.SimulatedDelayMin, c.SimulatedDelayMax))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("NEXUS_REQUEST_TIMEOUT must be positive"))
	}
	if strings.TrimSpace(c.AssistantPrompt) == "" {
		errs = append(errs, errors.New("ASSISTANT_PROMPT must not be empty"))
	}
	return errors.Join(errs...)
}

// RequireTelegram reports whether the telegram surface can start.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required for the telegram surface")
	}
	return nil
}

// HasAPIKey reports whether the live backend has a credential to send.
func (c Config) HasAPIKey() bool {
	return c.OpenAIKey != "" && c.OpenAIKey != "sk-..."
}

func DefaultQuickPrompts() []QuickPrompt {
	return []QuickPrompt{
		{Label: "Explain a concept", Prompt: "Explain quantum computing in simple terms."},
		{Label: "Write code", Prompt: "Write a Go function that reverses a string."},
		{Label: "Summarize", Prompt: "Summarize the key points of the following text:"},
		{Label: "Brainstorm", Prompt: "Give me five creative ideas for a weekend project."},
	}
}

func DefaultTools() []string {
	return []string{"Chat", "Code", "Write", "Research"}
}

func parseIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("user id %q: %w", p, err)
		}
		ids = append(ids, v)
	}
	return ids, nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus-chat/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("NEXUS_BACKEND", "")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "gpt-3.5-turbo", cfg.Model)
	assert.Equal(t, 1000, cfg.MaxTokens)
	assert.InDelta(t, 0.7, cfg.Temperature, 1e-6)
	assert.Equal(t, BackendLive, cfg.Backend)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 120*time.Minute, cfg.SessionTTL)
	assert.Equal(t, domain.ThemeLight, cfg.DefaultTheme)
	assert.Equal(t, DefaultAssistantPrompt, cfg.AssistantPrompt)
	assert.NotEmpty(t, cfg.QuickPrompts)
	assert.NotEmpty(t, cfg.Tools)
	assert.False(t, cfg.HasAPIKey())
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("OPENAI_MODEL=from-file\nNEXUS_TEST_ONLY_KEY=1\nMAX_TOKENS=42\n"), 0o600))

	t.Setenv("OPENAI_MODEL", "from-env")
	t.Setenv("MAX_TOKENS", "")
	t.Cleanup(func() { os.Unsetenv("NEXUS_TEST_ONLY_KEY") })

	cfg, err := Load(envFile, nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Model)
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"), nil)
	assert.NoError(t, err)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("NEXUS_BACKEND", "live")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("backend", "", "")
	flags.String("listen", "", "")
	require.NoError(t, flags.Parse([]string{"--backend", "simulated", "--listen", ":9999"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, BackendSimulated, cfg.Backend)
	assert.Equal(t, ":9999", cfg.Listen)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("NEXUS_BACKEND", "quantum")
	t.Setenv("TEMPERATURE", "3.5")

	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NEXUS_BACKEND")
	assert.Contains(t, err.Error(), "TEMPERATURE")
}

func TestLoadParsesUserIDs(t *testing.T) {
	t.Setenv("ALLOWED_TELEGRAM_USER_IDS", " 1, 2 ,,3")
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, cfg.AllowedUserIDs)

	t.Setenv("ALLOWED_TELEGRAM_USER_IDS", "1,abc")
	_, err = Load("", nil)
	assert.Error(t, err)
}

func TestRequireTelegram(t *testing.T) {
	assert.Error(t, Config{}.RequireTelegram())
	assert.NoError(t, Config{TelegramToken: "t"}.RequireTelegram())
}

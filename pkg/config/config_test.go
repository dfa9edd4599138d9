package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnv blanks every variable LoadConfig reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		envConfigPath,
		"BOT_WEBHOOK_URL", "BOT_WEBHOOK_SECRET", "BOT_SOURCE", "BOT_REQUEST_TIMEOUT_SECONDS",
		"CHANNEL_TRANSPORT", "PROXY", "http_proxy", "CHANNEL_SYNC_PLATFORMS",
		"SMOOCH_APP_ID", "SMOOCH_KEY_ID", "SMOOCH_SECRET", "SMOOCH_WEBHOOK_SECRET",
		"SMOOCH_BASE_URL", "SMOOCH_REQUEST_TIMEOUT_SECONDS",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_ALLOW_FROM",
		"HOST", "PORT",
	} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
	  "bot": {"webhook_url": "http://bot.local/hook", "webhook_secret": "s3cret"},
	  "channel": {"transport": "smooch", "smooch": {"app_id": "app", "key_id": "k", "secret": "s", "webhook_secret": "w"}},
	  "gateway": {"host": "127.0.0.1", "port": 18790},
	  "logging": {"format": "json", "level": "debug", "add_source": true}
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv(envConfigPath, path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Logging.Format != "json" {
		t.Fatalf("logging.format = %q, want %q", cfg.Logging.Format, "json")
	}
	if !cfg.Logging.AddSource {
		t.Fatal("logging.add_source = false, want true")
	}
	if cfg.Bot.WebhookURL != "http://bot.local/hook" {
		t.Fatalf("bot.webhook_url = %q", cfg.Bot.WebhookURL)
	}
	if cfg.Gateway.Port != 18790 || cfg.Gateway.Host != "127.0.0.1" {
		t.Fatalf("gateway = %+v", cfg.Gateway)
	}
	if cfg.Channel.Smooch.BaseURL != DefaultSmoochBaseURL {
		t.Fatalf("smooch.base_url = %q, want default", cfg.Channel.Smooch.BaseURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
}

func TestLoadConfigInvalidEnvPath(t *testing.T) {
	clearEnv(t)
	t.Setenv(envConfigPath, filepath.Join(t.TempDir(), "missing.json"))

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing config path")
	}
}

func TestLoadConfigWithoutFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Bot.Source != DefaultSource {
		t.Fatalf("bot.source = %q, want %q", cfg.Bot.Source, DefaultSource)
	}
	if cfg.Channel.Transport != TransportSmooch {
		t.Fatalf("channel.transport = %q, want %q", cfg.Channel.Transport, TransportSmooch)
	}
	if cfg.Gateway.Port != DefaultPort || cfg.Gateway.Host != DefaultHost {
		t.Fatalf("gateway = %+v, want defaults", cfg.Gateway)
	}
}

func TestEnvOverridesFileValues(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"gateway": {"port": 8080}, "bot": {"source": "file"}}`), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(envConfigPath, path)
	t.Setenv("PORT", "9090")
	t.Setenv("CHANNEL_TRANSPORT", "Telegram")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_ALLOW_FROM", " 1, ,2 ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Gateway.Port != 9090 {
		t.Fatalf("gateway.port = %d, want 9090", cfg.Gateway.Port)
	}
	if cfg.Bot.Source != "file" {
		t.Fatalf("bot.source = %q, want file value kept", cfg.Bot.Source)
	}
	if cfg.Channel.Transport != TransportTelegram {
		t.Fatalf("channel.transport = %q, want %q", cfg.Channel.Transport, TransportTelegram)
	}
	if got := strings.Join(cfg.Channel.Telegram.AllowFrom, ","); got != "1,2" {
		t.Fatalf("telegram.allow_from = %q, want %q", got, "1,2")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
}

func TestProxyFallsBackToHTTPProxy(t *testing.T) {
	clearEnv(t)
	t.Setenv("http_proxy", "http://proxy.local:3128")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Channel.Proxy != "http://proxy.local:3128" {
		t.Fatalf("channel.proxy = %q", cfg.Channel.Proxy)
	}

	t.Setenv("PROXY", "http://explicit:8080")
	cfg, err = LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Channel.Proxy != "http://explicit:8080" {
		t.Fatalf("channel.proxy = %q, want PROXY to win", cfg.Channel.Proxy)
	}
}

func TestValidateReportsMissingSmoochCredentials(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.applyDefaults()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, field := range []string{"app_id", "key_id", "secret", "webhook_secret"} {
		if !strings.Contains(err.Error(), "channel.smooch."+field) {
			t.Fatalf("error %q does not mention %s", err, field)
		}
	}
}

func TestValidateRejectsUnknownTransport(t *testing.T) {
	t.Parallel()

	cfg := &Config{Channel: ChannelConfig{Transport: "pigeon"}}
	cfg.applyDefaults()

	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "pigeon") {
		t.Fatalf("Validate error = %v, want unsupported transport", err)
	}
}

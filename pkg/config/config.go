package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
)

const (
	TransportSmooch   = "smooch"
	TransportTelegram = "telegram"

	DefaultSource        = "whatsapp"
	DefaultSmoochBaseURL = "https://api.smooch.io"
	DefaultHost          = "0.0.0.0"
	DefaultPort          = 3000

	envConfigPath = "BOTBRIDGE_CONFIG"
)

// Config is the root runtime configuration: an optional config.json overlaid with
// environment variables.
type Config struct {
	Bot     BotConfig     `json:"bot"`
	Channel ChannelConfig `json:"channel"`
	Gateway GatewayConfig `json:"gateway"`
	Logging LoggingConfig `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// BotConfig describes the bot webhook that receives user messages.
type BotConfig struct {
	WebhookURL            string `json:"webhook_url" env:"BOT_WEBHOOK_URL"`
	WebhookSecret         string `json:"webhook_secret" env:"BOT_WEBHOOK_SECRET"`
	Source                string `json:"source" env:"BOT_SOURCE"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds" env:"BOT_REQUEST_TIMEOUT_SECONDS"`
}

// ChannelConfig selects and configures the channel transport.
type ChannelConfig struct {
	Transport     string         `json:"transport" env:"CHANNEL_TRANSPORT"`
	Proxy         string         `json:"proxy" env:"PROXY"`
	SyncPlatforms []string       `json:"sync_platforms" env:"CHANNEL_SYNC_PLATFORMS"`
	Smooch        SmoochConfig   `json:"smooch"`
	Telegram      TelegramConfig `json:"telegram"`
}

// SmoochConfig holds aggregator app credentials.
type SmoochConfig struct {
	AppID                 string `json:"app_id" env:"SMOOCH_APP_ID"`
	KeyID                 string `json:"key_id" env:"SMOOCH_KEY_ID"`
	Secret                string `json:"secret" env:"SMOOCH_SECRET"`
	WebhookSecret         string `json:"webhook_secret" env:"SMOOCH_WEBHOOK_SECRET"`
	BaseURL               string `json:"base_url" env:"SMOOCH_BASE_URL"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds" env:"SMOOCH_REQUEST_TIMEOUT_SECONDS"`
}

// TelegramConfig configures Telegram channel integration.
type TelegramConfig struct {
	Token     string   `json:"token" env:"TELEGRAM_BOT_TOKEN"`
	AllowFrom []string `json:"allow_from" env:"TELEGRAM_ALLOW_FROM"`
}

// GatewayConfig configures HTTP gateway bind settings.
type GatewayConfig struct {
	Host string `json:"host" env:"HOST"`
	Port int    `json:"port" env:"PORT"`
}

// LoadConfig reads config.json when one is found, applies environment overrides
// and fills defaults.
func LoadConfig() (*Config, error) {
	var cfg Config

	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// applyEnvOverrides injects env-driven settings on top of file config. Unset
// variables leave file values untouched.
func applyEnvOverrides(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	if strings.TrimSpace(cfg.Channel.Proxy) == "" {
		cfg.Channel.Proxy = strings.TrimSpace(os.Getenv("http_proxy"))
	}
	cfg.Channel.Telegram.AllowFrom = compact(cfg.Channel.Telegram.AllowFrom)
	cfg.Channel.SyncPlatforms = compact(cfg.Channel.SyncPlatforms)

	return nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Bot.Source) == "" {
		c.Bot.Source = DefaultSource
	}
	c.Channel.Transport = strings.ToLower(strings.TrimSpace(c.Channel.Transport))
	if c.Channel.Transport == "" {
		c.Channel.Transport = TransportSmooch
	}
	if strings.TrimSpace(c.Channel.Smooch.BaseURL) == "" {
		c.Channel.Smooch.BaseURL = DefaultSmoochBaseURL
	}
	if strings.TrimSpace(c.Gateway.Host) == "" {
		c.Gateway.Host = DefaultHost
	}
	if c.Gateway.Port == 0 {
		c.Gateway.Port = DefaultPort
	}
}

// Validate reports every missing value required by the selected transport.
func (c *Config) Validate() error {
	var errs []error

	if c.Gateway.Port < 1 || c.Gateway.Port > 65535 {
		errs = append(errs, fmt.Errorf("gateway.port must be between 1 and 65535, got %d", c.Gateway.Port))
	}

	switch c.Channel.Transport {
	case TransportSmooch:
		if strings.TrimSpace(c.Channel.Smooch.AppID) == "" {
			errs = append(errs, errors.New("channel.smooch.app_id is required"))
		}
		if strings.TrimSpace(c.Channel.Smooch.KeyID) == "" {
			errs = append(errs, errors.New("channel.smooch.key_id is required"))
		}
		if strings.TrimSpace(c.Channel.Smooch.Secret) == "" {
			errs = append(errs, errors.New("channel.smooch.secret is required"))
		}
		if strings.TrimSpace(c.Channel.Smooch.WebhookSecret) == "" {
			errs = append(errs, errors.New("channel.smooch.webhook_secret is required"))
		}
	case TransportTelegram:
		if strings.TrimSpace(c.Channel.Telegram.Token) == "" {
			errs = append(errs, errors.New("channel.telegram.token is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("channel.transport %q is not supported", c.Channel.Transport))
	}

	return errors.Join(errs...)
}

// compact trims values and drops empty ones.
func compact(values []string) []string {
	clean := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}
	if len(clean) == 0 {
		return nil
	}

	return slices.Clip(clean)
}

// findConfigPath resolves the active config file location. An empty path means
// no file was found and only environment and defaults apply.
//
// Precedence is BOTBRIDGE_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}

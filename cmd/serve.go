package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"botbridge/pkg/bot/webhook"
	"botbridge/pkg/bridge"
	"botbridge/pkg/bus"
	"botbridge/pkg/channel"
	"botbridge/pkg/channel/smooch"
	"botbridge/pkg/channel/telegram"
	"botbridge/pkg/config"
	"botbridge/pkg/delivery"
	"botbridge/pkg/gateway"
	"botbridge/pkg/logger"
	"botbridge/pkg/translator"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge HTTP gateway",
	Long:  "Loads configuration, connects the channel transport and serves the bot and user webhooks until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.serve")

		if err := cfg.Validate(); err != nil {
			log.Error("Configuration invalid", "error", err)
			return
		}

		transport, adapters, err := buildChannel(cfg, log)
		if err != nil {
			log.Error("Channel configuration invalid", "error", err)
			return
		}

		botClient, err := buildBotClient(cfg, log)
		if err != nil {
			log.Error("Bot webhook configuration invalid", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		messageBus := bus.NewMessageBus()
		defer messageBus.Close()

		platforms := syncPlatforms(cfg)
		serializer := delivery.New(runCtx, transport,
			delivery.WithLogger(log),
			delivery.WithEventPublisher(messageBus),
			delivery.WithSyncPlatforms(platforms...),
		)

		deps := gateway.Dependencies{
			Bridge:   bridge.New(translator.New(cfg.Bot.Source), serializer, log),
			Queue:    serializer,
			Bus:      messageBus,
			Adapters: adapters,
		}
		if botClient != nil {
			deps.Bot = botClient
		} else {
			log.Warn("No bot webhook configured; user messages will be dropped")
		}

		svc, err := gateway.NewService(cfg, deps, log)
		if err != nil {
			log.Error("Failed to initialize gateway service", "error", err)
			return
		}

		log.Info("Bridge started",
			"transport", cfg.Channel.Transport,
			"adapters", adapterNames(adapters),
			"sync_platforms", strings.Join(platforms, ","),
			"source", cfg.Bot.Source,
		)
		if err := svc.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Gateway runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// buildChannel returns the configured transport and any push adapters it needs.
func buildChannel(cfg *config.Config, log *slog.Logger) (channel.Transport, []channel.Adapter, error) {
	switch cfg.Channel.Transport {
	case config.TransportSmooch:
		client, err := smooch.New(smooch.Config{
			BaseURL: cfg.Channel.Smooch.BaseURL,
			AppID:   cfg.Channel.Smooch.AppID,
			KeyID:   cfg.Channel.Smooch.KeyID,
			Secret:  cfg.Channel.Smooch.Secret,
			Proxy:   cfg.Channel.Proxy,
			Timeout: seconds(cfg.Channel.Smooch.RequestTimeoutSeconds),
		}, log)
		if err != nil {
			return nil, nil, fmt.Errorf("configure %s transport: %w", config.TransportSmooch, err)
		}
		return client, nil, nil
	case config.TransportTelegram:
		adapter, err := telegram.NewAdapter(cfg.Channel.Telegram, log)
		if err != nil {
			return nil, nil, fmt.Errorf("configure %s transport: %w", config.TransportTelegram, err)
		}
		return adapter, []channel.Adapter{adapter}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported channel transport %q", cfg.Channel.Transport)
	}
}

// buildBotClient returns nil when no webhook URL is configured.
func buildBotClient(cfg *config.Config, log *slog.Logger) (*webhook.Client, error) {
	if strings.TrimSpace(cfg.Bot.WebhookURL) == "" {
		return nil, nil
	}

	return webhook.NewClient(cfg.Bot.WebhookURL, cfg.Bot.WebhookSecret, seconds(cfg.Bot.RequestTimeoutSeconds), log)
}

// syncPlatforms merges the default synchronous platforms with configured ones.
func syncPlatforms(cfg *config.Config) []string {
	platforms := slices.Clone(delivery.DefaultSyncPlatforms)
	platforms = append(platforms, cfg.Channel.SyncPlatforms...)
	if cfg.Channel.Transport == config.TransportTelegram {
		platforms = append(platforms, telegram.Platform)
	}

	for i, platform := range platforms {
		platforms[i] = channel.NormalizePlatform(platform)
	}
	slices.Sort(platforms)
	return slices.Compact(platforms)
}

func adapterNames(adapters []channel.Adapter) string {
	names := make([]string, 0, len(adapters))
	for _, adapter := range adapters {
		names = append(names, adapter.Name())
	}

	return strings.Join(names, ",")
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"ringbook/internal/api"
	"ringbook/internal/config"
	"ringbook/internal/metrics"
	"ringbook/internal/notify"
	"ringbook/internal/session"
	"ringbook/internal/store"
	"ringbook/internal/voice"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("RINGBOOK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	database, err := store.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	}
	lister := store.NewSlotCache(database, rdb, cfg.CacheTTL(), &logger)

	notifiers := buildNotifiers(cfg, &logger)
	if len(notifiers) == 0 {
		logger.Fatal().Msg("no notification channel configured")
	}
	dispatcher := notify.NewDispatcher(notifiers, &logger)

	sessions := session.NewStore(cfg.SessionTimeout())
	controller := voice.NewController(database, dispatcher, sessions, voice.Config{
		MenuSize:       cfg.Voice.MenuSize,
		FallbackNumber: cfg.Voice.FallbackNumber,
		Language:       cfg.Voice.Language,
	}, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessionCleanupLoop(ctx, sessions, &logger)

	backup := store.NewBackupService(cfg.Database.Path, store.BackupConfig{
		Enabled:       cfg.Backup.Enabled,
		StoragePath:   cfg.Backup.StoragePath,
		Interval:      cfg.BackupInterval(),
		RetentionDays: cfg.Backup.RetentionDays,
	}, &logger)
	go backup.Start(ctx)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.NewHTTPServer(cfg.Server.Addr, database, lister, dispatcher, controller, &logger)
	logger.Info().Msg("voice booking service started")
	if err := server.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server error")
	}

	// Let in-flight notifications finish before exiting.
	dispatcher.Wait()
}

func buildNotifiers(cfg *config.Config, logger *zerolog.Logger) []notify.Notifier {
	var notifiers []notify.Notifier

	if cfg.Twilio.AccountSID != "" {
		notifiers = append(notifiers, notify.NewTwilioNotifier(
			cfg.Twilio.AccountSID,
			cfg.Twilio.AuthToken,
			cfg.Twilio.WhatsAppFrom,
			cfg.Twilio.WhatsAppTo,
		))
		logger.Info().Msg("WhatsApp notifications enabled")
	}

	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			logger.Error().Err(err).Msg("telegram notifier init failed")
		} else {
			notifiers = append(notifiers, tg)
			logger.Info().Msg("Telegram notifications enabled")
		}
	}

	return notifiers
}

func sessionCleanupLoop(ctx context.Context, sessions *session.Store, logger *zerolog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := sessions.Cleanup(); removed > 0 {
				logger.Debug().Int("removed", removed).Msg("expired call sessions cleaned up")
			}
		case <-ctx.Done():
			return
		}
	}
}

func startHealthServer(ctx context.Context, port int, database *store.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := database.Ping(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"memberhub-backend-go/internal/config"
	"memberhub-backend-go/internal/db"
	httpapi "memberhub-backend-go/internal/http"
	"memberhub-backend-go/internal/logger"
	"memberhub-backend-go/internal/migrations"
	"memberhub-backend-go/internal/services"
	"memberhub-backend-go/internal/storage"

	charmlog "github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

const (
	metricsRetention = 7 * 24 * time.Hour
	notifyExchange   = "memberhub.events"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, closeLogs := setupLogger(cfg)
	defer closeLogs()

	if cfg.JWTSecretFallback {
		if cfg.IsProduction() {
			log.Fatal("JWT_SECRET is required in production")
		}
		log.Warn("JWT_SECRET not set; using the development fallback secret")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := db.New(db.Config{Path: cfg.DatabasePath})
	defer func() {
		if err := store.Shutdown(); err != nil {
			log.Error("database shutdown", "err", err)
		}
	}()
	version, err := migrations.Apply(ctx, store)
	if err != nil {
		log.Fatal("migrations", "err", err)
	}
	log.Info("database ready", "path", cfg.DatabasePath, "version", version)

	backend, err := storage.New(storage.Config{
		Backend:               cfg.StorageBackend,
		UploadDir:             cfg.UploadDir,
		PublicBaseURL:         cfg.PublicUploadBaseURL,
		AzureConnectionString: cfg.AzureConnectionString,
		AzureContainer:        cfg.AzureContainer,
	})
	if err != nil {
		log.Error("storage unavailable; uploads are disabled", "backend", cfg.StorageBackend, "err", err)
	}

	notifiers := services.Notifiers{services.LogNotifier{Logger: log}}
	if cfg.AMQPURL != "" {
		publisher, err := services.NewAMQPNotifier(cfg.AMQPURL, notifyExchange)
		if err != nil {
			log.Error("amqp notifier disabled", "err", err)
		} else {
			defer publisher.Close()
			notifiers = append(notifiers, publisher)
		}
	}

	hub := services.NewMetricsHub()
	go hub.Run(ctx)

	server := httpapi.NewServer(store, cfg, backend, notifiers, hub, log)
	redisClient, err := config.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Warn("redis unavailable; rate limits are per process", "err", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	if server.LimiterStore, err = httpapi.NewLimiterStore(redisClient, "memberhub"); err != nil {
		log.Fatal("rate limiter", "err", err)
	}
	handler, err := server.Router()
	if err != nil {
		log.Fatal("router", "err", err)
	}
	go metricsLoop(ctx, server)

	addr := ":" + cfg.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(ctxShutdown)
	log.Info("shutdown complete")
}

// setupLogger tees output to stdout and the daily log file. A file that
// cannot be opened only loses the file copy.
func setupLogger(cfg config.Config) (*charmlog.Logger, func()) {
	opts := logger.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON, Output: os.Stdout}
	file, err := logger.NewDailyFile(cfg.LogDir, cfg.LogRetentionDays)
	if err != nil {
		log := logger.New(opts)
		log.Warn("log file disabled", "dir", cfg.LogDir, "err", err)
		return log, func() {}
	}
	opts.Output = io.MultiWriter(os.Stdout, file)
	log := logger.New(opts)
	charmlog.SetDefault(log)
	return log, func() { _ = file.Close() }
}

func metricsLoop(ctx context.Context, server *httpapi.Server) {
	interval := time.Duration(server.Config.MetricsSampleSeconds) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	prune := time.NewTicker(time.Hour)
	defer prune.Stop()
	for {
		select {
		case <-ticker.C:
			sample := services.SampleMetrics(ctx, server.Config.MetricsDiskPath)
			if err := services.RecordMetrics(ctx, server.Store, sample); err != nil {
				server.Logger.Warn("metrics record", "err", err)
			}
			server.MetricsHub.Broadcast(sample)
		case <-prune.C:
			if removed, err := services.PruneMetrics(ctx, server.Store, metricsRetention); err != nil {
				server.Logger.Warn("metrics prune", "err", err)
			} else if removed > 0 {
				server.Logger.Debug("metrics pruned", "rows", removed)
			}
		case <-ctx.Done():
			return
		}
	}
}

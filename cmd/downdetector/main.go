package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/downdetector/internal/config"
	"github.com/hamed0406/downdetector/internal/detector"
	"github.com/hamed0406/downdetector/internal/domain"
	"github.com/hamed0406/downdetector/internal/httpapi"
	apimw "github.com/hamed0406/downdetector/internal/httpapi/middleware"
	"github.com/hamed0406/downdetector/internal/logging"
	"github.com/hamed0406/downdetector/internal/notify"
	"github.com/hamed0406/downdetector/internal/probe"
	"github.com/hamed0406/downdetector/internal/repo"
	"github.com/hamed0406/downdetector/internal/repo/memory"
	"github.com/hamed0406/downdetector/internal/repo/postgres"
	"github.com/hamed0406/downdetector/internal/repo/sqlite"
	"github.com/hamed0406/downdetector/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	probeLog, err := logging.NewProbeLogger(cfg.LogDir, cfg.ProbeLogFile, cfg.ProbeLogFormat)
	if err != nil {
		logger.Fatal("probe_log_init_failed", zap.Error(err))
	}
	defer probeLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	var notifiers notify.Multi
	if s := notify.NewSlack(cfg.SlackWebhook); s != nil {
		notifiers = append(notifiers, s)
	}
	if cfg.RedisURL != "" {
		rn, err := notify.NewRedis(ctx, cfg.RedisURL, notify.DefaultChannel)
		if err != nil {
			logger.Warn("redis_notifier_disabled", zap.Error(err))
		} else {
			defer rn.Close()
			notifiers = append(notifiers, rn)
		}
	}

	var notifier notify.Notifier
	if len(notifiers) > 0 {
		notifier = notifiers
	}
	alerter := scheduler.NewAlerter(logger, events, notifier, scheduler.AlerterConfig{
		AlertOnRecovery: cfg.AlertOnRecovery,
		Cooldown:        cfg.AlertCooldown,
		RatePerMin:      cfg.AlertRatePerMin,
	})

	hosts := make([]domain.HostID, 0, len(cfg.Hosts))
	for _, h := range cfg.Hosts {
		hosts = append(hosts, domain.HostID(h))
	}
	det := detector.New(hosts, alerter.Hooks(), logger)

	speed := scheduler.NewSpeedTest(logger, cfg.SpeedTestURL, cfg.SpeedTestInterval, time.Minute)

	sup := probe.NewSupervisor(logger, probeLog, hosts, cfg.PingInterval, cfg.PingInterface, cfg.RestartBackoff, det.Handle)

	api := httpapi.NewServer(logger, det, events, speed)
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst, cfg.AdminRPM, cfg.AdminBurst),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	var wg sync.WaitGroup
	run := func(name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
			logger.Info("worker_stopped", zap.String("worker", name))
		}()
	}

	run("alerter", func() { _ = alerter.Run(ctx) })
	run("speedtest", func() { speed.Run(ctx) })
	if len(hosts) > 0 {
		run("probes", func() { _ = sup.Run(ctx) })
	} else {
		logger.Warn("no_hosts_configured", zap.String("hint", "set HOSTS or push observations to POST /api/observations"))
	}

	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr), zap.Int("hosts", len(hosts)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown_error", zap.Error(err))
	}
	wg.Wait()

	if ev, ok := det.LastEvent(); ok {
		logger.Info("last_downtime", zap.Time("start", ev.Start), zap.Duration("duration", ev.Duration))
	}
	logger.Info("shutdown_complete", zap.Int("recorded_events", len(det.RecordedEvents())))
}

// openStore picks postgres, then sqlite, then in-memory history.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.EventStore, func()) {
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("postgres_connect_failed", zap.Error(err))
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal("postgres_schema_failed", zap.Error(err))
		}
		logger.Info("history_store", zap.String("kind", "postgres"))
		return pg, pg.Close
	}
	if cfg.SQLitePath != "" {
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal("sqlite_open_failed", zap.Error(err))
		}
		logger.Info("history_store", zap.String("kind", "sqlite"), zap.String("path", cfg.SQLitePath))
		return db, func() { _ = db.Close() }
	}
	logger.Info("history_store", zap.String("kind", "memory"))
	return memory.New(), func() {}
}

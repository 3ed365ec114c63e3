package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"coverguard/internal/aggregate"
	"coverguard/internal/audit"
	"coverguard/internal/compliance"
	"coverguard/internal/domain"
	"coverguard/internal/idempotency"
	"coverguard/internal/jobrun"
	"coverguard/internal/notify"
	"coverguard/internal/platform/config"
	"coverguard/internal/platform/httpserver"
	"coverguard/internal/platform/logger"
	platformredis "coverguard/internal/platform/redis"
	"coverguard/internal/scheduler"
	"coverguard/internal/storage"
	"coverguard/internal/storage/postgres"
	httpapi "coverguard/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal services.
func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		stores     *storage.Stores
		auditStore audit.Store
		health     []httpapi.HealthCheck
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("database unavailable", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		stores = postgres.NewStores(db)
		auditStore = postgres.NewAuditStore(db)
		health = append(health, httpapi.HealthCheck{Name: "postgres", Check: db.Ping})
	} else {
		log.Warn("no DATABASE_URL configured, using in-memory stores")
		stores = storage.NewMemoryStores()
		auditStore = audit.NewInMemoryStore()
	}

	var guard idempotency.Guard = idempotency.NewMemoryGuard(cfg.GuardTTL)
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		guard = idempotency.NewRedisGuard(redisClient.Client, cfg.GuardTTL)
		health = append(health, httpapi.HealthCheck{Name: "redis", Check: func() error {
			return redisClient.Health(context.Background())
		}})
	}

	auditOpts := []audit.Option{}
	mirror := make(chan audit.Event, 256)
	var kafkaSink *audit.KafkaSink
	if cfg.Kafka.Configured() {
		kafkaSink, err = audit.NewKafkaSink(strings.Split(cfg.Kafka.Brokers, ","), cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka unavailable", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		auditOpts = append(auditOpts, audit.WithMirror(mirror))
	}
	auditor := audit.NewService(auditStore, auditOpts...)
	if kafkaSink != nil {
		worker := audit.NewWorker(kafkaSink, mirror)
		go func() {
			if err := worker.Run(ctx); err != nil {
				log.Error("audit worker stopped", "error", err)
			}
		}()
	}

	var sender notify.Sender
	if cfg.SMTP.Configured() {
		smtpSender, err := notify.NewSMTPSender(cfg.SMTP)
		if err != nil {
			log.Error("smtp misconfigured", "error", err)
			os.Exit(1)
		}
		sender = notify.NewChannelMux().
			Register(domain.ChannelEmail, smtpSender).
			Register(domain.ChannelSMS, notify.NewLogSender(log))
	} else {
		log.Warn("no SMTP configured, logging outbound messages")
		sender = notify.NewLogSender(log)
	}

	views := aggregate.NewService(stores, aggregate.WithMetrics(aggregate.NewMetrics()))
	comp := compliance.NewService(stores, auditor)
	ledger := jobrun.NewLedger(stores.JobRuns)
	runner := scheduler.NewRunner(scheduler.Deps{
		Stores:     stores,
		Views:      views,
		Compliance: comp,
		Ledger:     ledger,
		Sender:     sender,
		Guard:      guard,
		Recorder:   auditor,
		Log:        log,
		Metrics:    scheduler.NewMetrics(prometheus.DefaultRegisterer),
	})

	handler := httpapi.NewHandler(httpapi.Deps{
		Views:      views,
		Compliance: comp,
		Runner:     runner,
		Auditor:    auditor,
		Log:        log,
		Health:     health,
	})
	srv := httpserver.New(cfg.Addr, httpapi.NewRouter(handler))

	log.Info("starting coverguard", "addr", cfg.Addr, "env", cfg.Env)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	if err := httpserver.Shutdown(srv); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

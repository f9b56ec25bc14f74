/**
 * @description
 * This is the main entry point for the ledger service. It loads configuration,
 * connects storage, the message broker and Redis, wires the application
 * services, starts the bill payment scheduler and consumer, and serves the
 * HTTP API until it receives a termination signal.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: Transfer rate limiting.
 * - github.com/joho/godotenv: Local .env loading.
 * - internal/api, internal/app, internal/config, internal/store: The service itself.
 * - pkg/rabbitmq, pkg/alerting: Messaging and operator alerts.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/api"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/app"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/config"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/logger"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/store"
	"github.com/Dannywaisein/north-trust-bank-replica/pkg/alerting"
	"github.com/Dannywaisein/north-trust-bank-replica/pkg/rabbitmq"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	boot := logger.Component(log, "bootstrap")
	boot.Info().Str("port", cfg.ServerPort).Str("storage", cfg.StorageDriver).Msg("starting ledger service")

	ctx := context.Background()

	// Storage
	var repo store.Repository
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		boot.Warn().Msg("using in-memory storage; data is lost on restart")
		repo = store.NewMemoryRepository()
	default:
		pool, err := store.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			boot.Fatal().Err(err).Msg("database connection failed")
		}
		defer pool.Close()
		boot.Info().Msg("database connected")

		if cfg.RunMigrations {
			if err := store.Migrate(pool, true); err != nil {
				boot.Fatal().Err(err).Msg("database migration failed")
			}
			boot.Info().Msg("database migrations applied")
		}
		repo = store.NewPostgresRepository(pool)
	}

	// Messaging
	var (
		publisher rabbitmq.Publisher = &rabbitmq.EventProducerFallback{}
		producer  *rabbitmq.EventProducer
	)
	if cfg.RabbitMQURL == "" {
		boot.Warn().Msg("rabbitmq url missing; events are not published")
	} else if producer, err = rabbitmq.NewEventProducer(cfg.RabbitMQURL); err != nil {
		boot.Warn().Err(err).Msg("rabbitmq producer unavailable; using fallback")
		producer = nil
	} else {
		defer producer.Close()
		publisher = producer
		boot.Info().Msg("rabbitmq producer connected")
	}

	// Rate limiting
	var limiter app.RateLimiter
	if cfg.TransferRateLimitPerMinute > 0 {
		if cfg.RedisURL == "" {
			boot.Warn().Msg("redis url missing; transfer rate limiting disabled")
		} else if redisOptions, parseErr := redis.ParseURL(cfg.RedisURL); parseErr != nil {
			boot.Warn().Err(parseErr).Msg("redis url parse failed; transfer rate limiting disabled")
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
			pingErr := redisClient.Ping(pingCtx).Err()
			cancelPing()
			if pingErr != nil {
				boot.Warn().Err(pingErr).Msg("redis ping failed; transfer rate limiting disabled")
				redisClient.Close()
			} else {
				defer redisClient.Close()
				limiter = app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
				boot.Info().Msg("redis connected")
			}
		}
	}

	alerter := alerting.New(alerting.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.AlertEmailFrom,
		To:       cfg.AlertEmailTo,
	}, log)

	// Services
	transfers := app.NewTransferService(repo, publisher, app.TransferOptions{
		Mode:               cfg.ConsistencyMode,
		MaxConflictRetries: cfg.TransferMaxConflictRetries,
		RetryBaseDelay:     cfg.TransferRetryBaseDelay(),
		Exchange:           cfg.EventExchange,
		RateLimiter:        limiter,
		RateLimitPerMinute: cfg.TransferRateLimitPerMinute,
		Alerter:            alerter,
		Logger:             log,
	})
	if transfers.Mode() != cfg.ConsistencyMode {
		boot.Warn().Str("configured", cfg.ConsistencyMode).Str("effective", transfers.Mode()).Msg("storage cannot run atomic units of work; using saga mode")
	}

	var clearingAccountID uuid.UUID
	if cfg.BillPaymentClearingAccountID == "" {
		boot.Warn().Msg("bill payment clearing account not configured; bill payments cannot settle")
	} else if clearingAccountID, err = uuid.Parse(cfg.BillPaymentClearingAccountID); err != nil {
		boot.Fatal().Err(err).Msg("invalid BILL_PAYMENT_CLEARING_ACCOUNT_ID")
	}

	billPayments := app.NewBillPaymentService(repo, transfers, publisher, app.BillPaymentOptions{
		ClearingAccountID: clearingAccountID,
		StaleAfter:        cfg.BillPaymentStaleAfter(),
		Exchange:          cfg.EventExchange,
		Logger:            log,
	})
	history := app.NewHistoryService(repo, nil)

	// Time trigger: the scheduler queues due payments when a broker is
	// connected and executes them in-process otherwise.
	var duePublisher rabbitmq.Publisher
	if producer != nil {
		duePublisher = producer
	}
	jobs := app.NewJobs(billPayments, repo, duePublisher, log, app.JobsConfig{
		Exchange:       cfg.EventExchange,
		BatchSize:      cfg.BillPaymentBatchSize,
		IdempotencyTTL: cfg.IdempotencyKeyTTL(),
	})
	scheduler := app.NewScheduler(jobs, log, app.SchedulerConfig{
		BillPaymentDispatchSchedule: cfg.BillPaymentDispatchSchedule,
		IdempotencyPurgeSchedule:    cfg.IdempotencyPurgeSchedule,
	})
	scheduler.Start()
	boot.Info().Msg("scheduler started")

	if producer != nil {
		consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL, 10)
		if err != nil {
			boot.Fatal().Err(err).Msg("rabbitmq consumer init failed")
		}
		defer consumer.Close()

		dueConsumer := app.NewBillPaymentDueConsumer(billPayments, log)
		bindings := map[string]rabbitmq.Handler{
			domain.RoutingKeyBillPaymentDue: dueConsumer.HandleMessage,
		}
		if err := consumer.ConsumeWithBindings(cfg.EventExchange, cfg.BillPaymentQueue, bindings); err != nil {
			boot.Fatal().Err(err).Msg("bill payment consumer start failed")
		}
		boot.Info().Str("queue", cfg.BillPaymentQueue).Msg("bill payment consumer started")
	}

	// HTTP
	handlers := api.NewHandlers(api.Services{
		Accounts:      app.NewAccountStore(repo),
		Transfers:     transfers,
		History:       history,
		Beneficiaries: app.NewBeneficiaryService(repo, nil),
		BillPayments:  billPayments,
		Support:       app.NewSupportService(repo, nil),
	}, log)
	router := api.NewRouter(handlers, api.RouterConfig{
		Auth: api.AuthConfig{
			JWKSURL:  cfg.AuthJWKSURL,
			Secret:   cfg.AuthJWTSecret,
			Audience: cfg.AuthAudience,
			Issuer:   cfg.AuthIssuer,
		},
		InternalAPIKey: cfg.InternalAPIKey,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, log)
	if cfg.AuthJWKSURL == "" && cfg.AuthJWTSecret == "" {
		boot.Warn().Msg("no token verification configured; authenticated routes will reject every request")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		boot.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			boot.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	boot.Info().Msg("shutdown started")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		boot.Error().Err(err).Msg("http shutdown failed")
	}
	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		boot.Warn().Msg("scheduler jobs still running at shutdown deadline")
	}
	boot.Info().Msg("shutdown complete")
}

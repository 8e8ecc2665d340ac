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

	"court-reservation-engine/config"
	"court-reservation-engine/internal/adapter/events"
	httpHandler "court-reservation-engine/internal/adapter/http/handler"
	"court-reservation-engine/internal/adapter/http/middleware"
	"court-reservation-engine/internal/adapter/messaging/kafka"
	"court-reservation-engine/internal/adapter/messaging/rabbitmq"
	"court-reservation-engine/internal/adapter/notify"
	memStorage "court-reservation-engine/internal/adapter/storage/memory"
	pgStorage "court-reservation-engine/internal/adapter/storage/postgres"
	redisStorage "court-reservation-engine/internal/adapter/storage/redis"
	"court-reservation-engine/internal/core/ports"
	"court-reservation-engine/internal/metrics"
	"court-reservation-engine/internal/service"
	"court-reservation-engine/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(os.Getenv("CRE_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("court reservation engine stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Str("holds", cfg.Hold.Backend).
		Msg("Starting court reservation engine")

	metrics.Register()

	var checkers []ports.HealthChecker

	repos, closeStorage, storageHealth, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStorage()
	checkers = append(checkers, storageHealth)

	var rdb *goredis.Client
	if cfg.NeedsRedis() {
		rdb, err = redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		checkers = append(checkers, redisStorage.NewHealthCheck(rdb))
		log.Info().Msg("Redis connected")
	}

	var holds ports.HoldStore = memStorage.NewHoldStore()
	if cfg.Hold.Backend == config.BackendRedis {
		holds = redisStorage.NewHoldStore(rdb)
	}

	var limiter ports.RateLimiter = memStorage.NewRateLimiter()
	if cfg.RateLimit.Backend == config.BackendRedis {
		limiter = redisStorage.NewRateLimitStore(rdb)
	}

	// Notifications: always logged, also published to RabbitMQ when enabled.
	notifiers := notify.Fanout{notify.NewLogNotifier(logger.Component(log, "notify"))}
	if cfg.RabbitMQ.Enabled {
		rn, err := rabbitmq.NewNotifier(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger.Component(log, "rabbitmq"))
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer rn.Close()
		notifiers = append(notifiers, rn)
		log.Info().Str("exchange", cfg.RabbitMQ.Exchange).Msg("RabbitMQ notifier enabled")
	}

	bus := events.NewBus(logger.Component(log, "events"))
	router := service.NewNotificationRouter(notifiers, logger.Component(log, "notifications"))
	bus.SubscribeAll(router.Handle)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger.ServiceName, cfg.Kafka.Buffer, logger.Component(log, "kafka"))
		bus.SubscribeAll(producer.Handle)
		g.Go(func() error { return producer.Run(gctx) })
		log.Info().Str("topic", cfg.Kafka.Topic).Msg("Kafka event producer enabled")
	}

	retry := service.RetryPolicy{MaxAttempts: cfg.Booking.MaxAttempts, BaseDelay: cfg.Booking.RetryBaseDelay}

	reservationSvc := service.NewReservationService(holds, bus, cfg.Hold.TTL, logger.Component(log, "reservation"))
	bookingSvc := service.NewBookingService(repos, reservationSvc, holds, bus, retry, cfg.Booking.PendingTimeout, logger.Component(log, "booking"))
	cancellationSvc := service.NewCancellationService(repos, bus, retry, cfg.Booking.CancellationCutoff, logger.Component(log, "cancellation"))
	recurrenceSvc := service.NewRecurrenceService(repos.Members, reservationSvc, bookingSvc, cfg.Booking.MaxOccurrences, logger.Component(log, "recurrence"))
	querySvc := service.NewQueryService(repos, reservationSvc)
	scheduler := service.NewCleanupScheduler(holds, repos, bus, retry, service.CleanupConfig{
		Interval:       cfg.Cleanup.Interval,
		PendingTimeout: cfg.Booking.PendingTimeout,
		ReminderFrom:   cfg.Cleanup.ReminderFrom,
		ReminderTo:     cfg.Cleanup.ReminderTo,
		BatchSize:      cfg.Cleanup.BatchSize,
	}, logger.Component(log, "cleanup"))

	engine := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Reservations:   reservationSvc,
		Bookings:       bookingSvc,
		Recurrence:     recurrenceSvc,
		Cancellation:   cancellationSvc,
		Queries:        querySvc,
		TokenVerifier:  service.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
		RateLimiter:    limiter,
		RateLimitRules: map[string]middleware.RateLimitRule{
			"holds":    {Limit: cfg.RateLimit.Holds.Limit, Window: cfg.RateLimit.Holds.Window},
			"bookings": {Limit: cfg.RateLimit.Bookings.Limit, Window: cfg.RateLimit.Bookings.Window},
			"queries":  {Limit: cfg.RateLimit.Queries.Limit, Window: cfg.RateLimit.Queries.Window},
		},
		HealthCheckers: checkers,
		Logger:         logger.Component(log, "http"),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error { return scheduler.Run(gctx) })

	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// openStorage wires the repositories for the configured driver.
func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (service.Repositories, func(), ports.HealthChecker, error) {
	if cfg.Storage.Driver == config.DriverMemory {
		store := memStorage.NewStore()
		if cfg.Storage.SeedFile != "" {
			seed, err := memStorage.LoadSeedFile(cfg.Storage.SeedFile)
			if err != nil {
				return service.Repositories{}, nil, nil, err
			}
			if err := store.Apply(ctx, seed, time.Now().UTC()); err != nil {
				return service.Repositories{}, nil, nil, fmt.Errorf("apply seed: %w", err)
			}
			log.Info().
				Int("resources", len(seed.Resources)).
				Int("members", len(seed.Members)).
				Msg("Memory storage seeded")
		}
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
		return service.Repositories{
			Resources:  memStorage.NewResourceRepo(store),
			Members:    memStorage.NewMemberRepo(store),
			Bookings:   memStorage.NewBookingRepo(store),
			Wallets:    memStorage.NewWalletRepo(store),
			Ledger:     memStorage.NewLedgerRepo(store),
			Transactor: store,
		}, func() {}, store, nil
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return service.Repositories{}, nil, nil, fmt.Errorf("connect postgresql: %w", err)
	}
	if err := pgStorage.Migrate(ctx, pool, log); err != nil {
		pool.Close()
		return service.Repositories{}, nil, nil, err
	}
	log.Info().Msg("PostgreSQL connected")

	return service.Repositories{
		Resources:  pgStorage.NewResourceRepo(pool),
		Members:    pgStorage.NewMemberRepo(pool),
		Bookings:   pgStorage.NewBookingRepo(pool),
		Wallets:    pgStorage.NewWalletRepo(pool),
		Ledger:     pgStorage.NewLedgerRepo(pool),
		Transactor: pgStorage.NewTransactor(pool),
	}, pool.Close, pgStorage.NewHealthCheck(pool), nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/lab-inventory/internal/application"
	"github.com/example/lab-inventory/internal/config"
	"github.com/example/lab-inventory/internal/events"
	httptransport "github.com/example/lab-inventory/internal/http"
	"github.com/example/lab-inventory/internal/lock"
	"github.com/example/lab-inventory/internal/logging"
	"github.com/example/lab-inventory/internal/persistence"
	"github.com/example/lab-inventory/internal/persistence/memory"
	"github.com/example/lab-inventory/internal/persistence/sqlite"
	"github.com/example/lab-inventory/internal/persistence/sqlite/migration"
)

func main() {
	bootstrap := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		bootstrap.Error("failed to configure logging", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	app, err := newApp(ctx, cfg, logger, time.Now)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logger.Error("failed to release resources", "error", cerr)
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("lab inventory API listening", "addr", server.Addr, "storage", cfg.StorageDriver)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

// storage is what the service needs from a persistence backend.
type storage interface {
	persistence.ReservationRepository
	persistence.EquipmentRepository
	persistence.LocationRepository
	persistence.StatsRepository
	persistence.Pinger
	Close() error
}

type closer struct {
	name  string
	close func() error
}

// app holds the wired HTTP handler and the resources behind it.
type app struct {
	Handler http.Handler

	logger  *slog.Logger
	closers []closer
}

func (a *app) addCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, close: fn})
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Warn("failed to close resource", "resource", c.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, now func() time.Time) (*app, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &app{logger: logger}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.addCloser("storage", store.Close)

	locker, closeLocker, err := newLocker(ctx, cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if closeLocker != nil {
		a.addCloser("redis", closeLocker)
	}

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.addCloser("events", publisher.Close)

	reservationService := application.NewReservationServiceWithLogger(
		newReservationRepositoryAdapter(store),
		locker,
		newEventPublisherAdapter(publisher),
		now,
		logger,
	)
	equipmentService := application.NewEquipmentServiceWithLogger(newEquipmentRepositoryAdapter(store), now, logger)
	locationService := application.NewLocationServiceWithLogger(newLocationRepositoryAdapter(store), now, logger)
	statsService := application.NewStatsServiceWithLogger(newStatsRepositoryAdapter(store), now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Reservations: httptransport.NewReservationHandler(reservationService, logger),
		Equipment:    httptransport.NewEquipmentHandler(equipmentService, logger),
		Locations:    httptransport.NewLocationHandler(locationService, logger),
		Stats:        httptransport.NewStatsHandler(statsService, logger),
		Health:       httptransport.NewHealthHandler(store, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Recoverer(logger),
			httptransport.CORS(cfg.CORSOrigins),
		},
	})
	a.Handler = router

	return a, nil
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		return memory.New(), nil
	case config.StorageSQLite, "":
		store, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLitePath), logger)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

// newLocker returns a Redis backed locker when an address is configured so that
// several API processes can share one database. The returned close function may
// be nil.
func newLocker(ctx context.Context, cfg config.Config, logger *slog.Logger) (application.BookingLocker, func() error, error) {
	if cfg.RedisAddr == "" {
		return lock.NewKeyedMutex(), nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis at %s: %w", cfg.RedisAddr, err)
	}

	options := lock.DefaultRedisOptions()
	if cfg.LockTTL > 0 {
		options.TTL = cfg.LockTTL
	}
	locker, err := lock.NewRedisLocker(client, options, logger)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	logger.Info("using redis booking locks", "addr", cfg.RedisAddr, "ttl", options.TTL)
	return locker, client.Close, nil
}

func newPublisher(cfg config.Config, logger *slog.Logger) (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		return events.NopPublisher{}, nil
	}
	publisher, err := events.NewAMQPPublisher(events.AMQPConfig{URL: cfg.AMQPURL, Exchange: cfg.AMQPExchange}, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("publishing reservation events", "exchange", cfg.AMQPExchange)
	return publisher, nil
}

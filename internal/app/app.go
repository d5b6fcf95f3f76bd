package app

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

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/A7k6h7i0/sports-facility-booking/internal/config"
	"github.com/A7k6h7i0/sports-facility-booking/internal/postgres"
	"github.com/A7k6h7i0/sports-facility-booking/internal/redis"
	"github.com/A7k6h7i0/sports-facility-booking/internal/repository"
	"github.com/A7k6h7i0/sports-facility-booking/internal/repository/memory"
	postgresrepo "github.com/A7k6h7i0/sports-facility-booking/internal/repository/postgres"
	redisrepo "github.com/A7k6h7i0/sports-facility-booking/internal/repository/redis"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service/booking"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service/catalog"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service/pricing"
	"github.com/A7k6h7i0/sports-facility-booking/internal/tracing"
	httpgin "github.com/A7k6h7i0/sports-facility-booking/internal/transport/http/gin"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	services   *service.Services
	store      repository.Store
	rdb        *goredis.Client
	pubsub     *redisrepo.CourtsPubSub
	tracing    tracing.ShutdownFunc
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.New"

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		tracing: shutdownTracing,
	}

	var (
		cache   *redisrepo.Cache
		limiter *redisrepo.SlidingWindowLimiter
		idem    *redisrepo.IdempotencyStore
	)

	if cfg.Redis.Enabled() {
		rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("%s:%w", op, err)
		}

		a.rdb = rdb
		a.pubsub = redisrepo.NewCourtsPubSub(rdb)
		cache = redisrepo.New(rdb)
		idem = redisrepo.NewIdempotencyStore(rdb, cfg.Booking.IdempotencyTTL)
		if cfg.Booking.CreateRateLimit > 0 {
			limiter = redisrepo.NewSlidingWindowLimiter(
				rdb,
				redisrepo.KeyRateLimit("bookings", "create"),
				cfg.Booking.CreateRateLimit,
				cfg.Booking.RateWindow,
			)
		}
	} else {
		logger.Warn("redis disabled: no cache, rate limiting, idempotency or change fan-out")
	}

	a.services = service.NewServices(store, cache, a.pubsub, limiter, logger, service.Config{
		Location: cfg.Booking.Location,
		Booking:  booking.Config{TxAttempts: cfg.Booking.TxAttempts},
		Pricing:  pricing.Config{TaxRate: &cfg.Booking.TaxRate},
		Catalog:  catalog.Config{},
	})

	router := httpgin.NewRouter(a.services, idem, []byte(cfg.Auth.Secret), logger)

	a.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	if cfg.Store.Driver == config.DriverMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.NewSeeded(), nil
	}

	dsn := cfg.Postgres.DSN()

	if cfg.Store.Migrate {
		if err := postgres.Migrate(dsn); err != nil {
			return nil, err
		}
		logger.Info("migrations applied")
	}

	pool, err := postgres.New(ctx, postgres.Config{
		DSN:      dsn,
		MaxConns: cfg.Postgres.MaxConns,
		AppName:  cfg.Tracing.ServiceName,
	})
	if err != nil {
		return nil, err
	}

	return postgresrepo.NewStore(pool), nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "addr", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	if a.pubsub != nil {
		g.Go(func() error {
			err := a.pubsub.Subscribe(gCtx, a.onCourtChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("courts subscription: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := a.httpServer.Shutdown(shutdownCtx)
		a.close(shutdownCtx)
		return err
	})

	return g.Wait()
}

// onCourtChanged drops this instance's cached schedules when any instance
// commits a booking change.
func (a *App) onCourtChanged(ctx context.Context, courtID uuid.UUID, dates []string) {
	if err := a.services.Catalog.InvalidateSchedule(ctx, courtID, dates); err != nil {
		a.logger.Warn("schedule invalidation failed",
			slog.String("court_id", courtID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (a *App) close(ctx context.Context) {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.tracing != nil {
		if err := a.tracing(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", slog.String("error", err.Error()))
		}
	}
}

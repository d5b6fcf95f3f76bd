package service

import (
	"log/slog"
	"time"

	"github.com/A7k6h7i0/sports-facility-booking/internal/repository"
	redisrepo "github.com/A7k6h7i0/sports-facility-booking/internal/repository/redis"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service/admin"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service/availability"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service/booking"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service/catalog"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service/pricing"
)

type Services struct {
	Booking *booking.Service
	Catalog *catalog.Service
	Admin   *admin.Service
}

type Config struct {
	Location *time.Location
	Booking  booking.Config
	Pricing  pricing.Config
	Catalog  catalog.Config
}

// NewServices wires every service over one store. cache, pubsub and limiter
// may be nil, which turns caching, change fan-out and rate limiting off.
func NewServices(
	store repository.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.CourtsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	logger *slog.Logger,
	cfg Config,
) *Services {
	cfg.Booking.Location = cfg.Location
	cfg.Pricing.Location = cfg.Location
	cfg.Catalog.Location = cfg.Location

	avail := availability.NewService(store, cfg.Location)
	prices := pricing.New(store, cfg.Pricing)

	opts := []booking.Option{booking.WithLogger(logger)}
	if cache != nil {
		opts = append(opts, booking.WithCache(cache))
	}
	if pubsub != nil {
		opts = append(opts, booking.WithPublisher(pubsub))
	}
	if limiter != nil {
		opts = append(opts, booking.WithLimiter(limiter))
	}

	return &Services{
		Booking: booking.New(store, avail, prices, cfg.Booking, opts...),
		Catalog: catalog.New(store, cache, cfg.Catalog),
		Admin:   admin.New(store, cache),
	}
}

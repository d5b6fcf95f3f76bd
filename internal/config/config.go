package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Postgres PostgresConfig `envconfig:"POSTGRES"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	Store    StoreConfig    `envconfig:"STORE"`
	Auth     AuthConfig     `envconfig:"JWT"`
	Booking  BookingConfig  `envconfig:"BOOKING"`
	Tracing  TracingConfig  `envconfig:"OTEL"`
	LogLevel string         `envconfig:"LOG_LEVEL" default:"info"`
}

type ServerConfig struct {
	Host string `envconfig:"HOST" default:"localhost"`
	Port int    `envconfig:"PORT" default:"8080"`
}

func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type PostgresConfig struct {
	User     string `envconfig:"USER"`
	Password string `envconfig:"PASSWORD"`
	Name     string `envconfig:"DB"`
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     int    `envconfig:"PORT" default:"5432"`
	SSLMode  string `envconfig:"SSLMODE" default:"disable"`
	MaxConns int32  `envconfig:"MAX_CONNS" default:"10"`
}

func (p PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.Name,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

// RedisConfig with an empty Addr runs the service without cache, rate
// limiting, idempotency or change fan-out.
type RedisConfig struct {
	Addr     string `envconfig:"ADDR"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type StoreConfig struct {
	Driver  string `envconfig:"DRIVER" default:"postgres"`
	Migrate bool   `envconfig:"MIGRATE" default:"true"`
}

type AuthConfig struct {
	Secret string `envconfig:"SECRET"`
}

type BookingConfig struct {
	Timezone string  `envconfig:"TIMEZONE" default:"UTC"`
	TaxRate  float64 `envconfig:"TAX_RATE" default:"0.18"`
	// TxAttempts bounds how many times a create or cancel is run when the
	// store aborts it on a serialization conflict.
	TxAttempts      int           `envconfig:"TX_ATTEMPTS" default:"3"`
	CreateRateLimit int           `envconfig:"CREATE_RATE_LIMIT" default:"10"`
	RateWindow      time.Duration `envconfig:"RATE_WINDOW" default:"1m"`
	IdempotencyTTL  time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	Location *time.Location `ignored:"true"`
}

type TracingConfig struct {
	Endpoint    string `envconfig:"EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"courtbook"`
}

func (t TracingConfig) Enabled() bool { return t.Endpoint != "" }

// New loads .env when present, reads the environment and validates the
// result.
func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &cfg, nil
}

// Validate checks cross-field rules and resolves the facility timezone.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid SERVER_PORT %d", c.Server.Port))
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if c.Postgres.User == "" {
			errs = append(errs, errors.New("missing POSTGRES_USER"))
		}
		if c.Postgres.Password == "" {
			errs = append(errs, errors.New("missing POSTGRES_PASSWORD"))
		}
		if c.Postgres.Name == "" {
			errs = append(errs, errors.New("missing POSTGRES_DB"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}

	if c.Auth.Secret == "" {
		errs = append(errs, errors.New("missing JWT_SECRET"))
	}

	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid BOOKING_TIMEZONE %q: %w", c.Booking.Timezone, err))
	}
	c.Booking.Location = loc

	if c.Booking.TaxRate < 0 {
		errs = append(errs, fmt.Errorf("invalid BOOKING_TAX_RATE %v", c.Booking.TaxRate))
	}

	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	return lvl, nil
}

package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setMemoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestNewDefaults(t *testing.T) {
	setMemoryEnv(t)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.True(t, cfg.Store.Migrate)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Tracing.Enabled())
	assert.Equal(t, 0.18, cfg.Booking.TaxRate)
	assert.Equal(t, 3, cfg.Booking.TxAttempts)
	assert.Equal(t, 10, cfg.Booking.CreateRateLimit)
	assert.Equal(t, time.Minute, cfg.Booking.RateWindow)
	assert.Equal(t, 24*time.Hour, cfg.Booking.IdempotencyTTL)
	assert.Equal(t, time.UTC, cfg.Booking.Location)

	lvl, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestNewOverrides(t *testing.T) {
	setMemoryEnv(t)
	t.Setenv("SERVER_HOST", "0.0.0.0")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("BOOKING_TIMEZONE", "Asia/Kolkata")
	t.Setenv("BOOKING_TX_ATTEMPTS", "5")
	t.Setenv("BOOKING_IDEMPOTENCY_TTL", "1h")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.True(t, cfg.Redis.Enabled())
	assert.True(t, cfg.Tracing.Enabled())
	assert.Equal(t, "courtbook", cfg.Tracing.ServiceName)
	assert.Equal(t, 5, cfg.Booking.TxAttempts)
	assert.Equal(t, time.Hour, cfg.Booking.IdempotencyTTL)
	assert.Equal(t, "Asia/Kolkata", cfg.Booking.Location.String())

	lvl, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestNewRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}, "missing JWT_SECRET"},
		{"bad driver", map[string]string{"STORE_DRIVER": "sqlite"}, `unknown STORE_DRIVER "sqlite"`},
		{"bad port", map[string]string{"SERVER_PORT": "70000"}, "invalid SERVER_PORT"},
		{"bad timezone", map[string]string{"BOOKING_TIMEZONE": "Mars/Olympus"}, "invalid BOOKING_TIMEZONE"},
		{"negative tax", map[string]string{"BOOKING_TAX_RATE": "-0.1"}, "invalid BOOKING_TAX_RATE"},
		{"bad level", map[string]string{"LOG_LEVEL": "loud"}, "invalid LOG_LEVEL"},
		{"postgres creds", map[string]string{"STORE_DRIVER": "postgres"}, "missing POSTGRES_USER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setMemoryEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := New()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{User: "court", Password: "p@ss word", Name: "booking", Host: "db", Port: 5432, SSLMode: "disable"}

	assert.Equal(t, "postgres://court:p%40ss%20word@db:5432/booking?sslmode=disable", p.DSN())
}

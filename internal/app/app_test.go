package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/A7k6h7i0/sports-facility-booking/internal/config"
	"github.com/A7k6h7i0/sports-facility-booking/internal/repository/memory"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Store:  config.StoreConfig{Driver: config.DriverMemory},
		Auth:   config.AuthConfig{Secret: "app-test"},
		Booking: config.BookingConfig{
			TaxRate:    0.18,
			TxAttempts: 3,
			Location:   time.UTC,
		},
		Tracing: config.TracingConfig{ServiceName: "courtbook"},
	}
}

func TestNewWithMemoryStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := New(context.Background(), memoryConfig(), logger)
	require.NoError(t, err)
	assert.Nil(t, a.pubsub)
	assert.Nil(t, a.rdb)

	w := httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/courts/"+memory.CourtIndoor1.String(), nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// Without a cache the subscriber callback is a no-op.
	a.onCourtChanged(context.Background(), memory.CourtIndoor1, []string{"2025-06-16"})
}

func TestRunStopsOnCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := New(context.Background(), memoryConfig(), logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

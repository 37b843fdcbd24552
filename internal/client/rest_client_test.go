package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tranche-calculator-go/internal/config"
	"tranche-calculator-go/internal/grid"
	"tranche-calculator-go/internal/server"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// setupTestServer creates a new test server and a RestClient configured to use it.
func setupTestServer(t *testing.T, handler http.Handler) *RestClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return &RestClient{
		client:     resty.New().SetBaseURL(ts.URL),
		logger:     zap.NewNop(),
		limiter:    rate.NewLimiter(rate.Inf, 1), // Allow all requests in tests
		maxRetries: 3,
		backoff:    time.Millisecond,
	}
}

func apiHandler(t *testing.T) http.Handler {
	t.Helper()
	calc, err := grid.NewCalculator(zap.NewNop(), config.DefaultGrid())
	require.NoError(t, err)
	cfg := config.Server{RateLimit: 1000, RateLimitBurst: 1000}
	return server.NewAPIServer(cfg, calc, zap.NewNop(), prometheus.NewRegistry()).Handler()
}

func TestCalculate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		rc := setupTestServer(t, apiHandler(t))

		table, err := rc.Calculate(context.Background(), grid.Request{
			StartingPrice: 2700,
			Direction:     grid.DirectionDeclining,
			Mode:          grid.ModeRebalanced,
		})
		require.NoError(t, err)
		assert.Equal(t, grid.ModeRebalanced, table.Mode)
		assert.Len(t, table.Rows, 27)
		assert.Equal(t, 2700.0, table.Rows[0].Price)
	})

	t.Run("InvalidArgumentIsNotRetried", func(t *testing.T) {
		var calls atomic.Int32
		api := apiHandler(t)
		rc := setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			api.ServeHTTP(w, r)
		}))

		table, err := rc.Calculate(context.Background(), grid.Request{StartingPrice: 2700, Direction: "sideways"})
		assert.Nil(t, table)
		require.Error(t, err)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Contains(t, apiErr.Message, "invalid direction")
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestDoRequest_Retries(t *testing.T) {
	t.Run("RecoversAfterServerErrors", func(t *testing.T) {
		var calls atomic.Int32
		api := apiHandler(t)
		rc := setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			api.ServeHTTP(w, r)
		}))

		status, err := rc.Status(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 480.0, status.Grid.TotalRange)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("RetriesTooManyRequests", func(t *testing.T) {
		var calls atomic.Int32
		api := apiHandler(t)
		rc := setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.Header().Set("Retry-After", "0")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			api.ServeHTTP(w, r)
		}))

		_, err := rc.Status(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("GivesUp", func(t *testing.T) {
		var calls atomic.Int32
		rc := setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": "boom"}`))
		}))

		_, err := rc.Status(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get status")
		assert.Contains(t, err.Error(), "request failed after 3 attempts")
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("ContextCancelled", func(t *testing.T) {
		rc := setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		rc.backoff = time.Hour

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := rc.Status(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestNewRestClient(t *testing.T) {
	cfg := &config.Client{BaseURL: "http://localhost:9999", RateLimit: 5, RateLimitBurst: 1, MaxRetries: 0, Timeout: time.Second}
	rc := NewRestClient(cfg, zap.NewNop())
	require.NotNil(t, rc)
	assert.Equal(t, 1, rc.maxRetries, "at least one attempt is made")
	assert.Equal(t, "http://localhost:9999", rc.client.BaseURL)
}

package client

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"tranche-calculator-go/internal/config"
	"tranche-calculator-go/internal/grid"
	"tranche-calculator-go/internal/server"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CalculatorAPI is the remote interface of the sizing calculator.
type CalculatorAPI interface {
	Calculate(ctx context.Context, req grid.Request) (*grid.Table, error)
	Status(ctx context.Context) (*server.StatusResponse, error)
}

// APIError is a non-2xx answer of the calculator API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// RestClient is a client for the calculator HTTP API.
// It implements the CalculatorAPI interface.
type RestClient struct {
	client     *resty.Client
	logger     *zap.Logger
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

// ensure RestClient implements the interface
var _ CalculatorAPI = (*RestClient)(nil)

// NewRestClient creates a new calculator API client.
func NewRestClient(cfg *config.Client, logger *zap.Logger) *RestClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &RestClient{
		client:     client,
		logger:     logger.Named("rest-client"),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		maxRetries: max(cfg.MaxRetries, 1),
		backoff:    time.Second,
	}
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	req.SetContext(ctx).SetError(&server.ErrorResponse{})

	for i := 0; i < c.maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
			err = newAPIError(resp)
		} else { // Network or other client-side errors
			shouldRetry = ctx.Err() == nil
		}

		if !shouldRetry {
			return nil, err
		}
		if i == c.maxRetries-1 {
			break
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1x, 2x, 4x the base delay
			retryAfter = time.Duration(math.Pow(2, float64(i))) * c.backoff
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, err)
}

func newAPIError(resp *resty.Response) *APIError {
	msg := resp.String()
	if body, ok := resp.Error().(*server.ErrorResponse); ok && body.Error != "" {
		msg = body.Error
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: msg}
}

// Calculate asks the API for the sizing table of req.
func (c *RestClient) Calculate(ctx context.Context, req grid.Request) (*grid.Table, error) {
	r := c.client.R().
		SetBody(req).
		SetResult(&grid.Table{})

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/calculate", r)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate table: %w", err)
	}
	return resp.Result().(*grid.Table), nil
}

// Status fetches the instance information and active grid constants.
func (c *RestClient) Status(ctx context.Context) (*server.StatusResponse, error) {
	r := c.client.R().SetResult(&server.StatusResponse{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/api/status", r)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return resp.Result().(*server.StatusResponse), nil
}

// Opt-in retries with server-directed or exponential backoff.
//
// The client returned by NewClient never retries. Wrapping it with WithRetry
// makes rate-limited calls wait and try again:
//
//	client, _ := brainus.NewClient(brainus.ConfigFromEnv())
//	retrying := brainus.WithRetry(client)
//	resp, err := retrying.Query(ctx, brainus.QueryRequest{Query: "What is a stack?"})
//
// When the server sends a retry-after value it is used as the delay. Otherwise
// the delay grows by BackoffFactor per attempt, capped at MaxDelay:
//
//	retrying := brainus.WithRetry(client, brainus.RetryConfig{
//		MaxRetries:    5,
//		BaseDelay:     2 * time.Second,
//		MaxDelay:      time.Minute,
//		BackoffFactor: 2.0,
//		Jitter:        true,
//	})
//
// Authentication, quota and validation failures are returned immediately.
package brainus

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"math"
	"time"
)

// secureRandomFloat64 generates a cryptographically secure random float64 between 0 and 1
func secureRandomFloat64() (float64, error) {
	var bytes [8]byte
	_, err := rand.Read(bytes[:])
	if err != nil {
		return 0, err
	}
	return float64(binary.BigEndian.Uint64(bytes[:])) / float64(^uint64(0)), nil
}

// RetryConfig defines configuration options for WithRetry
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (default: 3).
	// Total requests = MaxRetries + 1.
	MaxRetries int

	// BaseDelay is the initial backoff delay (default: 1 second)
	BaseDelay time.Duration

	// MaxDelay caps every delay, including server-provided ones (default: 60 seconds)
	MaxDelay time.Duration

	// BackoffFactor multiplies the delay after each retry (default: 2.0)
	BackoffFactor float64

	// Jitter multiplies computed backoff delays by a random factor between 0.5 and 1.5.
	// Server-provided delays are never jittered.
	Jitter bool

	// RetryServerErrors also retries API errors with a 5xx status
	RetryServerErrors bool
}

// DefaultRetryConfig returns a sensible default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		BaseDelay:     1 * time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// RetryingClient wraps a Client with retry functionality
type RetryingClient struct {
	client Client
	config RetryConfig
	sleep  func(ctx context.Context, d time.Duration) error
}

// WithRetry creates a retrying wrapper around any Client
func WithRetry(client Client, config ...RetryConfig) *RetryingClient {
	cfg := DefaultRetryConfig()
	if len(config) > 0 {
		cfg = config[0]
		// Ensure sane defaults for zero values
		if cfg.MaxRetries < 0 {
			cfg.MaxRetries = 0
		}
		if cfg.BaseDelay <= 0 {
			cfg.BaseDelay = 1 * time.Second
		}
		if cfg.MaxDelay <= 0 {
			cfg.MaxDelay = 60 * time.Second
		}
		if cfg.BackoffFactor <= 0 {
			cfg.BackoffFactor = 2.0
		}
	}

	return &RetryingClient{
		client: client,
		config: cfg,
		sleep:  sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retry runs fn until it succeeds, fails with a non-retryable error, or the
// attempts are used up. The last error is returned unchanged unless the wait
// between attempts is cut short by ctx, in which case a KindAPI error wrapping
// ctx.Err() is returned.
func (r *RetryingClient) retry(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == r.config.MaxRetries || !r.isRetryableError(err) {
			break
		}

		if sleepErr := r.sleep(ctx, r.calculateDelay(attempt, err)); sleepErr != nil {
			return wrapAPIError("retry wait interrupted", sleepErr)
		}
	}

	return lastErr
}

// isRetryableError determines if an error should trigger a retry
func (r *RetryingClient) isRetryableError(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}

	switch apiErr.Kind {
	case KindRateLimit:
		return true
	case KindAPI:
		return r.config.RetryServerErrors && apiErr.StatusCode != nil &&
			*apiErr.StatusCode >= 500 && *apiErr.StatusCode < 600
	default:
		return false
	}
}

// calculateDelay prefers the server's retry-after and falls back to exponential backoff
func (r *RetryingClient) calculateDelay(attempt int, err error) time.Duration {
	if secs, ok := RetryAfterOf(err); ok {
		if secs < 0 {
			secs = 0
		}
		if maxSecs := int64(r.config.MaxDelay / time.Second); int64(secs) > maxSecs {
			return r.config.MaxDelay
		}
		delay := time.Duration(secs) * time.Second
		if delay > r.config.MaxDelay {
			delay = r.config.MaxDelay
		}
		return delay
	}

	delay := float64(r.config.BaseDelay) * math.Pow(r.config.BackoffFactor, float64(attempt))

	if r.config.Jitter {
		randomValue, err := secureRandomFloat64()
		if err != nil {
			randomValue = 1.0
		}
		delay *= 0.5 + randomValue
	}

	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}

	return time.Duration(delay)
}

// Query implements Client with retries
func (r *RetryingClient) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	var resp *QueryResponse
	err := r.retry(ctx, func() error {
		var err error
		resp, err = r.client.Query(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetUsage implements Client with retries
func (r *RetryingClient) GetUsage(ctx context.Context) (*UsageStats, error) {
	var stats *UsageStats
	err := r.retry(ctx, func() error {
		var err error
		stats, err = r.client.GetUsage(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// GetPlans implements Client with retries
func (r *RetryingClient) GetPlans(ctx context.Context) ([]PlanInfo, error) {
	var plans []PlanInfo
	err := r.retry(ctx, func() error {
		var err error
		plans, err = r.client.GetPlans(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return plans, nil
}

// Close implements Client
func (r *RetryingClient) Close() error {
	return r.client.Close()
}

// Ensure RetryingClient implements Client
var _ Client = (*RetryingClient)(nil)

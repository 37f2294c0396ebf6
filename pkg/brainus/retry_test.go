package brainus

import (
	"context"
	"errors"
	"math"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns the queued errors in order, then succeeds
type scriptedClient struct {
	stubClient
	mu     sync.Mutex
	errors []error
}

func (s *scriptedClient) next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errors) == 0 {
		return nil
	}
	err := s.errors[0]
	s.errors = s.errors[1:]
	return err
}

func (s *scriptedClient) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	if err := s.next(); err != nil {
		return nil, err
	}
	return &QueryResponse{Answer: "ok", Citations: []Citation{}}, nil
}

func (s *scriptedClient) GetUsage(ctx context.Context) (*UsageStats, error) {
	if err := s.next(); err != nil {
		return nil, err
	}
	return &UsageStats{TotalRequests: 1}, nil
}

func (s *scriptedClient) GetPlans(ctx context.Context) ([]PlanInfo, error) {
	if err := s.next(); err != nil {
		return nil, err
	}
	return []PlanInfo{{Name: "free"}}, nil
}

func (s *scriptedClient) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// newTestRetrying returns a retrying client that records delays instead of sleeping
func newTestRetrying(client Client, config RetryConfig) (*RetryingClient, *[]time.Duration) {
	var delays []time.Duration
	r := WithRetry(client, config)
	r.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return r, &delays
}

func TestWithRetry_UsesServerRetryAfter(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{errors: []error{
		NewRateLimitError("", intPtr(4)),
		NewRateLimitError("", intPtr(2)),
	}}
	r, delays := newTestRetrying(client, RetryConfig{MaxRetries: 3, BaseDelay: time.Second})

	resp, err := r.Query(context.Background(), QueryRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Answer)
	assert.Equal(t, 3, client.count())
	assert.Equal(t, []time.Duration{4 * time.Second, 2 * time.Second}, *delays)
}

func TestWithRetry_BackoffWithoutRetryAfter(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{errors: []error{
		NewRateLimitError("", nil),
		NewRateLimitError("", nil),
		NewRateLimitError("", nil),
	}}
	r, delays := newTestRetrying(client, RetryConfig{
		MaxRetries:    3,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      300 * time.Millisecond,
		BackoffFactor: 2,
	})

	_, err := r.GetUsage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}, *delays)
}

func TestWithRetry_RetryAfterCappedByMaxDelay(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{errors: []error{NewRateLimitError("", intPtr(3600))}}
	r, delays := newTestRetrying(client, RetryConfig{MaxRetries: 1, MaxDelay: 30 * time.Second})

	_, err := r.GetPlans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{30 * time.Second}, *delays)
}

func TestWithRetry_NonRetryableKinds(t *testing.T) {
	t.Parallel()

	for _, err := range []error{
		NewAuthenticationError(""),
		NewQuotaExceededError(""),
		NewError("query must not be empty"),
		NewAPIError("bad request", intPtr(400)),
		NewAPIError("server error", intPtr(500)),
		errors.New("plain"),
	} {
		client := &scriptedClient{errors: []error{err}}
		r, delays := newTestRetrying(client, RetryConfig{MaxRetries: 3})

		_, got := r.Query(context.Background(), QueryRequest{Query: "q"})
		assert.Same(t, err, got)
		assert.Equal(t, 1, client.count())
		assert.Empty(t, *delays)
	}
}

func TestWithRetry_ServerErrorsWhenEnabled(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{errors: []error{
		NewAPIError("bad gateway", intPtr(502)),
		NewAPIError("transport", nil),
	}}
	r, delays := newTestRetrying(client, RetryConfig{MaxRetries: 3, BaseDelay: 10 * time.Millisecond, RetryServerErrors: true})

	_, err := r.Query(context.Background(), QueryRequest{Query: "q"})
	require.Error(t, err)
	assert.Equal(t, KindAPI, KindOf(err))
	assert.Nil(t, err.(*Error).StatusCode, "transport failures are not retried")
	assert.Equal(t, 2, client.count())
	assert.Len(t, *delays, 1)
}

func TestWithRetry_ExhaustedReturnsLastError(t *testing.T) {
	t.Parallel()

	last := NewRateLimitError("third", intPtr(1))
	client := &scriptedClient{errors: []error{
		NewRateLimitError("first", intPtr(1)),
		NewRateLimitError("second", intPtr(1)),
		last,
	}}
	r, _ := newTestRetrying(client, RetryConfig{MaxRetries: 2})

	_, err := r.Query(context.Background(), QueryRequest{Query: "q"})
	assert.Same(t, last, err)
	assert.Equal(t, 3, client.count())
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{errors: []error{NewRateLimitError("", intPtr(30))}}
	r := WithRetry(client, RetryConfig{MaxRetries: 3})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := r.Query(ctx, QueryRequest{Query: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, KindAPI, KindOf(err))
	assert.False(t, IsRateLimit(err))
	assert.Equal(t, 1, client.count())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWithRetry_RetryAfterOverflowClamped(t *testing.T) {
	t.Parallel()

	r := WithRetry(&stubClient{}, RetryConfig{MaxDelay: 30 * time.Second})

	huge := NewRateLimitError("", intPtr(math.MaxInt32))
	assert.Equal(t, 30*time.Second, r.calculateDelay(0, huge))

	negative := NewRateLimitError("", intPtr(-5))
	assert.Equal(t, time.Duration(0), r.calculateDelay(0, negative))

	fromHeader := convertHTTPError(http.StatusTooManyRequests, http.Header{"Retry-After": []string{"1e30"}}, nil, time.Now())
	assert.Nil(t, fromHeader.RetryAfter)
	assert.Equal(t, time.Second, r.calculateDelay(0, fromHeader))
}

func TestWithRetry_Defaults(t *testing.T) {
	t.Parallel()

	r := WithRetry(&stubClient{})
	assert.Equal(t, DefaultRetryConfig(), r.config)

	r = WithRetry(&stubClient{}, RetryConfig{MaxRetries: -1})
	assert.Equal(t, 0, r.config.MaxRetries)
	assert.Equal(t, time.Second, r.config.BaseDelay)
	assert.Equal(t, 60*time.Second, r.config.MaxDelay)
	assert.Equal(t, 2.0, r.config.BackoffFactor)
}

func TestWithRetry_Jitter(t *testing.T) {
	t.Parallel()

	r := WithRetry(&stubClient{}, RetryConfig{BaseDelay: time.Second, MaxDelay: time.Minute, BackoffFactor: 2, Jitter: true})
	for i := 0; i < 20; i++ {
		d := r.calculateDelay(1, NewRateLimitError("", nil))
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 3*time.Second)
	}
}

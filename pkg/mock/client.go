package mock

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/brainus-ai/brainus-go/pkg/brainus"
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

// CallRecord is one entry of the call log
type CallRecord struct {
	Operation brainus.Operation
	Request   *brainus.QueryRequest
}

// Client implements brainus.Client for testing
type Client struct {
	mu sync.Mutex

	responses     []brainus.QueryResponse
	responseIndex int
	errors        []error
	errorIndex    int
	usage         brainus.UsageStats
	plans         []brainus.PlanInfo
	callLog       []CallRecord

	latencySimulation time.Duration
	failureRate       float64
	closed            bool
}

// NewClient creates a new mock client with a free and a pro plan and zero usage
func NewClient() *Client {
	freeQuota := 100
	proPrice := 4900.0
	return &Client{
		usage: brainus.UsageStats{
			TotalRequests:   0,
			QuotaPercentage: 0,
			QuotaRemaining:  &freeQuota,
		},
		plans: []brainus.PlanInfo{
			{
				Name:               "free",
				RateLimitPerMinute: 10,
				MonthlyQuota:       &freeQuota,
				AllowedModels:      []string{"gemini-2.5-flash"},
			},
			{
				Name:               "pro",
				RateLimitPerMinute: 120,
				PriceLKR:           &proPrice,
				AllowedModels:      []string{"gemini-2.5-flash", "gemini-2.5-pro"},
			},
		},
	}
}

// record logs the call and applies simulated latency and failures
func (m *Client) record(ctx context.Context, op brainus.Operation, req *brainus.QueryRequest) error {
	m.mu.Lock()
	m.callLog = append(m.callLog, CallRecord{Operation: op, Request: req})
	latency := m.latencySimulation
	failureRate := m.failureRate
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return brainus.NewError("client is closed")
	}

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return brainus.NewAPIError(fmt.Sprintf("request failed: %v", ctx.Err()), nil)
		}
	}

	if failureRate > 0 {
		randomValue, err := secureRandomFloat64()
		if err != nil {
			randomValue = 1
		}
		if randomValue < failureRate {
			return brainus.NewAPIError("Simulated random failure", nil)
		}
	}

	return m.nextError()
}

func (m *Client) nextError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errorIndex < len(m.errors) {
		err := m.errors[m.errorIndex]
		m.errorIndex++
		return err
	}
	return nil
}

// Query implements brainus.Client
func (m *Client) Query(ctx context.Context, req brainus.QueryRequest) (*brainus.QueryResponse, error) {
	// Same validation as the HTTP client, and nothing is logged for rejected requests
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := m.record(ctx, brainus.OpQuery, &req); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.usage.TotalRequests++
	if m.usage.QuotaRemaining != nil && *m.usage.QuotaRemaining > 0 {
		remaining := *m.usage.QuotaRemaining - 1
		m.usage.QuotaRemaining = &remaining
	}

	if m.responseIndex < len(m.responses) {
		resp := copyResponse(m.responses[m.responseIndex])
		m.responseIndex++
		return &resp, nil
	}

	return &brainus.QueryResponse{
		Answer:    fmt.Sprintf("Mock answer to: %s", strings.TrimSpace(req.Query)),
		Citations: []brainus.Citation{},
	}, nil
}

// GetUsage implements brainus.Client
func (m *Client) GetUsage(ctx context.Context) (*brainus.UsageStats, error) {
	if err := m.record(ctx, brainus.OpGetUsage, nil); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.usage
	if m.usage.QuotaRemaining != nil {
		remaining := *m.usage.QuotaRemaining
		stats.QuotaRemaining = &remaining
	}
	return &stats, nil
}

// GetPlans implements brainus.Client
func (m *Client) GetPlans(ctx context.Context) ([]brainus.PlanInfo, error) {
	if err := m.record(ctx, brainus.OpGetPlans, nil); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	plans := make([]brainus.PlanInfo, len(m.plans))
	for i, p := range m.plans {
		plans[i] = p
		plans[i].AllowedModels = append([]string{}, p.AllowedModels...)
	}
	return plans, nil
}

// Close implements brainus.Client. Calls after Close fail.
func (m *Client) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func copyResponse(resp brainus.QueryResponse) brainus.QueryResponse {
	out := resp
	out.Citations = make([]brainus.Citation, len(resp.Citations))
	for i, c := range resp.Citations {
		out.Citations[i] = brainus.Citation{
			DocumentName: c.DocumentName,
			Pages:        append([]int{}, c.Pages...),
		}
	}
	return out
}

// AddResponse queues a query response
func (m *Client) AddResponse(response brainus.QueryResponse) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, response)
	return m
}

// AddError queues an error returned by the next call of any operation
func (m *Client) AddError(err error) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, err)
	return m
}

// WithAnswer queues a response with the given answer and citations.
// HasCitations is derived from the citations.
func (m *Client) WithAnswer(answer string, citations ...brainus.Citation) *Client {
	if citations == nil {
		citations = []brainus.Citation{}
	}
	return m.AddResponse(brainus.QueryResponse{
		Answer:       answer,
		HasCitations: len(citations) > 0,
		Citations:    citations,
	})
}

// WithUsage replaces the usage statistics
func (m *Client) WithUsage(stats brainus.UsageStats) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = stats
	return m
}

// WithPlans replaces the plan listing
func (m *Client) WithPlans(plans []brainus.PlanInfo) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans = plans
	return m
}

// WithAuthenticationError queues an authentication failure
func (m *Client) WithAuthenticationError() *Client {
	return m.AddError(brainus.NewAuthenticationError(""))
}

// WithRateLimit queues a rate-limit failure; retryAfter < 0 leaves it unset
func (m *Client) WithRateLimit(retryAfter int) *Client {
	var ra *int
	if retryAfter >= 0 {
		ra = &retryAfter
	}
	return m.AddError(brainus.NewRateLimitError("", ra))
}

// WithQuotaExceeded queues a quota failure
func (m *Client) WithQuotaExceeded() *Client {
	return m.AddError(brainus.NewQuotaExceededError(""))
}

// WithLatency delays every call, honoring context cancellation
func (m *Client) WithLatency(duration time.Duration) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySimulation = duration
	return m
}

// WithFailureRate makes a fraction of calls fail with an API error
func (m *Client) WithFailureRate(rate float64) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failureRate = rate
	return m
}

// GetCallLog returns a copy of all recorded calls
func (m *Client) GetCallLog() []CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CallRecord{}, m.callLog...)
}

// GetLastCall returns the most recent call, or nil
func (m *Client) GetLastCall() *CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.callLog) == 0 {
		return nil
	}
	last := m.callLog[len(m.callLog)-1]
	return &last
}

// CallCount returns how many calls reached the mock
func (m *Client) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.callLog)
}

// Reset clears queued responses, errors and the call log
func (m *Client) Reset() *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = nil
	m.responseIndex = 0
	m.errors = nil
	m.errorIndex = 0
	m.callLog = nil
	m.closed = false
	return m
}

// Ensure Client implements brainus.Client
var _ brainus.Client = (*Client)(nil)

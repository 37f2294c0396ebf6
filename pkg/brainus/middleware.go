package brainus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Operation names a Client method
type Operation string

const (
	OpQuery    Operation = "query"
	OpGetUsage Operation = "get_usage"
	OpGetPlans Operation = "get_plans"
)

// Call describes one Client invocation as it passes through middleware.
// Request is set for OpQuery; Result holds the response once the call returns
// successfully (*QueryResponse, *UsageStats or []PlanInfo).
type Call struct {
	Operation Operation
	Request   *QueryRequest
	Result    any
	Started   time.Time
	Duration  time.Duration
}

// Middleware defines the interface for client middleware components
type Middleware interface {
	// Name returns the middleware name for identification
	Name() string

	// Before runs ahead of the call; a non-nil error aborts it
	Before(ctx context.Context, call *Call) error

	// After observes the finished call. It cannot change the outcome.
	After(ctx context.Context, call *Call, err error)
}

// MiddlewareChain manages a chain of middleware
type MiddlewareChain struct {
	mu          sync.RWMutex
	middlewares []Middleware
}

// NewMiddlewareChain creates a new middleware chain
func NewMiddlewareChain(middlewares []Middleware) *MiddlewareChain {
	chain := &MiddlewareChain{}
	for _, middleware := range middlewares {
		chain.AddMiddleware(middleware)
	}
	return chain
}

// AddMiddleware adds a middleware to the chain
func (c *MiddlewareChain) AddMiddleware(middleware Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middlewares = append(c.middlewares, middleware)
}

// RemoveMiddleware removes a middleware by name
func (c *MiddlewareChain) RemoveMiddleware(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, middleware := range c.middlewares {
		if middleware.Name() == name {
			c.middlewares = append(c.middlewares[:i], c.middlewares[i+1:]...)
			return true
		}
	}
	return false
}

func (c *MiddlewareChain) snapshot() []Middleware {
	c.mu.RLock()
	defer c.mu.RUnlock()
	middlewares := make([]Middleware, len(c.middlewares))
	copy(middlewares, c.middlewares)
	return middlewares
}

// Before runs the chain in order
func (c *MiddlewareChain) Before(ctx context.Context, call *Call) error {
	for _, middleware := range c.snapshot() {
		if err := middleware.Before(ctx, call); err != nil {
			return fmt.Errorf("middleware %s failed: %w", middleware.Name(), err)
		}
	}
	return nil
}

// After runs the chain in reverse order
func (c *MiddlewareChain) After(ctx context.Context, call *Call, err error) {
	middlewares := c.snapshot()
	for i := len(middlewares) - 1; i >= 0; i-- {
		middlewares[i].After(ctx, call, err)
	}
}

// GetMiddlewareNames returns the names of all middleware in the chain
func (c *MiddlewareChain) GetMiddlewareNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.middlewares))
	for i, middleware := range c.middlewares {
		names[i] = middleware.Name()
	}
	return names
}

// LoggingMiddleware logs every call at Info and failures at Warn
type LoggingMiddleware struct {
	logger *slog.Logger
}

// NewLoggingMiddleware creates a logging middleware; nil uses slog.Default()
func NewLoggingMiddleware(logger *slog.Logger) *LoggingMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingMiddleware{logger: logger}
}

func (m *LoggingMiddleware) Name() string { return "logging" }

func (m *LoggingMiddleware) Before(ctx context.Context, call *Call) error {
	return nil
}

func (m *LoggingMiddleware) After(ctx context.Context, call *Call, err error) {
	attrs := []any{"operation", string(call.Operation), "duration", call.Duration}
	if call.Request != nil {
		attrs = append(attrs, "store_id", call.Request.StoreID, "model", call.Request.Model)
	}
	if err != nil {
		attrs = append(attrs, "kind", string(KindOf(err)), "error", err)
		m.logger.WarnContext(ctx, "brainus call failed", attrs...)
		return
	}
	m.logger.InfoContext(ctx, "brainus call succeeded", attrs...)
}

// OperationStats holds counters for one operation
type OperationStats struct {
	Calls     int
	Failures  int
	ByKind    map[Kind]int
	TotalTime time.Duration
}

// StatsMiddleware counts calls and failures per operation
type StatsMiddleware struct {
	mu    sync.Mutex
	stats map[Operation]*OperationStats
}

// NewStatsMiddleware creates an empty stats collector
func NewStatsMiddleware() *StatsMiddleware {
	return &StatsMiddleware{stats: make(map[Operation]*OperationStats)}
}

func (m *StatsMiddleware) Name() string { return "stats" }

func (m *StatsMiddleware) Before(ctx context.Context, call *Call) error {
	return nil
}

func (m *StatsMiddleware) After(ctx context.Context, call *Call, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stats[call.Operation]
	if !ok {
		s = &OperationStats{ByKind: make(map[Kind]int)}
		m.stats[call.Operation] = s
	}
	s.Calls++
	s.TotalTime += call.Duration
	if err != nil {
		s.Failures++
		kind := KindOf(err)
		if kind == "" {
			kind = KindGeneric
		}
		s.ByKind[kind]++
	}
}

// Stats returns a copy of the counters
func (m *StatsMiddleware) Stats() map[Operation]OperationStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[Operation]OperationStats, len(m.stats))
	for op, s := range m.stats {
		byKind := make(map[Kind]int, len(s.ByKind))
		for k, v := range s.ByKind {
			byKind[k] = v
		}
		out[op] = OperationStats{
			Calls:     s.Calls,
			Failures:  s.Failures,
			ByKind:    byKind,
			TotalTime: s.TotalTime,
		}
	}
	return out
}

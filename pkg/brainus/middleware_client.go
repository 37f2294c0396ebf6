package brainus

import (
	"context"
	"time"
)

// EnhancedClient wraps a Client with a middleware chain
type EnhancedClient struct {
	client Client
	chain  *MiddlewareChain
}

// NewEnhancedClient creates a new enhanced client with middleware
func NewEnhancedClient(client Client, chain []Middleware) *EnhancedClient {
	return &EnhancedClient{
		client: client,
		chain:  NewMiddlewareChain(chain),
	}
}

// run drives one call through the chain
func (e *EnhancedClient) run(ctx context.Context, call *Call, fn func() (any, error)) error {
	if err := e.chain.Before(ctx, call); err != nil {
		return err
	}

	call.Started = time.Now()
	result, err := fn()
	call.Duration = time.Since(call.Started)
	if err == nil {
		call.Result = result
	}

	e.chain.After(ctx, call, err)
	return err
}

// Query implements Client with middleware processing
func (e *EnhancedClient) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	var resp *QueryResponse
	err := e.run(ctx, &Call{Operation: OpQuery, Request: &req}, func() (any, error) {
		var err error
		resp, err = e.client.Query(ctx, req)
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetUsage implements Client with middleware processing
func (e *EnhancedClient) GetUsage(ctx context.Context) (*UsageStats, error) {
	var stats *UsageStats
	err := e.run(ctx, &Call{Operation: OpGetUsage}, func() (any, error) {
		var err error
		stats, err = e.client.GetUsage(ctx)
		return stats, err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// GetPlans implements Client with middleware processing
func (e *EnhancedClient) GetPlans(ctx context.Context) ([]PlanInfo, error) {
	var plans []PlanInfo
	err := e.run(ctx, &Call{Operation: OpGetPlans}, func() (any, error) {
		var err error
		plans, err = e.client.GetPlans(ctx)
		return plans, err
	})
	if err != nil {
		return nil, err
	}
	return plans, nil
}

// Close implements Client
func (e *EnhancedClient) Close() error {
	return e.client.Close()
}

// AddMiddleware adds a middleware to the client's chain
func (e *EnhancedClient) AddMiddleware(middleware Middleware) {
	e.chain.AddMiddleware(middleware)
}

// RemoveMiddleware removes a middleware from the client's chain
func (e *EnhancedClient) RemoveMiddleware(name string) bool {
	return e.chain.RemoveMiddleware(name)
}

// GetMiddlewareNames returns the names of all middleware in the client's chain
func (e *EnhancedClient) GetMiddlewareNames() []string {
	return e.chain.GetMiddlewareNames()
}

// ClientWithMiddleware wraps an existing client with middleware.
// If the client is already an EnhancedClient the middleware is appended to its chain.
func ClientWithMiddleware(client Client, chain []Middleware) Client {
	if enhancedClient, ok := client.(*EnhancedClient); ok {
		for _, middleware := range chain {
			enhancedClient.AddMiddleware(middleware)
		}
		return enhancedClient
	}

	return NewEnhancedClient(client, chain)
}

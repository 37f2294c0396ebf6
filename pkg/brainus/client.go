// Client interface
package brainus

import "context"

// Client defines the operations of the Brainus API
type Client interface {
	// Query asks a question against a document store
	Query(ctx context.Context, req QueryRequest) (*QueryResponse, error)

	// GetUsage returns usage statistics for the account behind the API key
	GetUsage(ctx context.Context) (*UsageStats, error)

	// GetPlans lists the available service tiers in server order
	GetPlans(ctx context.Context) ([]PlanInfo, error)

	// Close releases idle connections
	Close() error
}

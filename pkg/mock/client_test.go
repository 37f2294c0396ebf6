package mock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainus-ai/brainus-go/pkg/brainus"
)

func TestMockClient_DefaultAnswer(t *testing.T) {
	t.Parallel()

	client := NewClient()

	resp, err := client.Query(context.Background(), brainus.QueryRequest{Query: "What is Object-Oriented Programming?"})
	require.NoError(t, err)
	assert.Equal(t, "Mock answer to: What is Object-Oriented Programming?", resp.Answer)
	assert.False(t, resp.HasCitations)
	assert.Empty(t, resp.Citations)

	last := client.GetLastCall()
	require.NotNil(t, last)
	assert.Equal(t, brainus.OpQuery, last.Operation)
	assert.Equal(t, "What is Object-Oriented Programming?", last.Request.Query)
}

func TestMockClient_QueuedAnswers(t *testing.T) {
	t.Parallel()

	client := NewClient().
		WithAnswer("Inheritance lets a class reuse another class.",
			brainus.Citation{DocumentName: "ICT Grade 12 Textbook", Pages: []int{88}}).
		WithAnswer("No sources for this one.")

	first, err := client.Query(context.Background(), brainus.QueryRequest{Query: "Explain inheritance"})
	require.NoError(t, err)
	assert.True(t, first.HasCitations)
	require.Len(t, first.Citations, 1)
	assert.Equal(t, []int{88}, first.Citations[0].Pages)

	second, err := client.Query(context.Background(), brainus.QueryRequest{Query: "Anything"})
	require.NoError(t, err)
	assert.False(t, second.HasCitations)
	assert.NotNil(t, second.Citations)
}

func TestMockClient_Validation(t *testing.T) {
	t.Parallel()

	client := NewClient()
	_, err := client.Query(context.Background(), brainus.QueryRequest{Query: "  "})
	assert.Equal(t, brainus.KindGeneric, brainus.KindOf(err))
	assert.Equal(t, 0, client.CallCount())
}

func TestMockClient_ScriptedErrors(t *testing.T) {
	t.Parallel()

	client := NewClient().
		WithAuthenticationError().
		WithRateLimit(9).
		WithRateLimit(-1).
		WithQuotaExceeded()

	ctx := context.Background()

	_, err := client.GetUsage(ctx)
	assert.True(t, brainus.IsAuthentication(err))

	_, err = client.GetPlans(ctx)
	secs, ok := brainus.RetryAfterOf(err)
	require.True(t, ok)
	assert.Equal(t, 9, secs)

	_, err = client.Query(ctx, brainus.QueryRequest{Query: "q"})
	assert.True(t, brainus.IsRateLimit(err))
	_, ok = brainus.RetryAfterOf(err)
	assert.False(t, ok)

	_, err = client.Query(ctx, brainus.QueryRequest{Query: "q"})
	assert.True(t, brainus.IsQuotaExceeded(err))

	_, err = client.Query(ctx, brainus.QueryRequest{Query: "q"})
	assert.NoError(t, err)
	assert.Equal(t, 5, client.CallCount())
}

func TestMockClient_UsageAndPlans(t *testing.T) {
	t.Parallel()

	client := NewClient()
	ctx := context.Background()

	plans, err := client.GetPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, brainus.Plan("free"), plans[0].Name)
	assert.False(t, plans[0].IsUnlimited())
	assert.True(t, plans[1].IsUnlimited())

	before, err := client.GetUsage(ctx)
	require.NoError(t, err)
	require.NotNil(t, before.QuotaRemaining)

	_, err = client.Query(ctx, brainus.QueryRequest{Query: "q"})
	require.NoError(t, err)

	after, err := client.GetUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.TotalRequests+1, after.TotalRequests)
	assert.Equal(t, *before.QuotaRemaining-1, *after.QuotaRemaining)

	unlimited := brainus.UsageStats{TotalRequests: 7, QuotaPercentage: 0}
	stats, err := client.WithUsage(unlimited).GetUsage(ctx)
	require.NoError(t, err)
	assert.Nil(t, stats.QuotaRemaining)
}

func TestMockClient_Latency(t *testing.T) {
	t.Parallel()

	client := NewClient().WithLatency(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetPlans(ctx)
	assert.True(t, brainus.IsAPIError(err))
}

func TestMockClient_WorksWithWrappers(t *testing.T) {
	t.Parallel()

	mockClient := NewClient().WithRateLimit(0).WithAnswer("after retry")
	stats := brainus.NewStatsMiddleware()

	client := brainus.ClientWithMiddleware(
		brainus.WithRetry(mockClient, brainus.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond}),
		[]brainus.Middleware{stats},
	)

	resp, err := client.Query(context.Background(), brainus.QueryRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "after retry", resp.Answer)
	assert.Equal(t, 2, mockClient.CallCount())
	assert.Equal(t, 1, stats.Stats()[brainus.OpQuery].Calls)
}

func TestMockClient_CloseAndReset(t *testing.T) {
	t.Parallel()

	client := NewClient()
	require.NoError(t, client.Close())

	_, err := client.GetUsage(context.Background())
	assert.Error(t, err)

	client.Reset()
	assert.Equal(t, 0, client.CallCount())
	_, err = client.GetUsage(context.Background())
	assert.NoError(t, err)
}

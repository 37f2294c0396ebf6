package brainus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// API paths, relative to the base URL
const (
	queryPath = "/api/v1/dev/query"
	usagePath = "/api/v1/dev/usage"
	plansPath = "/api/v1/dev/plans"
)

const (
	headerAPIKey    = "X-API-Key"
	headerRequestID = "X-Request-ID"
)

// maxResponseBytes bounds how much of a response body is read
const maxResponseBytes = 8 << 20

// HTTPClient implements Client over HTTP
type HTTPClient struct {
	apiKey     string
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates a client. It fails with an authentication error when the
// API key is empty, without touching the network.
func NewClient(config ClientConfig) (*HTTPClient, error) {
	apiKey := strings.TrimSpace(config.APIKey)
	if apiKey == "" {
		return nil, NewAuthenticationError("API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	// Ensure the base URL doesn't have trailing slash
	baseURL = strings.TrimSuffix(baseURL, "/")

	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, NewError(fmt.Sprintf("invalid base URL %q", config.BaseURL))
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &HTTPClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		userAgent:  config.userAgent(),
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Query performs a query request
func (c *HTTPClient) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, wrapAPIError("failed to serialize request", err)
	}

	body, err := c.do(ctx, OpQuery, http.MethodPost, queryPath, reqBody)
	if err != nil {
		return nil, err
	}

	var resp QueryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapAPIError("failed to parse query response", err)
	}
	return &resp, nil
}

// GetUsage fetches usage statistics
func (c *HTTPClient) GetUsage(ctx context.Context) (*UsageStats, error) {
	body, err := c.do(ctx, OpGetUsage, http.MethodGet, usagePath, nil)
	if err != nil {
		return nil, err
	}

	var stats UsageStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, wrapAPIError("failed to parse usage response", err)
	}
	return &stats, nil
}

// GetPlans fetches the plan listing
func (c *HTTPClient) GetPlans(ctx context.Context) ([]PlanInfo, error) {
	body, err := c.do(ctx, OpGetPlans, http.MethodGet, plansPath, nil)
	if err != nil {
		return nil, err
	}

	plans, err := decodePlans(body)
	if err != nil {
		return nil, wrapAPIError("failed to parse plans response", err)
	}
	return plans, nil
}

// Close implements Client
func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// do sends one request and returns the body of a 2xx response. Any other
// outcome is returned as an *Error.
func (c *HTTPClient) do(ctx context.Context, op Operation, method, path string, reqBody []byte) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		bodyReader = bytes.NewReader(reqBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, wrapAPIError("failed to create request", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set(headerAPIKey, c.apiKey)
	httpReq.Header.Set(headerRequestID, requestID)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	logger := c.logger.With("operation", string(op), "method", method, "path", path, "request_id", requestID)

	start := c.now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		logger.WarnContext(ctx, "request failed", "error", err)
		return nil, wrapAPIError("request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		logger.WarnContext(ctx, "failed to read response", "status", resp.StatusCode, "error", err)
		return nil, wrapAPIError("failed to read response", err)
	}

	logger.DebugContext(ctx, "request completed", "status", resp.StatusCode, "duration", c.now().Sub(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := convertHTTPError(resp.StatusCode, resp.Header, body, c.now())
		logger.WarnContext(ctx, "request rejected", "status", resp.StatusCode, "kind", string(apiErr.Kind))
		return nil, apiErr
	}

	return body, nil
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)

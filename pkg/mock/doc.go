// Package mock provides a mock brainus.Client for testing code that uses the SDK.
//
// Features:
// - Queued query responses and errors
// - Fixed usage statistics and plan listing
// - Latency and failure rate simulation
// - Call logging for assertions
//
// Queued errors are consumed by the next call of any operation, so a test can
// script "rate limited, then success" without a server.
package mock

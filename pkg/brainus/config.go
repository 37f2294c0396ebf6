// Client configuration and environment discovery
package brainus

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Version is reported in the User-Agent header
const Version = "0.3.0"

const DefaultBaseURL = "https://api.brainus.lk"

const DefaultTimeout = 30 * time.Second

// Environment variables read by ConfigFromEnv
const (
	EnvAPIKey  = "BRAINUS_API_KEY"
	EnvBaseURL = "BRAINUS_BASE_URL"
	EnvTimeout = "BRAINUS_TIMEOUT"
)

// ClientConfig holds configuration for creating a client
type ClientConfig struct {
	APIKey    string        `json:"api_key"`
	BaseURL   string        `json:"base_url,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty"`
	UserAgent string        `json:"user_agent,omitempty"` // appended to the SDK's own User-Agent

	// HTTPClient replaces the default transport. Its Timeout is left untouched.
	HTTPClient *http.Client `json:"-"`
	// Logger receives request logs; nil discards them
	Logger *slog.Logger `json:"-"`
}

// parseTimeoutFromEnv parses a timeout in seconds from an environment variable
// with fallback to the default
func parseTimeoutFromEnv(envVar string, defaultTimeout time.Duration) time.Duration {
	if timeoutStr := strings.TrimSpace(os.Getenv(envVar)); timeoutStr != "" {
		if timeoutSecs, err := strconv.Atoi(timeoutStr); err == nil && timeoutSecs > 0 {
			return time.Duration(timeoutSecs) * time.Second
		}
	}
	return defaultTimeout
}

// ConfigFromEnv builds a ClientConfig from BRAINUS_API_KEY, BRAINUS_BASE_URL and
// BRAINUS_TIMEOUT. A missing key is not an error here; NewClient reports it.
func ConfigFromEnv() ClientConfig {
	baseURL := os.Getenv(EnvBaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return ClientConfig{
		APIKey:  os.Getenv(EnvAPIKey),
		BaseURL: baseURL,
		Timeout: parseTimeoutFromEnv(EnvTimeout, DefaultTimeout),
	}
}

func (c ClientConfig) userAgent() string {
	ua := "brainus-go/" + Version
	if c.UserAgent != "" {
		ua += " " + c.UserAgent
	}
	return ua
}

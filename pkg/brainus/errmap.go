package brainus

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// quotaExceededCode is the error code the API uses for an exhausted monthly quota
const quotaExceededCode = "quota_exceeded"

// maxRetryAfterSeconds bounds retry-after values; anything larger is treated as absent
const maxRetryAfterSeconds = math.MaxInt32

// errorBody collects the fields of the error payload shapes the API is known to send
type errorBody struct {
	Detail     json.RawMessage `json:"detail"`
	Error      json.RawMessage `json:"error"`
	Message    string          `json:"message"`
	Code       string          `json:"code"`
	RetryAfter json.RawMessage `json:"retry_after"`
}

type errorObject struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

// parsedError is the normalized content of an error response body
type parsedError struct {
	message    string
	code       string
	retryAfter *int
}

func parseErrorBody(body []byte) parsedError {
	var out parsedError

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return out
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		// Not a JSON object; keep short plain-text bodies as the message
		if !strings.HasPrefix(trimmed, "<") && len(trimmed) <= 512 {
			out.message = trimmed
		}
		return out
	}

	out.message = eb.Message
	out.code = eb.Code
	out.retryAfter = parseRetryAfterField(eb.RetryAfter)

	for _, raw := range []json.RawMessage{eb.Detail, eb.Error} {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if out.message == "" {
				out.message = s
			} else if out.code == "" && isCodeLike(s) {
				out.code = s
			}
			continue
		}
		var obj errorObject
		if err := json.Unmarshal(raw, &obj); err == nil {
			if out.message == "" {
				out.message = obj.Message
			}
			if out.code == "" {
				out.code = obj.Code
			}
			if out.code == "" {
				out.code = obj.Type
			}
		}
	}

	return out
}

// parseRetryAfterField accepts a number or a numeric string
func parseRetryAfterField(raw json.RawMessage) *int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return secondsFromFloat(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return secondsFromFloat(f)
		}
	}
	return nil
}

// secondsFromFloat rounds f up to whole seconds. Negative, non-finite and
// out-of-range values yield nil.
func secondsFromFloat(f float64) *int {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > maxRetryAfterSeconds {
		return nil
	}
	secs := int(math.Ceil(f))
	return &secs
}

// isCodeLike reports whether s looks like a machine-readable error code
// such as "quota_exceeded" rather than a sentence
func isCodeLike(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

// parseRetryAfter reads the Retry-After header, which holds either
// delta-seconds or an HTTP date
func parseRetryAfter(value string, now time.Time) *int {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return secondsFromFloat(secs)
	}
	if when, err := http.ParseTime(value); err == nil {
		secs := math.Max(0, math.Ceil(when.Sub(now).Seconds()))
		return secondsFromFloat(secs)
	}
	return nil
}

// isQuotaSignal reports whether a 429 carries the machine-readable quota code.
// The message text is never consulted.
func isQuotaSignal(p parsedError) bool {
	return strings.EqualFold(p.code, quotaExceededCode)
}

// convertHTTPError maps a non-2xx response to exactly one error kind
func convertHTTPError(statusCode int, header http.Header, body []byte, now time.Time) *Error {
	p := parseErrorBody(body)
	status := statusCode

	var e *Error
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e = NewAuthenticationError(p.message)
	case statusCode == http.StatusPaymentRequired:
		e = NewQuotaExceededError(p.message)
	case statusCode == http.StatusTooManyRequests && isQuotaSignal(p):
		e = NewQuotaExceededError(p.message)
	case statusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(header.Get("Retry-After"), now)
		if retryAfter == nil {
			retryAfter = p.retryAfter
		}
		e = NewRateLimitError(p.message, retryAfter)
	default:
		msg := p.message
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d: %s", statusCode, http.StatusText(statusCode))
		}
		e = NewAPIError(msg, nil)
	}

	e.Code = p.code
	e.StatusCode = &status
	return e
}

package datasetiq

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const baseBackoff = 500 * time.Millisecond

// retryDelay computes how long to wait before the next attempt.
// A Retry-After header value is honored first as a seconds count, then as
// an HTTP date if it lies in the future; otherwise the delay falls back to
// exponential backoff of 500ms * 2^attempt.
func retryDelay(headers http.Header, attempt int) time.Duration {
	fallback := baseBackoff * time.Duration(1<<attempt)
	if headers == nil {
		return fallback
	}

	retryAfter := strings.TrimSpace(headers.Get("Retry-After"))
	if retryAfter == "" {
		return fallback
	}

	if secs, err := strconv.ParseFloat(retryAfter, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(retryAfter); err == nil {
		if until := time.Until(at); until > 0 {
			return until
		}
	}
	return fallback
}

package shopify

import (
	"net/http"
	"strconv"
	"time"
)

// RetryConfig controls retries of throttled (429) and server error listing calls
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig returns the retry policy used in production
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
	}
}

// Delay returns the wait before retry attempt+1. A Retry-After hint takes precedence.
func (c RetryConfig) Delay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		if c.MaxDelay > 0 && retryAfter > c.MaxDelay {
			return c.MaxDelay
		}
		return retryAfter
	}
	delay := c.BaseDelay << attempt
	if c.MaxDelay > 0 && (delay > c.MaxDelay || delay <= 0) {
		delay = c.MaxDelay
	}
	return delay
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// parseRetryAfter reads the header in seconds; the platform sends fractional values such as "2.0"
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

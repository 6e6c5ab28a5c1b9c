package retroachievements

import (
	"errors"
	"fmt"
	"net/http"

	"romsift/internal/services"
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Endpoint   string
	StatusCode int
	RetryAfter string
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("retroachievements %s returned %d", e.Endpoint, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Unwrap maps the status code onto a services marker.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return services.ErrAuth
	case http.StatusTooManyRequests:
		return services.ErrRateLimitExceeded
	default:
		return services.ErrNetwork
	}
}

// IsThrottled reports whether err is a 429 response.
func IsThrottled(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests
}

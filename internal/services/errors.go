package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAuth              = errors.New("authentication error")
	ErrNetwork           = errors.New("network error")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrDuplicateChecksum = errors.New("duplicate checksum")
	ErrUnreadableFile    = errors.New("unreadable file")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrConfiguration     = errors.New("configuration error")
	ErrValidation        = errors.New("validation error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrNetwork
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Recoverable reports whether err only affects a single local file and the
// surrounding scan may continue.
func Recoverable(err error) bool {
	return errors.Is(err, ErrUnreadableFile) || errors.Is(err, ErrUnsupportedFormat)
}

// Hint returns a short next step for a fatal error, or "" when none applies.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuth):
		return "check the RetroAchievements username and API key (RETROACHIEVEMENTS_USERNAME / RETROACHIEVEMENTS_API_KEY)"
	case errors.Is(err, ErrRateLimitExceeded):
		return "the service kept throttling requests; wait a few minutes and run the fetch again"
	case errors.Is(err, ErrDuplicateChecksum):
		return "the remote catalog attributes one checksum to two titles; report it upstream"
	case errors.Is(err, ErrConfiguration):
		return "run 'romsift config validate' to inspect the configuration"
	default:
		return ""
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

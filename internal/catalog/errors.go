package catalog

import (
	"fmt"

	"romsift/internal/services"
)

// DuplicateChecksumError reports a checksum attributed to two canonical games.
type DuplicateChecksumError struct {
	Checksum string
	FirstID  int64
	SecondID int64
}

func (e *DuplicateChecksumError) Error() string {
	return fmt.Sprintf("checksum %s is listed by games %d and %d", e.Checksum, e.FirstID, e.SecondID)
}

func (e *DuplicateChecksumError) Unwrap() error {
	return services.ErrDuplicateChecksum
}

package fs

import (
	"errors"
	"syscall"
)

// isTransient reports whether a rename may succeed on a later attempt,
// e.g. while another process still holds the target open.
func isTransient(err error) bool {
	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.ETIMEDOUT)
}

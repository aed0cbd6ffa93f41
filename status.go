package vsink

import "github.com/gogpu/vsink/status"

// Status is the coarse outcome of a Window operation.
type Status = status.Code

// Status codes.
const (
	StatusOK       = status.OK
	StatusClosed   = status.Closed
	StatusFlushing = status.Flushing
	StatusError    = status.Error
)

// Sentinel errors matched by StatusOf.
var (
	ErrClosed   = status.ErrClosed
	ErrFlushing = status.ErrFlushing
	ErrFatal    = status.ErrFatal
)

// StatusOf maps err to its Status. A nil error is StatusOK.
func StatusOf(err error) Status {
	return status.Of(err)
}

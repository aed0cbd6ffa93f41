// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package status defines the result vocabulary shared by every layer of the
// sink: a successful call, a window that is no longer available, a call that
// was cancelled by flushing, and an unrecoverable device failure.
//
// Internal layers return plain Go errors. The code of an error chain is
// recovered with Of, which matches the sentinels below via errors.Is.
package status

import "errors"

// Code is the coarse outcome of a sink operation.
type Code int

const (
	// OK means the operation completed.
	OK Code = iota

	// Closed means the window or surface is gone. Callers should stop
	// rendering but the process is unaffected.
	Closed

	// Flushing means the operation was cancelled by Unlock.
	Flushing

	// Error means an unrecoverable failure such as device removal.
	// The swap chain must be reopened.
	Error
)

// String returns the lower-case name of the code.
func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case Closed:
		return "closed"
	case Flushing:
		return "flushing"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Sentinel errors. Wrap them with fmt.Errorf("%w: ...") to add detail.
var (
	// ErrClosed reports that the window is unavailable.
	ErrClosed = errors.New("vsink: window closed")

	// ErrFlushing reports that a blocking call was cancelled by Unlock.
	ErrFlushing = errors.New("vsink: flushing")

	// ErrFatal reports an unrecoverable device or swap chain failure.
	ErrFatal = errors.New("vsink: fatal error")
)

// Of maps an error chain to its Code. A nil error is OK and any error that
// matches none of the sentinels is Error.
func Of(err error) Code {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ErrFlushing):
		return Flushing
	case errors.Is(err, ErrClosed):
		return Closed
	default:
		return Error
	}
}

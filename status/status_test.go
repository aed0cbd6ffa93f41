// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package status

import (
	"errors"
	"fmt"
	"testing"
)

func TestOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"closed", ErrClosed, Closed},
		{"wrapped closed", fmt.Errorf("%w: present failed", ErrClosed), Closed},
		{"flushing", ErrFlushing, Flushing},
		{"fatal", ErrFatal, Error},
		{"unknown", errors.New("boom"), Error},
		{"joined flushing wins", errors.Join(ErrClosed, ErrFlushing), Flushing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Of(tt.err); got != tt.want {
				t.Errorf("Of(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCodeString(t *testing.T) {
	if got := Closed.String(); got != "closed" {
		t.Errorf("Closed.String() = %q, want closed", got)
	}
	if got := Code(42).String(); got != "unknown" {
		t.Errorf("Code(42).String() = %q, want unknown", got)
	}
}

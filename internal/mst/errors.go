package mst

import "errors"

var (
	// ErrWaitTimeout is returned when a bounded register poll exhausts
	// its retry budget without the hardware reporting completion.
	ErrWaitTimeout = errors.New("timed out waiting for command completion")

	// ErrNotDone is returned when polling ends without the target bit
	// pattern for a reason other than budget exhaustion.
	ErrNotDone = errors.New("command still pending after wait")

	// ErrUnsupported is returned for operations the MCU protocol has no
	// equivalent for.
	ErrUnsupported = errors.New("operation not supported")
)

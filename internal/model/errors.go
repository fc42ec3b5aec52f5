package model

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode matches every *DecodeError via errors.Is.
	ErrDecode = errors.New("decode error")
	// ErrPrecondition matches every *PreconditionError via errors.Is.
	ErrPrecondition = errors.New("precondition violated")
	// ErrUnsupportedMetric matches every *UnsupportedMetricError via errors.Is.
	ErrUnsupportedMetric = errors.New("unsupported metric")
)

// DecodeError reports a path, filename or histogram file that could not be
// parsed. It is always fatal to the operation that raised it.
type DecodeError struct {
	Path   string
	Token  string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := e.Reason
	if e.Path != "" {
		msg = fmt.Sprintf("decode %s: %s", e.Path, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// PreconditionError reports an invalid caller-supplied argument. It is raised
// before any work is attempted.
type PreconditionError struct {
	Op     string
	Arg    string
	Reason string
}

func (e *PreconditionError) Error() string {
	if e.Arg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Arg, e.Reason)
}

func (e *PreconditionError) Is(target error) bool { return target == ErrPrecondition }

// UnsupportedMetricError reports a distance metric that cannot be applied to
// a histogram pair.
type UnsupportedMetricError struct {
	Metric string
	Path   string
	Reason string
	Err    error
}

func (e *UnsupportedMetricError) Error() string {
	msg := fmt.Sprintf("metric %s", e.Metric)
	if e.Path != "" {
		msg = fmt.Sprintf("%s on %s", msg, e.Path)
	}
	msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *UnsupportedMetricError) Unwrap() error { return e.Err }

func (e *UnsupportedMetricError) Is(target error) bool { return target == ErrUnsupportedMetric }

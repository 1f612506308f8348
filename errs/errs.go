// Package errs classifies the handful of error conditions a simulation run
// can hit, so callers can decide propagation policy (abort the job, log and
// continue, or panic on an invariant violation) by kind rather than by
// string-matching messages.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how it should be handled.
type Kind int

const (
	// Config covers bad startup input: non-positive grid dimensions, an
	// unknown pattern name, or a process grid finer than the data it would
	// partition. Surfaced at startup; aborts all ranks.
	Config Kind = iota
	// Comm covers failure of a non-blocking send/recv or barrier. Fatal:
	// there is no local recovery, since a lost halo message would silently
	// corrupt the simulation rather than fail loudly.
	Comm
	// IO covers a snapshot write failure. Logged to stderr on root; the
	// simulation continues for the remaining steps.
	IO
	// Internal covers an invariant violation, such as a planner producing
	// overlapping patches. Indicates a bug, not a bad input.
	Internal
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "config"
	case Comm:
		return "comm"
	case IO:
		return "io"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers can branch on
// errors.As without parsing messages.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fatal reports whether an error of this kind must bring down the whole job
// rather than be locally recovered. Only IO errors are locally recovered.
func (k Kind) Fatal() bool {
	return k != IO
}

func newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Configf builds a Config-kind error.
func Configf(op, format string, args ...any) error { return newf(Config, op, format, args...) }

// Commf builds a Comm-kind error.
func Commf(op, format string, args ...any) error { return newf(Comm, op, format, args...) }

// IOf builds an IO-kind error.
func IOf(op, format string, args ...any) error { return newf(IO, op, format, args...) }

// Internalf builds an Internal-kind error.
func Internalf(op, format string, args ...any) error { return newf(Internal, op, format, args...) }

// Is reports whether err is an *Error of the given kind, unwrapping as
// needed.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

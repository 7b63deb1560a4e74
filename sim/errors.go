package sim

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind classifies failures of a simulation run.
type ErrorKind string

const (
	// KindConfiguration marks an invalid parameter combination.
	KindConfiguration ErrorKind = "configuration"
	// KindIntegration marks a solver that failed to converge or produced non-finite state.
	KindIntegration ErrorKind = "integration"
	// KindAlignment marks an offset search with no overlapping window.
	KindAlignment ErrorKind = "alignment"
	// KindDataUnavailable marks a population or observed-series lookup that cannot be served.
	KindDataUnavailable ErrorKind = "data-unavailable"
)

// Sentinels for errors.Is matching against *Error values of the corresponding kind.
var (
	ErrConfiguration   = errors.New("invalid configuration")
	ErrIntegration     = errors.New("integration failed")
	ErrAlignment       = errors.New("no overlap between simulated and observed series")
	ErrDataUnavailable = errors.New("data unavailable")
)

var kindSentinels = map[ErrorKind]error{
	KindConfiguration:   ErrConfiguration,
	KindIntegration:     ErrIntegration,
	KindAlignment:       ErrAlignment,
	KindDataUnavailable: ErrDataUnavailable,
}

// Error is the single error type surfaced by the simulation core.
// Params holds the parameter values that caused the failure.
type Error struct {
	Kind   ErrorKind
	Op     string
	Params map[string]any
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(string(e.Kind))
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Params) > 0 {
		keys := make([]string, 0, len(e.Params))
		for k := range e.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Params[k]))
		}
		b.WriteString(" (")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(")")
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Params is shorthand for building Error.Params.
type Params map[string]any

func newError(kind ErrorKind, op string, params Params, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Params: params, Err: fmt.Errorf(format, args...)}
}

// NewDataUnavailableError is used by DataSource implementations to report a
// region they cannot serve.
func NewDataUnavailableError(op string, params Params, err error) *Error {
	return &Error{Kind: KindDataUnavailable, Op: op, Params: params, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// Package dalerr defines the error kinds shared by every part of the runtime.
//
// Each failure that the runtime itself produces carries an explicit Kind. The
// execution engine decides whether to capture or propagate an error by looking
// at that tag, never at the concrete error type.
package dalerr

import "errors"

// Kind classifies a failure.
type Kind int

const (
	// Unclassified is any error the runtime did not tag. It always propagates.
	Unclassified Kind = iota
	// Validation covers a missing connection string, unsafe text and malformed
	// parameter combinations. It always propagates.
	Validation
	// FatalIntent marks a command that tried to shut the server down.
	FatalIntent
	// Capability marks an operation the active backend does not support.
	Capability
	// Database wraps a driver error recognized as belonging to the active
	// backend. It is the only kind that may be captured.
	Database
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case FatalIntent:
		return "fatal-intent"
	case Capability:
		return "capability"
	case Database:
		return "database"
	default:
		return "unclassified"
	}
}

// Error is a tagged runtime error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New tags err with kind. Op names the operation that failed and may be empty.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the outermost tagged error in err's chain, or
// Unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unclassified
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

package threatlist

import (
	"errors"

	"github.com/activecm/rita-threats/datatypes/threat"
)

// State is where a List is in its load cycle
type State int

const (
	// Loading is the initial state and the state while a Load is running
	Loading State = iota
	// Loaded means the last Load succeeded
	Loaded
	// Error means the last Load failed
	Error
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Error:
		return "error"
	}
	return "unknown"
}

// FetchError is the single failure kind of a List. Transport errors, non 2xx
// answers and missing credentials all collapse into it. Error returns the
// message shown to the user; the cause is kept for logging.
type FetchError struct {
	Kind threat.Kind
	Err  error
}

func (e *FetchError) Error() string {
	return e.Kind.LoadFailedMessage()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchFailed reports whether err is a FetchError
func IsFetchFailed(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

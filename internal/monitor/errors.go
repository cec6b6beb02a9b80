package monitor

import (
	"errors"
	"fmt"
)

// ErrFetch is matched by every FetchError.
var ErrFetch = errors.New("fetch failed")

// ErrPersist is matched by every PersistError.
var ErrPersist = errors.New("persist failed")

// FetchErrorKind classifies why a fetch failed.
type FetchErrorKind string

// Fetch failure kinds.
const (
	FetchNavigation FetchErrorKind = "navigation"
	FetchTimeout    FetchErrorKind = "timeout"
	FetchMarker     FetchErrorKind = "marker"
)

// FetchError reports a failed page load. The cycle that hit it is abandoned.
type FetchError struct {
	Kind FetchErrorKind
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrFetch) match any FetchError.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// PersistError reports a failed ledger or session write.
type PersistError struct {
	Target string
	Err    error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Target, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPersist) match any PersistError.
func (e *PersistError) Is(target error) bool { return target == ErrPersist }

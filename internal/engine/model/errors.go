package model

import "github.com/pkg/errors"

// Model errors.
var (
	ErrLoadFailure      = errors.New("model failed to load")
	ErrNotLoaded        = errors.New("model not loaded")
	ErrParentCycle      = errors.New("model parent chain loops")
	ErrMissingAnimation = errors.New("animation index out of range")
	ErrUnknownMatter    = errors.New("unknown matter")
)

// LoadError reports a model that could not be loaded. It matches
// ErrLoadFailure with errors.Is and unwraps to the underlying cause.
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	return "loading model " + e.Name + ": " + e.Err.Error()
}

// Unwrap returns the cause.
func (e *LoadError) Unwrap() error { return e.Err }

// Is reports whether target is ErrLoadFailure.
func (e *LoadError) Is(target error) bool { return target == ErrLoadFailure }

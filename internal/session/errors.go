package session

import "fmt"

// sessionNotFoundError signals an unknown session handle for 404 mapping.
type sessionNotFoundError struct{ id int64 }

func (e sessionNotFoundError) Error() string { return fmt.Sprintf("session not found: %d", e.id) }

// ErrSessionNotFound constructs a sessionNotFoundError.
func ErrSessionNotFound(id int64) error { return sessionNotFoundError{id: id} }

// IsSessionNotFound reports whether err indicates an unknown session handle.
func IsSessionNotFound(err error) bool {
	_, ok := err.(sessionNotFoundError)
	return ok
}

// modelNotFoundError signals a model id absent from the registry.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// engineUnavailableError signals a missing or failed engine runtime so the
// HTTP layer can return 503 Service Unavailable instead of 500.
type engineUnavailableError struct{ msg string }

func (e engineUnavailableError) Error() string { return e.msg }

// ErrEngineUnavailable constructs an engineUnavailableError.
func ErrEngineUnavailable(msg string) error { return engineUnavailableError{msg: msg} }

// IsEngineUnavailable reports whether err indicates a missing/failed engine.
func IsEngineUnavailable(err error) bool {
	_, ok := err.(engineUnavailableError)
	return ok
}

// busyError signals a second generation attempted on a session that already
// has one in flight.
type busyError struct{ id int64 }

func (e busyError) Error() string { return fmt.Sprintf("session busy: %d", e.id) }

// IsBusy reports whether err indicates an in-flight generation collision.
func IsBusy(err error) bool {
	_, ok := err.(busyError)
	return ok
}

// malformedConfigError signals an overlay update that could not be parsed.
// The session's prior configuration is retained.
type malformedConfigError struct{ cause error }

func (e malformedConfigError) Error() string { return "malformed config: " + e.cause.Error() }

func (e malformedConfigError) Unwrap() error { return e.cause }

// IsMalformedConfig reports whether err indicates a rejected overlay update.
func IsMalformedConfig(err error) bool {
	_, ok := err.(malformedConfigError)
	return ok
}

package store

import "github.com/korpimaa/nightexpress/internal/errors"

var (
	// ErrNotFound signals a session or code lookup miss.
	ErrNotFound = errors.NewSentinel("not found")
	// ErrCodeExhaustion signals that session creation ran out of join-code
	// candidates. Fatal to the creation attempt; the caller starts over.
	ErrCodeExhaustion = errors.NewSentinel("join code space exhausted")
	// ErrTransport signals that the store was unreachable or a request failed.
	// Callers may retry the operation.
	ErrTransport = errors.NewSentinel("store request failed")
	// ErrValidation signals a write that would violate a session invariant,
	// such as binding a second student.
	ErrValidation = errors.NewSentinel("invalid session mutation")
)

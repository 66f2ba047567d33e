package errors

import (
	"errors"
)

// Sentinel errors for different failure categories
var (
	// ErrInvalidInput - request is missing required fields or malformed (maps to 400)
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized - missing or bad credentials (maps to 401)
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound - record does not exist in the store (maps to 404)
	ErrNotFound = errors.New("not found")

	// ErrUpstream - a remote collaborator (gateway, search, store, bridge) is unreachable or erroring
	ErrUpstream = errors.New("upstream unavailable")

	// ErrShapeMismatch - a remote response does not line up with what was sent
	// (wrong embedding count, malformed tool arguments, bad JSON-RPC frame)
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrDimensionMismatch - query and document vectors have different lengths;
	// must never happen when both come from one embedding model, checked anyway
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrTimeout - a bounded external call exceeded its deadline
	ErrTimeout = errors.New("timed out")
)

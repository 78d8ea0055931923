package a2a

import "errors"

var (
	// ErrDispatchTimeout indicates no response completed within the
	// configured timeout window.
	ErrDispatchTimeout = errors.New("dispatch timed out")

	// ErrUnreachable indicates the endpoint could not be reached at all
	// (connection refused, DNS failure, transport-level rejection).
	ErrUnreachable = errors.New("dispatch endpoint unreachable")
)

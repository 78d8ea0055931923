package card

import "errors"

// ErrUnreachable indicates the well-known metadata fetch could not complete:
// connection refused, timeout, non-200 status or a malformed card document.
// Resolution failures are never cached; the next Resolve retries from scratch.
var ErrUnreachable = errors.New("endpoint unreachable")

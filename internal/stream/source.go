package stream

import "context"

// Source is the contract for a pull-based video endpoint.
//
// The session treats the endpoint as opaque: open a handle, read decoded
// frames one at a time, close the handle. Implementations must guarantee:
//   - Open is bounded by the passed context (the session applies its
//     connect timeout)
//   - Read returns the newest available frame; stale frames must not be
//     buffered beyond depth 1
//   - Read honors context cancellation and deadline
//   - Close is idempotent, and Open after Close reopens from scratch
type Source interface {
	// Open establishes a connection to the endpoint at url
	Open(ctx context.Context, url string) error

	// Read blocks until the next decoded frame is available, the context
	// is done, or the source fails
	Read(ctx context.Context) (Frame, error)

	// Close releases the underlying handle
	Close() error
}

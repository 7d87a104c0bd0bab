// Package driver defines the contract between the shell compatibility layer
// and the store driver that performs the actual network I/O. The layer above
// assumes an already-connected, already-authenticated handle: implementations
// of Connection own connection pooling, authentication, retries, and the wire
// protocol.
package driver

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// Connection is a handle to a remote document store capable of executing
// write command batches and opening server-side query cursors.
type Connection interface {
	// RunCommand submits one write command batch and returns the store's
	// reply. A nil error with a non-nil result means the command reached the
	// store; per-document failures are reported inside the result, not as an
	// error. Implementations must not retain spec after returning.
	RunCommand(ctx context.Context, spec *CommandSpec) (*CommandResult, error)

	// Query opens a server-side cursor over the documents matching filter,
	// with opts already fully accumulated by the caller. Options must be
	// applied before the first document is produced.
	Query(ctx context.Context, collection string, filter bson.M, opts *QueryOptions) (QueryCursor, error)
}

// QueryCursor is a server-side result cursor. Implementations are not
// required to be safe for concurrent use; the layer above serializes pulls.
type QueryCursor interface {
	// Next returns the next document in store order, or (nil, nil) once the
	// result set is exhausted or the cursor has been closed or killed.
	Next(ctx context.Context) (bson.M, error)

	// HasNext reports whether another document is available without
	// consuming it.
	HasNext(ctx context.Context) (bool, error)

	// All drains the remaining documents in store order. An exhausted cursor
	// yields an empty, non-nil slice.
	All(ctx context.Context) ([]bson.M, error)

	// Count reports the number of documents matched by the cursor's query.
	Count(ctx context.Context) (int64, error)

	// Explain returns the store's execution plan for the cursor's query.
	Explain(ctx context.Context) (bson.M, error)

	// Rewind resets iteration to the first document, re-issuing the query if
	// the store requires it. Rewinding a closed cursor is a no-op.
	Rewind(ctx context.Context) error

	// Close releases the server-side cursor. Closing twice is a no-op.
	Close(ctx context.Context) error

	// Done is closed when the cursor is closed or the store reports it
	// exhausted or killed.
	Done() <-chan struct{}
}

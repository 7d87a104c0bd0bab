package mongoshell

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/shellstore/mongoshell/driver"
)

// cursorFactory opens the remote cursor. It is invoked exactly once, at
// realization time, with the fully accumulated options.
type cursorFactory func(ctx context.Context, opts *driver.QueryOptions) (driver.QueryCursor, error)

// Cursor is a lazy, pull-based adapter over a server-side result cursor. It
// moves through three states: unrealized (configuration accumulates, nothing
// touches the store), realized (the first consuming call opened the remote
// handle), and closed.
//
// Configuration calls after realization are silent no-ops, kept for drop-in
// compatibility with the legacy shell surface; they are logged at warn level.
// Pulls are serialized internally, so a Cursor may be handed between
// goroutines, but there is never more than one in-flight pull and no
// read-ahead beyond it.
type Cursor struct {
	mu      sync.Mutex
	factory cursorFactory
	opts    *driver.QueryOptions
	log     logrus.FieldLogger

	handle   driver.QueryCursor
	realized bool
	closed   bool

	done     chan struct{}
	doneOnce sync.Once
}

func newCursor(factory cursorFactory, log logrus.FieldLogger) *Cursor {
	return &Cursor{
		factory: factory,
		opts:    &driver.QueryOptions{},
		log:     log,
		done:    make(chan struct{}),
	}
}

// Limit caps the number of documents the cursor returns.
func (c *Cursor) Limit(n int64) *Cursor {
	return c.configure(driver.OptLimit, func() { c.opts.SetLimit(n) })
}

// Sort orders the result set by the given sort specification.
func (c *Cursor) Sort(sort interface{}) *Cursor {
	return c.configure(driver.OptSort, func() { c.opts.SetSort(sort) })
}

// Skip skips the first n matching documents.
func (c *Cursor) Skip(n int64) *Cursor {
	return c.configure(driver.OptSkip, func() { c.opts.SetSkip(n) })
}

// BatchSize bounds the number of documents per network round trip.
func (c *Cursor) BatchSize(n int32) *Cursor {
	return c.configure(driver.OptBatchSize, func() { c.opts.SetBatchSize(n) })
}

// Hint forces the index used to satisfy the query.
func (c *Cursor) Hint(hint interface{}) *Cursor {
	return c.configure(driver.OptHint, func() { c.opts.SetHint(hint) })
}

// MaxTimeMS bounds the server-side execution time, in milliseconds.
func (c *Cursor) MaxTimeMS(ms int64) *Cursor {
	return c.configure(driver.OptMaxTimeMS, func() { c.opts.SetMaxTimeMS(ms) })
}

// Max sets the exclusive upper index bound.
func (c *Cursor) Max(max interface{}) *Cursor {
	return c.configure(driver.OptMax, func() { c.opts.SetMax(max) })
}

// Min sets the inclusive lower index bound.
func (c *Cursor) Min(min interface{}) *Cursor {
	return c.configure(driver.OptMin, func() { c.opts.SetMin(min) })
}

// Snapshot requests snapshot isolation for the read, where supported.
func (c *Cursor) Snapshot(snapshot bool) *Cursor {
	return c.configure(driver.OptSnapshot, func() { c.opts.SetSnapshot(snapshot) })
}

// Collation sets the collation document governing string comparison.
func (c *Cursor) Collation(collation interface{}) *Cursor {
	return c.configure(driver.OptCollation, func() { c.opts.SetCollation(collation) })
}

// SetFlag records a named cursor flag (tailable, noCursorTimeout, ...). Flags
// are applied to the remote cursor after the options.
func (c *Cursor) SetFlag(name string, value bool) *Cursor {
	return c.configure(name, func() { c.opts.SetFlag(name, value) })
}

func (c *Cursor) configure(name string, set func()) *Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.realized || c.closed {
		c.log.WithField("option", name).Warn("cursor option ignored after realization")
		return c
	}
	set()
	return c
}

// realize opens the remote cursor on the first consuming call. On failure the
// cursor stays unrealized, so a later consuming call retries. Callers hold mu.
func (c *Cursor) realize(ctx context.Context) error {
	if c.realized {
		return nil
	}
	if c.factory == nil {
		return ErrNilConnection
	}
	handle, err := c.factory(ctx, c.opts)
	if err != nil {
		return errors.Wrap(err, "mongoshell: realize cursor")
	}
	if handle == nil {
		return errors.New("mongoshell: store returned no cursor")
	}
	c.handle = handle
	c.realized = true
	c.log.Debug("cursor realized")
	go c.forwardClose(handle)
	return nil
}

// forwardClose propagates the handle's close notification to this cursor's
// observers and marks the cursor closed, so pulls after a server-side kill
// report end-of-sequence.
func (c *Cursor) forwardClose(handle driver.QueryCursor) {
	<-handle.Done()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.doneOnce.Do(func() { close(c.done) })
}

// Next returns the next document, or (nil, nil) once the sequence is
// exhausted or the cursor is closed. Exhaustion is never an error.
func (c *Cursor) Next(ctx context.Context) (bson.M, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, nil
	}
	if err := c.realize(ctx); err != nil {
		return nil, err
	}
	doc, err := c.handle.Next(ctx)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		c.closed = true
		c.doneOnce.Do(func() { close(c.done) })
	}
	return doc, nil
}

// HasNext reports whether another document is available, without consuming
// it. A closed cursor reports false.
func (c *Cursor) HasNext(ctx context.Context) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, nil
	}
	if err := c.realize(ctx); err != nil {
		return false, err
	}
	return c.handle.HasNext(ctx)
}

// ToArray drains the sequence eagerly, in store order. An empty result set
// yields an empty, non-nil slice.
func (c *Cursor) ToArray(ctx context.Context) ([]bson.M, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return []bson.M{}, nil
	}
	if err := c.realize(ctx); err != nil {
		return nil, err
	}
	docs, err := c.handle.All(ctx)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []bson.M{}
	}
	c.closed = true
	c.doneOnce.Do(func() { close(c.done) })
	return docs, nil
}

// ForEach consumes the sequence one document at a time through repeated Next
// calls, so long sequences iterate with bounded stack depth. It stops on the
// first error from fn.
func (c *Cursor) ForEach(ctx context.Context, fn func(bson.M) error) error {
	for {
		doc, err := c.Next(ctx)
		if err != nil {
			return err
		}
		if doc == nil {
			return nil
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
}

// Map consumes the sequence like ForEach, collecting the values fn returns.
func (c *Cursor) Map(ctx context.Context, fn func(bson.M) (interface{}, error)) ([]interface{}, error) {
	out := []interface{}{}
	err := c.ForEach(ctx, func(doc bson.M) error {
		v, err := fn(doc)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count reports the number of documents matched by the cursor's query. A
// closed cursor reports zero.
func (c *Cursor) Count(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, nil
	}
	if err := c.realize(ctx); err != nil {
		return 0, err
	}
	return c.handle.Count(ctx)
}

// Size reports the number of documents the cursor will actually return, with
// limit and skip applied by the store.
func (c *Cursor) Size(ctx context.Context) (int64, error) {
	return c.Count(ctx)
}

// Explain returns the store's execution plan for the cursor's query.
func (c *Cursor) Explain(ctx context.Context) (bson.M, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, nil
	}
	if err := c.realize(ctx); err != nil {
		return nil, err
	}
	return c.handle.Explain(ctx)
}

// Rewind resets iteration to the first document. Rewinding a closed cursor is
// a no-op: a closed cursor never reopens.
func (c *Cursor) Rewind(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	if err := c.realize(ctx); err != nil {
		return err
	}
	return c.handle.Rewind(ctx)
}

// Close releases the remote cursor, if one was realized, and marks the cursor
// closed. Subsequent pulls report end-of-sequence rather than reopening. If a
// pull is in flight, Close waits for it to settle first.
func (c *Cursor) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	handle := c.handle
	c.mu.Unlock()

	c.doneOnce.Do(func() { close(c.done) })
	if handle != nil {
		return errors.Wrap(handle.Close(ctx), "mongoshell: close cursor")
	}
	return nil
}

// Destroy is an alias of Close, kept for the legacy surface.
func (c *Cursor) Destroy(ctx context.Context) error {
	return c.Close(ctx)
}

// Done is closed when the cursor closes, whether by Close, by draining, or by
// the store killing the remote cursor.
func (c *Cursor) Done() <-chan struct{} {
	return c.done
}

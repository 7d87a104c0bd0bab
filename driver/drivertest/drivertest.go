// Package drivertest provides scripted in-memory implementations of the
// driver contract, for this module's own tests and for store adapter authors.
package drivertest

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/shellstore/mongoshell/driver"
)

// QueryCall records one Connection.Query invocation.
type QueryCall struct {
	Collection string
	Filter     bson.M
	Options    *driver.QueryOptions
}

// Connection is an in-memory driver.Connection. Commands are answered from
// Replies in submission order, falling back to a kind-appropriate default
// acknowledging every operation. Queries are answered with a cursor over
// Docs. The zero value is usable.
type Connection struct {
	mu sync.Mutex

	// Replies is consumed front to back by RunCommand; a nil entry selects
	// the default reply.
	Replies []*driver.CommandResult

	// CommandErr, when set, fails every RunCommand call.
	CommandErr error

	// Docs backs the cursors handed out by Query.
	Docs []bson.M

	// QueryErr, when set, fails the next Query call and is then cleared, so
	// realization-retry behavior can be exercised.
	QueryErr error

	// Recorded calls.
	Specs   []*driver.CommandSpec
	Queries []QueryCall

	// Cursors holds every cursor handed out by Query, in order.
	Cursors []*Cursor
}

var _ driver.Connection = (*Connection)(nil)

// RunCommand records the spec and answers with the next scripted reply.
func (c *Connection) RunCommand(_ context.Context, spec *driver.CommandSpec) (*driver.CommandResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Specs = append(c.Specs, spec)
	if c.CommandErr != nil {
		return nil, c.CommandErr
	}
	var reply *driver.CommandResult
	if len(c.Replies) > 0 {
		reply, c.Replies = c.Replies[0], c.Replies[1:]
	}
	if reply == nil {
		reply = &driver.CommandResult{Ok: 1, N: int64(spec.Size())}
	}
	return reply, nil
}

// Query records the call and returns a cursor over Docs.
func (c *Connection) Query(_ context.Context, collection string, filter bson.M, opts *driver.QueryOptions) (driver.QueryCursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Queries = append(c.Queries, QueryCall{Collection: collection, Filter: filter, Options: opts})
	if c.QueryErr != nil {
		err := c.QueryErr
		c.QueryErr = nil
		return nil, err
	}
	cur := NewCursor(c.Docs)
	c.Cursors = append(c.Cursors, cur)
	return cur, nil
}

// CommandDocs renders every recorded spec in wire shape.
func (c *Connection) CommandDocs() []bson.D {
	c.mu.Lock()
	defer c.mu.Unlock()
	docs := make([]bson.D, len(c.Specs))
	for i, spec := range c.Specs {
		docs[i] = spec.Document()
	}
	return docs
}

// Cursor is an in-memory driver.QueryCursor over a fixed document slice. It
// reports done once drained or closed.
type Cursor struct {
	mu     sync.Mutex
	docs   []bson.M
	pos    int
	closed bool

	done     chan struct{}
	doneOnce sync.Once

	// NextCalls counts Next invocations, including the one that reports
	// exhaustion.
	NextCalls int
}

var _ driver.QueryCursor = (*Cursor)(nil)

// NewCursor returns a cursor over docs.
func NewCursor(docs []bson.M) *Cursor {
	return &Cursor{docs: docs, done: make(chan struct{})}
}

// Next returns the next document, or (nil, nil) once drained or closed.
func (c *Cursor) Next(context.Context) (bson.M, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.NextCalls++
	if c.closed || c.pos >= len(c.docs) {
		c.markDone()
		return nil, nil
	}
	doc := c.docs[c.pos]
	c.pos++
	return doc, nil
}

// HasNext reports availability without consuming.
func (c *Cursor) HasNext(context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.pos < len(c.docs), nil
}

// All drains the remaining documents.
func (c *Cursor) All(context.Context) ([]bson.M, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []bson.M{}
	if !c.closed {
		out = append(out, c.docs[c.pos:]...)
		c.pos = len(c.docs)
	}
	c.markDone()
	return out, nil
}

// Count reports the total number of matched documents, regardless of
// position.
func (c *Cursor) Count(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.docs)), nil
}

// Explain returns a minimal plan document.
func (c *Cursor) Explain(context.Context) (bson.M, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bson.M{"ok": 1, "nReturned": len(c.docs)}, nil
}

// Rewind resets iteration to the first document.
func (c *Cursor) Rewind(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.pos = 0
	}
	return nil
}

// Close marks the cursor closed and fires Done.
func (c *Cursor) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.markDone()
	return nil
}

// Done is closed once the cursor is drained or closed.
func (c *Cursor) Done() <-chan struct{} {
	return c.done
}

// Closed reports whether Close was called or the cursor drained.
func (c *Cursor) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Cursor) markDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

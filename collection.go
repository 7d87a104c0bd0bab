package mongoshell

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/shellstore/mongoshell/driver"
)

// Collection is a named collection reached through a store connection. It is
// the entry point for bulk accumulation and lazy cursors; the plain
// single-document operations stay with the underlying store driver.
type Collection struct {
	conn driver.Connection
	name string
	wc   *driver.WriteConcern
	log  logrus.FieldLogger
}

// CollectionOption configures a Collection under construction.
type CollectionOption func(*Collection)

// WithLogger injects the logger used for batch and cursor diagnostics. The
// default discards everything.
func WithLogger(log logrus.FieldLogger) CollectionOption {
	return func(c *Collection) { c.log = log }
}

// WithWriteConcern sets the default write concern for bulks created from this
// collection. Bulk.SetWriteConcern overrides it per bulk.
func WithWriteConcern(wc *driver.WriteConcern) CollectionOption {
	return func(c *Collection) { c.wc = wc }
}

// NewCollection binds a collection name to a store connection.
func NewCollection(conn driver.Connection, name string, opts ...CollectionOption) *Collection {
	c := &Collection{
		conn: conn,
		name: name,
		log:  discardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// OrderedBulk starts a bulk whose batches the store processes in order,
// stopping a batch at its first error.
func (c *Collection) OrderedBulk() *Bulk {
	return newBulk(c.conn, c.name, true, c.wc, c.log)
}

// UnorderedBulk starts a bulk whose batches the store processes best-effort,
// continuing past per-document errors.
func (c *Collection) UnorderedBulk() *Bulk {
	return newBulk(c.conn, c.name, false, c.wc, c.log)
}

// Find returns an unrealized cursor over the documents matching filter. The
// store is not contacted until the first consuming call.
func (c *Collection) Find(filter bson.M) *Cursor {
	if filter == nil {
		filter = bson.M{}
	}
	conn := c.conn
	name := c.name
	var factory cursorFactory
	if conn != nil {
		factory = func(ctx context.Context, opts *driver.QueryOptions) (driver.QueryCursor, error) {
			return conn.Query(ctx, name, filter, opts)
		}
	}
	return newCursor(factory, c.log.WithField("collection", name))
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

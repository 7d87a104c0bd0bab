// Package mongoconn implements the driver contract on top of the official
// MongoDB Go driver. Connection pooling, authentication, retries, and the
// wire protocol all stay with the official driver; this package only maps the
// contract's shapes onto it.
package mongoconn

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shellstore/mongoshell/driver"
)

// Cursor flag names recognized by this adapter.
const (
	FlagTailable            = "tailable"
	FlagAwaitData           = "awaitData"
	FlagNoCursorTimeout     = "noCursorTimeout"
	FlagAllowPartialResults = "allowPartialResults"
	FlagOplogReplay         = "oplogReplay"
)

// Connection is a driver.Connection backed by an already-connected
// *mongo.Database.
type Connection struct {
	db  *mongo.Database
	log logrus.FieldLogger
}

var _ driver.Connection = (*Connection)(nil)

// Option configures a Connection under construction.
type Option func(*Connection)

// WithLogger injects the logger used for adapter diagnostics. The default
// discards everything.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Connection) { c.log = log }
}

// New wraps db as a driver.Connection.
func New(db *mongo.Database, opts ...Option) *Connection {
	l := logrus.New()
	l.SetOutput(io.Discard)
	c := &Connection{db: db, log: l}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunCommand submits the batch document via Database.RunCommand and decodes
// the reply into the contract's result shape.
func (c *Connection) RunCommand(ctx context.Context, spec *driver.CommandSpec) (*driver.CommandResult, error) {
	sr := c.db.RunCommand(ctx, spec.Document())
	if err := sr.Err(); err != nil {
		return nil, errors.Wrapf(err, "mongoconn: %s %s.%s", spec.Kind, c.db.Name(), spec.Collection)
	}
	var res driver.CommandResult
	if err := sr.Decode(&res); err != nil {
		return nil, errors.Wrap(err, "mongoconn: decode command reply")
	}
	return &res, nil
}

// Query opens a find cursor with the accumulated options applied.
func (c *Connection) Query(ctx context.Context, collection string, filter bson.M, opts *driver.QueryOptions) (driver.QueryCursor, error) {
	fo, err := c.findOptions(opts)
	if err != nil {
		return nil, err
	}
	coll := c.db.Collection(collection)
	cur, err := coll.Find(ctx, filter, fo)
	if err != nil {
		return nil, errors.Wrapf(err, "mongoconn: find %s.%s", c.db.Name(), collection)
	}
	return &queryCursor{
		coll:   coll,
		filter: filter,
		opts:   opts,
		fo:     fo,
		cur:    cur,
		done:   make(chan struct{}),
	}, nil
}

// findOptions maps the accumulated options onto the official driver's find
// options, in first-set order, flags after options.
func (c *Connection) findOptions(o *driver.QueryOptions) (*options.FindOptions, error) {
	fo := options.Find()
	if o == nil {
		return fo, nil
	}
	for _, name := range o.ApplyOrder() {
		switch name {
		case driver.OptLimit:
			fo.SetLimit(*o.Limit)
		case driver.OptSort:
			fo.SetSort(o.Sort)
		case driver.OptSkip:
			fo.SetSkip(*o.Skip)
		case driver.OptBatchSize:
			fo.SetBatchSize(*o.BatchSize)
		case driver.OptHint:
			fo.SetHint(o.Hint)
		case driver.OptMaxTimeMS:
			fo.SetMaxTime(time.Duration(*o.MaxTimeMS) * time.Millisecond)
		case driver.OptMax:
			fo.SetMax(o.Max)
		case driver.OptMin:
			fo.SetMin(o.Min)
		case driver.OptSnapshot:
			fo.SetSnapshot(*o.Snapshot)
		case driver.OptCollation:
			collation, err := toCollation(o.Collation)
			if err != nil {
				return nil, err
			}
			fo.SetCollation(collation)
		}
	}
	tailable := false
	for _, name := range o.FlagOrder() {
		value := o.Flags[name]
		switch name {
		case FlagTailable:
			tailable = value
			if value {
				fo.SetCursorType(options.Tailable)
			}
		case FlagAwaitData:
			if value && tailable {
				fo.SetCursorType(options.TailableAwait)
			}
		case FlagNoCursorTimeout:
			fo.SetNoCursorTimeout(value)
		case FlagAllowPartialResults:
			fo.SetAllowPartialResults(value)
		case FlagOplogReplay:
			fo.SetOplogReplay(value)
		default:
			c.log.WithField("flag", name).Warn("unknown cursor flag ignored")
		}
	}
	return fo, nil
}

// toCollation converts a collation document (bson.M or bson.D) into the
// official driver's collation type via a bson round trip.
func toCollation(v interface{}) (*options.Collation, error) {
	if v == nil {
		return nil, nil
	}
	if collation, ok := v.(*options.Collation); ok {
		return collation, nil
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "mongoconn: marshal collation")
	}
	var collation options.Collation
	if err := bson.Unmarshal(raw, &collation); err != nil {
		return nil, errors.Wrap(err, "mongoconn: unmarshal collation")
	}
	return &collation, nil
}

package mongoconn

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shellstore/mongoshell/driver"
)

// queryCursor adapts *mongo.Cursor to the contract. HasNext must not consume,
// so the one document the official cursor advances over is buffered in peeked
// until the next pull.
type queryCursor struct {
	mu     sync.Mutex
	coll   *mongo.Collection
	filter bson.M
	opts   *driver.QueryOptions
	fo     *options.FindOptions
	cur    *mongo.Cursor
	peeked bson.M
	closed bool

	done     chan struct{}
	doneOnce sync.Once
}

var _ driver.QueryCursor = (*queryCursor)(nil)

func (q *queryCursor) Next(ctx context.Context) (bson.M, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.peeked != nil {
		doc := q.peeked
		q.peeked = nil
		return doc, nil
	}
	return q.pull(ctx)
}

func (q *queryCursor) HasNext(ctx context.Context) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.peeked != nil {
		return true, nil
	}
	doc, err := q.pull(ctx)
	if err != nil {
		return false, err
	}
	q.peeked = doc
	return doc != nil, nil
}

// pull advances the underlying cursor by one document. Callers hold mu.
func (q *queryCursor) pull(ctx context.Context) (bson.M, error) {
	if q.closed {
		return nil, nil
	}
	if q.cur.Next(ctx) {
		var doc bson.M
		if err := q.cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "mongoconn: decode document")
		}
		return doc, nil
	}
	if err := q.cur.Err(); err != nil {
		return nil, errors.Wrap(err, "mongoconn: advance cursor")
	}
	q.closed = true
	q.markDone()
	return nil, nil
}

func (q *queryCursor) All(ctx context.Context) ([]bson.M, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := []bson.M{}
	if q.peeked != nil {
		out = append(out, q.peeked)
		q.peeked = nil
	}
	if q.closed {
		return out, nil
	}
	var rest []bson.M
	if err := q.cur.All(ctx, &rest); err != nil {
		return nil, errors.Wrap(err, "mongoconn: drain cursor")
	}
	q.closed = true
	q.markDone()
	return append(out, rest...), nil
}

// Count re-runs the cursor's query as a count, honoring the options that
// affect how many documents the cursor returns.
func (q *queryCursor) Count(ctx context.Context) (int64, error) {
	q.mu.Lock()
	opts := q.opts
	q.mu.Unlock()

	co := options.Count()
	if opts != nil {
		if opts.Limit != nil {
			co.SetLimit(*opts.Limit)
		}
		if opts.Skip != nil {
			co.SetSkip(*opts.Skip)
		}
		if opts.Hint != nil {
			co.SetHint(opts.Hint)
		}
		if opts.MaxTimeMS != nil {
			co.SetMaxTime(time.Duration(*opts.MaxTimeMS) * time.Millisecond)
		}
		if opts.Collation != nil {
			collation, err := toCollation(opts.Collation)
			if err != nil {
				return 0, err
			}
			co.SetCollation(collation)
		}
	}
	n, err := q.coll.CountDocuments(ctx, q.filter, co)
	if err != nil {
		return 0, errors.Wrapf(err, "mongoconn: count %s", q.coll.Name())
	}
	return n, nil
}

func (q *queryCursor) Explain(ctx context.Context) (bson.M, error) {
	cmd := bson.D{
		{Key: "explain", Value: bson.D{
			{Key: "find", Value: q.coll.Name()},
			{Key: "filter", Value: q.filter},
		}},
	}
	sr := q.coll.Database().RunCommand(ctx, cmd)
	if err := sr.Err(); err != nil {
		return nil, errors.Wrapf(err, "mongoconn: explain %s", q.coll.Name())
	}
	var plan bson.M
	if err := sr.Decode(&plan); err != nil {
		return nil, errors.Wrap(err, "mongoconn: decode explain reply")
	}
	return plan, nil
}

// Rewind re-issues the find with the same filter and options.
func (q *queryCursor) Rewind(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	if err := q.cur.Close(ctx); err != nil {
		return errors.Wrap(err, "mongoconn: close cursor before rewind")
	}
	cur, err := q.coll.Find(ctx, q.filter, q.fo)
	if err != nil {
		return errors.Wrapf(err, "mongoconn: rewind %s", q.coll.Name())
	}
	q.cur = cur
	q.peeked = nil
	return nil
}

func (q *queryCursor) Close(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	q.peeked = nil
	q.markDone()
	return errors.Wrap(q.cur.Close(ctx), "mongoconn: close cursor")
}

func (q *queryCursor) Done() <-chan struct{} {
	return q.done
}

func (q *queryCursor) markDone() {
	q.doneOnce.Do(func() { close(q.done) })
}

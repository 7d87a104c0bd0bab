package mongoshell

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shellstore/mongoshell/driver"
)

// maxBatchSize is the largest number of operations a single write command may
// carry. Accumulating past it opens a new command.
const maxBatchSize = 1000

// command is one kind-homogeneous batch under construction.
type command struct {
	kind   driver.Kind
	models []WriteModel
}

func (c *command) spec(collection string, ordered bool, wc *driver.WriteConcern) *driver.CommandSpec {
	entries := make([]interface{}, len(c.models))
	for i, m := range c.models {
		entries[i] = m.entry()
	}
	return &driver.CommandSpec{
		Kind:         c.kind,
		Collection:   collection,
		Entries:      entries,
		Ordered:      ordered,
		WriteConcern: wc,
	}
}

// Bulk accumulates insert, update, and remove intents and submits them as a
// sequence of kind-homogeneous command batches. A Bulk is single-use: once
// Execute returns, further accumulation and execution fail with
// ErrBulkExecuted. It is not safe for concurrent use.
type Bulk struct {
	conn       driver.Connection
	collection string
	ordered    bool
	wc         *driver.WriteConcern
	log        logrus.FieldLogger

	commands []*command
	current  *command
	executed bool
}

func newBulk(conn driver.Connection, collection string, ordered bool, wc *driver.WriteConcern, log logrus.FieldLogger) *Bulk {
	return &Bulk{
		conn:       conn,
		collection: collection,
		ordered:    ordered,
		wc:         wc,
		log:        log,
	}
}

// SetWriteConcern overrides the write concern the batches are submitted with.
func (b *Bulk) SetWriteConcern(wc *driver.WriteConcern) *Bulk {
	b.wc = wc
	return b
}

// Insert queues the given documents for insertion. Documents without an _id
// are assigned a generated one in place.
func (b *Bulk) Insert(docs ...bson.M) error {
	if b.executed {
		return ErrBulkExecuted
	}
	for _, doc := range docs {
		if doc == nil {
			doc = bson.M{}
		}
		if _, ok := doc["_id"]; !ok {
			doc["_id"] = primitive.NewObjectID()
		}
		b.push(InsertModel{Document: doc})
	}
	return nil
}

// Find scopes a write intent to the documents matching filter. The returned
// FindSyntax queues exactly one operation via one of its terminal methods.
func (b *Bulk) Find(filter bson.M) *FindSyntax {
	if filter == nil {
		filter = bson.M{}
	}
	return &FindSyntax{bulk: b, filter: filter}
}

// push appends a write intent to the current command, opening a new one when
// the kind changes or the current command is full.
func (b *Bulk) push(m WriteModel) {
	cmd := b.ensureCommand(m.kind())
	cmd.models = append(cmd.models, m)
}

// ensureCommand returns the open command if its kind matches and it has room;
// otherwise it flushes the open command into the batch list and starts a
// fresh one. A kind change always forces a flush, so interleaved kinds
// produce one command per run of equal kinds, preserving submission order.
func (b *Bulk) ensureCommand(kind driver.Kind) *command {
	if b.current != nil && b.current.kind == kind && len(b.current.models) < maxBatchSize {
		return b.current
	}
	b.flush()
	b.current = &command{kind: kind}
	return b.current
}

func (b *Bulk) flush() {
	if b.current == nil || len(b.current.models) == 0 {
		return
	}
	b.log.WithFields(logrus.Fields{
		"collection": b.collection,
		"kind":       b.current.kind.String(),
		"ops":        len(b.current.models),
	}).Debug("closing write command batch")
	b.commands = append(b.commands, b.current)
	b.current = nil
}

// Execute submits the accumulated commands strictly sequentially: the next
// command is not submitted until the previous reply has been merged. Counts,
// upserts, and write errors are aggregated into a single BulkResult, with
// per-command indices remapped to the operation's position within the whole
// bulk. An empty bulk yields a zero-valued result without touching the store.
//
// The batcher never aborts remaining commands itself: when ordered is true,
// stopping after the first error is the store's responsibility, enforced
// through the ordered field of each submitted command.
func (b *Bulk) Execute(ctx context.Context) (*BulkResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.executed {
		return nil, ErrBulkExecuted
	}
	b.executed = true
	if b.conn == nil {
		return nil, ErrNilConnection
	}
	b.flush()

	res := newBulkResult(b.wc.Acknowledged())
	base := 0
	for i, cmd := range b.commands {
		b.log.WithFields(logrus.Fields{
			"collection": b.collection,
			"kind":       cmd.kind.String(),
			"ops":        len(cmd.models),
			"batch":      i + 1,
			"batches":    len(b.commands),
		}).Debug("submitting write command")

		reply, err := b.conn.RunCommand(ctx, cmd.spec(b.collection, b.ordered, b.wc))
		if err != nil {
			return nil, errors.Wrapf(err, "mongoshell: %s command %d of %d", cmd.kind, i+1, len(b.commands))
		}
		if reply == nil {
			return nil, errors.Errorf("mongoshell: store returned no reply for %s command", cmd.kind)
		}
		if reply.WriteConcernError != nil {
			return nil, &WriteConcernError{
				Code:    reply.WriteConcernError.Code,
				Message: reply.WriteConcernError.Message,
			}
		}
		res.merge(cmd.kind, base, reply)
		base += len(cmd.models)
	}
	return res, nil
}

// BulkStats describes the accumulated, not-yet-executed state of a Bulk.
// Field names match the legacy toString shape.
type BulkStats struct {
	InsertOps int `json:"nInsertOps"`
	UpdateOps int `json:"nUpdateOps"`
	RemoveOps int `json:"nRemoveOps"`
	Batches   int `json:"nBatches"`
}

// Stats reports the pending operation and batch counts without executing
// anything.
func (b *Bulk) Stats() BulkStats {
	var s BulkStats
	count := func(cmd *command) {
		if cmd == nil || len(cmd.models) == 0 {
			return
		}
		s.Batches++
		switch cmd.kind {
		case driver.KindInsert:
			s.InsertOps += len(cmd.models)
		case driver.KindUpdate:
			s.UpdateOps += len(cmd.models)
		case driver.KindDelete:
			s.RemoveOps += len(cmd.models)
		}
	}
	for _, cmd := range b.commands {
		count(cmd)
	}
	count(b.current)
	return s
}

// String renders the pending stats in the legacy JSON shape.
func (b *Bulk) String() string {
	out, err := json.Marshal(b.Stats())
	if err != nil {
		return "{}"
	}
	return string(out)
}

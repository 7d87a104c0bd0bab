package driver

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Kind identifies which write command a batch carries. Every entry in a
// CommandSpec has the same kind.
type Kind int

const (
	KindInsert Kind = iota
	KindUpdate
	KindDelete
)

// Name returns the command name used as the first key of the command
// document.
func (k Kind) Name() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	}
	return "<invalid>"
}

// Identifier returns the key under which the batch payload is sent.
func (k Kind) Identifier() string {
	switch k {
	case KindInsert:
		return "documents"
	case KindUpdate:
		return "updates"
	case KindDelete:
		return "deletes"
	}
	return "<invalid>"
}

func (k Kind) String() string { return k.Name() }

// CommandSpec is one kind-homogeneous write batch bound to a collection.
// Entries holds the per-operation payload: the document itself for inserts,
// {q, u, multi, upsert?} for updates, and {q, limit} for deletes.
type CommandSpec struct {
	Kind         Kind
	Collection   string
	Entries      []interface{}
	Ordered      bool
	WriteConcern *WriteConcern
}

// Document renders the legacy batch shape submitted to the store:
//
//	{ insert|update|delete: <collection>,
//	  documents|updates|deletes: [...],
//	  ordered: <bool>,
//	  writeConcern: {...} }
func (s *CommandSpec) Document() bson.D {
	cmd := bson.D{
		{Key: s.Kind.Name(), Value: s.Collection},
		{Key: s.Kind.Identifier(), Value: s.Entries},
		{Key: "ordered", Value: s.Ordered},
	}
	if s.WriteConcern != nil {
		cmd = append(cmd, bson.E{Key: "writeConcern", Value: s.WriteConcern.Document()})
	}
	return cmd
}

// Size returns the number of operations in the batch.
func (s *CommandSpec) Size() int { return len(s.Entries) }

// CommandResult is the store's reply to one write command. Field names match
// the legacy reply shape.
type CommandResult struct {
	Ok                int32              `bson:"ok"`
	N                 int64              `bson:"n"`
	NModified         int64              `bson:"nModified"`
	Upserted          []UpsertedID       `bson:"upserted,omitempty"`
	WriteErrors       []WriteError       `bson:"writeErrors,omitempty"`
	WriteConcernError *WriteConcernError `bson:"writeConcernError,omitempty"`
}

// UpsertedID reports a document created by an upserting update, by the
// operation's index within the submitted batch.
type UpsertedID struct {
	Index int64       `bson:"index"`
	ID    interface{} `bson:"_id"`
}

// WriteError is a per-document failure reported inside a command reply. Index
// is relative to the submitted batch.
type WriteError struct {
	Index   int    `bson:"index"`
	Code    int    `bson:"code"`
	Message string `bson:"errmsg"`
}

// WriteConcernError is a failure to satisfy the requested write concern. It
// applies to the command as a whole, not to one document.
type WriteConcernError struct {
	Code    int    `bson:"code"`
	Message string `bson:"errmsg"`
}

package mongoshell

import (
	"github.com/shellstore/mongoshell/driver"
)

// Upserted reports a document created by an upserting update. Index is the
// operation's position within the whole bulk.
type Upserted struct {
	Index int64       `bson:"index" json:"index"`
	ID    interface{} `bson:"_id" json:"_id"`
}

// BulkResult is the aggregated outcome of one Execute call. Counts accumulate
// across all submitted commands in submission order; field names match the
// legacy result shape.
type BulkResult struct {
	// Acknowledged is false when the bulk ran under an unacknowledged write
	// concern, in which case the counts are not meaningful.
	Acknowledged bool `bson:"-" json:"-"`

	NInserted int64 `bson:"nInserted" json:"nInserted"`
	NUpserted int64 `bson:"nUpserted" json:"nUpserted"`
	NMatched  int64 `bson:"nMatched" json:"nMatched"`
	NModified int64 `bson:"nModified" json:"nModified"`
	NRemoved  int64 `bson:"nRemoved" json:"nRemoved"`

	WriteErrors WriteErrors `bson:"writeErrors" json:"writeErrors"`
	Upserted    []Upserted  `bson:"upserted" json:"upserted"`

	Ok int32 `bson:"ok" json:"ok"`
}

func newBulkResult(acknowledged bool) *BulkResult {
	return &BulkResult{
		Acknowledged: acknowledged,
		WriteErrors:  WriteErrors{},
		Upserted:     []Upserted{},
		Ok:           1,
	}
}

// merge folds one command reply into the running result. base is the index of
// the command's first operation within the whole bulk; per-command indices
// reported by the store are remapped with it.
func (r *BulkResult) merge(kind driver.Kind, base int, reply *driver.CommandResult) {
	switch kind {
	case driver.KindInsert:
		r.NInserted += reply.N
	case driver.KindUpdate:
		nUpserted := int64(len(reply.Upserted))
		r.NUpserted += nUpserted
		r.NMatched += reply.N - nUpserted
		r.NModified += reply.NModified
		for _, u := range reply.Upserted {
			r.Upserted = append(r.Upserted, Upserted{Index: u.Index + int64(base), ID: u.ID})
		}
	case driver.KindDelete:
		r.NRemoved += reply.N
	}
	for _, we := range reply.WriteErrors {
		r.WriteErrors = append(r.WriteErrors, WriteError{
			Index:   we.Index + base,
			Code:    we.Code,
			Message: we.Message,
		})
	}
}

package mongoshell

import (
	"go.mongodb.org/mongo-driver/bson"
)

// FindSyntax captures the caller's intent for a filter-scoped write before it
// is queued on the Bulk. Exactly one terminal call (Update, UpdateOne,
// ReplaceOne, Remove, RemoveOne) is meaningful per FindSyntax; a second one
// returns ErrFindTerminated. Making no terminal call queues nothing.
type FindSyntax struct {
	bulk   *Bulk
	filter bson.M
	upsert bool
	done   bool
}

// Upsert marks a subsequent Update, UpdateOne, or ReplaceOne as an upsert.
// It returns the same FindSyntax for chaining.
func (fs *FindSyntax) Upsert() *FindSyntax {
	fs.upsert = true
	return fs
}

// Update queues an update of every document matching the filter.
func (fs *FindSyntax) Update(update bson.M) error {
	return fs.pushUpdate(update, true)
}

// UpdateOne queues an update of at most one document matching the filter.
func (fs *FindSyntax) UpdateOne(update bson.M) error {
	return fs.pushUpdate(update, false)
}

// ReplaceOne queues a replacement of at most one document matching the
// filter. It is an alias of UpdateOne with a full replacement document.
func (fs *FindSyntax) ReplaceOne(replacement bson.M) error {
	return fs.pushUpdate(replacement, false)
}

// Remove queues removal of every document matching the filter.
func (fs *FindSyntax) Remove() error {
	return fs.pushDelete(0)
}

// RemoveOne queues removal of at most one document matching the filter.
func (fs *FindSyntax) RemoveOne() error {
	return fs.pushDelete(1)
}

func (fs *FindSyntax) pushUpdate(update bson.M, multi bool) error {
	if err := fs.terminate(); err != nil {
		return err
	}
	fs.bulk.push(UpdateModel{
		Filter: fs.filter,
		Update: update,
		Multi:  multi,
		Upsert: fs.upsert,
	})
	return nil
}

func (fs *FindSyntax) pushDelete(limit int32) error {
	if err := fs.terminate(); err != nil {
		return err
	}
	fs.bulk.push(DeleteModel{Filter: fs.filter, Limit: limit})
	return nil
}

func (fs *FindSyntax) terminate() error {
	if fs.done {
		return ErrFindTerminated
	}
	if fs.bulk.executed {
		return ErrBulkExecuted
	}
	fs.done = true
	return nil
}

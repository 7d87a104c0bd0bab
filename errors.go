package mongoshell

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrBulkExecuted is returned when a Bulk is used after Execute.
var ErrBulkExecuted = errors.New("mongoshell: bulk has already been executed")

// ErrFindTerminated is returned when a second terminal call is made on the
// same FindSyntax.
var ErrFindTerminated = errors.New("mongoshell: find already has a terminal operation")

// ErrNilConnection is returned when a Bulk or Cursor was built without a
// store connection.
var ErrNilConnection = errors.New("mongoshell: no store connection")

// WriteError is a per-document failure reported by the store. Index is the
// operation's position within the whole bulk, in submission order.
type WriteError struct {
	Index   int    `bson:"index" json:"index"`
	Code    int    `bson:"code" json:"code"`
	Message string `bson:"errmsg" json:"errmsg"`
}

func (we WriteError) Error() string { return we.Message }

// WriteErrors is a group of per-document failures, in the order the store
// reported them across all submitted commands.
type WriteErrors []WriteError

func (we WriteErrors) Error() string {
	var buf bytes.Buffer
	fmt.Fprint(&buf, "write errors: [")
	for idx, err := range we {
		if idx != 0 {
			fmt.Fprintf(&buf, ", ")
		}
		fmt.Fprintf(&buf, "{%s}", err)
	}
	fmt.Fprint(&buf, "]")
	return buf.String()
}

// WriteConcernError is a failure to satisfy the requested write concern. It
// fails the whole Execute call rather than being collected into the result.
type WriteConcernError struct {
	Code    int    `bson:"code" json:"code"`
	Message string `bson:"errmsg" json:"errmsg"`
}

func (wce WriteConcernError) Error() string { return wce.Message }

package driver

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// WriteConcern describes the level of acknowledgement requested from the
// store for the writes in a batch.
type WriteConcern struct {
	w        interface{}
	j        bool
	wTimeout time.Duration
}

// WriteConcernOption configures a WriteConcern under construction.
type WriteConcernOption func(*WriteConcern)

// NewWriteConcern constructs a WriteConcern from the given options.
func NewWriteConcern(options ...WriteConcernOption) *WriteConcern {
	wc := &WriteConcern{}
	for _, opt := range options {
		opt(wc)
	}
	return wc
}

// W requests acknowledgement from the specified number of store members.
// w=0 requests no acknowledgement at all.
func W(w int) WriteConcernOption {
	return func(wc *WriteConcern) { wc.w = w }
}

// WMajority requests acknowledgement from a majority of store members.
func WMajority() WriteConcernOption {
	return func(wc *WriteConcern) { wc.w = "majority" }
}

// WTagSet requests acknowledgement from members carrying the given tag.
func WTagSet(tag string) WriteConcernOption {
	return func(wc *WriteConcern) { wc.w = tag }
}

// J requests acknowledgement that writes reached the journal.
func J(j bool) WriteConcernOption {
	return func(wc *WriteConcern) { wc.j = j }
}

// WTimeout bounds how long the store waits to satisfy the concern.
func WTimeout(d time.Duration) WriteConcernOption {
	return func(wc *WriteConcern) { wc.wTimeout = d }
}

// Acknowledged reports whether the store will acknowledge the writes at all.
// A nil WriteConcern means the store default, which acknowledges.
func (wc *WriteConcern) Acknowledged() bool {
	if wc == nil {
		return true
	}
	if w, ok := wc.w.(int); ok && w == 0 {
		return false
	}
	return true
}

// Document renders the write concern in its wire shape.
func (wc *WriteConcern) Document() bson.D {
	doc := bson.D{}
	if wc == nil {
		return doc
	}
	if wc.w != nil {
		doc = append(doc, bson.E{Key: "w", Value: wc.w})
	}
	if wc.j {
		doc = append(doc, bson.E{Key: "j", Value: wc.j})
	}
	if wc.wTimeout != 0 {
		doc = append(doc, bson.E{Key: "wtimeout", Value: wc.wTimeout.Milliseconds()})
	}
	return doc
}

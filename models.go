package mongoshell

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/shellstore/mongoshell/driver"
)

// WriteModel is one accumulated write intent. Exactly one of InsertModel,
// UpdateModel, and DeleteModel implements it.
type WriteModel interface {
	// kind reports which write command the model belongs to.
	kind() driver.Kind

	// entry renders the model's per-operation payload in wire shape.
	entry() interface{}
}

// InsertModel is the write model for insert operations. Document always
// carries an _id by the time the model is accumulated.
type InsertModel struct {
	Document bson.M
}

func (m InsertModel) kind() driver.Kind  { return driver.KindInsert }
func (m InsertModel) entry() interface{} { return m.Document }

// UpdateModel is the write model for update and replace operations.
type UpdateModel struct {
	Filter bson.M
	Update bson.M
	Multi  bool
	Upsert bool
}

func (m UpdateModel) kind() driver.Kind { return driver.KindUpdate }

func (m UpdateModel) entry() interface{} {
	e := bson.D{
		{Key: "q", Value: m.Filter},
		{Key: "u", Value: m.Update},
		{Key: "multi", Value: m.Multi},
	}
	if m.Upsert {
		e = append(e, bson.E{Key: "upsert", Value: true})
	}
	return e
}

// DeleteModel is the write model for remove operations. Limit 0 removes every
// matching document; 1 removes at most one.
type DeleteModel struct {
	Filter bson.M
	Limit  int32
}

func (m DeleteModel) kind() driver.Kind { return driver.KindDelete }

func (m DeleteModel) entry() interface{} {
	return bson.D{
		{Key: "q", Value: m.Filter},
		{Key: "limit", Value: m.Limit},
	}
}

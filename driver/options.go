package driver

// Option names recorded in a QueryOptions apply order.
const (
	OptLimit     = "limit"
	OptSort      = "sort"
	OptSkip      = "skip"
	OptBatchSize = "batchSize"
	OptHint      = "hint"
	OptMaxTimeMS = "maxTimeMS"
	OptMax       = "max"
	OptMin       = "min"
	OptSnapshot  = "snapshot"
	OptCollation = "collation"
)

// QueryOptions carries the cursor configuration accumulated before the remote
// cursor is opened. Each legacy option has a dedicated field; Flags carries
// named cursor flags (tailable, noCursorTimeout, ...) that have none. A nil
// pointer or nil interface value means the option was never set.
type QueryOptions struct {
	Limit     *int64
	Sort      interface{}
	Skip      *int64
	BatchSize *int32
	Hint      interface{}
	MaxTimeMS *int64
	Max       interface{}
	Min       interface{}
	Snapshot  *bool
	Collation interface{}
	Flags     map[string]bool

	optOrder  []string
	flagOrder []string
}

// SetLimit caps the number of documents the cursor returns.
func (o *QueryOptions) SetLimit(n int64) { o.Limit = &n; o.note(OptLimit) }

// SetSort orders the result set by the given sort specification.
func (o *QueryOptions) SetSort(sort interface{}) { o.Sort = sort; o.note(OptSort) }

// SetSkip skips the first n matching documents.
func (o *QueryOptions) SetSkip(n int64) { o.Skip = &n; o.note(OptSkip) }

// SetBatchSize bounds the number of documents per network round trip.
func (o *QueryOptions) SetBatchSize(n int32) { o.BatchSize = &n; o.note(OptBatchSize) }

// SetHint forces the index used to satisfy the query.
func (o *QueryOptions) SetHint(hint interface{}) { o.Hint = hint; o.note(OptHint) }

// SetMaxTimeMS bounds the server-side execution time, in milliseconds.
func (o *QueryOptions) SetMaxTimeMS(ms int64) { o.MaxTimeMS = &ms; o.note(OptMaxTimeMS) }

// SetMax sets the exclusive upper index bound.
func (o *QueryOptions) SetMax(max interface{}) { o.Max = max; o.note(OptMax) }

// SetMin sets the inclusive lower index bound.
func (o *QueryOptions) SetMin(min interface{}) { o.Min = min; o.note(OptMin) }

// SetSnapshot requests snapshot isolation for the read, where supported.
func (o *QueryOptions) SetSnapshot(snapshot bool) { o.Snapshot = &snapshot; o.note(OptSnapshot) }

// SetCollation sets the collation document governing string comparison.
func (o *QueryOptions) SetCollation(collation interface{}) { o.Collation = collation; o.note(OptCollation) }

// SetFlag records a named cursor flag. Setting the same flag again overwrites
// its value without changing its position in the apply order.
func (o *QueryOptions) SetFlag(name string, value bool) {
	if o.Flags == nil {
		o.Flags = make(map[string]bool)
	}
	if _, ok := o.Flags[name]; !ok {
		o.flagOrder = append(o.flagOrder, name)
	}
	o.Flags[name] = value
}

// ApplyOrder lists the set option names in first-set order, so adapters can
// apply them deterministically. Flags are applied after options; see
// FlagOrder.
func (o *QueryOptions) ApplyOrder() []string {
	out := make([]string, len(o.optOrder))
	copy(out, o.optOrder)
	return out
}

// FlagOrder lists the set flag names in first-set order.
func (o *QueryOptions) FlagOrder() []string {
	out := make([]string, len(o.flagOrder))
	copy(out, o.flagOrder)
	return out
}

func (o *QueryOptions) note(name string) {
	for _, n := range o.optOrder {
		if n == name {
			return
		}
	}
	o.optOrder = append(o.optOrder, name)
}

// Package mongoshell is a compatibility layer that lets callers issue legacy
// shell-style bulk-write and cursor operations against a remote document
// store, while all network I/O is performed by an underlying store driver
// reached through the driver.Connection contract.
//
// The two main entry points hang off Collection:
//
//	coll := mongoshell.NewCollection(conn, "users")
//
//	bulk := coll.OrderedBulk()
//	bulk.Insert(bson.M{"name": "a"})
//	bulk.Find(bson.M{"status": "stale"}).Remove()
//	res, err := bulk.Execute(ctx)
//
//	cur := coll.Find(bson.M{"status": "active"}).Sort(bson.D{{Key: "name", Value: 1}}).Limit(5)
//	docs, err := cur.ToArray(ctx)
//
// Bulk accumulates write intents into kind-homogeneous command batches of at
// most 1000 operations and submits them strictly sequentially. Cursor defers
// opening the remote cursor until the first consuming call; configuration
// applied before that point is captured and applied exactly once.
//
// A ready-made driver.Connection backed by the official MongoDB driver lives
// in the mongoconn package; in-memory fakes for tests live in
// driver/drivertest.
package mongoshell

package mongoshell_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"

	"github.com/shellstore/mongoshell"
	"github.com/shellstore/mongoshell/driver"
	"github.com/shellstore/mongoshell/driver/drivertest"
)

func testDocs(n int) []bson.M {
	docs := make([]bson.M, n)
	for i := range docs {
		docs[i] = bson.M{"i": i}
	}
	return docs
}

func TestCursorLazyRealization(t *testing.T) {
	conn := &drivertest.Connection{Docs: testDocs(3)}
	cur := newTestCollection(conn).Find(bson.M{"status": "active"}).Limit(5).Skip(1)

	assert.Empty(t, conn.Queries, "configuration must not touch the store")

	doc, err := cur.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, doc)

	require.Len(t, conn.Queries, 1, "first consumption realizes the cursor once")
	assert.Equal(t, "users", conn.Queries[0].Collection)
	assert.Equal(t, bson.M{"status": "active"}, conn.Queries[0].Filter)

	_, err = cur.Next(context.Background())
	require.NoError(t, err)
	assert.Len(t, conn.Queries, 1, "subsequent pulls reuse the realized handle")
}

func TestCursorOptionAccumulation(t *testing.T) {
	conn := &drivertest.Connection{Docs: testDocs(3)}
	cur := newTestCollection(conn).Find(bson.M{}).
		Sort(bson.D{{Key: "name", Value: 1}}).
		Limit(5).
		Limit(7). // overwrites keep the first-set position
		BatchSize(2).
		SetFlag("noCursorTimeout", true)

	_, err := cur.Next(context.Background())
	require.NoError(t, err)

	require.Len(t, conn.Queries, 1)
	opts := conn.Queries[0].Options
	require.NotNil(t, opts)
	assert.Equal(t, []string{driver.OptSort, driver.OptLimit, driver.OptBatchSize}, opts.ApplyOrder())
	assert.Equal(t, int64(7), *opts.Limit)
	assert.Equal(t, int32(2), *opts.BatchSize)
	assert.Equal(t, []string{"noCursorTimeout"}, opts.FlagOrder())
	assert.True(t, opts.Flags["noCursorTimeout"])
}

func TestCursorOptionsIgnoredAfterRealization(t *testing.T) {
	conn := &drivertest.Connection{Docs: testDocs(3)}
	cur := newTestCollection(conn).Find(bson.M{}).Limit(5)

	_, err := cur.Next(context.Background())
	require.NoError(t, err)

	// Known sharp edge of the legacy surface: configuration after the first
	// consuming call is silently ignored.
	cur.Limit(1).Sort(bson.D{{Key: "i", Value: -1}})

	require.Len(t, conn.Queries, 1, "late configuration must not reopen the cursor")
	opts := conn.Queries[0].Options
	assert.Equal(t, int64(5), *opts.Limit)
	assert.Nil(t, opts.Sort)
}

func TestCursorClosed(t *testing.T) {
	t.Run("before_realization", func(t *testing.T) {
		conn := &drivertest.Connection{Docs: testDocs(3)}
		cur := newTestCollection(conn).Find(bson.M{})

		require.NoError(t, cur.Close(context.Background()))
		assert.Empty(t, conn.Queries, "closing an unrealized cursor must not open it")

		has, err := cur.HasNext(context.Background())
		require.NoError(t, err)
		assert.False(t, has)

		doc, err := cur.Next(context.Background())
		require.NoError(t, err)
		assert.Nil(t, doc, "a closed cursor yields end-of-sequence, not an error")
	})
	t.Run("after_realization", func(t *testing.T) {
		conn := &drivertest.Connection{Docs: testDocs(3)}
		cur := newTestCollection(conn).Find(bson.M{})

		_, err := cur.Next(context.Background())
		require.NoError(t, err)
		require.NoError(t, cur.Close(context.Background()))

		require.Len(t, conn.Cursors, 1)
		assert.True(t, conn.Cursors[0].Closed(), "close must release the remote handle")

		doc, err := cur.Next(context.Background())
		require.NoError(t, err)
		assert.Nil(t, doc)
		assert.Len(t, conn.Queries, 1, "a closed cursor never reopens")
	})
	t.Run("destroy_alias", func(t *testing.T) {
		conn := &drivertest.Connection{Docs: testDocs(1)}
		cur := newTestCollection(conn).Find(bson.M{})
		require.NoError(t, cur.Destroy(context.Background()))
		has, err := cur.HasNext(context.Background())
		require.NoError(t, err)
		assert.False(t, has)
	})
}

func TestCursorToArray(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		conn := &drivertest.Connection{}
		docs, err := newTestCollection(conn).Find(bson.M{}).ToArray(context.Background())
		require.NoError(t, err)
		require.NotNil(t, docs)
		assert.Empty(t, docs)
	})
	t.Run("store_order", func(t *testing.T) {
		conn := &drivertest.Connection{Docs: testDocs(4)}
		docs, err := newTestCollection(conn).Find(bson.M{}).ToArray(context.Background())
		require.NoError(t, err)
		require.Len(t, docs, 4)
		for i, doc := range docs {
			assert.Equal(t, i, doc["i"])
		}
	})
}

func TestCursorForEachAndMap(t *testing.T) {
	conn := &drivertest.Connection{Docs: testDocs(5)}
	coll := newTestCollection(conn)

	var seen []interface{}
	err := coll.Find(bson.M{}).ForEach(context.Background(), func(doc bson.M) error {
		seen = append(seen, doc["i"])
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{0, 1, 2, 3, 4}, seen)

	out, err := coll.Find(bson.M{}).Map(context.Background(), func(doc bson.M) (interface{}, error) {
		return doc["i"].(int) * 10, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{0, 10, 20, 30, 40}, out)
}

func TestCursorHasNextDoesNotConsume(t *testing.T) {
	conn := &drivertest.Connection{Docs: testDocs(1)}
	cur := newTestCollection(conn).Find(bson.M{})

	for i := 0; i < 3; i++ {
		has, err := cur.HasNext(context.Background())
		require.NoError(t, err)
		assert.True(t, has)
	}

	doc, err := cur.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, doc["i"])
}

func TestCursorExhaustionCloses(t *testing.T) {
	conn := &drivertest.Connection{Docs: testDocs(2)}
	cur := newTestCollection(conn).Find(bson.M{})

	for {
		doc, err := cur.Next(context.Background())
		require.NoError(t, err)
		if doc == nil {
			break
		}
	}

	select {
	case <-cur.Done():
	default:
		t.Fatal("Done must fire once the sequence is exhausted")
	}

	has, err := cur.HasNext(context.Background())
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCursorCloseNotification(t *testing.T) {
	conn := &drivertest.Connection{Docs: testDocs(2)}
	cur := newTestCollection(conn).Find(bson.M{})

	_, err := cur.Next(context.Background())
	require.NoError(t, err)

	select {
	case <-cur.Done():
		t.Fatal("Done must not fire while the cursor is open")
	default:
	}

	require.NoError(t, cur.Close(context.Background()))
	<-cur.Done()
}

func TestCursorRealizationFailureIsRetryable(t *testing.T) {
	conn := &drivertest.Connection{Docs: testDocs(1), QueryErr: assert.AnError}
	cur := newTestCollection(conn).Find(bson.M{})

	_, err := cur.Next(context.Background())
	require.ErrorIs(t, err, assert.AnError)

	// The cursor stayed unrealized, so the next consuming call retries.
	doc, err := cur.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, doc["i"])
	assert.Len(t, conn.Queries, 2)
}

func TestCursorCountSizeExplainRewind(t *testing.T) {
	conn := &drivertest.Connection{Docs: testDocs(3)}
	cur := newTestCollection(conn).Find(bson.M{})

	n, err := cur.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = cur.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	plan, err := cur.Explain(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, plan)

	// Count/Size/Explain are consuming operations: they realized the handle
	// exactly once.
	assert.Len(t, conn.Queries, 1)

	doc, err := cur.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, doc["i"])

	require.NoError(t, cur.Rewind(context.Background()))
	docs, err := cur.ToArray(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, 0, docs[0]["i"])
}

func TestCursorSerializesConcurrentPulls(t *testing.T) {
	const total = 200
	conn := &drivertest.Connection{Docs: testDocs(total)}
	cur := newTestCollection(conn).Find(bson.M{})

	var mu sync.Mutex
	seen := make(map[int]bool)

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for {
				doc, err := cur.Next(context.Background())
				if err != nil {
					return err
				}
				if doc == nil {
					return nil
				}
				mu.Lock()
				seen[doc["i"].(int)] = true
				mu.Unlock()
			}
		})
	}
	require.NoError(t, g.Wait())

	assert.Len(t, seen, total, "every document is pulled exactly once")
	assert.Len(t, conn.Queries, 1)
}

func TestCursorNilConnection(t *testing.T) {
	cur := mongoshell.NewCollection(nil, "users").Find(bson.M{})
	_, err := cur.Next(context.Background())
	assert.ErrorIs(t, err, mongoshell.ErrNilConnection)
}

package mongoconn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shellstore/mongoshell/driver"
)

func TestFindOptionsMapping(t *testing.T) {
	c := New(nil)

	t.Run("nil_options", func(t *testing.T) {
		fo, err := c.findOptions(nil)
		require.NoError(t, err)
		assert.Nil(t, fo.Limit)
		assert.Nil(t, fo.Sort)
	})
	t.Run("all_options", func(t *testing.T) {
		var opts driver.QueryOptions
		opts.SetLimit(5)
		opts.SetSort(bson.D{{Key: "name", Value: 1}})
		opts.SetSkip(2)
		opts.SetBatchSize(100)
		opts.SetHint("name_1")
		opts.SetMaxTimeMS(1500)
		opts.SetMax(bson.M{"name": "zzz"})
		opts.SetMin(bson.M{"name": "aaa"})
		opts.SetSnapshot(true)
		opts.SetCollation(bson.M{"locale": "fr", "strength": 2})

		fo, err := c.findOptions(&opts)
		require.NoError(t, err)

		require.NotNil(t, fo.Limit)
		assert.Equal(t, int64(5), *fo.Limit)
		assert.Equal(t, bson.D{{Key: "name", Value: 1}}, fo.Sort)
		require.NotNil(t, fo.Skip)
		assert.Equal(t, int64(2), *fo.Skip)
		require.NotNil(t, fo.BatchSize)
		assert.Equal(t, int32(100), *fo.BatchSize)
		assert.Equal(t, "name_1", fo.Hint)
		require.NotNil(t, fo.MaxTime)
		assert.Equal(t, 1500*time.Millisecond, *fo.MaxTime)
		assert.Equal(t, bson.M{"name": "zzz"}, fo.Max)
		assert.Equal(t, bson.M{"name": "aaa"}, fo.Min)
		require.NotNil(t, fo.Snapshot)
		assert.True(t, *fo.Snapshot)
		require.NotNil(t, fo.Collation)
		assert.Equal(t, "fr", fo.Collation.Locale)
		assert.Equal(t, 2, fo.Collation.Strength)
	})
	t.Run("flags", func(t *testing.T) {
		var opts driver.QueryOptions
		opts.SetFlag(FlagTailable, true)
		opts.SetFlag(FlagAwaitData, true)
		opts.SetFlag(FlagNoCursorTimeout, true)
		opts.SetFlag(FlagAllowPartialResults, true)

		fo, err := c.findOptions(&opts)
		require.NoError(t, err)

		require.NotNil(t, fo.CursorType)
		assert.Equal(t, options.TailableAwait, *fo.CursorType)
		require.NotNil(t, fo.NoCursorTimeout)
		assert.True(t, *fo.NoCursorTimeout)
		require.NotNil(t, fo.AllowPartialResults)
		assert.True(t, *fo.AllowPartialResults)
	})
	t.Run("await_data_without_tailable_is_ignored", func(t *testing.T) {
		var opts driver.QueryOptions
		opts.SetFlag(FlagAwaitData, true)

		fo, err := c.findOptions(&opts)
		require.NoError(t, err)
		assert.Nil(t, fo.CursorType)
	})
}

func TestToCollation(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		collation, err := toCollation(nil)
		require.NoError(t, err)
		assert.Nil(t, collation)
	})
	t.Run("document", func(t *testing.T) {
		collation, err := toCollation(bson.M{"locale": "en_US", "caseLevel": true})
		require.NoError(t, err)
		require.NotNil(t, collation)
		assert.Equal(t, "en_US", collation.Locale)
		assert.True(t, collation.CaseLevel)
	})
	t.Run("passthrough", func(t *testing.T) {
		in := &options.Collation{Locale: "de"}
		collation, err := toCollation(in)
		require.NoError(t, err)
		assert.Same(t, in, collation)
	})
}

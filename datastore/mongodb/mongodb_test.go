/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/docmodel/storagemodels"
	"go.mongodb.org/mongo-driver/bson"
)

func TestFindOptions(t *testing.T) {
	t.Run("nil params", func(t *testing.T) {
		opts := FindOptions(nil)
		assert.Nil(t, opts.Sort)
		assert.Nil(t, opts.Limit)
	})

	t.Run("all params", func(t *testing.T) {
		sort := bson.D{{Key: "up", Value: -1}, {Key: "mod", Value: 1}}
		opts := FindOptions(storagemodels.NewFindParams(
			storagemodels.WithSort(sort),
			storagemodels.WithSkip(5),
			storagemodels.WithLimit(10),
			storagemodels.WithProjection(bson.M{"name": 1}),
			storagemodels.WithMaxTime(2*time.Second),
		))

		assert.Equal(t, sort, opts.Sort)
		require.NotNil(t, opts.Skip)
		assert.Equal(t, int64(5), *opts.Skip)
		require.NotNil(t, opts.Limit)
		assert.Equal(t, int64(10), *opts.Limit)
		assert.Equal(t, bson.M{"name": 1}, opts.Projection)
		require.NotNil(t, opts.MaxTime)
		assert.Equal(t, 2*time.Second, *opts.MaxTime)
	})

	t.Run("zero values are omitted", func(t *testing.T) {
		opts := FindOptions(storagemodels.NewFindParams(storagemodels.WithLimit(0)))
		assert.Nil(t, opts.Limit)
		assert.Nil(t, opts.Skip)
	})
}

func TestUpdateOptionsAndIndexModel(t *testing.T) {
	opts := UpdateOptions(storagemodels.NewUpdateParams(storagemodels.WithUpsert()))
	require.NotNil(t, opts.Upsert)
	assert.True(t, *opts.Upsert)
	assert.Nil(t, UpdateOptions(nil).Upsert)

	model := IndexModel(storagemodels.IndexSpec{Keys: bson.D{{Key: "email", Value: 1}}, Unique: true})
	assert.Equal(t, bson.D{{Key: "email", Value: 1}}, model.Keys)
	require.NotNil(t, model.Options.Unique)
	assert.True(t, *model.Options.Unique)
	assert.Nil(t, model.Options.Name)
}

func TestOrEmpty(t *testing.T) {
	assert.Equal(t, bson.D{}, orEmpty(nil))
	f := bson.M{"a": 1}
	assert.Equal(t, f, orEmpty(f))
}

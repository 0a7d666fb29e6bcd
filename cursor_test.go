/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docmodel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/docmodel"
	"github.com/suparena/docmodel/errors"
	"github.com/suparena/docmodel/storagemodels"
	"go.mongodb.org/mongo-driver/bson"
)

func seedShips(t *testing.T, ships *docmodel.Model[*Ship]) {
	t.Helper()
	for _, s := range []bson.M{
		{"name": "Serenity", "age": 10, "class": "firefly"},
		{"name": "Bonnie", "age": 10, "class": "firefly"},
		{"name": "Reaver", "age": 30, "class": "raider"},
		{"name": "Dortmunder", "age": 5, "class": "cruiser"},
	} {
		_, err := ships.Create(context.Background(), s)
		require.NoError(t, err)
	}
}

func names(ctx context.Context, ships []*Ship) []string {
	out := make([]string, len(ships))
	for i, s := range ships {
		out[i] = s.Name(ctx)
	}
	return out
}

func TestCursorOrderAccumulates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ships := env.ships()
	seedShips(t, ships)

	cur := ships.Find(nil).
		Order("age", storagemodels.Ascending).
		Order("name", storagemodels.Descending)
	assert.Equal(t, bson.D{{Key: "age", Value: 1}, {Key: "name", Value: -1}}, cur.SortSpec())

	got, err := cur.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dortmunder", "Serenity", "Bonnie", "Reaver"}, names(ctx, got))
}

func TestCursorIsLazy(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ships := env.ships()
	seedShips(t, ships)
	coll := env.db.MockCollection("ship")

	before := coll.Calls("find")
	cur := ships.Find(bson.M{"class": "firefly"})
	assert.Equal(t, before, coll.Calls("find"))

	require.True(t, cur.Next(ctx))
	assert.Equal(t, before+1, coll.Calls("find"))
	assert.NotNil(t, cur.Value())
	require.NoError(t, cur.Close(ctx))
}

func TestCursorModifiersAfterStart(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ships := env.ships()
	seedShips(t, ships)

	cur := ships.Find(nil)
	require.True(t, cur.Next(ctx))
	cur.Order("age", storagemodels.Ascending)
	assert.ErrorIs(t, cur.Err(), errors.ErrCursorStarted)
	assert.False(t, cur.Next(ctx))

	bad := ships.Find(nil).Order("age", storagemodels.Direction(3))
	assert.True(t, errors.IsValidationError(bad.Err()))
}

func TestCursorWindow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ships := env.ships()
	seedShips(t, ships)

	got, err := ships.Find(nil).Sort(bson.D{{Key: "name", Value: 1}}).Skip(1).Limit(2).All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dortmunder", "Reaver"}, names(ctx, got))

	projected, err := ships.Find(bson.M{"name": "Reaver"}).Projection(bson.M{"name": 1}).First(ctx)
	require.NoError(t, err)
	require.NotNil(t, projected)
	assert.Nil(t, projected.Raw("class"))
	assert.NotNil(t, projected.ID())
}

func TestCursorFirst(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ships := env.ships()
	seedShips(t, ships)

	first, err := ships.Find(nil).Order("age", storagemodels.Descending).First(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Reaver", first.Name(ctx))

	none, err := ships.Find(bson.M{"class": "none"}).First(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	t.Run("rewind restores the window", func(t *testing.T) {
		cur := ships.Find(nil).Order("age", storagemodels.Ascending)
		first, err := cur.First(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Dortmunder", first.Name(ctx))

		require.NoError(t, cur.Rewind(ctx))
		all, err := cur.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 4)

		limited := ships.Find(nil).Order("age", storagemodels.Ascending).Limit(3)
		_, err = limited.First(ctx)
		require.NoError(t, err)
		require.NoError(t, limited.Rewind(ctx))
		all, err = limited.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}

func TestCursorCountDistinctRewind(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ships := env.ships()
	seedShips(t, ships)

	cur := ships.Find(bson.M{"class": "firefly"}).Limit(1)
	n, err := cur.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "count ignores the window")

	classes, err := ships.Find(nil).Distinct(ctx, "class")
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"firefly", "raider", "cruiser"}, classes)

	first, err := cur.All(ctx)
	require.NoError(t, err)
	require.NoError(t, cur.Rewind(ctx))
	again, err := cur.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, names(ctx, first), names(ctx, again))
}

func TestCursorUpdate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ships := env.ships()
	seedShips(t, ships)

	_, err := ships.Find(nil).Update(ctx, bson.M{"$set": bson.M{"retired": true}})
	assert.ErrorIs(t, err, errors.ErrNoQuery)

	res, err := ships.Find(bson.M{"class": "firefly"}).Change(ctx, bson.M{"crew": 9})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.MatchedCount)

	// sort and limit do not narrow the update
	res, err = ships.Find(bson.M{"age": bson.M{"$gte": 10}}).Limit(1).
		Update(ctx, bson.M{"$inc": bson.M{"age": 1}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.ModifiedCount)

	n, err := ships.Count(ctx, bson.M{"crew": 9})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestPolyCursorUpdateIsScoped(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	people, villains := env.people()
	_, err := people.Create(ctx, bson.M{"name": "Simon"})
	require.NoError(t, err)
	_, err = villains.Create(ctx, bson.M{"name": "Niska"})
	require.NoError(t, err)

	res, err := villains.Find(bson.M{}).Change(ctx, bson.M{"wanted": true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.MatchedCount)
}

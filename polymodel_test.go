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
	"go.mongodb.org/mongo-driver/bson"
)

func TestPolyModelDispatch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	people, _ := env.people()

	coll := env.db.Collection("person")
	for _, doc := range []bson.M{
		{"role": "villain", "name": "Badger"},
		{"role": "person", "name": "Simon"},
		{"role": "pirate", "name": "Jayne"},
		{"name": "Book"},
	} {
		_, err := coll.InsertOne(ctx, doc)
		require.NoError(t, err)
	}

	tests := []struct {
		name     string
		wantType any
		wantGood bool
	}{
		{"Badger", &villain{}, false},
		{"Simon", &person{}, true},
		{"Jayne", &person{}, true},
		{"Book", &person{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := people.FindOne(ctx, bson.M{"name": tt.name})
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.IsType(t, tt.wantType, p)
			assert.Equal(t, tt.wantGood, p.IsGood())
		})
	}

	all, err := people.Find(bson.M{}).All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestPolyModelChildScope(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	people, villains := env.people()

	_, err := people.Create(ctx, bson.M{"name": "Simon"})
	require.NoError(t, err)
	v, err := villains.Create(ctx, bson.M{"name": "Niska"})
	require.NoError(t, err)
	assert.IsType(t, &villain{}, v)
	assert.Equal(t, "villain", v.Base().Raw("role"))
	assert.Equal(t, "Villain", v.Base().Model())

	n, err := villains.Count(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = people.Count(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	found, err := villains.FindOne(ctx, bson.M{"name": "Simon"})
	require.NoError(t, err)
	assert.Nil(t, found, "child queries only see their own discriminator")

	fromBase, err := people.New(bson.M{"role": "villain", "name": "Saffron"})
	require.NoError(t, err)
	assert.IsType(t, &villain{}, fromBase, "New dispatches on the discriminator too")

	assert.Equal(t, "person", villains.CollectionName())
	assert.Same(t, people, villains.Parent())
	assert.Equal(t, "role", villains.Key())
}

func TestPolyModelChildFilterOrder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ships := env.ships()
	crew := docmodel.NewPolyModel[Person]("Crew", "role",
		func(r *docmodel.Record) Person { return &person{r} },
		docmodel.WithConnections(env.conns),
		docmodel.WithFields(
			docmodel.Typed[string]("role").Default("crew"),
			docmodel.Typed[string]("name"),
			docmodel.Reference("ship", ships),
		))
	pilots := crew.Extend("Pilot",
		func(r *docmodel.Record) Person { return &hero{r} },
		docmodel.WithFields(docmodel.Typed[string]("role").Default("pilot")))
	crew.MustRegister(pilots)

	serenity, err := ships.Create(ctx, bson.M{"name": "Serenity"})
	require.NoError(t, err)
	_, err = pilots.Create(ctx, bson.M{"name": "Wash", "ship": serenity})
	require.NoError(t, err)
	_, err = crew.Create(ctx, bson.M{"name": "Kaylee", "ship": serenity})
	require.NoError(t, err)

	t.Run("search by reference", func(t *testing.T) {
		found, err := pilots.Search(bson.M{"ship": serenity}).All(ctx)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.IsType(t, &hero{}, found[0])

		recorded := env.db.MockCollection("crew").Filters("find")
		require.NotEmpty(t, recorded)
		data, err := bson.Marshal(recorded[len(recorded)-1])
		require.NoError(t, err)
		var sent bson.D
		require.NoError(t, bson.Unmarshal(data, &sent))

		fields := sent.Map()
		assert.Equal(t, "pilot", fields["role"])
		ref, ok := fields["ship"].(bson.D)
		require.True(t, ok, "reference sent as %T", fields["ship"])
		require.Len(t, ref, 2)
		assert.Equal(t, "$ref", ref[0].Key)
		assert.Equal(t, "$id", ref[1].Key)
	})

	t.Run("ordered filter passes through", func(t *testing.T) {
		filter := bson.D{{Key: "name", Value: "Wash"}, {Key: "ship", Value: serenity.Ref()}}
		found, err := pilots.Find(filter).All(ctx)
		require.NoError(t, err)
		require.Len(t, found, 1)

		recorded := env.db.MockCollection("crew").Filters("find")
		want := bson.D{{Key: "name", Value: "Wash"}, {Key: "ship", Value: serenity.Ref()}, {Key: "role", Value: "pilot"}}
		assert.Equal(t, want, recorded[len(recorded)-1])
		assert.Len(t, filter, 2, "the caller's filter is not modified")
	})

	t.Run("explicit discriminator wins", func(t *testing.T) {
		found, err := pilots.Find(bson.M{"role": "crew"}).All(ctx)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.IsType(t, &person{}, found[0])
	})

	t.Run("reloaded reference keeps its order on save", func(t *testing.T) {
		wash, err := pilots.FindOne(ctx, bson.M{"name": "Wash"})
		require.NoError(t, err)
		assert.IsType(t, bson.M{}, wash.Base().Raw("ship"), "references load as documents")
		require.NoError(t, wash.Base().Set("name", "Hoban"))
		_, err = wash.Base().Save(ctx)
		require.NoError(t, err)

		for _, doc := range env.db.MockCollection("crew").Ordered() {
			ref, ok := doc.Map()["ship"].(bson.D)
			require.True(t, ok)
			assert.Equal(t, "$ref", ref[0].Key)
		}
	})
}

func TestPolyModelRegistration(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	people, villains := env.people()

	t.Run("collision is rejected", func(t *testing.T) {
		err := people.Register(villains)
		assert.True(t, errors.IsAlreadyExists(err))

		other := people.Extend("Outlaw", func(r *docmodel.Record) Person { return &villain{r} })
		err = people.RegisterAs("villain", other)
		assert.True(t, errors.IsAlreadyExists(err))
		assert.Panics(t, func() { people.MustRegisterAs("villain", other) })
	})

	t.Run("non-comparable value is rejected", func(t *testing.T) {
		other := people.Extend("Odd", func(r *docmodel.Record) Person { return &person{r} })
		err := people.RegisterAs(bson.A{"x"}, other)
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("registered value is stamped", func(t *testing.T) {
		heroes := people.Extend("Hero", func(r *docmodel.Record) Person { return &hero{r} })
		require.NoError(t, people.RegisterAs("hero", heroes))

		h, err := heroes.Create(ctx, bson.M{"name": "Mal"})
		require.NoError(t, err)
		assert.Equal(t, "hero", h.Base().Raw("role"))

		loaded, err := people.FindOne(ctx, bson.M{"name": "Mal"})
		require.NoError(t, err)
		assert.IsType(t, &hero{}, loaded)
	})

	t.Run("numeric discriminators", func(t *testing.T) {
		levels := docmodel.NewPolyModel[Person]("Level", "tier",
			func(r *docmodel.Record) Person { return &person{r} },
			docmodel.WithConnections(env.conns))
		bosses := levels.Extend("Boss", func(r *docmodel.Record) Person { return &villain{r} })
		require.NoError(t, levels.RegisterAs(3, bosses))

		coll, err := levels.Collection(ctx)
		require.NoError(t, err)
		_, err = coll.InsertOne(ctx, bson.M{"tier": int64(3)})
		require.NoError(t, err)

		b, err := levels.FindOne(ctx, bson.M{})
		require.NoError(t, err)
		assert.IsType(t, &villain{}, b)

		_, ok := levels.Variant(int32(3))
		assert.True(t, ok)
	})

	assert.Equal(t, []any{"villain", "hero"}, people.Variants())
}

func TestPolyModelRegisterByName(t *testing.T) {
	env := newTestEnv(t)
	animals := docmodel.NewPolyModel[Person]("Animal", "kind",
		func(r *docmodel.Record) Person { return &person{r} },
		docmodel.WithConnections(env.conns))
	dogs := animals.Extend("Dog", func(r *docmodel.Record) Person { return &hero{r} })
	animals.MustRegister(dogs)

	d, err := dogs.New(nil)
	require.NoError(t, err)
	assert.Equal(t, "dog", d.Base().Raw("kind"))

	_, ok := animals.Variant("dog")
	assert.True(t, ok)
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package schemafile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/docmodel"
	"github.com/suparena/docmodel/datastore/mock"
	"github.com/suparena/docmodel/errors"
	"go.mongodb.org/mongo-driver/bson"
)

const crewSchema = `
models:
  - name: Vessel
    collection: sf_vessels
    fields:
      - {name: name, type: string, required: true, length: [2, 40]}
  - name: Member
    collection: sf_members
    discriminator: role
    indexes:
      - {keys: [name, -age], unique: true}
    fields:
      - {name: role, type: string, default: crew}
      - {name: name, type: string, required: true}
      - {name: age, type: int, range: [0, 150]}
      - {name: email, type: string, format: email}
      - {name: vessel, ref: Vessel}
      - {name: rank, enum: [captain, pilot, mechanic]}
    variants:
      - name: Captain
        value: captain
        fields:
          - {name: commission, constant: true}
      - name: Crew
`

func newEnv(t *testing.T) (*docmodel.Connections, *mock.Database) {
	t.Helper()
	conns := docmodel.NewConnections()
	db := mock.NewDatabase("test")
	require.NoError(t, conns.Register(docmodel.DefaultAlias, db))
	return conns, db
}

func build(t *testing.T, conns *docmodel.Connections) (*Set, *docmodel.Catalog) {
	t.Helper()
	f, err := Parse([]byte(crewSchema))
	require.NoError(t, err)
	catalog := docmodel.NewCatalog()
	set, err := f.Build(catalog, docmodel.WithConnections(conns))
	require.NoError(t, err)
	return set, catalog
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	conns, db := newEnv(t)
	set, catalog := build(t, conns)

	assert.Equal(t, []string{"Captain", "Crew", "Member", "Vessel"}, set.Names())
	assert.Equal(t, []string{"Captain", "Crew", "Member", "Vessel"}, catalog.Names())

	members, ok := set.Poly("Member")
	require.True(t, ok)
	assert.Equal(t, "role", members.Key())
	assert.ElementsMatch(t, []any{"captain", "crew"}, members.Variants())

	vessels, ok := set.Model("Vessel")
	require.True(t, ok)
	_, ok = set.Poly("Vessel")
	assert.False(t, ok)

	serenity, err := vessels.Create(ctx, bson.M{"name": "Serenity"})
	require.NoError(t, err)

	mal, err := members.Create(ctx, bson.M{"role": "captain", "name": "Mal", "vessel": serenity, "commission": "Browncoat"})
	require.NoError(t, err)
	assert.Equal(t, "Captain", mal.Model())

	t.Run("variant dispatch", func(t *testing.T) {
		got, err := members.FindOne(ctx, bson.M{"name": "Mal"})
		require.NoError(t, err)
		assert.Equal(t, "Captain", got.Model())
		assert.True(t, errors.IsValidationError(got.Set("commission", "Alliance")))
	})

	t.Run("child scope", func(t *testing.T) {
		crew, _ := set.Poly("Crew")
		zoe, err := crew.Create(ctx, bson.M{"name": "Zoe"})
		require.NoError(t, err)
		assert.Equal(t, "crew", zoe.Raw("role"))

		n, err := crew.Count(ctx, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
		n, err = members.Count(ctx, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
	})

	t.Run("references", func(t *testing.T) {
		v, err := mal.Get(ctx, "vessel")
		require.NoError(t, err)
		ship, ok := v.(*docmodel.Record)
		require.True(t, ok)
		assert.True(t, ship.Equal(serenity))
	})

	t.Run("field rules", func(t *testing.T) {
		assert.True(t, errors.IsValidationError(mal.Set("age", 200)))
		assert.True(t, errors.IsTypeMismatch(mal.Set("age", "old")))
		assert.True(t, errors.IsValidationError(mal.Set("email", "nope")))
		assert.True(t, errors.IsValidationError(mal.Set("rank", "cook")))
		assert.NoError(t, mal.Set("rank", "captain"))
		assert.True(t, errors.IsValidationError(serenity.Set("name", "S")))
	})

	t.Run("indexes", func(t *testing.T) {
		require.NoError(t, members.EnsureIndexes(ctx))
		idx := db.MockCollection("sf_members").Indexes()
		require.Len(t, idx, 1)
		assert.True(t, idx[0].Unique)
		assert.Equal(t, bson.D{{Key: "name", Value: 1}, {Key: "age", Value: -1}}, idx[0].Keys)
	})
}

func TestBuildErrors(t *testing.T) {
	conns, _ := newEnv(t)
	tests := []struct {
		name   string
		schema string
	}{
		{"unknown type", `models: [{name: A, fields: [{name: x, type: complex}]}]`},
		{"missing model name", `models: [{fields: [{name: x}]}]`},
		{"missing field name", `models: [{name: A, fields: [{type: string}]}]`},
		{"type with ref", `models: [{name: A, fields: [{name: x, type: string, ref: B}]}]`},
		{"bad id kind", `models: [{name: A, ids: serial}]`},
		{"variants without discriminator", `models: [{name: A, variants: [{name: B}]}]`},
		{"empty index", `models: [{name: A, indexes: [{unique: true}]}]`},
		{"long range", `models: [{name: A, fields: [{name: x, type: int, range: [1, 2, 3]}]}]`},
		{"duplicate model", `models: [{name: A}, {name: A}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.schema))
			require.NoError(t, err)
			_, err = f.Build(docmodel.NewCatalog(), docmodel.WithConnections(conns))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(crewSchema), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	require.Len(t, f.Models, 2)
	assert.Equal(t, "Member", f.Models[1].Name)
	assert.Len(t, f.Models[1].Variants, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("models: {"))
	assert.Error(t, err)
}

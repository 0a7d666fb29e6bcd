/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docmodel_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/docmodel"
	"github.com/suparena/docmodel/config"
	"github.com/suparena/docmodel/datastore/mock"
	"github.com/suparena/docmodel/errors"
	"go.mongodb.org/mongo-driver/bson"
)

func TestConnectionsRegister(t *testing.T) {
	ctx := context.Background()
	conns := docmodel.NewConnections()
	db := mock.NewDatabase("one")

	require.NoError(t, conns.Register("main", db))
	err := conns.Register("main", mock.NewDatabase("two"))
	assert.True(t, errors.IsAlreadyExists(err))

	got, err := conns.Database(ctx, "main")
	require.NoError(t, err)
	assert.Same(t, db, got)

	_, err = conns.Database(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrNotConnected)

	assert.Equal(t, []string{"main"}, conns.Aliases())
	require.NoError(t, conns.Disconnect(ctx, "main"))
	assert.Error(t, db.Ping(ctx), "disconnect closes the database")
	assert.ErrorIs(t, conns.Disconnect(ctx, "main"), errors.ErrNotConnected)
	assert.Empty(t, conns.Aliases())
}

func TestConnectionsScoped(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ships := env.ships()
	other := mock.NewDatabase("other")

	err := env.conns.Scoped(docmodel.DefaultAlias, other, func() error {
		_, err := ships.Create(ctx, bson.M{"name": "Scoped"})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, other.MockCollection("ship").Len())
	assert.Equal(t, 0, env.db.MockCollection("ship").Len())

	sentinel := stderrors.New("boom")
	err = env.conns.Scoped(docmodel.DefaultAlias, other, func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)

	assert.Panics(t, func() {
		_ = env.conns.Scoped(docmodel.DefaultAlias, other, func() error { panic("boom") })
	})

	got, err := env.conns.Database(ctx, docmodel.DefaultAlias)
	require.NoError(t, err)
	assert.Same(t, env.db, got, "the registered database is restored after errors and panics")
}

func TestConnectionsScopedNesting(t *testing.T) {
	ctx := context.Background()
	conns := docmodel.NewConnections()
	outer, inner := mock.NewDatabase("outer"), mock.NewDatabase("inner")

	err := conns.Scoped("tmp", outer, func() error {
		return conns.Scoped("tmp", inner, func() error {
			db, err := conns.Database(ctx, "tmp")
			require.NoError(t, err)
			assert.Same(t, inner, db)
			return nil
		})
	})
	require.NoError(t, err)

	_, err = conns.Database(ctx, "tmp")
	assert.ErrorIs(t, err, errors.ErrNotConnected, "scoped aliases do not outlive their scope")
}

func TestWithAlias(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	archive := mock.NewDatabase("archive")
	require.NoError(t, env.conns.Register("archive", archive))
	ships := env.ships()

	_, err := ships.Create(docmodel.WithAlias(ctx, "archive"), bson.M{"name": "Old"})
	require.NoError(t, err)
	_, err = ships.Create(ctx, bson.M{"name": "New"})
	require.NoError(t, err)

	assert.Equal(t, 1, archive.MockCollection("ship").Len())
	assert.Equal(t, 1, env.db.MockCollection("ship").Len())
}

func TestUseAlias(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	logs := mock.NewDatabase("logs")
	require.NoError(t, env.conns.Register("logs", logs))

	entries := docmodel.Plain("Entry", docmodel.WithConnections(env.conns), docmodel.UseAlias("logs"))
	_, err := entries.Create(ctx, bson.M{"msg": "hello"})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.MockCollection("entry").Len())
}

func TestConnectMemory(t *testing.T) {
	ctx := context.Background()
	conns := docmodel.NewConnections()

	db, err := conns.Connect(ctx, "mem", "memory://scratch")
	require.NoError(t, err)
	assert.Equal(t, "scratch", db.Name())
	require.NoError(t, db.Ping(ctx))

	_, err = conns.Connect(ctx, "mem", "memory://again")
	assert.True(t, errors.IsAlreadyExists(err))

	_, err = docmodel.Open(ctx, "redis://localhost")
	assert.True(t, errors.IsValidationError(err))
	_, err = docmodel.Open(ctx, "dynamodb://us-east-1")
	assert.True(t, errors.IsValidationError(err))

	named, err := docmodel.Open(ctx, "memory://", docmodel.WithDatabase("override"))
	require.NoError(t, err)
	assert.Equal(t, "override", named.Name())

	require.NoError(t, conns.Close(ctx))
	assert.Empty(t, conns.Aliases())
}

func TestConnectConfig(t *testing.T) {
	ctx := context.Background()
	cfg, err := config.Parse([]byte(`
connections:
  default:
    driver: memory
    database: app
  cache:
    uri: memory://cache
`))
	require.NoError(t, err)

	conns := docmodel.NewConnections()
	require.NoError(t, conns.ConnectConfig(ctx, cfg))
	assert.Equal(t, []string{"cache", "default"}, conns.Aliases())

	db, err := conns.Database(ctx, docmodel.DefaultAlias)
	require.NoError(t, err)
	assert.Equal(t, "app", db.Name())

	bad := &config.Config{Connections: map[string]*config.Connection{"x": {Driver: "nope"}}}
	assert.True(t, errors.IsValidationError(conns.ConnectConfig(ctx, bad)))
}

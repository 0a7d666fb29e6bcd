/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docmodel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suparena/docmodel"
	"github.com/suparena/docmodel/datastore/mock"
)

type Ship struct {
	*docmodel.Record
}

func (s *Ship) Name(ctx context.Context) string {
	name, _ := docmodel.GetAs[string](ctx, s.Record, "name")
	return name
}

func (s *Ship) Age(ctx context.Context) int {
	age, _ := docmodel.GetAs[int](ctx, s.Record, "age")
	return age
}

func wrapShip(r *docmodel.Record) *Ship { return &Ship{r} }

type Person interface {
	docmodel.Instance
	IsGood() bool
}

type person struct{ *docmodel.Record }

func (p *person) IsGood() bool { return true }

type villain struct{ *docmodel.Record }

func (v *villain) IsGood() bool { return false }

type hero struct{ *docmodel.Record }

func (h *hero) IsGood() bool { return true }

// testEnv is an isolated connection registry with one in-memory database
// under the default alias.
type testEnv struct {
	conns *docmodel.Connections
	db    *mock.Database
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		conns: docmodel.NewConnections(),
		db:    mock.NewDatabase("test"),
	}
	require.NoError(t, env.conns.Register(docmodel.DefaultAlias, env.db))
	return env
}

func (e *testEnv) ships(opts ...docmodel.Option) *docmodel.Model[*Ship] {
	base := []docmodel.Option{
		docmodel.WithConnections(e.conns),
		docmodel.WithFields(
			docmodel.Typed[string]("name").Required(),
			docmodel.Typed[int]("age").Default(10),
		),
	}
	return docmodel.NewModel("Ship", wrapShip, append(base, opts...)...)
}

func (e *testEnv) people() (*docmodel.PolyModel[Person], *docmodel.PolyModel[Person]) {
	people := docmodel.NewPolyModel[Person]("Person", "role",
		func(r *docmodel.Record) Person { return &person{r} },
		docmodel.WithConnections(e.conns),
		docmodel.WithFields(
			docmodel.Typed[string]("role").Default("person"),
			docmodel.Typed[string]("name"),
		))
	villains := people.Extend("Villain",
		func(r *docmodel.Record) Person { return &villain{r} },
		docmodel.WithFields(docmodel.Typed[string]("role").Default("villain")))
	people.MustRegister(villains)
	return people, villains
}

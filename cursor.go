/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docmodel

import (
	"context"
	"fmt"

	"github.com/suparena/docmodel/datastore"
	"github.com/suparena/docmodel/errors"
	"github.com/suparena/docmodel/storagemodels"
	"go.mongodb.org/mongo-driver/bson"
)

// Cursor iterates the instances matched by a query. It is lazy: the query is
// issued by the first call to Next. Modifiers return the cursor and record an
// error, reported by Err, when used after iteration began.
type Cursor[T Instance] struct {
	m      *Model[T]
	query  any
	params *storagemodels.FindParams

	cur     datastore.Cursor
	started bool
	value   T
	err     error
}

func newCursor[T Instance](m *Model[T], query any, params *storagemodels.FindParams) *Cursor[T] {
	return &Cursor[T]{m: m, query: query, params: params}
}

// Next advances to the next instance.
func (c *Cursor[T]) Next(ctx context.Context) bool {
	var zero T
	c.value = zero
	if c.err != nil {
		return false
	}
	if c.cur == nil {
		if c.started {
			return false
		}
		if err := c.start(ctx); err != nil {
			c.err = err
			return false
		}
	}
	if !c.cur.Next(ctx) {
		c.err = c.cur.Err()
		return false
	}
	doc := bson.M{}
	if err := c.cur.Decode(&doc); err != nil {
		c.err = err
		return false
	}
	c.value = c.m.Wrap(doc)
	return true
}

func (c *Cursor[T]) start(ctx context.Context) error {
	c.started = true
	coll, err := c.m.s.coll(ctx)
	if err != nil {
		return err
	}
	filter, err := c.m.s.scoped(c.query)
	if err != nil {
		return err
	}
	cur, err := coll.Find(ctx, filter, c.params)
	if err != nil {
		return err
	}
	c.cur = cur
	return nil
}

// Value returns the instance produced by the last successful Next.
func (c *Cursor[T]) Value() T { return c.value }

func (c *Cursor[T]) Err() error { return c.err }

func (c *Cursor[T]) Close(ctx context.Context) error {
	if c.cur == nil {
		return nil
	}
	err := c.cur.Close(ctx)
	c.cur = nil
	return err
}

// All drains the cursor and closes it.
func (c *Cursor[T]) All(ctx context.Context) ([]T, error) {
	defer c.Close(ctx)
	var out []T
	for c.Next(ctx) {
		out = append(out, c.value)
	}
	return out, c.err
}

// First returns the next instance, or the zero T when there is none. On a
// cursor that has not started only one document is requested; the cursor's
// own limit applies again after Rewind.
func (c *Cursor[T]) First(ctx context.Context) (T, error) {
	var zero T
	if !c.started && c.err == nil {
		limit := c.params.Limit
		c.params.Limit = 1
		defer func() { c.params.Limit = limit }()
		defer c.Close(ctx)
	}
	if c.Next(ctx) {
		return c.value, nil
	}
	return zero, c.err
}

func (c *Cursor[T]) modify(op string) bool {
	if c.err != nil {
		return false
	}
	if c.started {
		c.err = fmt.Errorf("%s: %w", op, errors.ErrCursorStarted)
		return false
	}
	return true
}

// Order adds a sort key after the ones already given.
func (c *Cursor[T]) Order(field string, dir storagemodels.Direction) *Cursor[T] {
	if !c.modify("order") {
		return c
	}
	if !dir.Valid() {
		c.err = errors.NewValidationError(field, fmt.Sprintf("invalid sort direction %d", dir))
		return c
	}
	c.params.Sort = append(c.params.Sort, bson.E{Key: field, Value: int(dir)})
	return c
}

// Sort replaces the sort specification.
func (c *Cursor[T]) Sort(spec bson.D) *Cursor[T] {
	if c.modify("sort") {
		c.params.Sort = append(bson.D(nil), spec...)
	}
	return c
}

func (c *Cursor[T]) Skip(n int64) *Cursor[T] {
	if c.modify("skip") {
		c.params.Skip = n
	}
	return c
}

func (c *Cursor[T]) Limit(n int64) *Cursor[T] {
	if c.modify("limit") {
		c.params.Limit = n
	}
	return c
}

func (c *Cursor[T]) Projection(p bson.M) *Cursor[T] {
	if c.modify("projection") {
		c.params.Projection = p
	}
	return c
}

// SortSpec returns the accumulated sort specification.
func (c *Cursor[T]) SortSpec() bson.D {
	return append(bson.D(nil), c.params.Sort...)
}

// Count counts the documents matching the query, ignoring skip and limit.
func (c *Cursor[T]) Count(ctx context.Context) (int64, error) {
	return c.m.Count(ctx, c.query)
}

func (c *Cursor[T]) Distinct(ctx context.Context, field string) ([]any, error) {
	return c.m.Distinct(ctx, field, c.query)
}

// Rewind closes the driver cursor so that the next Next re-issues the query.
func (c *Cursor[T]) Rewind(ctx context.Context) error {
	err := c.Close(ctx)
	c.started, c.err = false, nil
	var zero T
	c.value = zero
	return err
}

// Update applies update to every document matching the cursor's query. Sort,
// skip and limit are not taken into account.
func (c *Cursor[T]) Update(ctx context.Context, update any) (*storagemodels.UpdateResult, error) {
	if c.query == nil {
		return nil, fmt.Errorf("update: %w", errors.ErrNoQuery)
	}
	filter, err := c.m.s.scoped(c.query)
	if err != nil {
		return nil, err
	}
	return c.m.Update(ctx, filter, update, storagemodels.WithMulti())
}

// Change sets fields on every document matching the cursor's query.
func (c *Cursor[T]) Change(ctx context.Context, fields bson.M) (*storagemodels.UpdateResult, error) {
	return c.Update(ctx, bson.M{"$set": fields})
}

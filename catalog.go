/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docmodel

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/suparena/docmodel/errors"
)

// Catalog indexes models by name and by collection so that stored refs can
// be resolved without naming their model.
type Catalog struct {
	mu           sync.RWMutex
	byName       map[string]ModelRef
	byCollection map[string]ModelRef
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byName:       make(map[string]ModelRef),
		byCollection: make(map[string]ModelRef),
	}
}

// Add registers m. Names are unique; the first model added for a collection
// resolves refs into it, so the base of a polymorphic family goes first.
func (c *Catalog) Add(m ModelRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byName[m.Name()]; exists {
		return errors.NewAlreadyExistsError("model", m.Name())
	}
	c.byName[m.Name()] = m
	if _, exists := c.byCollection[m.CollectionName()]; !exists {
		c.byCollection[m.CollectionName()] = m
	}
	return nil
}

// Lookup returns the model registered under name.
func (c *Catalog) Lookup(name string) (ModelRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byName[name]
	return m, ok
}

// ForCollection returns the model that resolves refs into collection.
func (c *Catalog) ForCollection(collection string) (ModelRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byCollection[collection]
	return m, ok
}

// Names returns the registered model names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.byName))
	for name := range c.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ResolveRef loads the document ref points at.
func (c *Catalog) ResolveRef(ctx context.Context, ref Ref) (Instance, error) {
	if ref.ID == nil {
		return nil, nil
	}
	m, ok := c.ForCollection(ref.Collection)
	if !ok {
		return nil, fmt.Errorf("no model for collection %q: %w", ref.Collection, errors.ErrNotFound)
	}
	return m.resolve(ctx, ref.ID)
}

// Ref returns a reference target for the model called name, which may be
// added to the catalog later. It lets models refer to each other in any order.
func (c *Catalog) Ref(name string) ModelRef {
	return &lazyRef{c: c, name: name}
}

type lazyRef struct {
	c    *Catalog
	name string
}

func (l *lazyRef) Name() string { return l.name }

func (l *lazyRef) CollectionName() string {
	if m, ok := l.c.Lookup(l.name); ok {
		return m.CollectionName()
	}
	return strings.ToLower(l.name)
}

func (l *lazyRef) resolve(ctx context.Context, id any) (Instance, error) {
	m, ok := l.c.Lookup(l.name)
	if !ok {
		return nil, fmt.Errorf("model %q is not in the catalog: %w", l.name, errors.ErrNotFound)
	}
	return m.resolve(ctx, id)
}

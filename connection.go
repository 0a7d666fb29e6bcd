/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docmodel

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/suparena/docmodel/datastore"
	"github.com/suparena/docmodel/errors"
	"go.uber.org/multierr"
)

// DefaultAlias is the alias models use unless declared with UseAlias.
const DefaultAlias = "default"

// Connections maps aliases to open databases.
type Connections struct {
	mu     sync.RWMutex
	dbs    map[string]datastore.Database
	scopes map[string][]datastore.Database
}

// NewConnections creates an empty registry.
func NewConnections() *Connections {
	return &Connections{
		dbs:    make(map[string]datastore.Database),
		scopes: make(map[string][]datastore.Database),
	}
}

var defaultConnections = NewConnections()

// Default returns the process-wide registry used by models that were not
// given one with WithConnections.
func Default() *Connections { return defaultConnections }

// Register stores db under alias. An alias can be registered once until it
// is disconnected.
func (c *Connections) Register(alias string, db datastore.Database) error {
	if db == nil {
		return errors.NewValidationError("db", "database must not be nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.dbs[alias]; exists {
		return errors.NewAlreadyExistsError("connection alias", alias)
	}
	c.dbs[alias] = db
	log().Debugw("registered connection", "alias", alias, "database", db.Name())
	return nil
}

// Database returns the database for alias. An alias set on ctx with WithAlias
// takes precedence, then the innermost Scoped override, then the registered one.
func (c *Connections) Database(ctx context.Context, alias string) (datastore.Database, error) {
	if override, ok := aliasFrom(ctx); ok {
		alias = override
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	if stack := c.scopes[alias]; len(stack) > 0 {
		return stack[len(stack)-1], nil
	}
	db, exists := c.dbs[alias]
	if !exists {
		return nil, fmt.Errorf("alias %q: %w", alias, errors.ErrNotConnected)
	}
	return db, nil
}

// Disconnect closes and forgets the database registered under alias.
func (c *Connections) Disconnect(ctx context.Context, alias string) error {
	c.mu.Lock()
	db, exists := c.dbs[alias]
	delete(c.dbs, alias)
	c.mu.Unlock()

	if !exists {
		return fmt.Errorf("alias %q: %w", alias, errors.ErrNotConnected)
	}
	log().Debugw("disconnecting", "alias", alias)
	return db.Close(ctx)
}

// Close disconnects every alias and reports all failures.
func (c *Connections) Close(ctx context.Context) error {
	var errs error
	for _, alias := range c.Aliases() {
		errs = multierr.Append(errs, c.Disconnect(ctx, alias))
	}
	return errs
}

// Aliases returns the registered aliases, sorted.
func (c *Connections) Aliases() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.dbs))
	for alias := range c.dbs {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// Scoped routes alias to db while fn runs. The previous routing is restored
// when fn returns or panics. Overrides are not isolated between goroutines.
func (c *Connections) Scoped(alias string, db datastore.Database, fn func() error) error {
	c.push(alias, db)
	defer c.pop(alias)
	return fn()
}

func (c *Connections) push(alias string, db datastore.Database) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scopes[alias] = append(c.scopes[alias], db)
	log().Debugw("pushed connection scope", "alias", alias, "depth", len(c.scopes[alias]))
}

func (c *Connections) pop(alias string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stack := c.scopes[alias]
	if len(stack) == 0 {
		return
	}
	stack = stack[:len(stack)-1]
	if len(stack) == 0 {
		delete(c.scopes, alias)
	} else {
		c.scopes[alias] = stack
	}
	log().Debugw("popped connection scope", "alias", alias, "depth", len(stack))
}

type aliasKey struct{}

// WithAlias returns a context under which every model operation uses alias
// instead of its own.
func WithAlias(ctx context.Context, alias string) context.Context {
	return context.WithValue(ctx, aliasKey{}, alias)
}

func aliasFrom(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	alias, ok := ctx.Value(aliasKey{}).(string)
	return alias, ok
}

// Register stores db under alias in the default registry.
func Register(alias string, db datastore.Database) error {
	return defaultConnections.Register(alias, db)
}

// Disconnect closes alias in the default registry.
func Disconnect(ctx context.Context, alias string) error {
	return defaultConnections.Disconnect(ctx, alias)
}

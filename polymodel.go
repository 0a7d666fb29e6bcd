/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docmodel

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/suparena/docmodel/datastore/docquery"
	"github.com/suparena/docmodel/registry"
)

type family[T Instance] struct {
	key      string
	variants *registry.Variants[*Model[T]]
}

// PolyModel is a model whose documents are instantiated as one of several
// registered variants, chosen by the value stored under a discriminator key.
// T is usually an interface implemented by every variant.
type PolyModel[T Instance] struct {
	*Model[T]
	parent *PolyModel[T]
}

// NewPolyModel declares the base of a polymorphic family. key names the
// discriminator field.
func NewPolyModel[T Instance](name, key string, wrap func(*Record) T, opts ...Option) *PolyModel[T] {
	m := NewModel(name, wrap, opts...)
	m.s.polyKey = key
	m.fam = &family[T]{
		key:      key,
		variants: registry.NewVariants[*Model[T]](name + " discriminator"),
	}
	return &PolyModel[T]{Model: m}
}

// Key returns the discriminator field name.
func (p *PolyModel[T]) Key() string { return p.fam.key }

// Parent returns the model p was extended from, nil for the base.
func (p *PolyModel[T]) Parent() *PolyModel[T] { return p.parent }

// Extend declares a child that inherits the fields, collection and alias of p.
// The child is not dispatched to until it is registered.
func (p *PolyModel[T]) Extend(name string, wrap func(*Record) T, opts ...Option) *PolyModel[T] {
	s := p.s.clone()
	s.name = name
	collection := s.collection
	for _, opt := range opts {
		opt(s)
	}
	s.collection = collection
	registry.RegisterIndexes(s.collection, s.indexes...)
	return &PolyModel[T]{
		Model:  &Model[T]{s: s, wrap: wrap, fam: p.fam},
		parent: p,
	}
}

// Register makes documents whose discriminator equals the child's declared
// default (or its lower-cased name when it has none) load as child.
func (p *PolyModel[T]) Register(child *PolyModel[T]) error {
	if v, ok := child.s.staticDefault(p.fam.key); ok {
		return p.register(v, child)
	}
	return p.register(strings.ToLower(child.s.name), child)
}

// RegisterAs registers child under value. Unless value is the child's declared
// default, it is stamped into new instances of the child.
func (p *PolyModel[T]) RegisterAs(value any, child *PolyModel[T]) error {
	return p.register(value, child)
}

func (p *PolyModel[T]) MustRegister(child *PolyModel[T]) {
	if err := p.Register(child); err != nil {
		panic(fmt.Sprintf("docmodel: %v", err))
	}
}

func (p *PolyModel[T]) MustRegisterAs(value any, child *PolyModel[T]) {
	if err := p.RegisterAs(value, child); err != nil {
		panic(fmt.Sprintf("docmodel: %v", err))
	}
}

func (p *PolyModel[T]) register(value any, child *PolyModel[T]) error {
	if child.fam != p.fam {
		return fmt.Errorf("docmodel: %s does not extend %s", child.s.name, p.s.name)
	}
	if err := p.fam.variants.Register(discriminator(value), child.Model); err != nil {
		return err
	}
	child.s.scopeKey, child.s.scopeValue = p.fam.key, value
	if d, ok := child.s.staticDefault(p.fam.key); !ok || !docquery.Equal(d, value) {
		child.s.stamp = value
	}
	log().Debugw("registered variant", "base", p.s.name, "variant", child.s.name, "key", p.fam.key, "value", value)
	return nil
}

// Variant returns the model registered under value.
func (p *PolyModel[T]) Variant(value any) (*Model[T], bool) {
	return p.fam.variants.Lookup(discriminator(value))
}

// Variants returns the registered discriminator values in registration order.
func (p *PolyModel[T]) Variants() []any {
	return p.fam.variants.Keys()
}

// discriminator normalizes numbers so that a value registered as int matches
// the int32 or int64 the driver decodes.
func discriminator(v any) any {
	rv := reflect.ValueOf(v)
	switch {
	case !rv.IsValid():
		return nil
	case isInt(rv.Kind()):
		return rv.Int()
	case isUint(rv.Kind()):
		return int64(rv.Uint())
	case isFloat(rv.Kind()):
		f := rv.Float()
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	}
	return v
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/suparena/docmodel/errors"
)

// Variants maps discriminator values to factories of type F.
// It is safe for concurrent use.
type Variants[F any] struct {
	mu    sync.RWMutex
	kind  string
	byKey map[any]F
	order []any
}

// NewVariants creates an empty registry; kind names it in error messages.
func NewVariants[F any](kind string) *Variants[F] {
	return &Variants[F]{
		kind:  kind,
		byKey: make(map[any]F),
	}
}

// Register associates key with fn. A key that is already registered is
// rejected with errors.ErrAlreadyExists, and keys that cannot be map keys
// with errors.ErrInvalidInput.
func (v *Variants[F]) Register(key any, fn F) error {
	if key == nil {
		return errors.NewValidationError(v.kind, "discriminator value must not be nil")
	}
	if !reflect.TypeOf(key).Comparable() {
		return errors.NewValidationError(v.kind, fmt.Sprintf("discriminator value of type %T is not comparable", key))
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if _, exists := v.byKey[key]; exists {
		return errors.NewAlreadyExistsError(v.kind, fmt.Sprint(key))
	}
	v.byKey[key] = fn
	v.order = append(v.order, key)
	return nil
}

// MustRegister is Register that panics on error, for init-time wiring
func (v *Variants[F]) MustRegister(key any, fn F) {
	if err := v.Register(key, fn); err != nil {
		panic(fmt.Sprintf("registry: %v", err))
	}
}

// Lookup returns the factory registered for key
func (v *Variants[F]) Lookup(key any) (F, bool) {
	var zero F
	if key == nil || !reflect.TypeOf(key).Comparable() {
		return zero, false
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	fn, ok := v.byKey[key]
	return fn, ok
}

// Keys returns the registered keys in registration order
func (v *Variants[F]) Keys() []any {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]any(nil), v.order...)
}

// Len returns the number of registered keys
func (v *Variants[F]) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.byKey)
}

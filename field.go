/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docmodel

import (
	"context"
	"fmt"
	"math"
	"reflect"

	"github.com/go-openapi/strfmt"
	"github.com/suparena/docmodel/datastore/docquery"
	"github.com/suparena/docmodel/errors"
)

// Transform rewrites a value on its way into or out of a record.
type Transform func(r *Record, v any) (any, error)

// Field describes one attribute of a model. Fields are values: every modifier
// returns a changed copy, so a Field handed to a model is never altered.
type Field struct {
	name       string
	typ        reflect.Type
	def        any
	hasDefault bool
	defFunc    func() any
	required   bool
	onGet      Transform
	onSet      Transform
	coerce     func(any) (any, error)
	format     string
	validators []Validator

	constant bool
	enum     []any
	enumFunc func(r *Record) []any
	ref      ModelRef
}

// Typed declares a field whose values must be assignable to V.
func Typed[V any](name string) Field {
	return Field{name: name, typ: reflect.TypeOf((*V)(nil)).Elem()}
}

// Any declares a field that accepts any value.
func Any(name string) Field {
	return Field{name: name}
}

// Reference declares a field holding a handle to a document of target.
func Reference(name string, target ModelRef) Field {
	return Field{name: name, ref: target}
}

// Constant declares a field that cannot change once the record is stored.
func Constant(name string) Field {
	return Field{name: name, constant: true}
}

// Enum declares a field restricted to values.
func Enum(name string, values ...any) Field {
	return Field{name: name, enum: append([]any(nil), values...)}
}

// EnumFunc declares a field whose accepted values depend on the record.
func EnumFunc(name string, fn func(r *Record) []any) Field {
	return Field{name: name, enumFunc: fn}
}

func (f Field) Name() string { return f.name }

// Type returns the declared value type, nil for untyped fields.
func (f Field) Type() reflect.Type { return f.typ }

func (f Field) IsRequired() bool { return f.required }

// Default sets a static default value.
func (f Field) Default(v any) Field {
	f.def, f.hasDefault, f.defFunc = v, true, nil
	return f
}

// DefaultFunc sets a producer called once per new record.
func (f Field) DefaultFunc(fn func() any) Field {
	f.defFunc, f.hasDefault, f.def = fn, fn != nil, nil
	return f
}

func (f Field) Required() Field {
	f.required = true
	return f
}

// OnGet sets the transform applied by Record.Get.
func (f Field) OnGet(fn Transform) Field {
	f.onGet = fn
	return f
}

// OnSet replaces the assignment step. It runs after type and value checks.
func (f Field) OnSet(fn Transform) Field {
	f.onSet = fn
	return f
}

// Coerce sets a conversion tried once when a value has the wrong type.
func (f Field) Coerce(fn func(any) (any, error)) Field {
	f.coerce = fn
	return f
}

// Format requires string values to match a registered strfmt format
// such as "email", "uuid" or "date-time".
func (f Field) Format(name string) Field {
	f.format = name
	return f
}

func (f Field) Validate(validators ...Validator) Field {
	f.validators = append(append([]Validator(nil), f.validators...), validators...)
	return f
}

// defaultValue returns the default for a new record.
func (f Field) defaultValue() (any, bool) {
	if !f.hasDefault {
		return nil, false
	}
	if f.defFunc != nil {
		return f.defFunc(), true
	}
	return f.def, true
}

// staticDefault is the declared default when it is a plain value.
func (f Field) staticDefault() (any, bool) {
	if !f.hasDefault || f.defFunc != nil {
		return nil, false
	}
	return f.def, true
}

// assign runs the set pipeline and returns the value to store.
func (f Field) assign(r *Record, v any) (any, error) {
	if v != nil {
		var err error
		if v, err = f.checkType(v); err != nil {
			return nil, err
		}
		if err := f.checkValue(r, v); err != nil {
			return nil, err
		}
	}
	if f.constant && r.ID() != nil {
		if old, ok := r.doc[f.name]; ok && !docquery.Equal(old, v) {
			return nil, errors.NewValidationError(f.name, "constant field cannot change once stored")
		}
	}
	if f.onSet != nil {
		return f.onSet(r, v)
	}
	if f.ref != nil {
		return f.setReference(v)
	}
	return v, nil
}

func (f Field) checkType(v any) (any, error) {
	if f.typ == nil {
		return v, nil
	}
	if out, ok := conform(v, f.typ); ok {
		return out, nil
	}
	if f.coerce != nil {
		c, err := f.coerce(v)
		if err != nil {
			return nil, fmt.Errorf("coerce %s: %w", f.name, err)
		}
		if out, ok := conform(c, f.typ); ok {
			return out, nil
		}
	}
	return nil, errors.NewTypeMismatchError(f.name, f.typ.String(), fmt.Sprintf("%T", v))
}

func (f Field) checkValue(r *Record, v any) error {
	if f.format != "" {
		s, ok := v.(string)
		if !ok {
			if st, isStringer := v.(fmt.Stringer); isStringer {
				s, ok = st.String(), true
			}
		}
		if !strfmt.Default.ContainsName(f.format) {
			return errors.NewValidationError(f.name, fmt.Sprintf("unknown format %q", f.format))
		}
		if !ok || !strfmt.Default.Validates(f.format, s) {
			return errors.NewValidationError(f.name, fmt.Sprintf("value is not a valid %s", f.format))
		}
	}
	for _, validate := range f.validators {
		if err := validate(f.name, v); err != nil {
			return err
		}
	}
	accepted := f.enum
	if f.enumFunc != nil {
		accepted = f.enumFunc(r)
	}
	if accepted != nil || f.enumFunc != nil {
		for _, a := range accepted {
			if docquery.Equal(a, v) {
				return nil
			}
		}
		return errors.NewValidationError(f.name, fmt.Sprintf("%v is not one of %v", v, accepted))
	}
	return nil
}

func (f Field) setReference(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	var ref Ref
	if inst, ok := v.(Instance); ok {
		b := inst.Base()
		if b == nil || b.ID() == nil {
			return nil, errors.NewValidationError(f.name, "referenced document has not been saved")
		}
		ref = b.Ref()
	} else if parsed, ok := parseRef(v); ok {
		ref = parsed
	} else {
		return nil, errors.NewTypeMismatchError(f.name, "reference to "+f.ref.Name(), fmt.Sprintf("%T", v))
	}
	if want := f.ref.CollectionName(); ref.Collection != want {
		return nil, errors.NewTypeMismatchError(f.name, "reference to "+want, "reference to "+ref.Collection)
	}
	return ref, nil
}

// read runs the get pipeline over a stored value.
func (f Field) read(ctx context.Context, r *Record, v any) (any, error) {
	if f.ref != nil && v != nil {
		ref, ok := parseRef(v)
		if !ok {
			return nil, errors.NewTypeMismatchError(f.name, "reference", fmt.Sprintf("%T", v))
		}
		inst, err := f.ref.resolve(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		v = inst
	}
	if f.onGet != nil {
		return f.onGet(r, v)
	}
	return v, nil
}

// conform reports whether v can be stored in a field of type t. Integers of any
// width are accepted by integer fields when the value fits, as are floats by
// float fields; v is converted to t in that case.
func conform(v any, t reflect.Type) (any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return v, true
	}
	switch {
	case isInt(rv.Kind()) && isInt(t.Kind()):
		out := reflect.New(t).Elem()
		n := rv.Int()
		if out.OverflowInt(n) {
			return nil, false
		}
		out.SetInt(n)
		return out.Interface(), true
	case isUint(rv.Kind()) && isInt(t.Kind()):
		n := rv.Uint()
		out := reflect.New(t).Elem()
		if n > math.MaxInt64 || out.OverflowInt(int64(n)) {
			return nil, false
		}
		out.SetInt(int64(n))
		return out.Interface(), true
	case isFloat(rv.Kind()) && isFloat(t.Kind()):
		out := reflect.New(t).Elem()
		out.SetFloat(rv.Float())
		return out.Interface(), true
	}
	return nil, false
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uint64
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

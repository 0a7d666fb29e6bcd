/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docmodel

import (
	"fmt"
	"reflect"

	"github.com/suparena/docmodel/errors"
)

// Validator checks a value assigned to field. nil values are never passed in.
type Validator func(field string, value any) error

// Length accepts strings, slices and maps whose length is at least min and,
// when max is non-zero, at most max.
func Length(min, max int) Validator {
	return func(field string, value any) error {
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		default:
			return errors.NewValidationError(field, fmt.Sprintf("length check on %T", value))
		}
		n := rv.Len()
		if rv.Kind() == reflect.String {
			n = len([]rune(rv.String()))
		}
		if n < min {
			return errors.NewValidationError(field, fmt.Sprintf("minimum length is %d", min))
		}
		if max != 0 && n > max {
			return errors.NewValidationError(field, fmt.Sprintf("maximum length is %d", max))
		}
		return nil
	}
}

// Range accepts numbers of at least min and, when max is non-zero, at most max.
func Range(min, max float64) Validator {
	return func(field string, value any) error {
		f, ok := toFloat(value)
		if !ok {
			return errors.NewValidationError(field, fmt.Sprintf("range check on %T", value))
		}
		if f < min {
			return errors.NewValidationError(field, fmt.Sprintf("minimum value is %v", min))
		}
		if max != 0 && f > max {
			return errors.NewValidationError(field, fmt.Sprintf("maximum value is %v", max))
		}
		return nil
	}
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

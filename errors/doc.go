/*
Package errors provides semantic error types for the docmodel library.

The package defines the conditions the object layer itself raises. Errors coming
from a datastore driver (connection failures, duplicate keys, timeouts) are never
translated and reach the caller unmodified.

Common Errors:

	var (
	    ErrNotFound      = errors.New("document not found")
	    ErrInvalidInput  = errors.New("invalid input")
	    ErrRequiredField = errors.New("required field is empty")
	    ErrUsage         = errors.New("invalid usage")
	)

Usage:

	// Assignment is validated immediately
	if err := ship.Set("age", "ten"); errors.IsTypeMismatch(err) {
	    // the field was declared with docmodel.Typed[int]
	}

	// A reference whose target was deleted
	company, err := person.Get(ctx, "company")
	if errors.IsNotFound(err) {
	    // the stored handle points nowhere; a nil handle returns (nil, nil)
	}

	// Mass deletion must be explicit
	_, err = Ships.Remove(ctx, nil) // errors.IsUsageError(err) == true

The error types implement the error interface and support wrapping,
making them compatible with Go's standard error handling patterns.
*/
package errors

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when a document or a referenced document does not exist
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyExists is returned when registering a name, alias or discriminator twice
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput is returned when a value fails field validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrRequiredField is returned when a required field is unset at save time
	ErrRequiredField = errors.New("required field is empty")

	// ErrUsage is returned when an operation is called in a way that could wipe data
	// or that can never succeed (e.g. updating an unsaved record)
	ErrUsage = errors.New("invalid usage")

	// ErrNotConnected is returned when no database is registered for an alias
	ErrNotConnected = errors.New("not connected")

	// ErrNoQuery is returned when a cursor-wide update has no originating filter
	ErrNoQuery = errors.New("cursor has no query")

	// ErrCursorStarted is returned when a cursor is modified after iteration began
	ErrCursorStarted = errors.New("cursor already started")

	// ErrUnsupported is returned when a datastore cannot perform an operation
	ErrUnsupported = errors.New("operation not supported")

	// ErrConditionFailed is returned when a conditional write loses a race
	ErrConditionFailed = errors.New("condition check failed")
)

// NotFoundError represents an error when a document is not found
type NotFoundError struct {
	Collection string
	Key        string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %q not found", e.Collection, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents a duplicate registration
type AlreadyExistsError struct {
	Kind string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %q already registered", e.Kind, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// TypeMismatchError is a validation error raised when an assigned value does not
// have the field's declared type
type TypeMismatchError struct {
	Field    string
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("invalid type %s instead of %s for field %q", e.Got, e.Expected, e.Field)
}

func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrInvalidInput
}

// RequiredFieldError represents an unset required field
type RequiredFieldError struct {
	Field string
}

func (e *RequiredFieldError) Error() string {
	return fmt.Sprintf("%q is required but empty", e.Field)
}

func (e *RequiredFieldError) Is(target error) bool {
	return target == ErrRequiredField || target == ErrInvalidInput
}

// UsageError represents a call that is refused before touching the store
type UsageError struct {
	Operation string
	Message   string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

func (e *UsageError) Is(target error) bool {
	return target == ErrUsage
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// UnsupportedError names the datastore and the operation it cannot perform
type UnsupportedError struct {
	Store     string
	Operation string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Store, e.Operation)
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(collection, key string) error {
	return &NotFoundError{Collection: collection, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(kind, key string) error {
	return &AlreadyExistsError{Kind: kind, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewTypeMismatchError creates a new TypeMismatchError
func NewTypeMismatchError(field, expected, got string) error {
	return &TypeMismatchError{Field: field, Expected: expected, Got: got}
}

// NewRequiredFieldError creates a new RequiredFieldError
func NewRequiredFieldError(field string) error {
	return &RequiredFieldError{Field: field}
}

// NewUsageError creates a new UsageError
func NewUsageError(operation, message string) error {
	return &UsageError{Operation: operation, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewUnsupportedError creates a new UnsupportedError
func NewUnsupportedError(store, operation string) error {
	return &UnsupportedError{Store: store, Operation: operation}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsTypeMismatch checks if an error is a type mismatch on assignment
func IsTypeMismatch(err error) bool {
	var tm *TypeMismatchError
	return errors.As(err, &tm)
}

// IsRequiredField checks if an error reports an unset required field
func IsRequiredField(err error) bool {
	return errors.Is(err, ErrRequiredField)
}

// IsUsageError checks if an error is a refused call
func IsUsageError(err error) bool {
	return errors.Is(err, ErrUsage)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsUnsupported checks if an error is an unsupported operation error
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

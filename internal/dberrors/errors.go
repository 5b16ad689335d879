// Package dberrors implements the closed error taxonomy every core
// component returns through the dispatcher boundary. Nothing in the
// core panics or returns a bare string error; every failure is one of
// the Kinds below, carrying structured detail fields instead of a
// formatted message.
package dberrors

import (
	"errors"
	"fmt"
)

// Kind is the closed taxonomy of core error kinds.
type Kind string

const (
	// Parse originates in the (external) query/schema parser.
	Parse Kind = "parse"

	// Loader (L) kinds.
	SchemaConflict Kind = "schema_conflict"
	UnknownType    Kind = "unknown_type"
	BadDependency  Kind = "bad_dependency"
	DuplicateField Kind = "duplicate_field"

	// Table Catalog (T) kinds.
	TableExists Kind = "table_exists"
	NoSuchTable Kind = "no_such_table"
	NotAMessage Kind = "not_a_message"

	// Expression Typer (X) kinds.
	TypeMismatch       Kind = "type_mismatch"
	UnboundColumn      Kind = "unbound_column"
	UnknownField       Kind = "unknown_field"
	UnknownVariant     Kind = "unknown_variant"
	NonExhaustiveMatch Kind = "non_exhaustive_match"
	ExtraCase          Kind = "extra_case"
	ArityMismatch      Kind = "arity_mismatch"

	// Dependency Analyser (D) kind.
	DroppedDependency Kind = "dropped_dependency"

	// Evaluator (E) kind.
	DivisionByZero Kind = "division_by_zero"
)

// Error is the concrete type behind every error the core returns.
// Details carries kind-specific structured fields (e.g. {expected,
// got} for TypeMismatch, {column, missing} for DroppedDependency)
// rather than baking them into the message string.
type Error struct {
	kind    Kind
	message string
	details map[string]any
}

func (e *Error) Error() string {
	if len(e.details) == 0 {
		return fmt.Sprintf("[%s] %s", e.kind, e.message)
	}
	return fmt.Sprintf("[%s] %s %v", e.kind, e.message, e.details)
}

// Kind returns the error's taxonomy kind.
func (e *Error) Kind() Kind { return e.kind }

// Detail looks up a structured detail field.
func (e *Error) Detail(key string) (any, bool) {
	v, ok := e.details[key]
	return v, ok
}

// Details returns a copy of all structured detail fields.
func (e *Error) Details() map[string]any {
	out := make(map[string]any, len(e.details))
	for k, v := range e.details {
		out[k] = v
	}
	return out
}

func new(kind Kind, message string, details map[string]any) *Error {
	return &Error{kind: kind, message: message, details: details}
}

// Is supports errors.Is by kind: two *Error values are "the same
// error" for errors.Is purposes when they share a Kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.kind == other.kind
	}
	return false
}

// Sentinel, kind-only values usable with errors.Is(err, dberrors.ErrNoSuchTable).
var (
	ErrParse              = new(Parse, "parse error", nil)
	ErrSchemaConflict     = new(SchemaConflict, "schema conflict", nil)
	ErrUnknownType        = new(UnknownType, "unknown type", nil)
	ErrBadDependency      = new(BadDependency, "bad dependency", nil)
	ErrDuplicateField     = new(DuplicateField, "duplicate field", nil)
	ErrTableExists        = new(TableExists, "table exists", nil)
	ErrNoSuchTable        = new(NoSuchTable, "no such table", nil)
	ErrNotAMessage        = new(NotAMessage, "not a message", nil)
	ErrTypeMismatch       = new(TypeMismatch, "type mismatch", nil)
	ErrUnboundColumn      = new(UnboundColumn, "unbound column", nil)
	ErrUnknownField       = new(UnknownField, "unknown field", nil)
	ErrUnknownVariant     = new(UnknownVariant, "unknown variant", nil)
	ErrNonExhaustiveMatch = new(NonExhaustiveMatch, "non-exhaustive match", nil)
	ErrExtraCase          = new(ExtraCase, "extra case", nil)
	ErrArityMismatch      = new(ArityMismatch, "arity mismatch", nil)
	ErrDroppedDependency  = new(DroppedDependency, "dropped dependency", nil)
	ErrDivisionByZero     = new(DivisionByZero, "division by zero", nil)
)

// Constructors below build a fresh *Error with structured details; a
// caller compares kinds with errors.Is against the sentinels above.

func NewParse(message string) *Error { return new(Parse, message, nil) }

func NewSchemaConflict(name string) *Error {
	return new(SchemaConflict, "conflicting redeclaration", map[string]any{"name": name})
}

func NewUnknownType(name string) *Error {
	return new(UnknownType, "referenced type does not exist", map[string]any{"name": name})
}

func NewBadDependency(msg, field, dep string) *Error {
	return new(BadDependency, msg, map[string]any{"message": msg, "field": field, "dependsOn": dep})
}

func NewDuplicateField(msg, name string) *Error {
	return new(DuplicateField, msg, map[string]any{"name": name})
}

func NewTableExists(name string) *Error {
	return new(TableExists, "table already exists", map[string]any{"table": name})
}

func NewNoSuchTable(name string) *Error {
	return new(NoSuchTable, "table does not exist", map[string]any{"table": name})
}

func NewNotAMessage(name string) *Error {
	return new(NotAMessage, "type is not a message", map[string]any{"type": name})
}

func NewTypeMismatch(expected, got string) *Error {
	return new(TypeMismatch, "type mismatch", map[string]any{"expected": expected, "got": got})
}

func NewUnboundColumn(name string) *Error {
	return new(UnboundColumn, "column not bound in row context", map[string]any{"column": name})
}

func NewUnknownField(msgType, field string) *Error {
	return new(UnknownField, "unknown field", map[string]any{"type": msgType, "field": field})
}

func NewUnknownVariant(enum, variant string) *Error {
	return new(UnknownVariant, "unknown variant", map[string]any{"enum": enum, "variant": variant})
}

func NewNonExhaustiveMatch(missing []string) *Error {
	return new(NonExhaustiveMatch, "match is not exhaustive", map[string]any{"missing": missing})
}

func NewExtraCase(name string) *Error {
	return new(ExtraCase, "case does not name a declared variant", map[string]any{"case": name})
}

func NewArityMismatch(name string, expected, got int) *Error {
	return new(ArityMismatch, "arity mismatch", map[string]any{"name": name, "expected": expected, "got": got})
}

func NewDroppedDependency(column, missing string) *Error {
	return new(DroppedDependency, "projected dependency missing from projection", map[string]any{"column": column, "missing": missing})
}

func NewDivisionByZero(row int) *Error {
	return new(DivisionByZero, "division by zero", map[string]any{"row": row})
}

func NewTypeMismatchAt(expected, got, at string) *Error {
	e := NewTypeMismatch(expected, got)
	e.details["at"] = at
	return e
}

package schema

import (
	"errors"
	"fmt"

	"github.com/samuelduchesne/archetypal-core/diag"
)

// ErrorKind classifies schema failures.
type ErrorKind int

const (
	MalformedSchema ErrorKind = iota + 1
	DuplicateLegacyIndex
	UnknownUnit
)

var (
	ErrMalformedSchema      = errors.New("schema: malformed schema")
	ErrDuplicateLegacyIndex = errors.New("schema: duplicate legacy index")
	ErrUnknownUnit          = errors.New("schema: unknown unit")
)

// SchemaError reports why a schema could not be loaded. Any SchemaError is
// fatal to the load.
type SchemaError struct {
	Kind  ErrorKind
	Type  string // Object type, when known.
	Field string // Field name, when known.
	Msg   string
	Err   error // Underlying decode error, if any.
}

func (e *SchemaError) Error() string {
	loc := e.Type
	if e.Field != "" {
		loc += "." + e.Field
	}
	if loc != "" {
		return fmt.Sprintf("schema: %s: %s", loc, e.Msg)
	}
	return "schema: " + e.Msg
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Is matches the package sentinels.
func (e *SchemaError) Is(target error) bool {
	switch target {
	case ErrMalformedSchema:
		return e.Kind == MalformedSchema
	case ErrDuplicateLegacyIndex:
		return e.Kind == DuplicateLegacyIndex
	case ErrUnknownUnit:
		return e.Kind == UnknownUnit
	}
	return false
}

// Issue describes the error as a diagnostic.
func (e *SchemaError) Issue() diag.Issue {
	code := diag.CodeMalformedSchema
	switch e.Kind {
	case DuplicateLegacyIndex:
		code = diag.CodeDuplicateLegacyIndex
	case UnknownUnit:
		code = diag.CodeUnknownUnit
	}
	path := ""
	if e.Type != "" {
		path = "/" + e.Type
		if e.Field != "" {
			path += "/" + e.Field
		}
	}
	return diag.Issue{Path: path, Code: code, Message: e.Msg, Cause: e.Err, Offset: -1}
}

func malformed(typ, field, format string, a ...any) *SchemaError {
	return &SchemaError{Kind: MalformedSchema, Type: typ, Field: field, Msg: fmt.Sprintf(format, a...)}
}

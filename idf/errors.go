package idf

import (
	"errors"
	"fmt"

	"github.com/samuelduchesne/archetypal-core/diag"
)

var (
	ErrUnknownObjectType = errors.New("idf: unknown object type")
	ErrUnknownField      = errors.New("idf: unknown field")
	ErrDuplicateName     = errors.New("idf: duplicate name")
	ErrInvalidName       = errors.New("idf: invalid name")
	ErrDuplicateUnique   = errors.New("idf: duplicate unique object")
	ErrNotFound          = errors.New("idf: object not found")
	ErrTooManyFields     = errors.New("idf: too many fields")
	ErrRequired          = errors.New("idf: required value missing")
)

var codeSentinels = map[string]error{
	diag.CodeUnknownObjectType: ErrUnknownObjectType,
	diag.CodeUnknownField:      ErrUnknownField,
	diag.CodeDuplicateName:     ErrDuplicateName,
	diag.CodeInvalidName:       ErrInvalidName,
	diag.CodeDuplicateUnique:   ErrDuplicateUnique,
	diag.CodeNotFound:          ErrNotFound,
	diag.CodeTooManyFields:     ErrTooManyFields,
	diag.CodeRequired:          ErrRequired,
}

// Error reports a structural violation of the document: an unknown type
// or field, a name clash or a missing object.
type Error struct {
	Code  string
	Type  string
	Name  string
	Field string
	// Params are merged into the diagnostic parameters.
	Params map[string]any
}

func (e *Error) Error() string {
	msg := diag.Message(e.Code, e.params())
	if e.Field != "" {
		return fmt.Sprintf("idf: %s: %s", e.path(), msg)
	}
	return "idf: " + msg
}

// Is matches the package sentinels.
func (e *Error) Is(target error) bool { return codeSentinels[e.Code] == target }

// Issue describes the error as a diagnostic.
func (e *Error) Issue() diag.Issue {
	it := diag.At(e.path(), e.Code, e.params())
	it.Cause = e
	return it
}

func (e *Error) path() string {
	p := "/" + e.Type
	if e.Name != "" {
		p += "/" + e.Name
	}
	if e.Field != "" {
		p += "/" + e.Field
	}
	return p
}

func (e *Error) params() map[string]any {
	p := map[string]any{"type": e.Type, "name": e.Name, "field": e.Field}
	for k, v := range e.Params {
		p[k] = v
	}
	return p
}

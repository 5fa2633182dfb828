package value

import (
	"errors"
	"fmt"

	"github.com/samuelduchesne/archetypal-core/diag"
)

// ErrorKind classifies coercion failures.
type ErrorKind int

const (
	InvalidNumber ErrorKind = iota + 1
	OutOfRange
	UnknownEnumValue
	Required
	TooManyFields
	KindMismatch
)

var (
	ErrInvalidNumber    = errors.New("value: invalid number")
	ErrOutOfRange       = errors.New("value: out of range")
	ErrUnknownEnumValue = errors.New("value: unknown enum value")
	ErrRequired         = errors.New("value: required")
	ErrTooManyFields    = errors.New("value: too many fields")
	ErrKindMismatch     = errors.New("value: kind mismatch")
)

var kindInfo = map[ErrorKind]struct {
	sentinel error
	code     string
}{
	InvalidNumber:    {ErrInvalidNumber, diag.CodeInvalidNumber},
	OutOfRange:       {ErrOutOfRange, diag.CodeOutOfRange},
	UnknownEnumValue: {ErrUnknownEnumValue, diag.CodeUnknownEnumValue},
	Required:         {ErrRequired, diag.CodeRequired},
	TooManyFields:    {ErrTooManyFields, diag.CodeTooManyFields},
	KindMismatch:     {ErrKindMismatch, diag.CodeKindMismatch},
}

// CoercionError reports a token or value a field cannot hold. It is
// recoverable: the enclosing object is skipped, the document is not.
type CoercionError struct {
	Kind  ErrorKind
	Field string
	Token string
	Msg   string
	// Params are merged into the diagnostic parameters.
	Params map[string]any
	Err    error
}

func (e *CoercionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("value: %s: %s", e.Field, e.Msg)
	}
	return "value: " + e.Msg
}

func (e *CoercionError) Unwrap() error { return e.Err }

// Is matches the package sentinels.
func (e *CoercionError) Is(target error) bool {
	info, ok := kindInfo[e.Kind]
	return ok && info.sentinel == target
}

// Code is the diagnostic code of the error kind.
func (e *CoercionError) Code() string {
	if info, ok := kindInfo[e.Kind]; ok {
		return info.code
	}
	return diag.CodeParseError
}

// Issue describes the error as a diagnostic. The caller supplies the path.
func (e *CoercionError) Issue() diag.Issue {
	params := map[string]any{"field": e.Field, "token": e.Token}
	for k, v := range e.Params {
		params[k] = v
	}
	it := diag.At("", e.Code(), params)
	it.Hint = e.Msg
	it.Cause = e
	return it
}

func newError(kind ErrorKind, field, token, format string, a ...any) *CoercionError {
	return &CoercionError{Kind: kind, Field: field, Token: token, Msg: fmt.Sprintf(format, a...)}
}

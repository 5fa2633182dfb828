// Package engine holds the low-level scanners shared by the document
// bridges: the legacy statement scanner and the JSON token stream used by
// the epJSON reader, each with its input limits.
package engine

import (
	"errors"
	"io"
)

// Kind represents JSON token kinds.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

// Token is one JSON token. Number keeps the literal text so it can be
// coerced without a float round trip.
type Token struct {
	Kind   Kind
	String string
	Number string
	Bool   bool
	Offset int64
}

// TokenSource yields JSON tokens. Location is the byte offset consumed so
// far, or -1 when unknown.
type TokenSource interface {
	NextToken() (Token, error)
	Location() int64
}

// Scalar reports whether the token is a complete value on its own.
func (t Token) Scalar() bool {
	switch t.Kind {
	case KindString, KindNumber, KindBool, KindNull:
		return true
	}
	return false
}

// Text renders a scalar token as a legacy field token.
func (t Token) Text() string {
	switch t.Kind {
	case KindString:
		return t.String
	case KindNumber:
		return t.Number
	case KindBool:
		if t.Bool {
			return "Yes"
		}
		return "No"
	}
	return ""
}

// ErrUnexpectedToken is returned when the stream does not have the expected shape.
var ErrUnexpectedToken = errors.New("engine: unexpected token")

// Skip consumes the rest of the value that starts with first.
func Skip(src TokenSource, first Token) error {
	depth := 0
	tok := first
	for {
		switch tok.Kind {
		case KindBeginObject, KindBeginArray:
			depth++
		case KindEndObject, KindEndArray:
			depth--
		case KindKey:
			if depth == 0 {
				return ErrUnexpectedToken
			}
		}
		if depth <= 0 {
			return nil
		}
		var err error
		if tok, err = src.NextToken(); err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
	}
}

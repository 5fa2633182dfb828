package epjson

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	j "github.com/goccy/go-json"

	"github.com/samuelduchesne/archetypal-core/internal/engine"
)

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type frame struct {
	kind         containerKind
	expectingKey bool
}

// source adapts a go-json Decoder to engine.TokenSource. The decoder does
// not tell keys from string values, so the container stack tracks it.
type source struct {
	dec   *j.Decoder
	stack []frame
	start int64
}

func newSource(b []byte) *source {
	dec := j.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return &source{dec: dec}
}

func (s *source) NextToken() (engine.Token, error) {
	s.start = s.dec.InputOffset()
	tok, err := s.dec.Token()
	if err != nil {
		return engine.Token{}, err
	}
	switch v := tok.(type) {
	case j.Delim:
		switch v {
		case '{':
			s.stack = append(s.stack, frame{kind: kindObject, expectingKey: true})
			return engine.Token{Kind: engine.KindBeginObject, Offset: s.start}, nil
		case '[':
			s.stack = append(s.stack, frame{kind: kindArray})
			return engine.Token{Kind: engine.KindBeginArray, Offset: s.start}, nil
		case '}', ']':
			if n := len(s.stack); n > 0 {
				s.stack = s.stack[:n-1]
			}
			s.valueDone()
			if v == '}' {
				return engine.Token{Kind: engine.KindEndObject, Offset: s.start}, nil
			}
			return engine.Token{Kind: engine.KindEndArray, Offset: s.start}, nil
		}
	case string:
		if n := len(s.stack); n > 0 && s.stack[n-1].kind == kindObject && s.stack[n-1].expectingKey {
			s.stack[n-1].expectingKey = false
			return engine.Token{Kind: engine.KindKey, String: v, Offset: s.start}, nil
		}
		s.valueDone()
		return engine.Token{Kind: engine.KindString, String: v, Offset: s.start}, nil
	case bool:
		s.valueDone()
		return engine.Token{Kind: engine.KindBool, Bool: v, Offset: s.start}, nil
	case j.Number:
		s.valueDone()
		return engine.Token{Kind: engine.KindNumber, Number: string(v), Offset: s.start}, nil
	case float64:
		s.valueDone()
		return engine.Token{Kind: engine.KindNumber, Number: strconv.FormatFloat(v, 'g', -1, 64), Offset: s.start}, nil
	case nil:
		s.valueDone()
		return engine.Token{Kind: engine.KindNull, Offset: s.start}, nil
	}
	return engine.Token{}, fmt.Errorf("%w: %T", engine.ErrUnexpectedToken, tok)
}

func (s *source) valueDone() {
	if n := len(s.stack); n > 0 && s.stack[n-1].kind == kindObject {
		s.stack[n-1].expectingKey = true
	}
}

// Location is the byte offset just past the last token read.
func (s *source) Location() int64 { return s.dec.InputOffset() }

// next reads one token and turns a clean end of input into
// io.ErrUnexpectedEOF, since every caller is inside a value.
func next(src engine.TokenSource) (engine.Token, error) {
	tok, err := src.NextToken()
	if errors.Is(err, io.EOF) {
		return engine.Token{}, io.ErrUnexpectedEOF
	}
	return tok, err
}

func expect(src engine.TokenSource, kind engine.Kind) error {
	tok, err := next(src)
	if err != nil {
		return err
	}
	if tok.Kind != kind {
		return fmt.Errorf("%w at %s", engine.ErrUnexpectedToken, pathOf(src))
	}
	return nil
}

func pathOf(src engine.TokenSource) string {
	if ps, ok := src.(engine.PathSource); ok {
		return ps.Path()
	}
	return ""
}

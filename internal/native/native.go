// Package native holds the bulk fast paths of the legacy bridge: a
// statement tokenizer that works on whole byte runs instead of one byte at
// a time, and a numeric batch validator that parses plain decimal tokens
// without going through strconv.
//
// Both produce exactly what the reference scanner and value.Coerce produce
// for the same input.
package native

import (
	"bytes"
	"strings"

	"github.com/samuelduchesne/archetypal-core/diag"
	"github.com/samuelduchesne/archetypal-core/internal/engine"
	"github.com/samuelduchesne/archetypal-core/schema"
	"github.com/samuelduchesne/archetypal-core/value"
)

const delims = ",;!\n"

// TokenizeBulk splits raw legacy text into statements. Its output, issues
// included, is identical to engine.ScanAll; like it, TokenizeBulk returns a
// nil slice when the input holds no statement.
func TokenizeBulk(raw []byte) ([]engine.Statement, diag.Issues) {
	var (
		out      = make([]engine.Statement, 0, bytes.Count(raw, []byte{';'}))
		iss      diag.Issues
		st       engine.Statement
		tok      []byte
		begun    bool
		inFields bool
		line     = 1
		pos      = 0
	)
	for pos < len(raw) {
		i := bytes.IndexAny(raw[pos:], delims)
		seg := raw[pos:]
		if i >= 0 {
			seg = seg[:i]
		}
		if !begun {
			if j := firstNonSpace(seg); j >= 0 {
				begun = true
				st.Line, st.Offset = line, int64(pos+j)
			}
		}
		tok = append(tok, seg...)
		if i < 0 {
			break
		}
		pos += i
		c := raw[pos]
		switch c {
		case '!':
			if k := bytes.IndexByte(raw[pos:], '\n'); k >= 0 {
				pos += k
			} else {
				pos = len(raw)
			}
			continue
		case '\n':
			line++
			tok = append(tok, ' ')
			pos++
			continue
		}
		if !begun {
			begun = true
			st.Line, st.Offset = line, int64(pos)
		}
		pos++
		t := strings.TrimSpace(string(tok))
		tok = tok[:0]
		if !inFields {
			st.Type, inFields = t, true
		} else {
			st.Fields = append(st.Fields, t)
		}
		if c != ';' {
			continue
		}
		st.Fields = engine.TrimTrailingBlanks(st.Fields)
		switch {
		case st.Type != "":
			out = append(out, st)
		case len(st.Fields) > 0:
			iss = append(iss, engine.MissingType(st))
		}
		st, begun, inFields = engine.Statement{}, false, false
	}
	if begun {
		typ := st.Type
		if !inFields {
			typ = strings.TrimSpace(string(tok))
		}
		iss = append(iss, engine.Unterminated(typ, st.Line, st.Offset))
	}
	if len(out) == 0 {
		return nil, iss
	}
	return out, iss
}

func firstNonSpace(b []byte) int {
	for i, c := range b {
		if !engine.IsSpace(c) {
			return i
		}
	}
	return -1
}

// Result is the outcome of coercing one token.
type Result struct {
	Value value.Value
	Err   error
}

// ValidateNumericBatch coerces tokens[i] against specs[i]. Plain integers
// and short decimals in numeric fields are parsed directly; every other
// token goes through value.Coerce. The two slices must have equal length.
func ValidateNumericBatch(tokens []string, specs []*schema.FieldSpec) []Result {
	out := make([]Result, len(tokens))
	for i, tok := range tokens {
		fs := specs[i]
		switch fs.Kind {
		case schema.KindInteger:
			if n, ok := fastInt(tok); ok {
				v, err := value.BoundInteger(n, tok, fs)
				out[i] = Result{v, err}
				continue
			}
		case schema.KindReal:
			if f, ok := fastReal(tok); ok {
				v, err := value.BoundReal(f, tok, fs)
				out[i] = Result{v, err}
				continue
			}
		}
		v, err := value.Coerce(tok, fs)
		out[i] = Result{v, err}
	}
	return out
}

// fastInt parses [+-]digits with at most 18 digits, which cannot overflow
// int64.
func fastInt(tok string) (int64, bool) {
	neg, digits := sign(tok)
	if len(digits) == 0 || len(digits) > 18 {
		return 0, false
	}
	var n int64
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int64(c-'0')
	}
	if neg {
		n = -n
	}
	return n, true
}

// pow10 holds the powers of ten that are exact in a float64.
var pow10 = [...]float64{1e0, 1e1, 1e2, 1e3, 1e4, 1e5, 1e6, 1e7, 1e8, 1e9, 1e10,
	1e11, 1e12, 1e13, 1e14, 1e15, 1e16, 1e17, 1e18, 1e19, 1e20, 1e21, 1e22}

// fastReal parses [+-]digits[.digits] with at most 15 significant digits.
// The mantissa and the power of ten are then both exact, so one division
// gives the correctly rounded result strconv.ParseFloat would.
func fastReal(tok string) (float64, bool) {
	neg, digits := sign(tok)
	var (
		m       int64
		n       int
		frac    int
		dot     bool
		present bool
	)
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		switch {
		case c >= '0' && c <= '9':
			present = true
			if m == 0 && c == '0' {
				if dot {
					frac++
				}
				continue
			}
			n++
			if n > 15 {
				return 0, false
			}
			m = m*10 + int64(c-'0')
			if dot {
				frac++
			}
		case c == '.' && !dot:
			dot = true
		default:
			return 0, false
		}
	}
	if !present || frac >= len(pow10) {
		return 0, false
	}
	f := float64(m) / pow10[frac]
	if neg {
		f = -f
	}
	return f, true
}

func sign(tok string) (bool, string) {
	if tok == "" {
		return false, tok
	}
	switch tok[0] {
	case '-':
		return true, tok[1:]
	case '+':
		return false, tok[1:]
	}
	return false, tok
}

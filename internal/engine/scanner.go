package engine

import (
	"strings"

	"github.com/samuelduchesne/archetypal-core/diag"
)

// State is the position of the legacy scanner inside a statement.
type State int

const (
	// ScanningObjectType reads the object type keyword.
	ScanningObjectType State = iota
	// ReadingFields reads comma separated field tokens.
	ReadingFields
	// ObjectComplete follows the ';' that ends a statement.
	ObjectComplete
)

func (s State) String() string {
	switch s {
	case ScanningObjectType:
		return "ScanningObjectType"
	case ReadingFields:
		return "ReadingFields"
	case ObjectComplete:
		return "ObjectComplete"
	}
	return "State(?)"
}

// Statement is one raw legacy record: the object type keyword followed by
// its field tokens. Tokens are trimmed, comments removed, and trailing blank
// fields dropped.
type Statement struct {
	Type   string
	Fields []string
	// Line and Offset locate the first character of the statement.
	Line   int
	Offset int64
}

// Scanner splits legacy text into statements. The grammar:
//
//   - '!' starts a comment running to the end of the line, anywhere;
//   - ',' separates tokens and ';' ends a statement, which may span lines;
//   - whitespace around tokens is insignificant;
//   - a statement with no content (a lone ';') is skipped;
//   - text left unterminated at the end of input is reported as truncated.
type Scanner struct {
	data   []byte
	pos    int
	line   int
	state  State
	tok    []byte
	stmt   Statement
	issues diag.Issues
}

// NewScanner returns a scanner over data.
func NewScanner(data []byte) *Scanner {
	return &Scanner{data: data, line: 1}
}

// State reports where the scanner stands.
func (s *Scanner) State() State { return s.state }

// Statement returns the statement read by the last successful Scan.
func (s *Scanner) Statement() Statement { return s.stmt }

// Issues returns the grammar problems found so far.
func (s *Scanner) Issues() diag.Issues { return s.issues }

// Scan advances to the next statement. It returns false at end of input.
func (s *Scanner) Scan() bool {
	for {
		st, ok := s.read()
		if !ok {
			return false
		}
		if st.Type == "" && len(st.Fields) == 0 {
			continue
		}
		if st.Type == "" {
			s.issues = append(s.issues, MissingType(st))
			continue
		}
		s.stmt = st
		return true
	}
}

func (s *Scanner) read() (Statement, bool) {
	var st Statement
	begun := false
	s.state = ScanningObjectType
	s.tok = s.tok[:0]
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c == '!' {
			for s.pos < len(s.data) && s.data[s.pos] != '\n' {
				s.pos++
			}
			continue
		}
		if !begun && !IsSpace(c) {
			begun = true
			st.Line, st.Offset = s.line, int64(s.pos)
		}
		s.pos++
		switch c {
		case '\n':
			s.line++
			s.tok = append(s.tok, ' ')
		case ',', ';':
			tok := strings.TrimSpace(string(s.tok))
			s.tok = s.tok[:0]
			if s.state == ScanningObjectType {
				st.Type = tok
				s.state = ReadingFields
			} else {
				st.Fields = append(st.Fields, tok)
			}
			if c == ';' {
				s.state = ObjectComplete
				st.Fields = TrimTrailingBlanks(st.Fields)
				return st, true
			}
		default:
			s.tok = append(s.tok, c)
		}
	}
	if begun {
		typ := st.Type
		if s.state == ScanningObjectType {
			typ = strings.TrimSpace(string(s.tok))
		}
		s.issues = append(s.issues, Unterminated(typ, st.Line, st.Offset))
	}
	return Statement{}, false
}

// MissingType is the issue reported for fields that follow no object type.
func MissingType(st Statement) diag.Issue {
	it := diag.At("/", diag.CodeParseError, map[string]any{"token": st.Fields[0]})
	it.Message = "statement has no object type"
	it.Line, it.Offset = st.Line, st.Offset
	return it
}

// Unterminated is the issue reported for a statement cut by the end of input.
func Unterminated(typ string, line int, offset int64) diag.Issue {
	it := diag.At("/"+typ, diag.CodeTruncated, map[string]any{"type": typ})
	it.Line, it.Offset = line, offset
	return it
}

// TrimTrailingBlanks drops empty tokens from the end of fields.
func TrimTrailingBlanks(fields []string) []string {
	n := len(fields)
	for n > 0 && fields[n-1] == "" {
		n--
	}
	if n == 0 {
		return nil
	}
	return fields[:n]
}

// IsSpace reports the ASCII whitespace that cannot start a statement.
func IsSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// ScanAll reads every statement of data.
func ScanAll(data []byte) ([]Statement, diag.Issues) {
	s := NewScanner(data)
	var out []Statement
	for s.Scan() {
		out = append(out, s.Statement())
	}
	return out, s.Issues()
}

package engine

import (
	"strconv"
	"strings"

	"github.com/samuelduchesne/archetypal-core/diag"
)

// DuplicateStrictness controls how repeated object keys are treated.
type DuplicateStrictness int

const (
	DupIgnore DuplicateStrictness = iota
	DupWarn
	DupError
)

// EnforceOptions controls the checks applied by WrapWithEnforcement.
type EnforceOptions struct {
	OnDuplicate DuplicateStrictness
	MaxDepth    int
	MaxBytes    int64
	// IssueSink receives every issue found. Depth and size violations are
	// also returned as an IssueError since the stream cannot continue.
	IssueSink func(diag.Issue)
	// FailFast turns duplicate keys into errors as well.
	FailFast bool
}

// IssueError carries the issue that stopped a stream.
type IssueError struct{ Diag diag.Issue }

func (e IssueError) Error() string { return e.Diag.String() }

// Issue returns the carried diagnostic.
func (e IssueError) Issue() diag.Issue { return e.Diag }

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type frame struct {
	kind         containerKind
	keys         map[string]struct{}
	expectingKey bool
	path         string
	nextIndex    int
	pendingKey   string
}

// PathSource is implemented by sources that track the JSON pointer of the
// last token returned.
type PathSource interface {
	TokenSource
	Path() string
}

// WrapWithEnforcement returns a source that tracks the JSON pointer of each
// token and enforces duplicate key policy, nesting depth and input size.
func WrapWithEnforcement(inner TokenSource, opt EnforceOptions) PathSource {
	return &enforcingSource{inner: inner, opt: opt}
}

type enforcingSource struct {
	inner TokenSource
	opt   EnforceOptions
	stack []frame
	path  string
}

func (e *enforcingSource) Location() int64 { return e.inner.Location() }

func (e *enforcingSource) Path() string { return e.path }

func (e *enforcingSource) NextToken() (Token, error) {
	tok, err := e.inner.NextToken()
	if err != nil {
		return Token{}, err
	}
	path := e.pathFor(tok)
	e.path = path

	switch tok.Kind {
	case KindBeginObject, KindBeginArray:
		f := frame{kind: kindArray, path: path}
		if tok.Kind == KindBeginObject {
			f = frame{kind: kindObject, keys: make(map[string]struct{}), expectingKey: true, path: path}
		}
		e.stack = append(e.stack, f)
		if e.opt.MaxDepth > 0 && len(e.stack) > e.opt.MaxDepth {
			return Token{}, e.fatal(path, diag.CodeParseError, "max depth exceeded")
		}
	case KindEndObject, KindEndArray:
		if n := len(e.stack); n > 0 {
			e.stack = e.stack[:n-1]
		}
		e.valueDone()
	case KindKey:
		if n := len(e.stack); n > 0 {
			top := &e.stack[n-1]
			if e.opt.OnDuplicate != DupIgnore {
				if _, dup := top.keys[tok.String]; dup {
					it := diag.At(path, diag.CodeDuplicateName, map[string]any{"name": tok.String})
					it.Offset = e.inner.Location()
					e.report(it)
					if e.opt.OnDuplicate == DupError || e.opt.FailFast {
						return Token{}, IssueError{Diag: it}
					}
				}
			}
			top.keys[tok.String] = struct{}{}
			top.expectingKey = false
			top.pendingKey = tok.String
		}
	default:
		e.valueDone()
	}

	if e.opt.MaxBytes > 0 {
		if off := e.inner.Location(); off > e.opt.MaxBytes {
			return Token{}, e.fatal(path, diag.CodeTruncated, "max bytes exceeded")
		}
	}
	return tok, nil
}

func (e *enforcingSource) valueDone() {
	if n := len(e.stack); n > 0 {
		top := &e.stack[n-1]
		if top.kind == kindObject {
			top.expectingKey = true
			top.pendingKey = ""
		}
	}
}

func (e *enforcingSource) fatal(path, code, msg string) error {
	it := diag.At(path, code, nil)
	it.Message = msg
	it.Offset = e.inner.Location()
	e.report(it)
	return IssueError{Diag: it}
}

func (e *enforcingSource) report(it diag.Issue) {
	if e.opt.IssueSink != nil {
		e.opt.IssueSink(it)
	}
}

func (e *enforcingSource) pathFor(tok Token) string {
	if len(e.stack) == 0 {
		return ""
	}
	top := &e.stack[len(e.stack)-1]
	switch tok.Kind {
	case KindKey:
		return JoinPointer(top.path, tok.String)
	case KindEndObject, KindEndArray:
		return top.path
	}
	if top.kind == kindArray {
		p := JoinPointer(top.path, strconv.Itoa(top.nextIndex))
		top.nextIndex++
		return p
	}
	if top.pendingKey != "" || !top.expectingKey {
		return JoinPointer(top.path, top.pendingKey)
	}
	return top.path
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// JoinPointer appends one escaped reference token to a JSON pointer.
func JoinPointer(base, token string) string {
	return base + "/" + pointerEscaper.Replace(token)
}

// CapInput cuts data to limit bytes, reporting the cut. A limit <= 0
// disables the check.
func CapInput(data []byte, limit int64) ([]byte, diag.Issues) {
	if limit <= 0 || int64(len(data)) <= limit {
		return data, nil
	}
	it := diag.At("/", diag.CodeTruncated, map[string]any{"max_bytes": limit})
	it.Message = "input exceeds " + strconv.FormatInt(limit, 10) + " bytes"
	it.Offset = limit
	return data[:limit], diag.Issues{it}
}

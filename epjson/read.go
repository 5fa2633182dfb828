// Package epjson reads and writes documents in the JSON object format: a
// top-level object keyed by object type, each holding objects keyed by name
// whose members are the non-blank fields. Extensible groups are arrays of
// objects.
package epjson

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/samuelduchesne/archetypal-core/diag"
	"github.com/samuelduchesne/archetypal-core/idf"
	"github.com/samuelduchesne/archetypal-core/internal/ctxlog"
	"github.com/samuelduchesne/archetypal-core/internal/engine"
	"github.com/samuelduchesne/archetypal-core/resolve"
	"github.com/samuelduchesne/archetypal-core/schema"
	"github.com/samuelduchesne/archetypal-core/value"
)

// ErrNilRegistry is returned when Read is called without a schema.
var ErrNilRegistry = errors.New("epjson: nil registry")

// ReadOpt configures Read. When several are passed the last one wins.
type ReadOpt struct {
	// MaxBytes stops reading at the first token ending past this many
	// bytes; 0 means unlimited.
	MaxBytes int64
	// MaxDepth bounds nesting; 0 means the default of 8.
	MaxDepth int
	// StrictDuplicates fails on a repeated key instead of reporting it.
	StrictDuplicates bool
	SkipResolve      bool
}

const defaultMaxDepth = 8

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Read decodes a document. Object issues (unknown types or fields, values
// failing coercion, duplicate keys) are reported with JSON pointer paths and
// the offending object skipped. The error is non-nil only when the input is
// not well-formed JSON of the expected shape.
func Read(ctx context.Context, r io.Reader, reg *schema.Registry, opts ...ReadOpt) (*idf.Document, diag.Issues, error) {
	if reg == nil {
		return nil, nil, ErrNilRegistry
	}
	var opt ReadOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("epjson: read: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	rd := &reader{doc: idf.New(reg)}
	eo := engine.EnforceOptions{
		OnDuplicate: engine.DupWarn,
		MaxDepth:    opt.MaxDepth,
		MaxBytes:    opt.MaxBytes,
		IssueSink:   func(it diag.Issue) { rd.issues = append(rd.issues, it) },
	}
	if eo.MaxDepth <= 0 {
		eo.MaxDepth = defaultMaxDepth
	}
	if opt.StrictDuplicates {
		eo.OnDuplicate = engine.DupError
	}
	rd.src = engine.WrapWithEnforcement(newSource(data), eo)

	if err := rd.document(ctx); err != nil {
		return nil, rd.issues, fmt.Errorf("epjson: read: %w", err)
	}
	if !opt.SkipResolve {
		rep := resolve.Resolve(ctx, rd.doc)
		rd.issues = append(rd.issues, rep.Issues...)
	}
	ctxlog.FromContext(ctx).Debug("read epJSON document", "bytes", len(data), "objects", rd.doc.Len(), "issues", len(rd.issues))
	return rd.doc, rd.issues, nil
}

type reader struct {
	src    engine.PathSource
	doc    *idf.Document
	issues diag.Issues
}

func (rd *reader) report(it diag.Issue) { rd.issues = append(rd.issues, it) }

func (rd *reader) document(ctx context.Context) error {
	if err := expect(rd.src, engine.KindBeginObject); err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tok, err := next(rd.src)
		if err != nil {
			return err
		}
		if tok.Kind == engine.KindEndObject {
			return nil
		}
		typ := tok.String
		spec, ok := rd.doc.Registry().Lookup(typ)
		if !ok {
			rd.report(diag.At(rd.src.Path(), diag.CodeUnknownObjectType, map[string]any{"type": typ}))
			if err := rd.skip(); err != nil {
				return err
			}
			continue
		}
		if err := rd.objects(spec); err != nil {
			return err
		}
	}
}

func (rd *reader) skip() error {
	tok, err := next(rd.src)
	if err != nil {
		return err
	}
	return engine.Skip(rd.src, tok)
}

// objects reads the name-keyed objects of one type.
func (rd *reader) objects(spec *schema.ObjectTypeSpec) error {
	if err := expect(rd.src, engine.KindBeginObject); err != nil {
		return err
	}
	for {
		tok, err := next(rd.src)
		if err != nil {
			return err
		}
		if tok.Kind == engine.KindEndObject {
			return nil
		}
		key, at := tok.String, rd.src.Path()
		values, groups, ok, err := rd.object(spec, key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if _, err := rd.doc.Insert(spec.Name, values, groups); err != nil {
			if errors.Is(err, idf.ErrDuplicateName) && values[0].Str == key {
				// already reported as a repeated key
				continue
			}
			it := diag.FromError(err)[0]
			it.Path = at
			rd.report(it)
		}
	}
}

// object reads one object body. ok is false when an issue was reported and
// the object must be skipped.
func (rd *reader) object(spec *schema.ObjectTypeSpec, key string) (values []value.Value, groups [][]value.Value, ok bool, err error) {
	if err := expect(rd.src, engine.KindBeginObject); err != nil {
		return nil, nil, false, err
	}
	ok = true
	values = make([]value.Value, len(spec.Fields))
	seen := make([]bool, len(spec.Fields))
	if nf, named := spec.NameField(); named {
		v, cerr := value.Coerce(key, nf)
		if cerr != nil {
			ok = rd.fail(rd.src.Path(), cerr)
		}
		values[0], seen[0] = v, true
	}
	for {
		tok, err := next(rd.src)
		if err != nil {
			return nil, nil, false, err
		}
		if tok.Kind == engine.KindEndObject {
			break
		}
		name := tok.String
		if spec.Extensible != nil && name == spec.Extensible.Name {
			rows, rowsOK, err := rd.rows(spec.Extensible)
			if err != nil {
				return nil, nil, false, err
			}
			groups, ok = rows, ok && rowsOK
			continue
		}
		fs, found := spec.Field(name)
		if !found {
			rd.report(diag.At(rd.src.Path(), diag.CodeUnknownField, map[string]any{"type": spec.Name, "field": name}))
			ok = false
			if err := rd.skip(); err != nil {
				return nil, nil, false, err
			}
			continue
		}
		v, vok, err := rd.scalar(fs)
		if err != nil {
			return nil, nil, false, err
		}
		i := fs.LegacyIndex - 1
		values[i], seen[i], ok = v, true, ok && vok
	}
	for i, fs := range spec.Fields {
		if seen[i] {
			continue
		}
		if _, cerr := value.Coerce("", fs); cerr != nil {
			ok = rd.fail(engine.JoinPointer(rd.src.Path(), fs.Name), cerr)
		}
	}
	return values, groups, ok, nil
}

// rows reads an extensible group array.
func (rd *reader) rows(g *schema.ExtensibleGroup) ([][]value.Value, bool, error) {
	if err := expect(rd.src, engine.KindBeginArray); err != nil {
		return nil, false, err
	}
	var out [][]value.Value
	ok := true
	for {
		tok, err := next(rd.src)
		if err != nil {
			return nil, false, err
		}
		if tok.Kind == engine.KindEndArray {
			return out, ok, nil
		}
		if tok.Kind != engine.KindBeginObject {
			return nil, false, fmt.Errorf("%w at %s", engine.ErrUnexpectedToken, rd.src.Path())
		}
		rowPath := rd.src.Path()
		row := make([]value.Value, len(g.Fields))
		seen := make([]bool, len(g.Fields))
		for {
			tok, err := next(rd.src)
			if err != nil {
				return nil, false, err
			}
			if tok.Kind == engine.KindEndObject {
				break
			}
			fs, found := g.Field(tok.String)
			if !found {
				rd.report(diag.At(rd.src.Path(), diag.CodeUnknownField, map[string]any{"field": tok.String}))
				ok = false
				if err := rd.skip(); err != nil {
					return nil, false, err
				}
				continue
			}
			v, vok, err := rd.scalar(fs)
			if err != nil {
				return nil, false, err
			}
			i := fs.LegacyIndex - 1
			row[i], seen[i], ok = v, true, ok && vok
		}
		for i, fs := range g.Fields {
			if seen[i] {
				continue
			}
			if _, cerr := value.Coerce("", fs); cerr != nil {
				ok = rd.fail(engine.JoinPointer(rowPath, fs.Name), cerr)
			}
		}
		out = append(out, row)
	}
}

// scalar reads and coerces one field value. null reads as blank.
func (rd *reader) scalar(fs *schema.FieldSpec) (value.Value, bool, error) {
	tok, err := next(rd.src)
	if err != nil {
		return value.Value{}, false, err
	}
	if !tok.Scalar() {
		it := diag.At(rd.src.Path(), diag.CodeKindMismatch, map[string]any{"field": fs.Name, "got": "container", "want": fs.Kind.String()})
		rd.report(it)
		return value.Value{}, false, engine.Skip(rd.src, tok)
	}
	v, cerr := value.Coerce(tok.Text(), fs)
	if cerr != nil {
		return value.Value{}, rd.fail(rd.src.Path(), cerr), nil
	}
	return v, true, nil
}

// fail reports a coercion error at path and returns false.
func (rd *reader) fail(path string, err error) bool {
	it := diag.FromError(err)[0]
	it.Path = path
	rd.report(it)
	return false
}

// objectKey is the member name of o inside its type object.
func objectKey(o *idf.Object, n int) string {
	if o.Name != "" {
		return o.Name
	}
	return o.Type + " " + strconv.Itoa(n)
}

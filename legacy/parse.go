// Package legacy reads and writes the flat-text legacy format: an object
// type keyword followed by comma separated fields and a ';' terminator,
// with '!' comments.
//
// Parsing has partial-failure semantics. A statement whose type is unknown
// or whose field fails coercion is reported and skipped; every other object
// still loads.
package legacy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/samuelduchesne/archetypal-core/diag"
	"github.com/samuelduchesne/archetypal-core/idf"
	"github.com/samuelduchesne/archetypal-core/internal/ctxlog"
	"github.com/samuelduchesne/archetypal-core/internal/engine"
	"github.com/samuelduchesne/archetypal-core/resolve"
	"github.com/samuelduchesne/archetypal-core/schema"
	"github.com/samuelduchesne/archetypal-core/value"
)

// ErrNilRegistry is returned when Parse is called without a schema.
var ErrNilRegistry = errors.New("legacy: nil registry")

// ParseOpt configures Parse. When several are passed the last one wins.
type ParseOpt struct {
	// Accelerated selects the native driver.
	Accelerated bool
	// Driver overrides both Accelerated and the process default.
	Driver Driver
	// Workers bounds parallel coercion; 0 means GOMAXPROCS.
	Workers int
	// MaxBytes cuts the input; 0 means unlimited.
	MaxBytes int64
	// MaxFields rejects statements with more fields; 0 means unlimited.
	MaxFields int
	// SkipResolve leaves references unresolved.
	SkipResolve bool
}

func (o ParseOpt) driver() Driver {
	switch {
	case o.Driver != nil:
		return o.Driver
	case o.Accelerated:
		return NativeDriver()
	}
	return getDriver()
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// statements per coercion task
const batchSize = 64

type job struct {
	stmt   Statement
	n      int // 1-based ordinal among statements of the same type
	spec   *schema.ObjectTypeSpec
	values []value.Value
	groups [][]value.Value
	issue  *diag.Issue
}

func (j *job) path() string { return "/" + j.stmt.Type + "/" + strconv.Itoa(j.n) }

func (j *job) fail(it diag.Issue) {
	it.Path = j.path()
	it.Line, it.Offset = j.stmt.Line, j.stmt.Offset
	if it.Params == nil {
		it.Params = map[string]any{}
	}
	it.Params["type"] = j.stmt.Type
	j.issue = &it
}

// Parse reads a legacy document. It returns the objects that loaded, the
// issues found (statements skipped, references left dangling) and an error
// only when parsing could not run at all.
func Parse(ctx context.Context, data []byte, reg *schema.Registry, opts ...ParseOpt) (*idf.Document, diag.Issues, error) {
	if reg == nil {
		return nil, nil, ErrNilRegistry
	}
	var opt ParseOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	drv := opt.driver()

	data, issues := engine.CapInput(bytes.TrimPrefix(data, utf8BOM), opt.MaxBytes)
	stmts, scanIssues := drv.Tokenize(data)
	issues = append(issues, scanIssues...)

	doc, more, err := build(ctx, drv, stmts, reg, opt)
	if err != nil {
		return nil, nil, err
	}
	issues = append(issues, more...)
	ctxlog.FromContext(ctx).Debug("parsed legacy document",
		"driver", drv.Name(), "bytes", len(data), "statements", len(stmts),
		"objects", doc.Len(), "issues", len(issues))
	return doc, issues, nil
}

// Build materializes statements that are already tokenized, with the same
// partial-failure semantics as Parse. MaxBytes is ignored.
func Build(ctx context.Context, stmts []Statement, reg *schema.Registry, opts ...ParseOpt) (*idf.Document, diag.Issues, error) {
	if reg == nil {
		return nil, nil, ErrNilRegistry
	}
	var opt ParseOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return build(ctx, opt.driver(), stmts, reg, opt)
}

func build(ctx context.Context, drv Driver, stmts []Statement, reg *schema.Registry, opt ParseOpt) (*idf.Document, diag.Issues, error) {
	jobs := plan(stmts, reg, opt.MaxFields)
	if err := coerceAll(ctx, drv, jobs, opt.Workers); err != nil {
		return nil, nil, fmt.Errorf("legacy: parse: %w", err)
	}

	var issues diag.Issues
	doc := idf.New(reg)
	for i := range jobs {
		j := &jobs[i]
		if j.issue == nil {
			if _, err := doc.Insert(j.stmt.Type, j.values, j.groups); err != nil {
				j.fail(diag.FromError(err)[0])
			}
		}
		if j.issue != nil {
			issues = append(issues, *j.issue)
		}
	}

	if !opt.SkipResolve {
		rep := resolve.Resolve(ctx, doc)
		issues = append(issues, rep.Issues...)
	}
	return doc, issues, nil
}

func plan(stmts []Statement, reg *schema.Registry, maxFields int) []job {
	jobs := make([]job, len(stmts))
	seen := make(map[string]int)
	for i, st := range stmts {
		seen[st.Type]++
		j := &jobs[i]
		j.stmt, j.n = st, seen[st.Type]

		spec, ok := reg.Lookup(st.Type)
		if !ok {
			j.fail(diag.At("", diag.CodeUnknownObjectType, map[string]any{"type": st.Type}))
			continue
		}
		j.spec = spec
		limit := spec.FieldLimit()
		if spec.Extensible == nil && (limit < 0 || limit > len(spec.Fields)) {
			limit = len(spec.Fields)
		}
		if maxFields > 0 && (limit < 0 || maxFields < limit) {
			limit = maxFields
		}
		if limit >= 0 && len(st.Fields) > limit {
			j.fail(diag.At("", diag.CodeTooManyFields, map[string]any{"type": st.Type, "count": len(st.Fields), "max": limit}))
		}
	}
	return jobs
}

func coerceAll(ctx context.Context, drv Driver, jobs []job, workers int) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(jobs); start += batchSize {
		batch := jobs[start:min(start+batchSize, len(jobs))]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := range batch {
				if batch[i].issue == nil {
					coerceStatement(drv, &batch[i])
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// coerceStatement types every field of one statement. Fields past the fixed
// prefix are grouped by the extensible stride; a short final group is
// completed with blanks.
func coerceStatement(drv Driver, j *job) {
	spec := j.spec
	fixed, stride := len(spec.Fields), spec.Stride()

	tokens := j.stmt.Fields
	total := max(len(tokens), fixed)
	if stride > 0 && total > fixed {
		if rem := (total - fixed) % stride; rem != 0 {
			total += stride - rem
		}
	}
	padded := make([]string, total)
	copy(padded, tokens)
	specs := make([]*schema.FieldSpec, total)
	for i := range specs {
		if i < fixed {
			specs[i] = spec.Fields[i]
		} else {
			specs[i] = spec.Extensible.Fields[(i-fixed)%stride]
		}
	}

	results := drv.Coerce(padded, specs)
	for i, r := range results {
		if r.Err == nil {
			continue
		}
		it := diag.FromError(r.Err)[0]
		it.Params = mergeParams(it.Params, map[string]any{"position": i + 1, "token": padded[i]})
		j.fail(it)
		return
	}

	j.values = make([]value.Value, fixed)
	for i := 0; i < fixed; i++ {
		j.values[i] = results[i].Value
	}
	for start := fixed; start < total; start += stride {
		row := make([]value.Value, stride)
		for k := range row {
			row[k] = results[start+k].Value
		}
		j.groups = append(j.groups, row)
	}
}

func mergeParams(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

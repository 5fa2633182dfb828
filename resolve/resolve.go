// Package resolve links by-name references between the objects of a
// document.
//
// A reference field constrained by the schema is looked up only in the
// object types it may point to. An unconstrained one is looked up in every
// type, and a name held by objects of several types is reported as
// ambiguous rather than guessed. Every failure is collected; resolution
// never stops at the first one.
package resolve

import (
	"context"

	"github.com/samuelduchesne/archetypal-core/diag"
	"github.com/samuelduchesne/archetypal-core/idf"
	"github.com/samuelduchesne/archetypal-core/internal/ctxlog"
)

// Report summarises one resolution pass.
type Report struct {
	Issues    diag.Issues
	Resolved  int
	Dangling  int
	Ambiguous int
}

// OK reports whether every reference was linked.
func (r Report) OK() bool { return r.Dangling == 0 && r.Ambiguous == 0 }

// Resolve links every reference of doc. Failed references are left
// unresolved so no stale link survives. Running it again on an unchanged
// document yields the same document and the same report.
func Resolve(ctx context.Context, doc *idf.Document) Report {
	var r Report
	for _, o := range doc.All() {
		r.object(doc, o, true)
	}
	ctxlog.FromContext(ctx).Debug("resolved references",
		"objects", doc.Len(), "resolved", r.Resolved,
		"dangling", r.Dangling, "ambiguous", r.Ambiguous)
	return r
}

// Check reports the references Resolve would fail on, without touching doc.
func Check(doc *idf.Document) diag.Issues {
	var r Report
	for _, o := range doc.All() {
		r.object(doc, o, false)
	}
	return r.Issues
}

// Object resolves the references of a single object.
func Object(doc *idf.Document, id idf.ID) diag.Issues {
	o, ok := doc.Object(id)
	if !ok {
		return nil
	}
	var r Report
	r.object(doc, o, true)
	return r.Issues
}

func (r *Report) object(doc *idf.Document, o *idf.Object, apply bool) {
	for _, s := range o.ReferenceSlots() {
		name := o.At(s).Str
		targets := Candidates(doc, o, s)
		switch len(targets) {
		case 1:
			r.Resolved++
			if apply {
				// candidates carry the referenced name, Link cannot fail
				_ = doc.Link(o.ID, s, targets[0].ID)
			}
			continue
		case 0:
			r.Dangling++
			r.Issues = append(r.Issues, newIssue(doc, o, s, diag.CodeDanglingReference, name, nil))
		default:
			types := make([]string, len(targets))
			for i, t := range targets {
				types[i] = t.Type
			}
			r.Ambiguous++
			r.Issues = append(r.Issues, newIssue(doc, o, s, diag.CodeAmbiguousReference, name, types))
		}
		if apply {
			doc.Unlink(o.ID, s)
		}
	}
}

func newIssue(doc *idf.Document, o *idf.Object, s idf.Slot, code, name string, types []string) diag.Issue {
	params := map[string]any{
		"object_id": int(o.ID),
		"type":      o.Type,
		"object":    o.Name,
		"field":     o.SpecAt(s).Name,
		"name":      name,
	}
	if types != nil {
		params["types"] = types
	}
	return diag.At(doc.SlotPath(o, s), code, params)
}

// Candidates lists the objects the reference at s may point to, in type
// order. A constrained field only considers its target types.
func Candidates(doc *idf.Document, o *idf.Object, s idf.Slot) []*idf.Object {
	name := o.At(s).Str
	types := o.SpecAt(s).RefTypes
	if len(types) == 0 {
		types = doc.NamesIn(name)
	}
	var out []*idf.Object
	for _, t := range types {
		if target, ok := doc.Get(t, name); ok {
			out = append(out, target)
		}
	}
	return out
}

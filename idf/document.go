// Package idf is the in-memory building model: a document of typed
// objects validated against a schema registry.
//
// The document owns every object in an arena addressed by ID. References
// between objects are names resolved through the document's (type, name)
// index, never pointers, so the object graph may contain cycles and objects
// can be removed without dangling memory.
//
// A Document is not safe for concurrent mutation; use one per session.
package idf

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samuelduchesne/archetypal-core/diag"
	"github.com/samuelduchesne/archetypal-core/schema"
	"github.com/samuelduchesne/archetypal-core/value"
)

type key struct{ typ, name string }

// Document is a validated object graph.
type Document struct {
	reg   *schema.Registry
	arena []*Object // nil once removed
	order map[string][]ID
	types []string // first-insertion order
	names map[key]ID
	live  int
}

// New returns an empty document bound to reg.
func New(reg *schema.Registry) *Document {
	return &Document{
		reg:   reg,
		order: make(map[string][]ID),
		names: make(map[key]ID),
	}
}

// Registry returns the schema the document is validated against.
func (d *Document) Registry() *schema.Registry { return d.reg }

// Len is the number of live objects.
func (d *Document) Len() int { return d.live }

// Add creates an object with blank fields. name must be set for named types
// and empty otherwise.
func (d *Document) Add(typ, name string) (*Object, error) {
	spec, ok := d.reg.Lookup(typ)
	if !ok {
		return nil, &Error{Code: diag.CodeUnknownObjectType, Type: typ}
	}
	values := make([]value.Value, len(spec.Fields))
	if spec.Named {
		if !validName(name) {
			return nil, &Error{Code: diag.CodeInvalidName, Type: typ, Field: spec.Fields[0].Name, Params: map[string]any{"name": name}}
		}
		values[0] = value.NewString(name)
	} else if name != "" {
		return nil, &Error{Code: diag.CodeUnknownField, Type: typ, Name: name, Field: "name"}
	}
	return d.insert(spec, values, nil)
}

// Insert materialises an already coerced object. Values shorter than the
// fixed prefix are padded with blanks. References are stored unresolved.
func (d *Document) Insert(typ string, values []value.Value, groups [][]value.Value) (*Object, error) {
	spec, ok := d.reg.Lookup(typ)
	if !ok {
		return nil, &Error{Code: diag.CodeUnknownObjectType, Type: typ}
	}
	n := len(values) + len(groups)*spec.Stride()
	if len(values) > len(spec.Fields) || len(groups) > 0 && spec.Extensible == nil || spec.FieldLimit() >= 0 && n > spec.FieldLimit() {
		return nil, &Error{Code: diag.CodeTooManyFields, Type: typ, Params: map[string]any{"count": n, "max": spec.FieldLimit()}}
	}
	fixed := make([]value.Value, len(spec.Fields))
	for i, v := range values {
		if err := value.Check(v, spec.Fields[i]); err != nil {
			return nil, fmt.Errorf("idf: %s field %d: %w", typ, i+1, err)
		}
		fixed[i] = v.Unlink()
	}
	for i := len(values); i < len(spec.Fields); i++ {
		if err := value.Check(value.Value{}, spec.Fields[i]); err != nil {
			return nil, fmt.Errorf("idf: %s field %d: %w", typ, i+1, err)
		}
	}
	rows := make([][]value.Value, 0, len(groups))
	for g, row := range groups {
		r, err := checkRow(spec, row)
		if err != nil {
			return nil, fmt.Errorf("idf: %s group %d: %w", typ, g+1, err)
		}
		rows = append(rows, r)
	}
	return d.insert(spec, fixed, rows)
}

func checkRow(spec *schema.ObjectTypeSpec, row []value.Value) ([]value.Value, error) {
	if spec.Extensible == nil {
		return nil, &Error{Code: diag.CodeTooManyFields, Type: spec.Name, Params: map[string]any{"count": len(row), "max": 0}}
	}
	if len(row) != spec.Stride() {
		return nil, &Error{Code: diag.CodeTooManyFields, Type: spec.Name, Params: map[string]any{"count": len(row), "max": spec.Stride()}}
	}
	out := make([]value.Value, len(row))
	for i, v := range row {
		if err := value.Check(v, spec.Extensible.Fields[i]); err != nil {
			return nil, err
		}
		out[i] = v.Unlink()
	}
	return out, nil
}

func (d *Document) insert(spec *schema.ObjectTypeSpec, values []value.Value, groups [][]value.Value) (*Object, error) {
	name := ""
	if spec.Named {
		name = values[0].Str
		if strings.TrimSpace(name) == "" {
			return nil, &Error{Code: diag.CodeRequired, Type: spec.Name, Field: spec.Fields[0].Name}
		}
		if _, dup := d.names[key{spec.Name, name}]; dup {
			return nil, &Error{Code: diag.CodeDuplicateName, Type: spec.Name, Name: name}
		}
	}
	if spec.Unique && len(d.order[spec.Name]) > 0 {
		return nil, &Error{Code: diag.CodeDuplicateUnique, Type: spec.Name, Name: name}
	}
	o := &Object{
		ID:     ID(len(d.arena)),
		Type:   spec.Name,
		Name:   name,
		Values: values,
		Groups: groups,
		spec:   spec,
	}
	d.arena = append(d.arena, o)
	if _, seen := d.order[spec.Name]; !seen {
		d.types = append(d.types, spec.Name)
	}
	d.order[spec.Name] = append(d.order[spec.Name], o.ID)
	if spec.Named {
		d.names[key{spec.Name, name}] = o.ID
	}
	d.live++
	return o, nil
}

// Object returns a live object by id.
func (d *Document) Object(id ID) (*Object, bool) {
	if id < 0 || int(id) >= len(d.arena) || d.arena[id] == nil {
		return nil, false
	}
	return d.arena[id], true
}

// Get returns the object of a type with the given name.
func (d *Document) Get(typ, name string) (*Object, bool) {
	id, ok := d.names[key{typ, name}]
	if !ok {
		return nil, false
	}
	return d.arena[id], true
}

// Objects returns the live objects of a type in insertion order.
func (d *Document) Objects(typ string) []*Object {
	ids := d.order[typ]
	out := make([]*Object, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.arena[id])
	}
	return out
}

// Types lists the object types present, in order of first insertion.
func (d *Document) Types() []string {
	out := make([]string, 0, len(d.types))
	for _, t := range d.types {
		if len(d.order[t]) > 0 {
			out = append(out, t)
		}
	}
	return out
}

// All returns every live object, grouped by type in Types order.
func (d *Document) All() []*Object {
	out := make([]*Object, 0, d.live)
	for _, t := range d.Types() {
		out = append(out, d.Objects(t)...)
	}
	return out
}

// NamesIn lists the types, sorted, that hold an object called name.
func (d *Document) NamesIn(name string) []string {
	var out []string
	for _, t := range d.types {
		if _, ok := d.names[key{t, name}]; ok {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}

// Field returns a fixed field value by name.
func (d *Document) Field(id ID, field string) (value.Value, error) {
	o, ok := d.Object(id)
	if !ok {
		return value.Value{}, notFound(id)
	}
	fs, ok := o.spec.Field(field)
	if !ok {
		return value.Value{}, &Error{Code: diag.CodeUnknownField, Type: o.Type, Name: o.Name, Field: field}
	}
	return o.Values[fs.LegacyIndex-1], nil
}

// SetFieldValue validates v against a fixed field and stores it. Numeric
// values in another unit of the same family are converted. Setting the
// name field renames the object and updates every reference linked to it.
// References are stored unresolved.
func (d *Document) SetFieldValue(id ID, field string, v value.Value) error {
	o, ok := d.Object(id)
	if !ok {
		return notFound(id)
	}
	fs, ok := o.spec.Field(field)
	if !ok {
		return &Error{Code: diag.CodeUnknownField, Type: o.Type, Name: o.Name, Field: field}
	}
	v, err := d.prepare(v, fs)
	if err != nil {
		return fmt.Errorf("idf: %s %q: %w", o.Type, o.Name, err)
	}
	if o.spec.Named && fs.LegacyIndex == 1 {
		return d.rename(o, v.Str)
	}
	o.Values[fs.LegacyIndex-1] = v
	return nil
}

// SetGroupValue sets one field of an extensible row.
func (d *Document) SetGroupValue(id ID, row int, field string, v value.Value) error {
	o, ok := d.Object(id)
	if !ok {
		return notFound(id)
	}
	fs, ok := o.spec.GroupField(field)
	if !ok || row < 0 || row >= len(o.Groups) {
		return &Error{Code: diag.CodeUnknownField, Type: o.Type, Name: o.Name, Field: field, Params: map[string]any{"row": row}}
	}
	v, err := d.prepare(v, fs)
	if err != nil {
		return fmt.Errorf("idf: %s %q: %w", o.Type, o.Name, err)
	}
	o.Groups[row][fs.LegacyIndex-1] = v
	return nil
}

// AppendGroup adds one extensible row. The row must hold exactly one value
// per group field and at least one of them must be set.
func (d *Document) AppendGroup(id ID, row []value.Value) error {
	o, ok := d.Object(id)
	if !ok {
		return notFound(id)
	}
	if limit := o.spec.FieldLimit(); limit >= 0 && len(o.Values)+(len(o.Groups)+1)*o.spec.Stride() > limit {
		return &Error{Code: diag.CodeTooManyFields, Type: o.Type, Name: o.Name, Params: map[string]any{"count": len(o.Values) + (len(o.Groups)+1)*o.spec.Stride(), "max": limit}}
	}
	if len(row) > 0 && len(row) == o.spec.Stride() {
		row = slices.Clone(row)
		for i, v := range row {
			nv, err := value.Normalize(v, o.spec.Extensible.Fields[i], d.reg.Units())
			if err != nil {
				return fmt.Errorf("idf: %s %q: %w", o.Type, o.Name, err)
			}
			row[i] = nv
		}
	}
	r, err := checkRow(o.spec, row)
	if err != nil {
		return fmt.Errorf("idf: %s %q: %w", o.Type, o.Name, err)
	}
	if !slices.ContainsFunc(r, func(v value.Value) bool { return !v.IsEmpty() }) {
		return &Error{Code: diag.CodeRequired, Type: o.Type, Name: o.Name, Field: o.spec.Extensible.Name}
	}
	o.Groups = append(o.Groups, r)
	return nil
}

func (d *Document) prepare(v value.Value, fs *schema.FieldSpec) (value.Value, error) {
	v, err := value.Normalize(v, fs, d.reg.Units())
	if err != nil {
		return value.Value{}, err
	}
	if err := value.Check(v, fs); err != nil {
		return value.Value{}, err
	}
	return v.Unlink(), nil
}

func (d *Document) rename(o *Object, name string) error {
	if name == o.Name {
		return nil
	}
	if strings.TrimSpace(name) == "" {
		return &Error{Code: diag.CodeRequired, Type: o.Type, Name: o.Name, Field: o.spec.Fields[0].Name}
	}
	if !validName(name) {
		return &Error{Code: diag.CodeInvalidName, Type: o.Type, Name: o.Name, Field: o.spec.Fields[0].Name, Params: map[string]any{"name": name}}
	}
	if _, dup := d.names[key{o.Type, name}]; dup {
		return &Error{Code: diag.CodeDuplicateName, Type: o.Type, Name: name}
	}
	delete(d.names, key{o.Type, o.Name})
	d.names[key{o.Type, name}] = o.ID
	o.Name = name
	o.Values[0] = value.NewString(name)
	d.eachLinkTo(o.ID, func(src *Object, s Slot) {
		src.set(s, value.NewResolved(name, int(o.ID)))
	})
	return nil
}

// validName reports whether name survives a legacy write and re-read
// unchanged. Blank names are left to the Required check.
func validName(name string) bool {
	return name == strings.TrimSpace(name) && !strings.ContainsAny(name, ",;!\n\r")
}

// Remove deletes an object. References linked to it fall back to
// unresolved names, to be reported by the next resolution.
func (d *Document) Remove(id ID) error {
	o, ok := d.Object(id)
	if !ok {
		return notFound(id)
	}
	d.arena[id] = nil
	d.order[o.Type] = slices.DeleteFunc(d.order[o.Type], func(x ID) bool { return x == id })
	if o.spec.Named {
		delete(d.names, key{o.Type, o.Name})
	}
	d.live--
	d.eachLinkTo(id, func(src *Object, s Slot) {
		src.set(s, src.At(s).Unlink())
	})
	return nil
}

// Link resolves the reference at s to the object target. The target must be
// live and carry the referenced name.
func (d *Document) Link(id ID, s Slot, target ID) error {
	o, ok := d.Object(id)
	if !ok {
		return notFound(id)
	}
	t, ok := d.Object(target)
	if !ok {
		return notFound(target)
	}
	v := o.At(s)
	if !v.IsReference() || v.Str != t.Name {
		return &Error{Code: diag.CodeDanglingReference, Type: o.Type, Name: o.Name, Field: o.SpecAt(s).Name, Params: map[string]any{"name": v.Str}}
	}
	o.set(s, value.NewResolved(t.Name, int(target)))
	return nil
}

// Unlink demotes the reference at s to its unresolved name.
func (d *Document) Unlink(id ID, s Slot) {
	if o, ok := d.Object(id); ok {
		o.set(s, o.At(s).Unlink())
	}
}

func (d *Document) eachLinkTo(target ID, fn func(*Object, Slot)) {
	for _, o := range d.arena {
		if o == nil {
			continue
		}
		for _, s := range o.ReferenceSlots() {
			if v := o.At(s); v.Tag == value.Resolved && ID(v.Ref) == target {
				fn(o, s)
			}
		}
	}
}

func notFound(id ID) *Error {
	return &Error{Code: diag.CodeNotFound, Params: map[string]any{"id": int(id)}}
}

// Path locates an object for diagnostics: "/<Type>/<Name>" for named
// objects, "/<Type>/<n>" with the 1-based position in the type otherwise.
func (d *Document) Path(o *Object) string {
	if o.Name != "" {
		return "/" + o.Type + "/" + o.Name
	}
	n := slices.Index(d.order[o.Type], o.ID) + 1
	return fmt.Sprintf("/%s/%d", o.Type, n)
}

// SlotPath extends Path with the field at s. Group rows are 0-based.
func (d *Document) SlotPath(o *Object, s Slot) string {
	p := d.Path(o)
	if s.Group >= 0 {
		p += fmt.Sprintf("/%s/%d", o.spec.Extensible.Name, s.Group)
	}
	return p + "/" + o.SpecAt(s).Name
}

// Package schema loads and indexes the object/field definitions that
// describe a building model: for every object type, the ordered fields with
// their kind, unit, bounds, enumerations, legacy position and reference
// targets.
//
// A Registry is built once by Load and is immutable afterwards, so it may be
// shared between goroutines without locking.
package schema

import (
	"slices"

	"github.com/samuelduchesne/archetypal-core/units"
)

// Kind is the declared data kind of a field.
type Kind int

const (
	KindString Kind = iota + 1
	KindInteger
	KindReal
	KindEnum
	KindReference
	// KindList only appears in schema sources, where it declares an
	// extensible group. It never occupies a positional slot.
	KindList
)

var kindNames = map[Kind]string{
	KindString:    "string",
	KindInteger:   "integer",
	KindReal:      "real",
	KindEnum:      "enum",
	KindReference: "reference",
	KindList:      "list",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind maps a kind name to its Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Numeric reports whether k holds numbers.
func (k Kind) Numeric() bool { return k == KindInteger || k == KindReal }

// FieldSpec describes one field of an object type.
type FieldSpec struct {
	Name string
	Kind Kind
	// Unit is the declared unit, empty for unitless fields.
	Unit   units.Unit
	IPUnit units.Unit
	// Min and Max are nil when unbounded.
	Min, Max     *float64
	MinExclusive bool
	MaxExclusive bool
	// Enum lists the allowed values of an enum field, compared
	// case-sensitively.
	Enum []string
	// Keywords are textual values also accepted by a numeric field, such as
	// "Autosize".
	Keywords []string
	Default  string
	Required bool
	// LegacyIndex is the 1-based slot of the field in the flat-text format.
	// Inside an extensible group it is relative to the group.
	LegacyIndex int
	// Reference marks fields naming another object. RefTypes lists the
	// object types the name may point to; an empty list means any type.
	Reference bool
	RefTypes  []string
	Note      string
}

// Constrained reports whether a reference field restricts its target types.
func (f *FieldSpec) Constrained() bool { return len(f.RefTypes) > 0 }

// AllowsKeyword reports whether s is one of the field's keywords.
func (f *FieldSpec) AllowsKeyword(s string) bool { return slices.Contains(f.Keywords, s) }

// AllowsEnum reports whether s is one of the field's enum values.
func (f *FieldSpec) AllowsEnum(s string) bool { return slices.Contains(f.Enum, s) }

// ExtensibleGroup is the repeating tail of a variable-length object type.
type ExtensibleGroup struct {
	Name   string
	Fields []*FieldSpec

	index map[string]*FieldSpec
}

// Stride is the number of fields per repetition.
func (g *ExtensibleGroup) Stride() int { return len(g.Fields) }

// Field returns the group field with the given name.
func (g *ExtensibleGroup) Field(name string) (*FieldSpec, bool) {
	f, ok := g.index[name]
	return f, ok
}

// ObjectTypeSpec is a schema entry such as "Zone" or "BuildingSurface:Detailed".
type ObjectTypeSpec struct {
	Name string
	Memo string
	// Fields holds the fixed prefix in legacy order: Fields[i].LegacyIndex == i+1.
	Fields []*FieldSpec
	// MinFields is the number of fields always written by the legacy
	// serializer. MaxFields bounds the total field count, 0 means no bound
	// beyond the fixed prefix and the extensible group.
	MinFields int
	MaxFields int
	// Named types carry their object name in the first field.
	Named bool
	// Unique types may occur at most once per document.
	Unique bool
	// References lists the reference classes the object's name belongs to.
	References []string
	Extensible *ExtensibleGroup

	index map[string]*FieldSpec
}

// Field returns the fixed field with the given name.
func (t *ObjectTypeSpec) Field(name string) (*FieldSpec, bool) {
	f, ok := t.index[name]
	return f, ok
}

// FieldAt returns the fixed field occupying a 1-based legacy slot.
func (t *ObjectTypeSpec) FieldAt(legacyIndex int) (*FieldSpec, bool) {
	if legacyIndex < 1 || legacyIndex > len(t.Fields) {
		return nil, false
	}
	return t.Fields[legacyIndex-1], true
}

// GroupField returns a field of the extensible group.
func (t *ObjectTypeSpec) GroupField(name string) (*FieldSpec, bool) {
	if t.Extensible == nil {
		return nil, false
	}
	return t.Extensible.Field(name)
}

// NameField returns the field holding the object name of a named type.
func (t *ObjectTypeSpec) NameField() (*FieldSpec, bool) {
	if !t.Named || len(t.Fields) == 0 {
		return nil, false
	}
	return t.Fields[0], true
}

// Stride is the extensible group stride, 0 for fixed-length types.
func (t *ObjectTypeSpec) Stride() int {
	if t.Extensible == nil {
		return 0
	}
	return t.Extensible.Stride()
}

// FieldLimit is the maximum number of legacy fields, -1 when unbounded.
func (t *ObjectTypeSpec) FieldLimit() int {
	if t.MaxFields > 0 {
		return t.MaxFields
	}
	if t.Extensible == nil {
		return len(t.Fields)
	}
	return -1
}

// Registry indexes the object types of one schema version.
type Registry struct {
	version string
	types   map[string]*ObjectTypeSpec
	order   []string
	classes map[string][]string
	vocab   *units.Vocabulary
}

// Version returns the schema version string, if the source declared one.
func (r *Registry) Version() string { return r.version }

// Lookup returns the object type with the given name.
func (r *Registry) Lookup(typeName string) (*ObjectTypeSpec, bool) {
	t, ok := r.types[typeName]
	return t, ok
}

// Types lists every object type name in sorted order.
func (r *Registry) Types() []string { return slices.Clone(r.order) }

// Len is the number of object types.
func (r *Registry) Len() int { return len(r.order) }

// TypesForClass lists the object types whose names belong to a reference class.
func (r *Registry) TypesForClass(class string) []string {
	return slices.Clone(r.classes[class])
}

// Units returns the vocabulary the registry was validated against.
func (r *Registry) Units() *units.Vocabulary { return r.vocab }

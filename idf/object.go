package idf

import (
	"github.com/samuelduchesne/archetypal-core/schema"
	"github.com/samuelduchesne/archetypal-core/value"
)

// ID identifies an object inside its document. IDs are never reused, even
// after the object is removed.
type ID int

// Object is one instance of an object type. Its values are owned by the
// document and change only through Document methods.
type Object struct {
	ID   ID
	Type string
	// Name is empty for unnamed types.
	Name string
	// Values holds the fixed prefix, one entry per schema field in legacy
	// order.
	Values []value.Value
	// Groups holds the extensible tail, one row of Stride values per
	// repetition.
	Groups [][]value.Value

	spec *schema.ObjectTypeSpec
}

// Spec returns the schema entry of the object's type.
func (o *Object) Spec() *schema.ObjectTypeSpec { return o.spec }

// Slot addresses one value of an object. Group is -1 for the fixed prefix,
// otherwise the row of the extensible tail. Field is 0-based.
type Slot struct {
	Group int
	Field int
}

// At returns the value at s.
func (o *Object) At(s Slot) value.Value {
	if s.Group < 0 {
		return o.Values[s.Field]
	}
	return o.Groups[s.Group][s.Field]
}

// SpecAt returns the field definition of s.
func (o *Object) SpecAt(s Slot) *schema.FieldSpec {
	if s.Group < 0 {
		return o.spec.Fields[s.Field]
	}
	return o.spec.Extensible.Fields[s.Field]
}

// ReferenceSlots lists the slots holding a reference, in legacy order.
func (o *Object) ReferenceSlots() []Slot {
	var out []Slot
	for i, v := range o.Values {
		if v.IsReference() {
			out = append(out, Slot{Group: -1, Field: i})
		}
	}
	for g, row := range o.Groups {
		for i, v := range row {
			if v.IsReference() {
				out = append(out, Slot{Group: g, Field: i})
			}
		}
	}
	return out
}

// Tokens flattens the object into its legacy field sequence, fixed prefix
// first, without the object type token.
func (o *Object) Tokens() []value.Value {
	out := make([]value.Value, 0, len(o.Values)+len(o.Groups)*o.spec.Stride())
	out = append(out, o.Values...)
	for _, row := range o.Groups {
		out = append(out, row...)
	}
	return out
}

func (o *Object) set(s Slot, v value.Value) {
	if s.Group < 0 {
		o.Values[s.Field] = v
		return
	}
	o.Groups[s.Group][s.Field] = v
}

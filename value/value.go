// Package value holds the typed field values of a document and the rules
// that turn legacy text tokens into them.
//
// Value is a closed tagged union. Its tag must agree with the kind of the
// field it is stored in, with one exception: a reference field holds an
// Unresolved value between parsing and resolution.
package value

import (
	"strconv"

	"github.com/samuelduchesne/archetypal-core/units"
)

// Tag discriminates the Value union.
type Tag uint8

const (
	// Empty is a blank legacy token.
	Empty Tag = iota
	String
	Integer
	Real
	// Enum holds an enumeration member, or a keyword such as "Autosize"
	// stored in a numeric field.
	Enum
	// Unresolved is a reference that still carries only the target name.
	Unresolved
	// Resolved is a reference linked to a live object of the document.
	Resolved
)

var tagNames = [...]string{"empty", "string", "integer", "real", "enum", "unresolved", "resolved"}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "tag(" + strconv.Itoa(int(t)) + ")"
}

// Value is one field value. Only the members selected by Tag are meaningful.
// Values are comparable with ==.
type Value struct {
	Tag Tag
	// Str holds String and Enum payloads, and the target name of a reference.
	Str  string
	Int  int64
	Real float64
	// Ref is the object id a Resolved reference points to.
	Ref int
	// Unit is the unit a numeric value was coerced with.
	Unit units.Unit
}

func NewString(s string) Value { return Value{Tag: String, Str: s} }

func NewInteger(i int64, u units.Unit) Value { return Value{Tag: Integer, Int: i, Unit: u} }

func NewReal(f float64, u units.Unit) Value { return Value{Tag: Real, Real: f, Unit: u} }

func NewEnum(s string) Value { return Value{Tag: Enum, Str: s} }

// NewReference returns an unresolved reference to name.
func NewReference(name string) Value { return Value{Tag: Unresolved, Str: name} }

// NewResolved returns a reference linked to object id.
func NewResolved(name string, id int) Value { return Value{Tag: Resolved, Str: name, Ref: id} }

// IsEmpty reports whether v is a blank field.
func (v Value) IsEmpty() bool { return v.Tag == Empty }

// IsReference reports whether v is a resolved or unresolved reference.
func (v Value) IsReference() bool { return v.Tag == Unresolved || v.Tag == Resolved }

// Unlink demotes a resolved reference back to its name.
func (v Value) Unlink() Value {
	if v.Tag == Resolved {
		return NewReference(v.Str)
	}
	return v
}

// String renders v as its legacy token.
func (v Value) String() string { return Format(v) }

// Format renders v as the legacy text token it round-trips from.
func Format(v Value) string {
	switch v.Tag {
	case Integer:
		return strconv.FormatInt(v.Int, 10)
	case Real:
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	case Empty:
		return ""
	default:
		return v.Str
	}
}

// Quantity returns the magnitude of a numeric value with its unit. Unitless
// numbers are dimensionless.
func Quantity(v Value) (units.Quantity, error) {
	var m float64
	switch v.Tag {
	case Integer:
		m = float64(v.Int)
	case Real:
		m = v.Real
	default:
		return units.Quantity{}, &CoercionError{Kind: KindMismatch, Token: Format(v), Msg: v.Tag.String() + " value has no magnitude"}
	}
	u := v.Unit
	if u == "" {
		u = units.None
	}
	return units.Quantity{Magnitude: m, Unit: u}, nil
}

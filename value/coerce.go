package value

import (
	"math"
	"strconv"
	"strings"

	"github.com/samuelduchesne/archetypal-core/schema"
	"github.com/samuelduchesne/archetypal-core/units"
)

// Coerce types a raw legacy token against its field. Surrounding whitespace
// is ignored and a blank token yields an Empty value. Coerce is pure and
// safe to call from several goroutines.
func Coerce(raw string, fs *schema.FieldSpec) (Value, error) {
	tok := strings.TrimSpace(raw)
	if tok == "" {
		if fs.Required && fs.Default == "" {
			return Value{}, newError(Required, fs.Name, tok, "required field is blank")
		}
		return Value{}, nil
	}
	switch fs.Kind {
	case schema.KindInteger:
		return coerceInteger(tok, fs)
	case schema.KindReal:
		return coerceReal(tok, fs)
	case schema.KindEnum:
		if fs.AllowsEnum(tok) {
			return NewEnum(tok), nil
		}
		return Value{}, newError(UnknownEnumValue, fs.Name, tok, "%q is not one of %v", tok, fs.Enum)
	case schema.KindReference:
		return NewReference(tok), nil
	default:
		return NewString(tok), nil
	}
}

func coerceInteger(tok string, fs *schema.FieldSpec) (Value, error) {
	if fs.AllowsKeyword(tok) {
		return NewEnum(tok), nil
	}
	if !ValidNumber(tok) {
		return Value{}, newError(InvalidNumber, fs.Name, tok, "%q is not a number", tok)
	}
	i, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		// "3.0" and "3e2" are integral reals.
		f, ferr := strconv.ParseFloat(tok, 64)
		if ferr != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return Value{}, newError(InvalidNumber, fs.Name, tok, "%q is not an integer", tok)
		}
		i = int64(f)
	}
	return BoundInteger(i, tok, fs)
}

// BoundInteger checks an already parsed integer against the field bounds.
func BoundInteger(i int64, tok string, fs *schema.FieldSpec) (Value, error) {
	if err := checkBounds(float64(i), tok, fs); err != nil {
		return Value{}, err
	}
	return NewInteger(i, fs.Unit), nil
}

func coerceReal(tok string, fs *schema.FieldSpec) (Value, error) {
	if fs.AllowsKeyword(tok) {
		return NewEnum(tok), nil
	}
	if !ValidNumber(tok) {
		return Value{}, newError(InvalidNumber, fs.Name, tok, "%q is not a number", tok)
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsInf(f, 0) {
		return Value{}, newError(InvalidNumber, fs.Name, tok, "%q is not a finite number", tok)
	}
	return BoundReal(f, tok, fs)
}

// BoundReal checks an already parsed real against the field bounds.
func BoundReal(f float64, tok string, fs *schema.FieldSpec) (Value, error) {
	if err := checkBounds(f, tok, fs); err != nil {
		return Value{}, err
	}
	return NewReal(f, fs.Unit), nil
}

// ValidNumber reports whether tok follows the locale-independent decimal
// grammar [+-]digits[.digits][(e|E)[+-]digits]. Either side of the decimal
// point may be empty, not both. Hexadecimal forms, digit separators,
// NaN and Inf are rejected.
func ValidNumber(tok string) bool {
	i, n := 0, len(tok)
	if i < n && (tok[i] == '+' || tok[i] == '-') {
		i++
	}
	digits := 0
	for i < n && isDigit(tok[i]) {
		i++
		digits++
	}
	if i < n && tok[i] == '.' {
		i++
		for i < n && isDigit(tok[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < n && (tok[i] == 'e' || tok[i] == 'E') {
		i++
		if i < n && (tok[i] == '+' || tok[i] == '-') {
			i++
		}
		exp := 0
		for i < n && isDigit(tok[i]) {
			i++
			exp++
		}
		if exp == 0 {
			return false
		}
	}
	return i == n
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func checkBounds(f float64, tok string, fs *schema.FieldSpec) error {
	if fs.Min != nil {
		if f < *fs.Min || fs.MinExclusive && f == *fs.Min {
			return outOfRange(tok, fs)
		}
	}
	if fs.Max != nil {
		if f > *fs.Max || fs.MaxExclusive && f == *fs.Max {
			return outOfRange(tok, fs)
		}
	}
	return nil
}

func outOfRange(tok string, fs *schema.FieldSpec) *CoercionError {
	e := newError(OutOfRange, fs.Name, tok, "%s outside %s", tok, Bounds(fs))
	e.Params = map[string]any{"bounds": Bounds(fs)}
	return e
}

// Bounds renders the numeric interval of a field, such as "(0, 3]".
func Bounds(fs *schema.FieldSpec) string {
	lo, hi := "(-inf", "+inf)"
	if fs.Min != nil {
		b := "["
		if fs.MinExclusive {
			b = "("
		}
		lo = b + strconv.FormatFloat(*fs.Min, 'g', -1, 64)
	}
	if fs.Max != nil {
		b := "]"
		if fs.MaxExclusive {
			b = ")"
		}
		hi = strconv.FormatFloat(*fs.Max, 'g', -1, 64) + b
	}
	return lo + ", " + hi
}

// Check reports whether v may be stored in a field described by fs.
func Check(v Value, fs *schema.FieldSpec) error {
	tok := Format(v)
	mismatch := func() error {
		e := newError(KindMismatch, fs.Name, tok, "%s value in %s field", v.Tag, fs.Kind)
		e.Params = map[string]any{"got": v.Tag.String(), "want": fs.Kind.String()}
		return e
	}
	switch v.Tag {
	case Empty:
		if fs.Required && fs.Default == "" {
			return newError(Required, fs.Name, tok, "required field is blank")
		}
		return nil
	case String:
		if fs.Kind != schema.KindString {
			return mismatch()
		}
		return nil
	case Integer:
		if fs.Kind != schema.KindInteger {
			return mismatch()
		}
		return checkBounds(float64(v.Int), tok, fs)
	case Real:
		if fs.Kind != schema.KindReal {
			return mismatch()
		}
		if math.IsNaN(v.Real) || math.IsInf(v.Real, 0) {
			return newError(InvalidNumber, fs.Name, tok, "%s is not a finite number", tok)
		}
		return checkBounds(v.Real, tok, fs)
	case Enum:
		switch {
		case fs.Kind == schema.KindEnum && fs.AllowsEnum(v.Str):
			return nil
		case fs.Kind.Numeric() && fs.AllowsKeyword(v.Str):
			return nil
		case fs.Kind == schema.KindEnum || fs.Kind.Numeric():
			return newError(UnknownEnumValue, fs.Name, tok, "%q is not allowed", v.Str)
		}
		return mismatch()
	case Unresolved, Resolved:
		if fs.Kind != schema.KindReference {
			return mismatch()
		}
		if strings.TrimSpace(v.Str) == "" {
			return newError(Required, fs.Name, tok, "reference without a name")
		}
		return nil
	}
	return mismatch()
}

// Normalize expresses a numeric value in the unit of its field, converting
// through vocab (the standard vocabulary when nil). Values without a unit
// take the field's unit. Other tags are returned unchanged.
func Normalize(v Value, fs *schema.FieldSpec, vocab *units.Vocabulary) (Value, error) {
	if v.Tag != Integer && v.Tag != Real {
		return v, nil
	}
	if v.Unit == "" || v.Unit == fs.Unit {
		v.Unit = fs.Unit
		return v, nil
	}
	if fs.Unit == "" {
		return Value{}, newError(KindMismatch, fs.Name, Format(v), "unitless field given a value in %s", v.Unit)
	}
	if vocab == nil {
		vocab = units.Standard()
	}
	q, _ := Quantity(v)
	out, err := vocab.Convert(q, fs.Unit)
	if err != nil {
		return Value{}, err
	}
	if v.Tag == Integer {
		if out.Magnitude != math.Trunc(out.Magnitude) {
			return Value{}, newError(KindMismatch, fs.Name, Format(v), "%s is not an integral %s", out, fs.Unit)
		}
		return NewInteger(int64(out.Magnitude), fs.Unit), nil
	}
	return NewReal(out.Magnitude, fs.Unit), nil
}

// InIP expresses a numeric value in its field's IP unit for display. A value
// without a unit is taken to be in the field's unit; fields without an IP
// unit return the value's own quantity.
func InIP(v Value, fs *schema.FieldSpec, vocab *units.Vocabulary) (units.Quantity, error) {
	q, err := Quantity(v)
	if err != nil {
		return units.Quantity{}, err
	}
	if v.Unit == "" && fs.Unit != "" {
		q.Unit = fs.Unit
	}
	if fs.IPUnit == "" || fs.IPUnit == q.Unit {
		return q, nil
	}
	if vocab == nil {
		vocab = units.Standard()
	}
	return vocab.Convert(q, fs.IPUnit)
}

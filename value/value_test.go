package value_test

import (
	"errors"
	"math"
	"testing"

	"github.com/samuelduchesne/archetypal-core/diag"
	"github.com/samuelduchesne/archetypal-core/schema"
	"github.com/samuelduchesne/archetypal-core/units"
	"github.com/samuelduchesne/archetypal-core/value"
)

func ptr(f float64) *float64 { return &f }

func TestCoerce_BoundsZeroToHundred(t *testing.T) {
	fs := &schema.FieldSpec{Name: "fraction", Kind: schema.KindReal, Min: ptr(0), Max: ptr(100)}

	_, err := value.Coerce("150", fs)
	if !errors.Is(err, value.ErrOutOfRange) {
		t.Fatalf("Coerce(150) err = %v, want out of range", err)
	}
	v, err := value.Coerce("50", fs)
	if err != nil {
		t.Fatalf("Coerce(50): %v", err)
	}
	if v != value.NewReal(50, "") {
		t.Fatalf("Coerce(50) = %+v", v)
	}
}

func TestCoerce(t *testing.T) {
	t.Parallel()

	realFS := &schema.FieldSpec{Name: "thickness", Kind: schema.KindReal, Unit: units.Meter, Min: ptr(0), MinExclusive: true, Max: ptr(3)}
	integer := &schema.FieldSpec{Name: "multiplier", Kind: schema.KindInteger, Min: ptr(1), Keywords: []string{"Autosize"}}
	enum := &schema.FieldSpec{Name: "roughness", Kind: schema.KindEnum, Enum: []string{"Rough", "Smooth"}}
	ref := &schema.FieldSpec{Name: "zone_name", Kind: schema.KindReference, Reference: true, Required: true}
	str := &schema.FieldSpec{Name: "note", Kind: schema.KindString}
	defaulted := &schema.FieldSpec{Name: "terrain", Kind: schema.KindEnum, Enum: []string{"City"}, Required: true, Default: "City"}

	tests := []struct {
		name    string
		raw     string
		fs      *schema.FieldSpec
		want    value.Value
		wantErr error
	}{
		{name: "real keeps unit", raw: " 0.2 ", fs: realFS, want: value.NewReal(0.2, units.Meter)},
		{name: "real exponent", raw: "1.5E-1", fs: realFS, want: value.NewReal(0.15, units.Meter)},
		{name: "real leading dot", raw: ".5", fs: realFS, want: value.NewReal(0.5, units.Meter)},
		{name: "real inclusive max", raw: "3", fs: realFS, want: value.NewReal(3, units.Meter)},
		{name: "real exclusive min", raw: "0", fs: realFS, wantErr: value.ErrOutOfRange},
		{name: "real above max", raw: "3.01", fs: realFS, wantErr: value.ErrOutOfRange},
		{name: "real locale comma", raw: "0,2", fs: realFS, wantErr: value.ErrInvalidNumber},
		{name: "real nan", raw: "NaN", fs: realFS, wantErr: value.ErrInvalidNumber},
		{name: "real inf", raw: "Inf", fs: realFS, wantErr: value.ErrInvalidNumber},
		{name: "real overflow", raw: "1e400", fs: realFS, wantErr: value.ErrInvalidNumber},
		{name: "real hex", raw: "0x1p-2", fs: realFS, wantErr: value.ErrInvalidNumber},
		{name: "real bare exponent", raw: "1e", fs: realFS, wantErr: value.ErrInvalidNumber},
		{name: "integer", raw: "+4", fs: integer, want: value.NewInteger(4, "")},
		{name: "integer integral real", raw: "3.0", fs: integer, want: value.NewInteger(3, "")},
		{name: "integer fractional", raw: "3.5", fs: integer, wantErr: value.ErrInvalidNumber},
		{name: "integer below min", raw: "0", fs: integer, wantErr: value.ErrOutOfRange},
		{name: "integer keyword", raw: "Autosize", fs: integer, want: value.NewEnum("Autosize")},
		{name: "integer keyword case", raw: "autosize", fs: integer, wantErr: value.ErrInvalidNumber},
		{name: "enum", raw: "Rough", fs: enum, want: value.NewEnum("Rough")},
		{name: "enum case sensitive", raw: "rough", fs: enum, wantErr: value.ErrUnknownEnumValue},
		{name: "reference unresolved", raw: "Attic", fs: ref, want: value.NewReference("Attic")},
		{name: "reference required", raw: "  ", fs: ref, wantErr: value.ErrRequired},
		{name: "string verbatim", raw: " Zone Mean Air Temperature ", fs: str, want: value.NewString("Zone Mean Air Temperature")},
		{name: "blank optional", raw: "", fs: str, want: value.Value{}},
		{name: "blank with default", raw: "", fs: defaulted, want: value.Value{}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := value.Coerce(tt.raw, tt.fs)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFormat_RoundTrips(t *testing.T) {
	fs := &schema.FieldSpec{Name: "x", Kind: schema.KindReal}
	for _, f := range []float64{0.1, 1.0 / 3, 1e21, 2.5e-7, -42, 123456789.125} {
		v := value.NewReal(f, "")
		back, err := value.Coerce(value.Format(v), fs)
		if err != nil {
			t.Fatalf("Coerce(Format(%v)): %v", f, err)
		}
		if back.Real != f {
			t.Fatalf("round trip %v -> %q -> %v", f, value.Format(v), back.Real)
		}
	}
	if got := value.Format(value.NewInteger(-7, "")); got != "-7" {
		t.Fatalf("Format(-7) = %q", got)
	}
	if got := value.Format(value.NewResolved("Core", 3)); got != "Core" {
		t.Fatalf("Format(resolved) = %q", got)
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	realFS := &schema.FieldSpec{Name: "x", Kind: schema.KindReal, Max: ptr(10), Keywords: []string{"Autocalculate"}}
	ref := &schema.FieldSpec{Name: "zone_name", Kind: schema.KindReference, Reference: true}
	required := &schema.FieldSpec{Name: "name", Kind: schema.KindString, Required: true}

	tests := []struct {
		name    string
		v       value.Value
		fs      *schema.FieldSpec
		wantErr error
	}{
		{name: "real ok", v: value.NewReal(5, ""), fs: realFS},
		{name: "real bound", v: value.NewReal(11, ""), fs: realFS, wantErr: value.ErrOutOfRange},
		{name: "real nan", v: value.NewReal(math.NaN(), ""), fs: realFS, wantErr: value.ErrInvalidNumber},
		{name: "integer in real", v: value.NewInteger(1, ""), fs: realFS, wantErr: value.ErrKindMismatch},
		{name: "keyword", v: value.NewEnum("Autocalculate"), fs: realFS},
		{name: "unknown keyword", v: value.NewEnum("Autosize"), fs: realFS, wantErr: value.ErrUnknownEnumValue},
		{name: "string in reference", v: value.NewString("Core"), fs: ref, wantErr: value.ErrKindMismatch},
		{name: "unresolved reference", v: value.NewReference("Core"), fs: ref},
		{name: "empty reference name", v: value.NewReference(""), fs: ref, wantErr: value.ErrRequired},
		{name: "empty required", v: value.Value{}, fs: required, wantErr: value.ErrRequired},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := value.Check(tt.v, tt.fs)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	fs := &schema.FieldSpec{Name: "height", Kind: schema.KindReal, Unit: units.Meter}

	v, err := value.Normalize(value.NewReal(10, units.Foot), fs, nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if v.Unit != units.Meter || math.Abs(v.Real-3.048) > 1e-12 {
		t.Fatalf("Normalize(10 ft) = %+v", v)
	}

	v, err = value.Normalize(value.NewReal(2, ""), fs, nil)
	if err != nil || v.Unit != units.Meter {
		t.Fatalf("Normalize(unitless) = %+v, %v", v, err)
	}

	_, err = value.Normalize(value.NewReal(20, units.Celsius), fs, nil)
	if !errors.Is(err, units.ErrIncompatibleUnitFamily) {
		t.Fatalf("Normalize(C -> m) err = %v", err)
	}
}

func TestInIP(t *testing.T) {
	fs := &schema.FieldSpec{Name: "thickness", Kind: schema.KindReal, Unit: units.Meter, IPUnit: units.Inch}
	q, err := value.InIP(value.NewReal(0.0254, units.Meter), fs, nil)
	if err != nil || q.Unit != units.Inch || math.Abs(q.Magnitude-1) > 1e-12 {
		t.Fatalf("InIP(0.0254 m) = %v, %v", q, err)
	}
	q, err = value.InIP(value.NewReal(0.0508, ""), fs, nil)
	if err != nil || q.Unit != units.Inch || math.Abs(q.Magnitude-2) > 1e-12 {
		t.Fatalf("InIP(unitless) = %v, %v", q, err)
	}

	r := &schema.FieldSpec{Name: "resistance", Kind: schema.KindReal, Unit: "m2-K/W", IPUnit: "ft2-F-hr/Btu"}
	q, err = value.InIP(value.NewReal(0.1761101838, "m2-K/W"), r, nil)
	if err != nil || math.Abs(q.Magnitude-1) > 1e-9 {
		t.Fatalf("InIP(R-value) = %v, %v", q, err)
	}

	plain := &schema.FieldSpec{Name: "multiplier", Kind: schema.KindInteger}
	if q, err := value.InIP(value.NewInteger(3, ""), plain, nil); err != nil || q.Magnitude != 3 || q.Unit != units.None {
		t.Fatalf("InIP(no IP unit) = %v, %v", q, err)
	}
}

func TestQuantity(t *testing.T) {
	q, err := value.Quantity(value.NewReal(100, units.Celsius))
	if err != nil {
		t.Fatal(err)
	}
	f, err := units.Convert(q, units.Fahrenheit)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(f.Magnitude-212) > 1e-9 {
		t.Fatalf("100 C = %v F", f.Magnitude)
	}
	if _, err := value.Quantity(value.NewString("x")); !errors.Is(err, value.ErrKindMismatch) {
		t.Fatalf("Quantity(string) err = %v", err)
	}
}

func TestCoercionError_Issue(t *testing.T) {
	fs := &schema.FieldSpec{Name: "fraction", Kind: schema.KindReal, Max: ptr(1)}
	_, err := value.Coerce("2", fs)
	iss, ok := diag.AsIssues(err)
	if !ok || len(iss) != 1 {
		t.Fatalf("AsIssues = %v, %v", iss, ok)
	}
	it := iss[0]
	if it.Code != diag.CodeOutOfRange || it.Params["token"] != "2" || it.Params["bounds"] != "(-inf, 1]" {
		t.Fatalf("issue = %+v", it)
	}
}

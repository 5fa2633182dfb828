package legacy_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/samuelduchesne/archetypal-core/diag"
	"github.com/samuelduchesne/archetypal-core/idf"
	"github.com/samuelduchesne/archetypal-core/internal/testutil"
	"github.com/samuelduchesne/archetypal-core/legacy"
	"github.com/samuelduchesne/archetypal-core/schema"
	"github.com/samuelduchesne/archetypal-core/value"
)

var ignoreCause = cmpopts.IgnoreFields(diag.Issue{}, "Cause")

func parse(t *testing.T, src string, opts ...legacy.ParseOpt) (*idf.Document, diag.Issues) {
	t.Helper()
	doc, iss, err := legacy.Parse(context.Background(), []byte(src), testutil.Registry(t), opts...)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc, iss
}

func TestParse_Fixture(t *testing.T) {
	t.Parallel()
	doc, iss := parse(t, testutil.IDF)
	if len(iss) != 0 {
		t.Fatalf("issues = %v, want none", iss)
	}
	if got, want := doc.Len(), 8; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
	want := []string{"Version", "Building", "Zone", "Material", "Construction", "BuildingSurface:Detailed", "Schedule:Day:Interval", "Output:Variable"}
	if diff := cmp.Diff(want, doc.Types()); diff != "" {
		t.Fatalf("Types() mismatch (-want +got):\n%s", diff)
	}
	srf, ok := doc.Get("BuildingSurface:Detailed", "Core_Floor")
	if !ok {
		t.Fatal("surface not loaded")
	}
	if got := len(srf.Groups); got != 4 {
		t.Fatalf("vertices = %d, want 4", got)
	}
	zone, _ := doc.Get("Zone", "Core")
	if ref := srf.Values[3]; ref.Tag != value.Resolved || ref.Ref != int(zone.ID) {
		t.Fatalf("zone_name = %#v, want resolved to %d", ref, zone.ID)
	}
	if v := zone.Values[6]; v.Tag != value.Enum || v.Str != "Autocalculate" {
		t.Fatalf("ceiling_height = %#v, want keyword", v)
	}
}

func TestParse_PartialFailure(t *testing.T) {
	t.Parallel()
	src := "Material, A, Rough, 0.1, 1, 1, 1000;\n" +
		"Material, B, Rough, 5, 1, 1, 1000;\n" +
		"Material, C, Rough, 0.1, 1, 1, 1000;\n"
	doc, iss := parse(t, src)

	if got := doc.NamesIn("MaterialName"); !cmp.Equal(got, []string{"A", "C"}) {
		t.Fatalf("materials = %v, want [A C]", got)
	}
	if len(iss) != 1 {
		t.Fatalf("issues = %v, want 1", iss)
	}
	it := iss[0]
	if it.Code != diag.CodeOutOfRange || it.Path != "/Material/2" || it.Line != 2 {
		t.Fatalf("issue = %+v", it)
	}
	if it.Params["position"] != 3 || it.Params["token"] != "5" || it.Params["type"] != "Material" {
		t.Fatalf("params = %v", it.Params)
	}
}

func TestParse_ExtensibleGroups(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
		rows [][]value.Value
	}{
		{
			name: "exact",
			src:  "Schedule:Day:Interval, S, Fraction, No, 08:00, 0, 24:00, 1;",
			rows: [][]value.Value{
				{value.NewString("08:00"), value.NewReal(0, "")},
				{value.NewString("24:00"), value.NewReal(1, "")},
			},
		},
		{
			name: "short final row padded",
			src:  "Schedule:Day:Interval, S, Fraction, No, 08:00, 0, 24:00;",
			rows: [][]value.Value{
				{value.NewString("08:00"), value.NewReal(0, "")},
				{value.NewString("24:00"), {}},
			},
		},
		{
			name: "no rows",
			src:  "Schedule:Day:Interval, S;",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, iss := parse(t, tt.src)
			if len(iss) != 0 {
				t.Fatalf("issues = %v", iss)
			}
			o, _ := doc.Get("Schedule:Day:Interval", "S")
			if diff := cmp.Diff(tt.rows, o.Groups, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("groups mismatch (-want +got):\n%s", diff)
			}
			if got := len(o.Values); got != 3 {
				t.Fatalf("fixed values = %d, want 3", got)
			}
		})
	}
}

func TestParse_Issues(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		src     string
		opt     legacy.ParseOpt
		code    string
		path    string
		objects int
	}{
		{"unknown type", "Widget, a;\nZone, Core;", legacy.ParseOpt{}, diag.CodeUnknownObjectType, "/Widget/1", 1},
		{"duplicate name", "Zone, Core;\nZone, Core, 90;", legacy.ParseOpt{}, diag.CodeDuplicateName, "/Zone/2", 1},
		{"duplicate unique", "Version, 23.1;\nVersion, 24.1;", legacy.ParseOpt{}, diag.CodeDuplicateUnique, "/Version/2", 1},
		{"too many fields", "Output:Variable, *, X, Hourly, Extra;", legacy.ParseOpt{}, diag.CodeTooManyFields, "/Output:Variable/1", 0},
		{"max fields option", "Zone, Core, 0, 0;", legacy.ParseOpt{MaxFields: 2}, diag.CodeTooManyFields, "/Zone/1", 0},
		{"invalid number", "Zone, Core, north;", legacy.ParseOpt{}, diag.CodeInvalidNumber, "/Zone/1", 0},
		{"unknown enum", "Building, B, 0, Moon;", legacy.ParseOpt{}, diag.CodeUnknownEnumValue, "/Building/1", 0},
		{"required", "Material, M, Rough;", legacy.ParseOpt{}, diag.CodeRequired, "/Material/1", 0},
		{"truncated", "Zone, Core;\nZone, Attic", legacy.ParseOpt{}, diag.CodeTruncated, "/Zone", 1},
		{"max bytes", "Zone, Core;\nZone, Attic;", legacy.ParseOpt{MaxBytes: 12}, diag.CodeTruncated, "/", 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, iss := parse(t, tt.src, tt.opt)
			got := iss.WithCode(tt.code)
			if len(got) != 1 {
				t.Fatalf("issues = %v, want one %s", iss, tt.code)
			}
			if got[0].Path != tt.path {
				t.Fatalf("path = %q, want %q", got[0].Path, tt.path)
			}
			if doc.Len() != tt.objects {
				t.Fatalf("Len() = %d, want %d", doc.Len(), tt.objects)
			}
		})
	}
}

func TestParse_References(t *testing.T) {
	t.Parallel()
	src := "Zone, Core;\nZoneList, All, Core, Attic;"

	_, iss := parse(t, src)
	if len(iss) != 1 || iss[0].Code != diag.CodeDanglingReference {
		t.Fatalf("issues = %v, want one dangling reference", iss)
	}
	if got, want := iss[0].Path, "/ZoneList/All/zones/1/zone_name"; got != want {
		t.Fatalf("path = %q, want %q", got, want)
	}

	doc, iss := parse(t, src, legacy.ParseOpt{SkipResolve: true})
	if len(iss) != 0 {
		t.Fatalf("issues with SkipResolve = %v", iss)
	}
	zl, _ := doc.Get("ZoneList", "All")
	if tag := zl.Groups[0][0].Tag; tag != value.Unresolved {
		t.Fatalf("tag = %v, want Unresolved", tag)
	}
}

func TestParse_AcceleratedMatchesReference(t *testing.T) {
	t.Parallel()
	inputs := []string{
		testutil.IDF,
		"Material, A, Rough, 0.1, 1, 1, 1000;\nMaterial, B, Rough, 5e0, 1, 1, 1000;\nMaterial, C, Rough, 0x1, 1, 1, 1000;",
		"Zone, Core, 12345678901234567890;\nZone, Big, 0, 0, 0, 0, 99999999999999999999;",
		"Building, B, -0.0000001, City, 0.5, 7;\nZone, Core\n",
	}
	for _, src := range inputs {
		ref, refIss := parse(t, src, legacy.ParseOpt{Workers: 1})
		fast, fastIss := parse(t, src, legacy.ParseOpt{Accelerated: true})
		if !idf.Equal(ref, fast) {
			t.Errorf("documents differ for %q", src)
		}
		if diff := cmp.Diff(refIss, fastIss, ignoreCause); diff != "" {
			t.Errorf("issues differ for %q (-reference +native):\n%s", src, diff)
		}
	}
}

type countingDriver struct {
	legacy.Driver
	calls atomic.Int64
}

func (d *countingDriver) Coerce(tokens []string, specs []*schema.FieldSpec) []legacy.Result {
	d.calls.Add(1)
	return d.Driver.Coerce(tokens, specs)
}

func TestParse_DriverOption(t *testing.T) {
	t.Parallel()
	drv := &countingDriver{Driver: legacy.ReferenceDriver()}
	doc, _ := parse(t, testutil.IDF, legacy.ParseOpt{Driver: drv, Workers: 3})
	if got, want := drv.calls.Load(), int64(doc.Len()); got != want {
		t.Fatalf("Coerce calls = %d, want %d", got, want)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()
	if _, _, err := legacy.Parse(context.Background(), nil, nil); !errors.Is(err, legacy.ErrNilRegistry) {
		t.Fatalf("err = %v, want ErrNilRegistry", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := legacy.Parse(ctx, []byte(testutil.IDF), testutil.Registry(t)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestParse_LargeInput(t *testing.T) {
	t.Parallel()
	var b strings.Builder
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&b, "Material, M%d, Rough, 0.%d, 1, 1, 1000;\n", i, i%9+1)
	}
	ref, refIss := parse(t, b.String(), legacy.ParseOpt{Workers: 1})
	par, parIss := parse(t, b.String(), legacy.ParseOpt{Workers: 8})
	if !idf.Equal(ref, par) {
		t.Fatal("parallel parse differs from serial parse")
	}
	if diff := cmp.Diff(refIss, parIss, ignoreCause); diff != "" {
		t.Fatalf("issues differ (-serial +parallel):\n%s", diff)
	}
}

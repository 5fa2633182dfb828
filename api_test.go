package archetypal_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	archetypal "github.com/samuelduchesne/archetypal-core"
	"github.com/samuelduchesne/archetypal-core/diag"
	"github.com/samuelduchesne/archetypal-core/idf"
	"github.com/samuelduchesne/archetypal-core/internal/testutil"
	"github.com/samuelduchesne/archetypal-core/schema"
	"github.com/samuelduchesne/archetypal-core/value"
)

func parseFixture(t *testing.T) *idf.Document {
	t.Helper()
	doc, iss, err := archetypal.ParseDocument(context.Background(), []byte(testutil.IDF), testutil.Registry(t))
	if err != nil || len(iss) != 0 {
		t.Fatalf("ParseDocument: %v %v", err, iss)
	}
	return doc
}

func TestLoadSchema(t *testing.T) {
	t.Parallel()
	reg, err := archetypal.LoadSchema(strings.NewReader(testutil.SchemaYAML))
	if err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	if _, ok := reg.Lookup("BuildingSurface:Detailed"); !ok {
		t.Fatal("type missing from registry")
	}
	if _, err := archetypal.LoadSchema(strings.NewReader("{}"), schema.LoadOpt{Format: schema.FormatJSON}); err == nil {
		t.Fatal("empty schema accepted")
	}
}

func TestParseDocument_Formats(t *testing.T) {
	t.Parallel()
	doc := parseFixture(t)

	for _, f := range []archetypal.DocumentFormat{archetypal.FormatIDF, archetypal.FormatEpJSON} {
		f := f
		t.Run(f.String(), func(t *testing.T) {
			t.Parallel()
			out, err := archetypal.SerializeDocument(doc, archetypal.SerializeOpt{Format: f})
			if err != nil {
				t.Fatalf("SerializeDocument: %v", err)
			}
			// Auto detection picks the reader.
			again, iss, err := archetypal.ParseDocument(context.Background(), out, testutil.Registry(t))
			if err != nil || len(iss) != 0 {
				t.Fatalf("ParseDocument: %v %v\n%s", err, iss, out)
			}
			if !idf.Equal(doc, again) {
				t.Fatalf("round trip through %v changed the document", f)
			}
		})
	}
}

func TestParseDocumentFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want archetypal.DocumentFormat
		ok   bool
	}{
		{"", archetypal.FormatAuto, true},
		{"idf", archetypal.FormatIDF, true},
		{"epJSON", archetypal.FormatEpJSON, true},
		{"xml", archetypal.FormatAuto, false},
	}
	for _, tt := range tests {
		got, ok := archetypal.ParseDocumentFormat(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseDocumentFormat(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSetFieldValue_Resolves(t *testing.T) {
	t.Parallel()
	doc := parseFixture(t)
	if _, err := doc.Add("Zone", "Attic"); err != nil {
		t.Fatal(err)
	}
	srf, ok := archetypal.GetObject(doc, "BuildingSurface:Detailed", "Core_Floor")
	if !ok {
		t.Fatal("surface missing")
	}
	if err := archetypal.SetFieldValue(doc, srf.ID, "zone_name", value.NewReference("Attic")); err != nil {
		t.Fatalf("SetFieldValue: %v", err)
	}
	attic, _ := doc.Get("Zone", "Attic")
	if v := srf.Values[3]; v.Tag != value.Resolved || v.Ref != int(attic.ID) {
		t.Fatalf("zone_name = %#v, want linked to Attic", v)
	}

	// A dangling name is accepted and left for Validate.
	if err := archetypal.SetFieldValue(doc, srf.ID, "zone_name", value.NewReference("Basement")); err != nil {
		t.Fatalf("SetFieldValue: %v", err)
	}
	iss := archetypal.Validate(doc)
	if len(iss) != 1 || iss[0].Code != diag.CodeDanglingReference {
		t.Fatalf("Validate() = %v, want one dangling reference", iss)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	doc := parseFixture(t)
	if got := archetypal.Validate(doc); len(got) != 0 {
		t.Fatalf("Validate(fixture) = %v", got)
	}

	if _, err := doc.Add("Material", "Blank"); err != nil {
		t.Fatal(err)
	}
	var paths []string
	for _, it := range archetypal.Validate(doc) {
		if it.Code != diag.CodeRequired {
			t.Fatalf("unexpected issue %v", it)
		}
		paths = append(paths, it.Path)
	}
	want := []string{
		"/Material/Blank/roughness",
		"/Material/Blank/thickness",
		"/Material/Blank/conductivity",
		"/Material/Blank/density",
		"/Material/Blank/specific_heat",
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

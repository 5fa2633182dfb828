package benchmarks_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/samuelduchesne/archetypal-core/epjson"
	"github.com/samuelduchesne/archetypal-core/idf"
	"github.com/samuelduchesne/archetypal-core/internal/testutil"
	"github.com/samuelduchesne/archetypal-core/legacy"
	"github.com/samuelduchesne/archetypal-core/schema"
)

// generateBuilding returns a legacy document with n zones, each with one
// floor surface of four vertices, all sharing one construction.
func generateBuilding(n int) []byte {
	var buf bytes.Buffer
	buf.Grow(n * 256)
	buf.WriteString("Version, 23.1;\nMaterial, Concrete, MediumRough, 0.2, 1.95, 2240, 900;\nConstruction, Slab, Concrete;\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&buf, "Zone,\n  Z%d,  !- Name\n  %d, 0, 0, 0, 1, 2.7, Autocalculate;\n", i, i%360)
		fmt.Fprintf(&buf, "BuildingSurface:Detailed, Z%d_Floor, Floor, Slab, Z%d, Ground, NoSun,\n"+
			"  0, 0, 0,  %d.5, 0, 0,  %d.5, 10, 0,  0, 10, 0;\n", i, i, i%50+1, i%50+1)
	}
	return buf.Bytes()
}

func parse(b *testing.B, reg *schema.Registry, data []byte, opt legacy.ParseOpt) *idf.Document {
	b.Helper()
	doc, iss, err := legacy.Parse(context.Background(), data, reg, opt)
	if err != nil || len(iss) != 0 {
		b.Fatalf("Parse: %v %v", err, iss)
	}
	return doc
}

func BenchmarkLegacyParse(b *testing.B) {
	reg := testutil.Registry(b)
	for _, n := range []int{100, 5000} {
		data := generateBuilding(n)
		for _, c := range []struct {
			name string
			opt  legacy.ParseOpt
		}{
			{"reference/serial", legacy.ParseOpt{Workers: 1}},
			{"reference/parallel", legacy.ParseOpt{}},
			{"native/parallel", legacy.ParseOpt{Accelerated: true}},
			{"native/no-resolve", legacy.ParseOpt{Accelerated: true, SkipResolve: true}},
		} {
			b.Run(fmt.Sprintf("%s/zones=%d", c.name, n), func(b *testing.B) {
				b.ReportAllocs()
				b.SetBytes(int64(len(data)))
				for i := 0; i < b.N; i++ {
					parse(b, reg, data, c.opt)
				}
			})
		}
	}
}

func BenchmarkSerialize(b *testing.B) {
	reg := testutil.Registry(b)
	doc := parse(b, reg, generateBuilding(1000), legacy.ParseOpt{Accelerated: true})
	b.Run("legacy", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := legacy.Serialize(doc); err != nil {
				b.Fatal(err)
			}
		}
	})
	b.Run("epjson", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := epjson.Marshal(doc); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkEpJSONRead(b *testing.B) {
	reg := testutil.Registry(b)
	doc := parse(b, reg, generateBuilding(1000), legacy.ParseOpt{Accelerated: true})
	data, err := epjson.Marshal(doc)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, iss, err := epjson.Read(context.Background(), bytes.NewReader(data), reg); err != nil || len(iss) != 0 {
			b.Fatalf("Read: %v %v", err, iss)
		}
	}
}

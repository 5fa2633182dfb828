package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samuelduchesne/archetypal-core/internal/testutil"
)

func fixtures(t *testing.T) (schemaPath, idfPath string) {
	t.Helper()
	dir := t.TempDir()
	schemaPath = filepath.Join(dir, "schema.yaml")
	idfPath = filepath.Join(dir, "office.idf")
	if err := os.WriteFile(schemaPath, []byte(testutil.SchemaYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(idfPath, []byte(testutil.IDF), 0o600); err != nil {
		t.Fatal(err)
	}
	return schemaPath, idfPath
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestValidateCmd(t *testing.T) {
	t.Parallel()
	schemaPath, idfPath := fixtures(t)
	code, out, errOut := runCLI(t, "validate", "-schema", schemaPath, idfPath)
	if code != 0 {
		t.Fatalf("exit = %d, stdout=%s stderr=%s", code, out, errOut)
	}
	if !strings.Contains(out, "8 objects, ok") {
		t.Fatalf("stdout = %q", out)
	}

	bad := filepath.Join(filepath.Dir(idfPath), "bad.idf")
	if err := os.WriteFile(bad, []byte("Zone, Core;\nZoneList, All, Attic;"), 0o600); err != nil {
		t.Fatal(err)
	}
	code, out, _ = runCLI(t, "validate", "-schema", schemaPath, bad)
	if code != 1 || strings.Count(out, "dangling_reference") != 1 {
		t.Fatalf("exit = %d, stdout = %q", code, out)
	}
}

func TestConvertCmd(t *testing.T) {
	t.Parallel()
	schemaPath, idfPath := fixtures(t)
	outPath := filepath.Join(filepath.Dir(idfPath), "office.epJSON")
	if code, _, errOut := runCLI(t, "convert", "-schema", schemaPath, "-to", "epjson", "-o", outPath, idfPath); code != 0 {
		t.Fatalf("convert: exit = %d: %s", code, errOut)
	}
	code, out, errOut := runCLI(t, "convert", "-schema", schemaPath, "-to", "idf", outPath)
	if code != 0 {
		t.Fatalf("convert back: exit = %d: %s", code, errOut)
	}
	if !strings.Contains(out, "BuildingSurface:Detailed,") {
		t.Fatalf("stdout = %q", out)
	}
}

func TestStoreCmd(t *testing.T) {
	t.Parallel()
	schemaPath, idfPath := fixtures(t)
	db := filepath.Join(t.TempDir(), "docs.db")

	if code, _, errOut := runCLI(t, "store", "-schema", schemaPath, "-db", db, "save", "office", idfPath); code != 0 {
		t.Fatalf("save: exit = %d: %s", code, errOut)
	}
	code, out, _ := runCLI(t, "store", "-db", db, "list")
	if code != 0 || !strings.Contains(out, "office") {
		t.Fatalf("list: exit = %d, stdout = %q", code, out)
	}
	code, out, errOut := runCLI(t, "store", "-schema", schemaPath, "-db", db, "load", "office")
	if code != 0 || !strings.Contains(out, "Zone,") {
		t.Fatalf("load: exit = %d, stdout = %q, stderr = %q", code, out, errOut)
	}
	if code, _, _ := runCLI(t, "store", "-db", db, "delete", "office"); code != 0 {
		t.Fatalf("delete: exit = %d", code)
	}
	if code, _, _ := runCLI(t, "store", "-db", db, "delete", "office"); code != 1 {
		t.Fatalf("second delete: exit = %d, want 1", code)
	}
}

func TestUsage(t *testing.T) {
	t.Parallel()
	if code, _, errOut := runCLI(t, "frobnicate"); code != 2 || !strings.Contains(errOut, "Usage") {
		t.Fatalf("exit = %d, stderr = %q", code, errOut)
	}
}

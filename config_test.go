package archetypal_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	archetypal "github.com/samuelduchesne/archetypal-core"
)

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("ARCHETYPAL_SCHEMA", "/opt/eplus/Energy+.schema.epJSON")
	p := writeTemp(t, "archetypal.yaml", `
schema:
  path: ${ARCHETYPAL_SCHEMA}
  format: epjson
  units:
    - {unit: "Btu/s", family: power, factor: 1055.05585262}
parse:
  workers: 2
  accelerated: true
`)
	cfg, err := archetypal.LoadConfig(p)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Schema.Path != "/opt/eplus/Energy+.schema.epJSON" {
		t.Errorf("Schema.Path = %q", cfg.Schema.Path)
	}
	if len(cfg.Schema.Units) != 1 || cfg.Schema.Units[0] != (archetypal.UnitConfig{Unit: "Btu/s", Family: "power", Factor: 1055.05585262}) {
		t.Errorf("Schema.Units = %+v", cfg.Schema.Units)
	}
	if cfg.Parse.Workers != 2 || !cfg.Parse.Accelerated {
		t.Errorf("Parse = %+v", cfg.Parse)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want defaults", cfg.Log)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	valid := func() archetypal.Config {
		cfg := archetypal.DefaultConfig()
		cfg.Schema.Path = "schema.yaml"
		return cfg
	}
	tests := []struct {
		name   string
		mutate func(*archetypal.Config)
		want   string
	}{
		{"valid", func(*archetypal.Config) {}, ""},
		{"missing schema path", func(c *archetypal.Config) { c.Schema.Path = "" }, "schema"},
		{"bad schema format", func(c *archetypal.Config) { c.Schema.Format = "xml" }, "schema"},
		{"unit without family", func(c *archetypal.Config) {
			c.Schema.Units = []archetypal.UnitConfig{{Unit: "Btu/s", Factor: 1055.05585262}}
		}, "schema"},
		{"unit with zero factor", func(c *archetypal.Config) {
			c.Schema.Units = []archetypal.UnitConfig{{Unit: "Btu/s", Family: "power"}}
		}, "schema"},
		{"unit extension", func(c *archetypal.Config) {
			c.Schema.Units = []archetypal.UnitConfig{{Unit: "Btu/s", Family: "power", Factor: 1055.05585262}}
		}, ""},
		{"negative workers", func(c *archetypal.Config) { c.Parse.Workers = -1 }, "parse"},
		{"negative max bytes", func(c *archetypal.Config) { c.Parse.MaxBytes = -5 }, "parse"},
		{"bad log level", func(c *archetypal.Config) { c.Log.Level = "trace" }, "log"},
		{"bad log format", func(c *archetypal.Config) { c.Log.Format = "xml" }, "log"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.HasPrefix(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want %q error", err, tt.want)
			}
		})
	}
}

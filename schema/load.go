package schema

import (
	"bytes"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"

	"github.com/samuelduchesne/archetypal-core/units"
)

// Format selects the schema source format.
type Format int

const (
	// FormatAuto sniffs the input: JSON carrying legacy_idd blocks or an
	// epJSON_schema_version is an epJSON schema, other JSON is the native
	// format, anything else is native YAML.
	FormatAuto Format = iota
	FormatJSON
	FormatYAML
	FormatEpJSON
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatEpJSON:
		return "epjson"
	default:
		return "auto"
	}
}

// ParseFormat maps a format name to its Format.
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "", "auto":
		return FormatAuto, true
	case "json":
		return FormatJSON, true
	case "yaml", "yml":
		return FormatYAML, true
	case "epjson":
		return FormatEpJSON, true
	}
	return FormatAuto, false
}

// LoadOpt configures Load. When several are passed the last one wins.
type LoadOpt struct {
	Format Format
	// Units replaces the standard vocabulary, for schemas that use units
	// outside the built-in set.
	Units *units.Vocabulary
}

// Load reads a schema and returns its validated, immutable registry.
func Load(r io.Reader, opts ...LoadOpt) (*Registry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("schema: read: %w", err)
	}
	return LoadBytes(data, opts...)
}

// LoadFile is Load on the contents of a file.
func LoadFile(path string, opts ...LoadOpt) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return LoadBytes(data, opts...)
}

// LoadBytes is Load on an in-memory schema.
func LoadBytes(data []byte, opts ...LoadOpt) (*Registry, error) {
	var o LoadOpt
	if len(opts) > 0 {
		o = opts[len(opts)-1]
	}
	format := o.Format
	if format == FormatAuto {
		format = detect(data)
	}

	var (
		version string
		defs    []typeDef
		err     error
	)
	switch format {
	case FormatEpJSON:
		version, defs, err = decodeEpJSON(data)
	case FormatJSON, FormatYAML:
		var doc *nativeDoc
		if format == FormatJSON {
			doc, err = decodeNativeJSON(data)
		} else {
			doc, err = decodeNativeYAML(data)
		}
		if err == nil {
			version = doc.Version
			defs, err = doc.typeDefs()
		}
	default:
		return nil, malformed("", "", "unsupported schema format %d", int(format))
	}
	if err != nil {
		return nil, err
	}
	return build(version, defs, o.Units)
}

func detect(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return FormatYAML
	}
	var probe struct {
		Version    *string                    `json:"epJSON_schema_version"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return FormatJSON
	}
	if probe.Version != nil {
		return FormatEpJSON
	}
	for _, raw := range probe.Properties {
		if bytes.Contains(raw, []byte(`"legacy_idd"`)) {
			return FormatEpJSON
		}
	}
	return FormatJSON
}

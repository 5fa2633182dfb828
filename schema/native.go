package schema

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// nativeDoc is the registry's own schema format, readable as JSON or YAML:
//
//	version: "23.1"
//	objects:
//	  Zone:
//	    named: true
//	    references: [ZoneNames]
//	    fields:
//	      - {name: name, kind: string, legacy_idd: 1, required: true}
//	      - {name: x_origin, kind: real, units: m, legacy_idd: 2}
type nativeDoc struct {
	Version string                `json:"version" yaml:"version"`
	Objects map[string]nativeType `json:"objects" yaml:"objects"`
}

type nativeType struct {
	Memo       string        `json:"memo" yaml:"memo"`
	Named      bool          `json:"named" yaml:"named"`
	Unique     bool          `json:"unique" yaml:"unique"`
	MinFields  int           `json:"min_fields" yaml:"min_fields"`
	MaxFields  int           `json:"max_fields" yaml:"max_fields"`
	References []string      `json:"references" yaml:"references"`
	Fields     []nativeField `json:"fields" yaml:"fields"`
}

type nativeField struct {
	Name             string        `json:"name" yaml:"name"`
	Kind             string        `json:"kind" yaml:"kind"`
	Units            string        `json:"units" yaml:"units"`
	IPUnits          string        `json:"ip_units" yaml:"ip_units"`
	Minimum          *float64      `json:"minimum" yaml:"minimum"`
	Maximum          *float64      `json:"maximum" yaml:"maximum"`
	ExclusiveMinimum bool          `json:"exclusive_minimum" yaml:"exclusive_minimum"`
	ExclusiveMaximum bool          `json:"exclusive_maximum" yaml:"exclusive_maximum"`
	Enum             []any         `json:"enum" yaml:"enum"`
	Keywords         []string      `json:"keywords" yaml:"keywords"`
	Default          any           `json:"default" yaml:"default"`
	Required         bool          `json:"required" yaml:"required"`
	LegacyIDD        int           `json:"legacy_idd" yaml:"legacy_idd"`
	ObjectList       []string      `json:"object_list" yaml:"object_list"`
	Note             string        `json:"note" yaml:"note"`
	Items            []nativeField `json:"items" yaml:"items"`
}

func decodeNativeJSON(data []byte) (*nativeDoc, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc nativeDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, &SchemaError{Kind: MalformedSchema, Msg: "invalid JSON schema document", Err: err}
	}
	return &doc, nil
}

func decodeNativeYAML(data []byte) (*nativeDoc, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc nativeDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, &SchemaError{Kind: MalformedSchema, Msg: "invalid YAML schema document", Err: err}
	}
	return &doc, nil
}

// typeDefs converts the decoded document into build input. Types are
// visited in sorted order so errors are deterministic.
func (d *nativeDoc) typeDefs() ([]typeDef, error) {
	if len(d.Objects) == 0 {
		return nil, malformed("", "", "schema declares no objects")
	}
	names := make([]string, 0, len(d.Objects))
	for name := range d.Objects {
		names = append(names, name)
	}
	slices.Sort(names)

	defs := make([]typeDef, 0, len(names))
	for _, name := range names {
		nt := d.Objects[name]
		td := typeDef{
			Name:       name,
			Memo:       nt.Memo,
			Named:      nt.Named,
			Unique:     nt.Unique,
			MinFields:  nt.MinFields,
			MaxFields:  nt.MaxFields,
			References: nt.References,
		}
		for _, nf := range nt.Fields {
			if nf.Kind == "list" {
				if td.Group != nil {
					return nil, malformed(name, nf.Name, "only one list field is allowed")
				}
				g := &groupDef{Name: nf.Name}
				for _, item := range nf.Items {
					g.Fields = append(g.Fields, item.fieldDef())
				}
				td.Group = g
				continue
			}
			if len(nf.Items) > 0 {
				return nil, malformed(name, nf.Name, "items are only allowed on list fields")
			}
			td.Fields = append(td.Fields, nf.fieldDef())
		}
		defs = append(defs, td)
	}
	return defs, nil
}

func (nf nativeField) fieldDef() fieldDef {
	fd := fieldDef{
		Name:         nf.Name,
		Kind:         nf.Kind,
		Units:        nf.Units,
		IPUnits:      nf.IPUnits,
		Min:          nf.Minimum,
		Max:          nf.Maximum,
		MinExclusive: nf.ExclusiveMinimum,
		MaxExclusive: nf.ExclusiveMaximum,
		Keywords:     nf.Keywords,
		Required:     nf.Required,
		LegacyIndex:  nf.LegacyIDD,
		ObjectList:   nf.ObjectList,
		Note:         nf.Note,
	}
	for _, e := range nf.Enum {
		if s := scalarString(e); s != "" {
			fd.Enum = append(fd.Enum, s)
		}
	}
	if nf.Default != nil {
		fd.Default = scalarString(nf.Default)
	}
	return fd
}

// scalarString renders a decoded JSON/YAML scalar the way it would appear
// as a legacy token.
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	default:
		return fmt.Sprint(t)
	}
}

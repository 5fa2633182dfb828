package schema

import (
	"bytes"
	"fmt"
	"slices"

	json "github.com/goccy/go-json"
)

// EnergyPlus distributes its IDD as a JSON Schema ("Energy+.schema.epJSON").
// Every object type is a property of the root whose patternProperties hold
// the per-object field schemas, and whose legacy_idd block records the
// positional field order of the flat-text format.
type epSchema struct {
	Version    string            `json:"epJSON_schema_version"`
	Properties map[string]epType `json:"properties"`
}

type epType struct {
	PatternProperties map[string]epObject `json:"patternProperties"`
	Name              *epName             `json:"name"`
	LegacyIDD         *epLegacy           `json:"legacy_idd"`
	MinFields         float64             `json:"min_fields"`
	MaxFields         float64             `json:"max_fields"`
	MaxProperties     *float64            `json:"maxProperties"`
	Memo              string              `json:"memo"`
}

type epName struct {
	IsRequired bool     `json:"is_required"`
	Reference  []string `json:"reference"`
	Note       string   `json:"note"`
}

type epLegacy struct {
	Fields      []string `json:"fields"`
	Extensibles []string `json:"extensibles"`
	Extension   string   `json:"extension"`
}

type epObject struct {
	Properties map[string]epField `json:"properties"`
	Required   []string           `json:"required"`
}

type epField struct {
	Type             string    `json:"type"`
	Units            string    `json:"units"`
	IPUnits          string    `json:"ip-units"`
	Minimum          *float64  `json:"minimum"`
	Maximum          *float64  `json:"maximum"`
	ExclusiveMinimum any       `json:"exclusiveMinimum"`
	ExclusiveMaximum any       `json:"exclusiveMaximum"`
	Enum             []any     `json:"enum"`
	AnyOf            []epField `json:"anyOf"`
	Default          any       `json:"default"`
	Note             string    `json:"note"`
	DataType         string    `json:"data_type"`
	ObjectList       []string  `json:"object_list"`
	Items            *epObject `json:"items"`
}

func decodeEpJSON(data []byte) (string, []typeDef, error) {
	var s epSchema
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return "", nil, &SchemaError{Kind: MalformedSchema, Msg: "invalid epJSON schema", Err: err}
	}
	if len(s.Properties) == 0 {
		return "", nil, malformed("", "", "epJSON schema has no properties")
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	slices.Sort(names)

	defs := make([]typeDef, 0, len(names))
	for _, name := range names {
		td, err := s.Properties[name].typeDef(name)
		if err != nil {
			return "", nil, err
		}
		defs = append(defs, td)
	}
	return s.Version, defs, nil
}

func (t epType) typeDef(name string) (typeDef, error) {
	if t.LegacyIDD == nil || len(t.LegacyIDD.Fields) == 0 && len(t.LegacyIDD.Extensibles) == 0 {
		return typeDef{}, malformed(name, "", "missing legacy_idd field order")
	}
	var body epObject
	for _, o := range t.PatternProperties {
		body = o
		break
	}
	td := typeDef{
		Name:      name,
		Memo:      t.Memo,
		MinFields: int(t.MinFields),
		MaxFields: int(t.MaxFields),
		Unique:    t.MaxProperties != nil && *t.MaxProperties == 1,
	}
	seen := make(map[string]int, len(t.LegacyIDD.Fields))
	for i, fname := range t.LegacyIDD.Fields {
		if first, dup := seen[fname]; dup {
			return typeDef{}, &SchemaError{
				Kind:  DuplicateLegacyIndex,
				Type:  name,
				Field: fname,
				Msg:   fmt.Sprintf("legacy_idd lists %q at positions %d and %d", fname, first, i+1),
			}
		}
		seen[fname] = i + 1
		if i == 0 && fname == "name" {
			td.Named = true
			fd := fieldDef{Name: "name", Kind: "string", LegacyIndex: 1}
			if t.Name != nil {
				fd.Required = t.Name.IsRequired
				fd.Note = t.Name.Note
				td.References = t.Name.Reference
			}
			td.Fields = append(td.Fields, fd)
			continue
		}
		f, ok := body.Properties[fname]
		if !ok {
			return typeDef{}, malformed(name, fname, "legacy_idd field has no schema")
		}
		fd := f.fieldDef(fname, i+1)
		fd.Required = slices.Contains(body.Required, fname)
		td.Fields = append(td.Fields, fd)
	}

	if len(t.LegacyIDD.Extensibles) > 0 {
		ext, ok := body.Properties[t.LegacyIDD.Extension]
		if !ok || ext.Items == nil {
			return typeDef{}, malformed(name, t.LegacyIDD.Extension, "extension array has no item schema")
		}
		g := &groupDef{Name: t.LegacyIDD.Extension}
		for i, fname := range t.LegacyIDD.Extensibles {
			f, ok := ext.Items.Properties[fname]
			if !ok {
				return typeDef{}, malformed(name, fname, "extensible field has no schema")
			}
			fd := f.fieldDef(fname, i+1)
			fd.Required = slices.Contains(ext.Items.Required, fname)
			g.Fields = append(g.Fields, fd)
		}
		td.Group = g
	}
	return td, nil
}

func (f epField) fieldDef(name string, idx int) fieldDef {
	fd := fieldDef{
		Name:        name,
		Units:       f.Units,
		IPUnits:     f.IPUnits,
		Note:        f.Note,
		LegacyIndex: idx,
		Default:     scalarString(f.Default),
	}
	switch {
	case f.DataType == "object_list" || len(f.ObjectList) > 0:
		fd.Kind = "reference"
		fd.ObjectList = f.ObjectList
	case len(f.AnyOf) > 0:
		fd.Kind = "string"
		for _, branch := range f.AnyOf {
			switch branch.Type {
			case "number", "integer":
				fd.Kind = numericKind(branch.Type)
				branch.bounds(&fd)
				if fd.Units == "" {
					fd.Units = branch.Units
				}
			default:
				fd.Keywords = append(fd.Keywords, enumValues(branch.Enum)...)
			}
		}
		if fd.Kind == "string" && len(fd.Keywords) > 0 {
			fd.Kind, fd.Enum, fd.Keywords = "enum", fd.Keywords, nil
		}
	case f.Type == "number" || f.Type == "integer":
		fd.Kind = numericKind(f.Type)
		f.bounds(&fd)
	case len(enumValues(f.Enum)) > 0:
		fd.Kind = "enum"
		fd.Enum = enumValues(f.Enum)
	default:
		fd.Kind = "string"
	}
	return fd
}

func (f epField) bounds(fd *fieldDef) {
	fd.Min, fd.Max = f.Minimum, f.Maximum
	switch v := f.ExclusiveMinimum.(type) {
	case float64:
		fd.Min, fd.MinExclusive = &v, true
	case bool:
		fd.MinExclusive = v && fd.Min != nil
	}
	switch v := f.ExclusiveMaximum.(type) {
	case float64:
		fd.Max, fd.MaxExclusive = &v, true
	case bool:
		fd.MaxExclusive = v && fd.Max != nil
	}
}

func numericKind(t string) string {
	if t == "integer" {
		return "integer"
	}
	return "real"
}

// enumValues drops the blank entry EnergyPlus uses to mark optional enums.
func enumValues(vs []any) []string {
	var out []string
	for _, v := range vs {
		if s := scalarString(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

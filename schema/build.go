package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samuelduchesne/archetypal-core/units"
)

// typeDef, groupDef and fieldDef are the source-neutral form every schema
// format decodes into before build validates it.
type typeDef struct {
	Name       string
	Memo       string
	Named      bool
	Unique     bool
	MinFields  int
	MaxFields  int
	References []string
	Fields     []fieldDef
	Group      *groupDef
}

type groupDef struct {
	Name   string
	Fields []fieldDef
}

type fieldDef struct {
	Name         string
	Kind         string
	Units        string
	IPUnits      string
	Min, Max     *float64
	MinExclusive bool
	MaxExclusive bool
	Enum         []string
	Keywords     []string
	Default      string
	Required     bool
	LegacyIndex  int
	ObjectList   []string
	Note         string
}

func build(version string, defs []typeDef, vocab *units.Vocabulary) (*Registry, error) {
	if vocab == nil {
		vocab = units.Standard()
	}
	r := &Registry{
		version: version,
		types:   make(map[string]*ObjectTypeSpec, len(defs)),
		classes: make(map[string][]string),
		vocab:   vocab,
	}
	// reference targets are expanded once every type and class is known
	var refs []pendingRef

	for _, d := range defs {
		if strings.TrimSpace(d.Name) == "" {
			return nil, malformed("", "", "object type without a name")
		}
		if _, dup := r.types[d.Name]; dup {
			return nil, malformed(d.Name, "", "object type declared twice")
		}
		t := &ObjectTypeSpec{
			Name:       d.Name,
			Memo:       d.Memo,
			MinFields:  d.MinFields,
			MaxFields:  d.MaxFields,
			Named:      d.Named,
			Unique:     d.Unique,
			References: slices.Clone(d.References),
		}
		fields, lists, err := buildFields(d.Name, d.Fields, vocab)
		if err != nil {
			return nil, err
		}
		t.Fields = fields
		t.index = indexFields(fields)
		for i, l := range lists {
			refs = append(refs, pendingRef{field: fields[i], list: l})
		}
		if d.Group != nil {
			if len(d.Group.Fields) == 0 {
				return nil, malformed(d.Name, d.Group.Name, "extensible group has no fields")
			}
			gf, glists, err := buildFields(d.Name, d.Group.Fields, vocab)
			if err != nil {
				return nil, err
			}
			for _, f := range gf {
				if _, clash := t.index[f.Name]; clash {
					return nil, malformed(d.Name, f.Name, "extensible field shadows a fixed field")
				}
			}
			t.Extensible = &ExtensibleGroup{Name: d.Group.Name, Fields: gf, index: indexFields(gf)}
			for i, l := range glists {
				refs = append(refs, pendingRef{field: gf[i], list: l})
			}
		}
		if t.Named {
			if len(fields) == 0 || fields[0].Kind != KindString {
				return nil, malformed(d.Name, "", "named type needs a string field in legacy slot 1")
			}
		}
		if t.MinFields < 0 || t.MaxFields < 0 {
			return nil, malformed(d.Name, "", "negative field count")
		}
		if t.MaxFields > 0 && t.MaxFields < t.MinFields {
			return nil, malformed(d.Name, "", "max_fields %d below min_fields %d", t.MaxFields, t.MinFields)
		}
		r.types[d.Name] = t
		r.order = append(r.order, d.Name)
		for _, c := range t.References {
			r.classes[c] = append(r.classes[c], d.Name)
		}
	}
	slices.Sort(r.order)
	for c := range r.classes {
		slices.Sort(r.classes[c])
	}

	for _, ref := range refs {
		if len(ref.list) == 0 {
			continue
		}
		var targets []string
		for _, entry := range ref.list {
			if ts, ok := r.classes[entry]; ok {
				targets = append(targets, ts...)
				continue
			}
			if _, ok := r.types[entry]; ok {
				targets = append(targets, entry)
			}
		}
		slices.Sort(targets)
		targets = slices.Compact(targets)
		if len(targets) == 0 {
			targets = []string{noTarget(ref.list)}
		}
		ref.field.RefTypes = targets
	}
	return r, nil
}

type pendingRef struct {
	field *FieldSpec
	list  []string
}

// noTarget names a placeholder type that can never exist in a document, so a
// reference constrained to classes no loaded type owns always dangles.
func noTarget(list []string) string { return "<" + strings.Join(list, "|") + ">" }

// buildFields validates one ordered field list and returns it sorted by
// legacy index, together with the raw object lists of reference fields.
func buildFields(typ string, defs []fieldDef, vocab *units.Vocabulary) ([]*FieldSpec, map[int][]string, error) {
	fields := make([]*FieldSpec, 0, len(defs))
	names := make(map[string]struct{}, len(defs))
	slots := make(map[int]string, len(defs))
	for i, d := range defs {
		if d.Name == "" {
			return nil, nil, malformed(typ, "", "field %d has no name", i+1)
		}
		if _, dup := names[d.Name]; dup {
			return nil, nil, malformed(typ, d.Name, "field declared twice")
		}
		names[d.Name] = struct{}{}
		k, ok := ParseKind(d.Kind)
		if !ok || k == KindList {
			return nil, nil, malformed(typ, d.Name, "invalid kind %q", d.Kind)
		}
		idx := d.LegacyIndex
		if idx == 0 {
			idx = i + 1
		}
		if idx < 0 {
			return nil, nil, malformed(typ, d.Name, "negative legacy index %d", idx)
		}
		if other, dup := slots[idx]; dup {
			return nil, nil, &SchemaError{
				Kind:  DuplicateLegacyIndex,
				Type:  typ,
				Field: d.Name,
				Msg:   fmt.Sprintf("legacy index %d already used by %q", idx, other),
			}
		}
		slots[idx] = d.Name
		for _, u := range []string{d.Units, d.IPUnits} {
			if u != "" && !vocab.Has(units.Unit(u)) {
				return nil, nil, &SchemaError{Kind: UnknownUnit, Type: typ, Field: d.Name, Msg: fmt.Sprintf("unit %q is not in the vocabulary", u)}
			}
		}
		if k == KindEnum && len(d.Enum) == 0 {
			return nil, nil, malformed(typ, d.Name, "enum field without values")
		}
		if d.Min != nil && d.Max != nil && *d.Min > *d.Max {
			return nil, nil, malformed(typ, d.Name, "minimum %g above maximum %g", *d.Min, *d.Max)
		}
		fields = append(fields, &FieldSpec{
			Name:         d.Name,
			Kind:         k,
			Unit:         units.Unit(d.Units),
			IPUnit:       units.Unit(d.IPUnits),
			Min:          d.Min,
			Max:          d.Max,
			MinExclusive: d.MinExclusive,
			MaxExclusive: d.MaxExclusive,
			Enum:         slices.Clone(d.Enum),
			Keywords:     slices.Clone(d.Keywords),
			Default:      d.Default,
			Required:     d.Required,
			LegacyIndex:  idx,
			Reference:    k == KindReference,
			Note:         d.Note,
		})
	}
	slices.SortFunc(fields, func(a, b *FieldSpec) int { return a.LegacyIndex - b.LegacyIndex })
	for i, f := range fields {
		if f.LegacyIndex != i+1 {
			return nil, nil, malformed(typ, f.Name, "legacy indices must be contiguous from 1, found %d at position %d", f.LegacyIndex, i+1)
		}
	}
	lists := make(map[int][]string)
	for i, f := range fields {
		if !f.Reference {
			continue
		}
		for _, d := range defs {
			if d.Name == f.Name {
				lists[i] = d.ObjectList
			}
		}
	}
	return fields, lists, nil
}

func indexFields(fields []*FieldSpec) map[string]*FieldSpec {
	m := make(map[string]*FieldSpec, len(fields))
	for _, f := range fields {
		m[f.Name] = f
	}
	return m
}

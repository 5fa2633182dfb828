package archetypal

import (
	"github.com/samuelduchesne/archetypal-core/diag"
	"github.com/samuelduchesne/archetypal-core/idf"
	"github.com/samuelduchesne/archetypal-core/resolve"
	"github.com/samuelduchesne/archetypal-core/value"
)

// Validate checks the whole document without changing it: every value
// against its field, unique types, and every reference as Resolve would see
// it.
func Validate(doc *idf.Document) diag.Issues {
	var iss diag.Issues
	for _, typ := range doc.Types() {
		objs := doc.Objects(typ)
		if len(objs) == 0 {
			continue
		}
		if objs[0].Spec().Unique && len(objs) > 1 {
			for _, o := range objs[1:] {
				iss = append(iss, diag.At(doc.Path(o), diag.CodeDuplicateUnique, map[string]any{"type": typ}))
			}
		}
		for _, o := range objs {
			iss = append(iss, checkObject(doc, o)...)
		}
	}
	return append(iss, resolve.Check(doc)...)
}

func checkObject(doc *idf.Document, o *idf.Object) diag.Issues {
	var iss diag.Issues
	check := func(s idf.Slot) {
		if err := value.Check(o.At(s), o.SpecAt(s)); err != nil {
			it := diag.FromError(err)[0]
			it.Path = doc.SlotPath(o, s)
			iss = append(iss, it)
		}
	}
	for i := range o.Values {
		check(idf.Slot{Group: -1, Field: i})
	}
	for g, row := range o.Groups {
		for i := range row {
			check(idf.Slot{Group: g, Field: i})
		}
	}
	return iss
}

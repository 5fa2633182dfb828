package idf

import "github.com/samuelduchesne/archetypal-core/value"

// Equal reports whether two documents hold the same object graph: the same
// types in the same order, and per type the same objects with equal field
// values. Resolved references are compared by target type and name, not by
// id, so documents built independently compare equal.
func Equal(a, b *Document) bool {
	at, bt := a.Types(), b.Types()
	if len(at) != len(bt) {
		return false
	}
	for i, t := range at {
		if bt[i] != t {
			return false
		}
		ao, bo := a.Objects(t), b.Objects(t)
		if len(ao) != len(bo) {
			return false
		}
		for j := range ao {
			if !objectEqual(a, b, ao[j], bo[j]) {
				return false
			}
		}
	}
	return true
}

func objectEqual(da, db *Document, a, b *Object) bool {
	if a.Type != b.Type || a.Name != b.Name || len(a.Groups) != len(b.Groups) {
		return false
	}
	if !rowEqual(da, db, a.Values, b.Values) {
		return false
	}
	for i := range a.Groups {
		if !rowEqual(da, db, a.Groups[i], b.Groups[i]) {
			return false
		}
	}
	return true
}

func rowEqual(da, db *Document, a, b []value.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valueEqual(da, db, a[i], b[i]) {
			return false
		}
	}
	return true
}

func valueEqual(da, db *Document, a, b value.Value) bool {
	if a.Tag != value.Resolved || b.Tag != value.Resolved {
		return a == b
	}
	ta, oka := da.Object(ID(a.Ref))
	tb, okb := db.Object(ID(b.Ref))
	return oka && okb && ta.Type == tb.Type && ta.Name == tb.Name
}

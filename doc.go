// Package archetypal is a schema-driven object model for building energy
// input files.
//
// A schema (the native JSON/YAML format or an epJSON schema) becomes an
// immutable registry of object types. Documents in the flat legacy text
// format or in epJSON are parsed against it into a typed object graph whose
// name references are resolved into links, edited through validated
// setters, and written back out.
//
// Design policy:
//   - The root package is a thin facade; each concern lives in its own
//     package (schema, value, idf, resolve, legacy, epjson, store).
//   - Problems in the input are returned as diag.Issues next to a
//     best-effort result. A non-nil error means the operation could not run.
//
// Typical usage:
//
//	reg, err := archetypal.LoadSchemaFile("Energy+.schema.epJSON")
//	doc, issues, err := archetypal.ParseDocument(ctx, data, reg)
//	zone, ok := archetypal.GetObject(doc, "Zone", "Core")
//	err = archetypal.SetFieldValue(doc, zone.ID, "multiplier", value.NewInteger(2, ""))
//	out, err := archetypal.SerializeDocument(doc)
package archetypal

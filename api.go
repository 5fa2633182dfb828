package archetypal

import (
	"bytes"
	"context"
	"io"

	"github.com/samuelduchesne/archetypal-core/diag"
	"github.com/samuelduchesne/archetypal-core/epjson"
	"github.com/samuelduchesne/archetypal-core/idf"
	"github.com/samuelduchesne/archetypal-core/legacy"
	"github.com/samuelduchesne/archetypal-core/resolve"
	"github.com/samuelduchesne/archetypal-core/schema"
	"github.com/samuelduchesne/archetypal-core/value"
)

// LoadSchema reads a schema from r.
func LoadSchema(r io.Reader, opts ...schema.LoadOpt) (*schema.Registry, error) {
	return schema.Load(r, opts...)
}

// LoadSchemaFile reads a schema file. The format is detected from the
// content unless an option names it.
func LoadSchemaFile(path string, opts ...schema.LoadOpt) (*schema.Registry, error) {
	return schema.LoadFile(path, opts...)
}

// ParseDocument reads a legacy or epJSON document against reg. It returns
// whatever loaded together with the issues found; the error is reserved for
// inputs that could not be read at all.
func ParseDocument(ctx context.Context, data []byte, reg *schema.Registry, opts ...ParseOpt) (*idf.Document, diag.Issues, error) {
	var opt ParseOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	format := opt.Format
	if format == FormatAuto {
		format = sniff(data)
	}
	if format == FormatEpJSON {
		return epjson.Read(ctx, bytes.NewReader(data), reg, epjson.ReadOpt{
			MaxBytes:    opt.MaxBytes,
			SkipResolve: opt.SkipResolve,
		})
	}
	return legacy.Parse(ctx, data, reg, legacy.ParseOpt{
		Accelerated: opt.Accelerated,
		Workers:     opt.Workers,
		MaxBytes:    opt.MaxBytes,
		MaxFields:   opt.MaxFields,
		SkipResolve: opt.SkipResolve,
	})
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func sniff(data []byte) DocumentFormat {
	if t := bytes.TrimLeft(bytes.TrimPrefix(data, utf8BOM), " \t\r\n"); len(t) > 0 && t[0] == '{' {
		return FormatEpJSON
	}
	return FormatIDF
}

// SerializeDocument renders doc, in the legacy format unless an option
// selects epJSON.
func SerializeDocument(doc *idf.Document, opts ...SerializeOpt) ([]byte, error) {
	var opt SerializeOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	if opt.Format == FormatEpJSON {
		return epjson.Marshal(doc)
	}
	return legacy.Serialize(doc)
}

// GetObject returns the object of the given type and name.
func GetObject(doc *idf.Document, typ, name string) (*idf.Object, bool) {
	return doc.Get(typ, name)
}

// SetFieldValue validates and stores v, then resolves the object's
// references again. A reference that does not resolve is left for Validate
// to report.
func SetFieldValue(doc *idf.Document, id idf.ID, field string, v value.Value) error {
	if err := doc.SetFieldValue(id, field, v); err != nil {
		return err
	}
	resolve.Object(doc, id)
	return nil
}

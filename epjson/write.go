package epjson

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	j "github.com/goccy/go-json"

	"github.com/samuelduchesne/archetypal-core/idf"
	"github.com/samuelduchesne/archetypal-core/schema"
	"github.com/samuelduchesne/archetypal-core/value"
)

// Write renders doc as indented JSON. Types appear in first-insertion
// order and objects in insertion order; blank fields are omitted. Unnamed
// objects are keyed "<Type> <n>".
func Write(w io.Writer, doc *idf.Document) error {
	b, err := Marshal(doc)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Marshal is Write into a byte slice.
func Marshal(doc *idf.Document) ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('{')
	for ti, typ := range doc.Types() {
		if ti > 0 {
			compact.WriteByte(',')
		}
		writeKey(&compact, typ)
		compact.WriteByte('{')
		for n, o := range doc.Objects(typ) {
			if n > 0 {
				compact.WriteByte(',')
			}
			writeKey(&compact, objectKey(o, n+1))
			writeBody(&compact, o)
		}
		compact.WriteByte('}')
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := j.Indent(&out, compact.Bytes(), "", "    "); err != nil {
		return nil, fmt.Errorf("epjson: write: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeBody(buf *bytes.Buffer, o *idf.Object) {
	spec := o.Spec()
	buf.WriteByte('{')
	first := true
	for i, v := range o.Values {
		if v.IsEmpty() || (spec.Named && i == 0) {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		writeKey(buf, spec.Fields[i].Name)
		writeValue(buf, v)
	}
	if len(o.Groups) > 0 {
		if !first {
			buf.WriteByte(',')
		}
		writeKey(buf, spec.Extensible.Name)
		buf.WriteByte('[')
		for r, row := range o.Groups {
			if r > 0 {
				buf.WriteByte(',')
			}
			writeRow(buf, spec.Extensible, row)
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
}

func writeRow(buf *bytes.Buffer, g *schema.ExtensibleGroup, row []value.Value) {
	buf.WriteByte('{')
	first := true
	for i, v := range row {
		if v.IsEmpty() {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		writeKey(buf, g.Fields[i].Name)
		writeValue(buf, v)
	}
	buf.WriteByte('}')
}

func writeKey(buf *bytes.Buffer, k string) {
	writeString(buf, k)
	buf.WriteByte(':')
}

func writeValue(buf *bytes.Buffer, v value.Value) {
	switch v.Tag {
	case value.Integer:
		buf.WriteString(strconv.FormatInt(v.Int, 10))
	case value.Real:
		buf.WriteString(strconv.FormatFloat(v.Real, 'g', -1, 64))
	default:
		writeString(buf, v.Str)
	}
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := j.Marshal(s) // a string always marshals
	buf.Write(b)
}

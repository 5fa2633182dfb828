package legacy

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samuelduchesne/archetypal-core/idf"
	"github.com/samuelduchesne/archetypal-core/schema"
	"github.com/samuelduchesne/archetypal-core/value"
)

// ErrUnencodable is returned when a token contains a legacy delimiter and
// would not read back as one field.
var ErrUnencodable = errors.New("legacy: token contains a delimiter")

// commentColumn is where the field-name comment starts.
const commentColumn = 30

// Serialize renders doc in the legacy format.
func Serialize(doc *idf.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders doc to w, one object per paragraph in insertion order and
// one field per line followed by a "!-" comment naming the field. Trailing
// blank fields are dropped down to the type's MinFields.
func Write(w io.Writer, doc *idf.Document) error {
	bw := bufio.NewWriter(w)
	for i, o := range doc.All() {
		if i > 0 {
			bw.WriteByte('\n')
		}
		if err := writeObject(bw, o); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeObject(w *bufio.Writer, o *idf.Object) error {
	spec := o.Spec()
	vals := o.Tokens()
	n := len(vals)
	for n > 0 && vals[n-1].IsEmpty() {
		n--
	}
	n = max(n, spec.MinFields)
	if n == 0 {
		_, err := fmt.Fprintf(w, "%s;\n", o.Type)
		return err
	}
	fmt.Fprintf(w, "%s,\n", o.Type)
	for i := 0; i < n; i++ {
		tok := ""
		if i < len(vals) {
			tok = value.Format(vals[i])
		}
		if strings.ContainsAny(tok, ",;!\n") {
			return fmt.Errorf("%w: %s field %d: %q", ErrUnencodable, o.Type, i+1, tok)
		}
		sep := ","
		if i == n-1 {
			sep = ";"
		}
		line := "    " + tok + sep
		if pad := commentColumn - len(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		} else {
			line += " "
		}
		w.WriteString(line)
		w.WriteString("!- ")
		w.WriteString(fieldLabel(spec, i))
		w.WriteByte('\n')
	}
	return nil
}

// fieldLabel names the i-th legacy slot, numbering extensible rows from 1.
func fieldLabel(spec *schema.ObjectTypeSpec, i int) string {
	var fs *schema.FieldSpec
	label := ""
	switch fixed := len(spec.Fields); {
	case i < fixed:
		fs = spec.Fields[i]
		label = fs.Name
	case spec.Extensible != nil:
		k := i - fixed
		fs = spec.Extensible.Fields[k%spec.Stride()]
		label = fs.Name + " " + strconv.Itoa(k/spec.Stride()+1)
	default:
		return "field " + strconv.Itoa(i+1)
	}
	if fs.Unit != "" {
		label += " {" + string(fs.Unit) + "}"
	}
	return label
}

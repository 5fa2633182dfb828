package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes. Schema codes are fatal to a session; every other code is
// reported alongside a best-effort result.
const (
	// Schema registry.
	CodeMalformedSchema      = "malformed_schema"
	CodeDuplicateLegacyIndex = "duplicate_legacy_index"
	CodeUnknownUnit          = "unknown_unit"

	// Value coercion.
	CodeInvalidNumber    = "invalid_number"
	CodeOutOfRange       = "out_of_range"
	CodeUnknownEnumValue = "unknown_enum_value"
	CodeRequired         = "required"
	CodeTooManyFields    = "too_many_fields"
	CodeKindMismatch     = "kind_mismatch"

	// Unit conversion.
	CodeIncompatibleUnitFamily = "incompatible_unit_family"

	// Cross references.
	CodeDanglingReference  = "dangling_reference"
	CodeAmbiguousReference = "ambiguous_reference"

	// Document structure.
	CodeUnknownObjectType = "unknown_object_type"
	CodeUnknownField      = "unknown_field"
	CodeDuplicateName     = "duplicate_name"
	CodeInvalidName       = "invalid_name"
	CodeDuplicateUnique   = "duplicate_unique_object"
	CodeNotFound          = "not_found"
	CodeParseError        = "parse_error"
	CodeTruncated         = "truncated"
)

// Issue is a single diagnostic entry.
type Issue struct {
	Path    string // Location inside the document, e.g. /Zone/Attic/x_origin or /BuildingSurface:Detailed/3.
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional remediation hint.
	Cause   error  // Optional underlying error.
	Line    int    // 1-based source line of the statement (0 when unknown).
	Offset  int64  // Byte offset in the input (-1 when unknown).
	// Params carries structured parameters (e.g. {"type":"Zone", "position":3, "token":"abc"}).
	Params map[string]any
}

// String renders the issue on one line.
func (it Issue) String() string {
	b := &strings.Builder{}
	b.WriteString(it.Code)
	if it.Path != "" {
		fmt.Fprintf(b, " at %s", it.Path)
	}
	if it.Line > 0 {
		fmt.Fprintf(b, " (line %d)", it.Line)
	}
	if it.Message != "" {
		b.WriteString(": ")
		b.WriteString(it.Message)
	}
	return b.String()
}

// Issues is a collection of diagnostics that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(b, "%s at %s", iss[i].Code, iss[i].Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Err returns iss as an error, or nil when it is empty.
func (iss Issues) Err() error {
	if len(iss) == 0 {
		return nil
	}
	return iss
}

// WithCode returns the issues carrying the given code.
func (iss Issues) WithCode(code string) Issues {
	var out Issues
	for _, it := range iss {
		if it.Code == code {
			out = append(out, it)
		}
	}
	return out
}

// Has reports whether any issue carries the given code.
func (iss Issues) Has(code string) bool {
	for _, it := range iss {
		if it.Code == code {
			return true
		}
	}
	return false
}

// Issuer is implemented by typed errors that can describe themselves as an
// Issue.
type Issuer interface {
	Issue() Issue
}

// AsIssues extracts Issues from an error using errors.As internally. A typed
// error implementing Issuer is converted into a single-entry slice.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	var is Issuer
	if errors.As(err, &is) {
		return Issues{is.Issue()}, true
	}
	return nil, false
}

// FromError converts any error into Issues. Errors that carry no diagnostic
// shape become a single parse_error entry.
func FromError(err error) Issues {
	if err == nil {
		return nil
	}
	if iss, ok := AsIssues(err); ok {
		return iss
	}
	return Issues{{Code: CodeParseError, Message: err.Error(), Cause: err, Offset: -1}}
}

// At creates an Issue at the given path with the catalogue message for code.
func At(path, code string, params map[string]any) Issue {
	return Issue{Path: path, Code: code, Message: Message(code, params), Params: params, Offset: -1}
}

package diag

import (
	"fmt"
	"sync"
)

// Catalogue retrieves human messages for issue codes. params carries the
// structured parameters of the issue being described.
type Catalogue interface {
	Message(code string, params map[string]any) string
}

// defaultCatalogue is the built-in English catalogue.
type defaultCatalogue struct{}

func (defaultCatalogue) Message(code string, p map[string]any) string {
	switch code {
	case CodeMalformedSchema:
		return "schema is malformed"
	case CodeDuplicateLegacyIndex:
		return fmt.Sprintf("legacy index %v claimed twice", p["index"])
	case CodeUnknownUnit:
		return fmt.Sprintf("unit %q is not in the vocabulary", p["unit"])
	case CodeInvalidNumber:
		return fmt.Sprintf("%q is not a valid number", p["token"])
	case CodeOutOfRange:
		return fmt.Sprintf("value %v out of range", p["token"])
	case CodeUnknownEnumValue:
		return fmt.Sprintf("%q is not an allowed value", p["token"])
	case CodeRequired:
		return "required field is blank"
	case CodeTooManyFields:
		return fmt.Sprintf("%v fields given, at most %v allowed", p["count"], p["max"])
	case CodeKindMismatch:
		return fmt.Sprintf("value of kind %v cannot be stored in a %v field", p["got"], p["want"])
	case CodeIncompatibleUnitFamily:
		return fmt.Sprintf("cannot convert %v to %v", p["from"], p["to"])
	case CodeDanglingReference:
		return fmt.Sprintf("reference %q does not name any object", p["name"])
	case CodeAmbiguousReference:
		return fmt.Sprintf("reference %q matches objects of several types %v", p["name"], p["types"])
	case CodeUnknownObjectType:
		return fmt.Sprintf("unknown object type %q", p["type"])
	case CodeUnknownField:
		return fmt.Sprintf("unknown field %q", p["field"])
	case CodeDuplicateName:
		return fmt.Sprintf("duplicate %v name %q", p["type"], p["name"])
	case CodeInvalidName:
		return fmt.Sprintf("name %q has surrounding spaces or one of , ; ! or a line break", p["name"])
	case CodeDuplicateUnique:
		return fmt.Sprintf("only one %v object is allowed", p["type"])
	case CodeNotFound:
		return fmt.Sprintf("no object %v", p["id"])
	case CodeParseError:
		return "parse error"
	case CodeTruncated:
		return "statement is not terminated"
	}
	return code
}

var (
	catalogueMu sync.RWMutex
	catalogue   Catalogue = defaultCatalogue{}
)

// SetCatalogue replaces the message catalogue. nil restores the default.
func SetCatalogue(c Catalogue) {
	catalogueMu.Lock()
	defer catalogueMu.Unlock()
	if c == nil {
		catalogue = defaultCatalogue{}
		return
	}
	catalogue = c
}

// Message fetches the message for code from the current catalogue.
func Message(code string, params map[string]any) string {
	catalogueMu.RLock()
	c := catalogue
	catalogueMu.RUnlock()
	return c.Message(code, params)
}

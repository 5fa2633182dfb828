package i18n_test

import (
	"testing"

	"github.com/samuelduchesne/archetypal-core/diag"
	"github.com/samuelduchesne/archetypal-core/i18n"
)

func TestSetLanguage(t *testing.T) {
	params := map[string]any{"type": "Widget"}
	en := diag.Message(diag.CodeUnknownObjectType, params)

	i18n.SetLanguage("ja")
	t.Cleanup(func() { i18n.SetLanguage("en") })
	ja := diag.At("/Widget", diag.CodeUnknownObjectType, params).Message
	if ja == en || ja == diag.CodeUnknownObjectType {
		t.Fatalf("message = %q, want a Japanese rendering", ja)
	}

	i18n.SetLanguage("fr")
	if got := diag.Message(diag.CodeUnknownObjectType, params); got != en {
		t.Fatalf("message = %q, want English fallback %q", got, en)
	}
}

func TestCatalogue_CoversCodes(t *testing.T) {
	t.Parallel()
	cat := i18n.Catalogue("ja")
	codes := []string{
		diag.CodeMalformedSchema, diag.CodeDuplicateLegacyIndex, diag.CodeUnknownUnit,
		diag.CodeInvalidNumber, diag.CodeOutOfRange, diag.CodeUnknownEnumValue,
		diag.CodeRequired, diag.CodeTooManyFields, diag.CodeKindMismatch,
		diag.CodeIncompatibleUnitFamily, diag.CodeDanglingReference, diag.CodeAmbiguousReference,
		diag.CodeUnknownObjectType, diag.CodeUnknownField, diag.CodeDuplicateName,
		diag.CodeInvalidName, diag.CodeDuplicateUnique, diag.CodeNotFound, diag.CodeParseError, diag.CodeTruncated,
	}
	for _, c := range codes {
		if msg := cat.Message(c, map[string]any{}); msg == c {
			t.Errorf("code %s has no translation", c)
		}
	}
	if i18n.Catalogue("en") != nil {
		t.Error("English catalogue should be the diag default")
	}
}

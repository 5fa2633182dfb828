// Package i18n provides translated diagnostic messages. SetLanguage installs
// a catalogue into diag; messages are rendered when an issue is created, so
// the language must be chosen before parsing.
package i18n

import (
	"fmt"

	"github.com/samuelduchesne/archetypal-core/diag"
)

// japanese renders the diagnostic codes in Japanese.
type japanese struct{}

func (japanese) Message(code string, p map[string]any) string {
	switch code {
	case diag.CodeMalformedSchema:
		return "スキーマが不正です"
	case diag.CodeDuplicateLegacyIndex:
		return fmt.Sprintf("レガシー位置 %v が重複しています", p["index"])
	case diag.CodeUnknownUnit:
		return fmt.Sprintf("単位 %q は未定義です", p["unit"])
	case diag.CodeInvalidNumber:
		return fmt.Sprintf("%q は数値ではありません", p["token"])
	case diag.CodeOutOfRange:
		return fmt.Sprintf("値 %v は範囲外です", p["token"])
	case diag.CodeUnknownEnumValue:
		return fmt.Sprintf("%q は許可されていない値です", p["token"])
	case diag.CodeRequired:
		return "必須フィールドが空です"
	case diag.CodeTooManyFields:
		return fmt.Sprintf("フィールドが %v 個あります（最大 %v 個）", p["count"], p["max"])
	case diag.CodeKindMismatch:
		return fmt.Sprintf("%v の値は %v フィールドに格納できません", p["got"], p["want"])
	case diag.CodeIncompatibleUnitFamily:
		return fmt.Sprintf("%v から %v へは変換できません", p["from"], p["to"])
	case diag.CodeDanglingReference:
		return fmt.Sprintf("参照 %q に該当するオブジェクトがありません", p["name"])
	case diag.CodeAmbiguousReference:
		return fmt.Sprintf("参照 %q が複数の型 %v に一致します", p["name"], p["types"])
	case diag.CodeUnknownObjectType:
		return fmt.Sprintf("未知のオブジェクト型 %q です", p["type"])
	case diag.CodeUnknownField:
		return fmt.Sprintf("未知のフィールド %q です", p["field"])
	case diag.CodeDuplicateName:
		return fmt.Sprintf("%v の名前 %q が重複しています", p["type"], p["name"])
	case diag.CodeInvalidName:
		return fmt.Sprintf("名前 %q に前後の空白または , ; ! 改行が含まれています", p["name"])
	case diag.CodeDuplicateUnique:
		return fmt.Sprintf("%v は一つしか置けません", p["type"])
	case diag.CodeNotFound:
		return fmt.Sprintf("オブジェクト %v がありません", p["id"])
	case diag.CodeParseError:
		return "解析エラー"
	case diag.CodeTruncated:
		return "文が終端されていません"
	}
	return code
}

// SetLanguage switches diagnostic messages to lang ("en" or "ja"). Any
// other value selects English.
func SetLanguage(lang string) {
	if lang == "ja" {
		diag.SetCatalogue(japanese{})
		return
	}
	diag.SetCatalogue(nil)
}

// Catalogue returns the catalogue for lang without installing it.
func Catalogue(lang string) diag.Catalogue {
	if lang == "ja" {
		return japanese{}
	}
	return nil
}

// Package i18n provides short localized titles for issue codes.
package i18n

import "strings"

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "path").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var dictionaries = map[string]map[string]string{
	"en": {
		"parse_error":       "parse error",
		"duplicate_key":     "duplicate key",
		"max_depth":         "nesting too deep",
		"truncated":         "input too large",
		"trailing_data":     "unexpected trailing data",
		"unbound_recursion": "recursion marker outside a recursive schema",
		"invalid_schema":    "invalid schema",
		"unknown_kind":      "unknown schema kind",
		"unknown_class":     "unknown class",
		"unknown_ref":       "unknown definition",
		"ref_cycle":         "cyclic definition",
	},
	"ja": {
		"parse_error":       "解析エラー",
		"duplicate_key":     "キーが重複しています",
		"max_depth":         "ネストが深すぎます",
		"truncated":         "入力が大きすぎます",
		"trailing_data":     "末尾に余分なデータがあります",
		"unbound_recursion": "再帰スキーマの外に再帰マーカーがあります",
		"invalid_schema":    "スキーマが不正です",
		"unknown_kind":      "未知のスキーマ種別です",
		"unknown_class":     "未知のクラスです",
		"unknown_ref":       "未定義の参照です",
		"ref_cycle":         "定義が循環しています",
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dictionaries[t.lang][code]
	if !ok {
		return code
	}
	if p := data["path"]; p != "" {
		msg += " (" + p + ")"
	}
	return msg
}

// For returns the built-in Translator for lang ("en" or "ja"); other
// languages get English.
func For(lang string) Translator {
	if _, ok := dictionaries[lang]; !ok {
		lang = "en"
	}
	return dictTranslator{lang: lang}
}

// FromAcceptLanguage picks the first supported language of an HTTP
// Accept-Language header value, ignoring quality weights.
func FromAcceptLanguage(header string) Translator {
	for _, part := range strings.Split(header, ",") {
		tag, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		base, _, _ := strings.Cut(strings.ToLower(tag), "-")
		if _, ok := dictionaries[base]; ok {
			return dictTranslator{lang: base}
		}
	}
	return dictTranslator{lang: "en"}
}

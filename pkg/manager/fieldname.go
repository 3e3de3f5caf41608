package manager

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeFieldName turns a dash-separated token into camel case:
// "created-at" becomes "createdAt". Empty segments are dropped.
func NormalizeFieldName(token string) string {
	parts := strings.Split(token, "-")
	var b strings.Builder
	b.Grow(len(token))
	first := true
	for _, p := range parts {
		if p == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(p)
		if first {
			b.WriteRune(unicode.ToLower(r))
			first = false
		} else {
			b.WriteRune(unicode.ToUpper(r))
		}
		b.WriteString(p[size:])
	}
	return b.String()
}

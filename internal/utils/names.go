package utils

import (
	"strings"
	"unicode"
)

// SnakeCase converts a camelCase or PascalCase identifier to snake_case,
// the target's convention for variables, functions and atoms.
// Example: "toUpperCase" -> "to_upper_case", "HTTPServer" -> "http_server".
func SnakeCase(name string) string {
	if name == "" {
		return name
	}
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || (nextLower && runes[i-1] != '_')) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ModuleName converts an identifier to the target's module naming
// convention (PascalCase; dots preserved for nested modules).
func ModuleName(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		if part == "" {
			continue
		}
		segs := strings.Split(part, "_")
		for j, seg := range segs {
			if seg == "" {
				continue
			}
			segs[j] = strings.ToUpper(seg[:1]) + seg[1:]
		}
		parts[i] = strings.Join(segs, "")
	}
	return strings.Join(parts, ".")
}

// ValidAtom reports whether name can render as an unquoted atom.
func ValidAtom(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' || unicode.IsLower(r) {
			continue
		}
		if i > 0 && (unicode.IsDigit(r) || unicode.IsUpper(r) || r == '@') {
			continue
		}
		if i == len(name)-1 && (r == '?' || r == '!') {
			continue
		}
		return false
	}
	return true
}

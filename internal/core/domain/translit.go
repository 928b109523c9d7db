package domain

import (
	"path/filepath"
	"strings"
)

// translitMap is the fixed Cyrillic-to-Latin substitution table used for
// filesystem-safe names. Characters outside the table pass through unchanged.
var translitMap = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e",
	'ё': "yo", 'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k",
	'л': "l", 'м': "m", 'н': "n", 'о': "o", 'п': "p", 'р': "r",
	'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "h", 'ц': "ts",
	'ч': "ch", 'ш': "sh", 'щ': "sch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "yu", 'я': "ya",
}

// Transliterate lowercases the input and maps Cyrillic letters to their Latin
// equivalents through the substitution table.
func Transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if repl, ok := translitMap[r]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SafeFilename transliterates a user-supplied filename and strips every
// character that is not safe inside a single path segment. An empty result
// collapses to "file".
func SafeFilename(name string) string {
	name = filepath.Base(Transliterate(name))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "file"
	}
	return out
}

// StoredFilename derives the on-disk name for an attachment: the sanitized
// original name with a short unique suffix before the extension.
func StoredFilename(original, suffix string) string {
	safe := SafeFilename(original)
	ext := filepath.Ext(safe)
	base := strings.TrimSuffix(safe, ext)
	if base == "" {
		base = "file"
	}
	return base + "_" + suffix + ext
}

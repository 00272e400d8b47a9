package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString trims surrounding whitespace and cuts the result to at most
// maxRunes characters. maxRunes <= 0 disables the cut.
func SanitizeString(input string, maxRunes int) string {
	trimmed := strings.TrimSpace(input)
	if maxRunes <= 0 || utf8.RuneCountInString(trimmed) <= maxRunes {
		return trimmed
	}
	cut := 0
	for i := 0; i < maxRunes; i++ {
		_, size := utf8.DecodeRuneInString(trimmed[cut:])
		cut += size
	}
	return strings.TrimSpace(trimmed[:cut])
}

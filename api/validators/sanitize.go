package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString trims input, folds internal whitespace runs to one space and
// truncates to maxLen bytes without splitting a UTF-8 sequence.
func SanitizeString(input string, maxLen int) string {
	out := strings.Join(strings.Fields(input), " ")
	if maxLen <= 0 || len(out) <= maxLen {
		return out
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(out[cut]) {
		cut--
	}
	return out[:cut]
}

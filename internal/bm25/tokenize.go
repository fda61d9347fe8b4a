package bm25

import "strings"

// Tokenize lowercases, splits on non-alphanumeric runs, keeps numeric
// tokens, discards empty tokens, and never stems. It deliberately never
// splits camelCase/snake_case identifiers into sub-words, since prose
// documents don't carry source-code-style compound identifiers.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	var tokens []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range lower {
		if isAlphanumeric(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || (r >= 0x80)
}

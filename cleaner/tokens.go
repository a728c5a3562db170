package cleaner

import "unicode/utf8"

// EstimateTokens approximates a token count as one token per three runes,
// a middle ground between English (~4) and CJK (~1.5) text.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return max(n/3, 1)
}

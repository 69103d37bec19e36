package utils

import "strings"

// charsPerToken approximates tokenization across providers.
const charsPerToken = 4

// CountTokens estimates the number of tokens in text (about 4 characters each).
// Any non-empty text counts as at least one token.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	tokens := len([]rune(text)) / charsPerToken
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TruncateToTokenLimit cuts text so CountTokens stays within limit, preferring
// to break at whitespace.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	charLimit := limit * charsPerToken
	if charLimit >= len(runes) {
		return text
	}
	cut := string(runes[:charLimit])
	if i := strings.LastIndexAny(cut, " \n\t"); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}

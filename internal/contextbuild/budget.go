// Package contextbuild turns a ranked file list and its fetched contents
// into prompt text that fits a token budget.
package contextbuild

// CharsPerToken is the conservative characters-per-token ratio used by
// every budget check in this package.
const CharsPerToken = 3

// EstimateTokens approximates the token count of text.
func EstimateTokens(text string) int {
	return tokensForLen(len(text))
}

func tokensForLen(n int) int {
	return n / CharsPerToken
}

// Package tokens approximates the prompt cost of text.
package tokens

import "unicode/utf8"

// charsPerToken is the estimator's conversion ratio.
const charsPerToken = 4

// Estimate returns the approximate token-unit cost of text: one unit per four
// characters, rounded up.
func Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + charsPerToken - 1) / charsPerToken
}

// Sum totals the estimates of several texts.
func Sum(texts ...string) int {
	total := 0
	for _, t := range texts {
		total += Estimate(t)
	}
	return total
}

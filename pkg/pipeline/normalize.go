package pipeline

import "regexp"

// LLM prose occasionally arrives with missing spaces after punctuation
// or between a number and a word ("grew15%in May"). The substitutions
// run in order and are idempotent, so already-clean text passes through
// untouched.
var (
	spaceAfterComma  = regexp.MustCompile(`,([a-zA-Z])`)
	spaceAfterPeriod = regexp.MustCompile(`\.([a-zA-Z])`)
	spaceAfterDigit  = regexp.MustCompile(`(\d)([a-zA-Z])`)
)

// NormalizeProse repairs common spacing defects in generated prose.
func NormalizeProse(s string) string {
	s = spaceAfterComma.ReplaceAllString(s, ", $1")
	s = spaceAfterPeriod.ReplaceAllString(s, ". $1")
	s = spaceAfterDigit.ReplaceAllString(s, "$1 $2")
	return s
}

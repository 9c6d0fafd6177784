package pipeline

import (
	"regexp"
	"strings"
)

var (
	// hyphenBreakRegex matches a word split across lines by a hyphen
	hyphenBreakRegex = regexp.MustCompile(`-[ \t]*(?:\r\n|\r|\n)[ \t]*`)
	// whitespaceRegex matches one or more whitespace characters
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Normalize repairs text copied from paginated documents:
// 1. Join words hyphenated across a line break
// 2. Collapse remaining line breaks and whitespace runs to single spaces
// 3. Trim leading/trailing whitespace
func Normalize(s string) string {
	s = hyphenBreakRegex.ReplaceAllString(s, "")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

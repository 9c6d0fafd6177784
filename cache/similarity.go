package cache

import (
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Ratio returns the normalized similarity of a and b in [0, 100].
//
// It is the indel ratio over characters: 2*LCS divided by the combined
// rune count, i.e. one minus the insert/delete edit distance over the
// combined length.
func Ratio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*edlib.LCS(a, b)) / float64(total)
}

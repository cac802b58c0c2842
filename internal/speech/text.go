package speech

import (
	"math"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// GradeText scores a typed answer against the accepted answers of an exercise.
// Case and punctuation are ignored; the best Jaro-Winkler match wins. Returns 0-100.
func GradeText(answer string, accepted []string) int {
	a := simplify(answer)
	if a == "" {
		return 0
	}
	best := 0.0
	for _, want := range accepted {
		w := simplify(want)
		if w == "" {
			continue
		}
		if a == w {
			return 100
		}
		if s := matchr.JaroWinkler(a, w, false); s > best {
			best = s
		}
	}
	return int(math.Round(best * 100))
}

// simplify lower-cases s and keeps only letters, digits and single spaces
func simplify(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			sb.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

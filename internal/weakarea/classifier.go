// Package weakarea turns the free-text mistakes reported by the speech analyzer
// into per-user recurrence counters.
package weakarea

import (
	"strings"

	"github.com/example/hablabot/pkg/models"
)

// Checked in order; the first category with a matching keyword wins.
var (
	pronunciationKeywords = []string{"pronunciation", "sound", "accent", "r", "rr", "ll", "ñ"}
	grammarKeywords       = []string{"tense", "conjugation", "ser", "estar", "gender", "agreement"}
)

// Classify maps a phrase to a weak-area category by case-insensitive substring
// match. Pronunciation beats grammar, anything else is vocabulary.
func Classify(phrase string) models.AreaType {
	lower := strings.ToLower(phrase)
	if containsAny(lower, pronunciationKeywords) {
		return models.AreaPronunciation
	}
	if containsAny(lower, grammarKeywords) {
		return models.AreaGrammar
	}
	return models.AreaVocabulary
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// Normalize is the canonical form of a phrase used as the specific item key:
// trimmed, lower-cased, inner whitespace collapsed.
func Normalize(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}

// Package similarity scores relatedness between memories from lexical,
// tag, and category overlap. Pure functions, no I/O.
package similarity

import (
	"strings"
	"unicode"

	"github.com/strandmem/strand/pkg/types"
)

// Weights for the combined score.
const (
	contentWeight  = 0.5
	tagWeight      = 0.2
	categoryWeight = 0.3

	// EdgeThreshold is the combined score above which a similar_to edge is
	// persisted.
	EdgeThreshold = 0.3
)

// stopwords are filtered out before content comparison. Short list on
// purpose: agent output is technical prose, not general English.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "in": true, "is": true, "it": true,
	"its": true, "of": true, "on": true, "or": true, "that": true,
	"the": true, "this": true, "to": true, "was": true, "were": true,
	"which": true, "will": true, "with": true, "we": true, "use": true,
	"should": true, "when": true, "not": true, "do": true, "if": true,
}

// Score computes the relatedness of two memories in [0,1]. Deterministic,
// no failure mode: empty inputs score 0.
func Score(a, b *types.Memory) float64 {
	if a == nil || b == nil {
		return 0
	}
	score := contentWeight * jaccard(Tokenize(a.Content), Tokenize(b.Content))
	score += tagWeight * jaccard(toSet(a.Tags), toSet(b.Tags))
	score += categoryWeight * categoryMatch(a.Category, b.Category)
	if score > 1 {
		score = 1
	}
	return score
}

// Tokenize splits content into lowercased word tokens with stopwords removed.
func Tokenize(content string) map[string]bool {
	tokens := make(map[string]bool)
	fields := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		tokens[f] = true
	}
	return tokens
}

// ConceptWords returns the non-stopword tokens of a memory's content.
// Used by supersession detection to test topical overlap.
func ConceptWords(content string) map[string]bool {
	return Tokenize(content)
}

// Overlaps reports whether two token sets share at least one token.
func Overlaps(a, b map[string]bool) bool {
	for t := range a {
		if b[t] {
			return true
		}
	}
	return false
}

// jaccard computes |A∩B| / |A∪B|. Empty union scores 0.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// categoryMatch scores category agreement: 1.0 for an exact match, otherwise
// word-level overlap between the category labels (so "system_design" and
// "api_design" still score above zero).
func categoryMatch(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if strings.EqualFold(a, b) {
		return 1
	}
	return jaccard(Tokenize(a), Tokenize(b))
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		it = strings.ToLower(strings.TrimSpace(it))
		if it != "" {
			set[it] = true
		}
	}
	return set
}

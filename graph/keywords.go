package graph

import "strings"

// stoplist holds generic grant-prose words that carry no topical signal.
var stoplist = map[string]bool{
	"research":      true,
	"study":         true,
	"investigation": true,
	"development":   true,
	"analysis":      true,
}

const (
	maxKeywords      = 10
	minKeywordLength = 6
)

// ExtractKeywords pulls crude topic candidates from an award abstract.
// The text is lower-cased and split on whitespace; stoplisted tokens and
// tokens shorter than six characters are dropped. The surviving stream is
// truncated to its first ten positional occurrences and then deduplicated
// preserving first-occurrence order, so the result is deterministic and
// repeated calls on identical text are idempotent.
//
// This is a frequency-free placeholder heuristic, not an NLP capability.
func ExtractKeywords(text string) []string {
	tokens := strings.Fields(strings.ToLower(text))

	filtered := make([]string, 0, maxKeywords)
	for _, tok := range tokens {
		if len(filtered) >= maxKeywords {
			break
		}
		if len(tok) < minKeywordLength || stoplist[tok] {
			continue
		}
		filtered = append(filtered, tok)
	}

	seen := make(map[string]bool, len(filtered))
	keywords := make([]string, 0, len(filtered))
	for _, tok := range filtered {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		keywords = append(keywords, tok)
	}
	return keywords
}

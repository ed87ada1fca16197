package services

import (
	"regexp"
	"sort"
	"strings"
)

// tokenPattern matches word tokens including internal apostrophes.
var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// stopwords are common words excluded from keyword extraction and
// lexical overlap, so unrelated fragments sharing only filler words
// never score as related.
var stopwords = map[string]struct{}{
	"a": {}, "about": {}, "after": {}, "all": {}, "also": {}, "an": {},
	"and": {}, "any": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"because": {}, "been": {}, "before": {}, "but": {}, "by": {},
	"can": {}, "could": {}, "did": {}, "do": {}, "does": {}, "for": {},
	"from": {}, "had": {}, "has": {}, "have": {}, "how": {}, "if": {},
	"in": {}, "into": {}, "is": {}, "it": {}, "its": {}, "more": {},
	"most": {}, "must": {}, "no": {}, "not": {}, "of": {}, "on": {},
	"one": {}, "only": {}, "or": {}, "other": {}, "over": {},
	"should": {}, "so": {}, "some": {}, "such": {}, "than": {},
	"that": {}, "the": {}, "their": {}, "them": {}, "then": {},
	"there": {}, "these": {}, "they": {}, "this": {}, "to": {},
	"use": {}, "used": {}, "using": {}, "was": {}, "were": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "while": {},
	"will": {}, "with": {}, "would": {}, "you": {}, "your": {},
}

// tokenize lowercases text and returns its non-stopword tokens of
// three or more characters.
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if len(tok) < 3 {
			continue
		}
		if _, ok := stopwords[tok]; ok {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// tokenSet returns the distinct tokens of text.
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}

// extractKeywords returns up to max tokens ranked by frequency,
// ties broken alphabetically so extraction is deterministic.
func extractKeywords(text string, max int) []string {
	freq := make(map[string]int)
	for _, tok := range tokenize(text) {
		freq[tok]++
	}

	keywords := make([]string, 0, len(freq))
	for tok := range freq {
		keywords = append(keywords, tok)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if freq[keywords[i]] != freq[keywords[j]] {
			return freq[keywords[i]] > freq[keywords[j]]
		}
		return keywords[i] < keywords[j]
	})

	if len(keywords) > max {
		keywords = keywords[:max]
	}
	return keywords
}

// jaccard returns the overlap of two token sets in [0, 1].
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// sharedTokens returns the sorted intersection of two token sets,
// used for link rationales.
func sharedTokens(a, b map[string]struct{}) []string {
	shared := make([]string, 0)
	for tok := range a {
		if _, ok := b[tok]; ok {
			shared = append(shared, tok)
		}
	}
	sort.Strings(shared)
	return shared
}

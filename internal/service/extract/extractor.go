// internal/service/extract/extractor.go

package extract

import (
	"regexp"
	"sort"
	"strings"

	"tickerpulse/internal/domain/symbol"
)

// Candidate is a scored extraction result with the surrounding excerpt of the
// first occurrence attached for storage.
type Candidate struct {
	Ticker     string
	Confidence float64
	Excerpt    string
}

const (
	cashtagConfidence  = 0.99
	baseConfidence     = 0.70
	contextBoost       = 0.20
	majorTickerBoost   = 0.10
	plainConfidenceCap = 0.98
	confidenceFloor    = 0.50

	contextWindow = 8
	excerptRadius = 50
)

// Extractor recognizes ticker symbols in free-form text against an immutable
// dictionary. It holds only precompiled patterns and read-only tables, so a
// single instance is safe for concurrent use.
type Extractor struct {
	dict *symbol.Dictionary

	cashtagPattern *regexp.Regexp
	plainPattern   *regexp.Regexp
	c3aiPattern    *regexp.Regexp
	wordPattern    *regexp.Regexp

	financeContext map[string]struct{}
	majorTickers   map[string]struct{}
}

// NewExtractor creates an extractor bound to the given dictionary. All regexes
// are compiled here, never per call.
func NewExtractor(dict *symbol.Dictionary) *Extractor {
	return &Extractor{
		dict:           dict,
		cashtagPattern: regexp.MustCompile(`\$[A-Z]{1,5}`),
		plainPattern:   regexp.MustCompile(`[A-Z]{2,5}`),
		c3aiPattern:    regexp.MustCompile(`(?i)\bC3[\.\s]?AI\b`),
		wordPattern:    regexp.MustCompile(`\w+`),
		financeContext: financeContextWords(),
		majorTickers:   majorTickerSet(),
	}
}

// Extract returns every dictionary ticker found in text, each at most once, in
// no guaranteed order. It is the union of the cashtag pass, the C3.ai special
// case, and the plain uppercase-token pass.
func (e *Extractor) Extract(text string) []string {
	if text == "" || e.dict.Len() == 0 {
		return nil
	}

	found := make(map[string]struct{})

	for _, t := range e.cashtagMatches(text) {
		found[t] = struct{}{}
	}

	if e.c3aiPattern.MatchString(text) && e.dict.Contains("AI") {
		found["AI"] = struct{}{}
	}

	for _, t := range e.plainMatches(text) {
		found[t] = struct{}{}
	}

	if len(found) == 0 {
		return nil
	}

	out := make([]string, 0, len(found))
	for t := range found {
		out = append(out, t)
	}
	return out
}

// ExtractWithConfidence returns scored candidates with excerpts, sorted by
// confidence descending (ties by ticker). Cashtag matches score 0.99; plain
// matches start at 0.70, gain 0.20 for nearby finance vocabulary and 0.10 for
// widely-known large caps, capped at 0.98. Candidates at or below 0.50 are
// discarded.
func (e *Extractor) ExtractWithConfidence(text string) []Candidate {
	if text == "" || e.dict.Len() == 0 {
		return nil
	}

	confidences := make(map[string]float64)

	for _, t := range e.cashtagMatches(text) {
		confidences[t] = cashtagConfidence
	}

	if e.c3aiPattern.MatchString(text) && e.dict.Contains("AI") {
		if confidences["AI"] < cashtagConfidence {
			c := e.contextConfidence("AI", text)
			if c > confidences["AI"] {
				confidences["AI"] = c
			}
		}
	}

	for _, t := range e.plainMatches(text) {
		if _, ok := confidences[t]; ok {
			continue
		}
		confidences[t] = e.contextConfidence(t, text)
	}

	candidates := make([]Candidate, 0, len(confidences))
	for t, c := range confidences {
		if c <= confidenceFloor {
			continue
		}
		candidates = append(candidates, Candidate{
			Ticker:     t,
			Confidence: c,
			Excerpt:    e.excerpt(t, text),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Ticker < candidates[j].Ticker
	})

	return candidates
}

// cashtagMatches scans the upper-cased text for $TICKER forms. A letter or
// apostrophe immediately before the dollar sign disqualifies the match, as does
// a word character immediately after the symbol.
func (e *Extractor) cashtagMatches(text string) []string {
	upper := strings.ToUpper(text)

	var out []string
	for _, loc := range e.cashtagPattern.FindAllStringIndex(upper, -1) {
		if loc[0] > 0 {
			prev := upper[loc[0]-1]
			if isLetter(prev) || prev == '\'' {
				continue
			}
		}
		if loc[1] < len(upper) && isWordChar(upper[loc[1]]) {
			continue
		}

		ticker := upper[loc[0]+1 : loc[1]]
		if e.dict.Contains(ticker) {
			out = append(out, ticker)
		}
	}
	return out
}

// plainMatches scans the original text for bare uppercase tokens. The token
// must be literally upper-cased in the source; any adjacent letter, digit, or
// apostrophe disqualifies it, which filters contraction fragments such as
// "DON" from "DON'T". The bare token "AI" never matches here.
func (e *Extractor) plainMatches(text string) []string {
	var out []string
	for _, loc := range e.plainPattern.FindAllStringIndex(text, -1) {
		if loc[0] > 0 {
			prev := text[loc[0]-1]
			if isWordChar(prev) || prev == '\'' {
				continue
			}
		}
		if loc[1] < len(text) {
			next := text[loc[1]]
			if isWordChar(next) || next == '\'' {
				continue
			}
		}

		ticker := text[loc[0]:loc[1]]
		if ticker == "AI" {
			continue
		}
		if e.dict.Contains(ticker) {
			out = append(out, ticker)
		}
	}
	return out
}

// contextConfidence scores a non-cashtag candidate from the vocabulary found
// within an 8-word window around any of its occurrences.
func (e *Extractor) contextConfidence(ticker, text string) float64 {
	words := e.wordPattern.FindAllString(strings.ToLower(text), -1)

	lowTicker := strings.ToLower(ticker)
	confidence := baseConfidence

scan:
	for i, w := range words {
		if w != lowTicker {
			continue
		}
		start := i - contextWindow
		if start < 0 {
			start = 0
		}
		end := i + contextWindow + 1
		if end > len(words) {
			end = len(words)
		}
		for _, ctx := range words[start:end] {
			if _, ok := e.financeContext[ctx]; ok {
				confidence += contextBoost
				break scan
			}
		}
	}

	if _, ok := e.majorTickers[ticker]; ok {
		confidence += majorTickerBoost
	}

	if confidence > plainConfidenceCap {
		confidence = plainConfidenceCap
	}
	return confidence
}

// excerpt returns up to excerptRadius characters of text on either side of the
// first occurrence of the ticker, preferring the $TICKER form.
func (e *Extractor) excerpt(ticker, text string) string {
	lower := strings.ToLower(text)
	lowTicker := strings.ToLower(ticker)

	for _, form := range []string{"$" + lowTicker, lowTicker} {
		pos := strings.Index(lower, form)
		if pos < 0 {
			continue
		}
		start := pos - excerptRadius
		if start < 0 {
			start = 0
		}
		end := pos + len(form) + excerptRadius
		if end > len(text) {
			end = len(text)
		}
		return strings.TrimSpace(text[start:end])
	}
	return ""
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func isWordChar(b byte) bool {
	return isLetter(b) || (b >= '0' && b <= '9') || b == '_'
}

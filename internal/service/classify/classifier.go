// internal/service/classify/classifier.go

package classify

import (
	"fmt"
	"strings"
)

const confidenceDivisor = 15.0

// Result is the outcome of classifying one post.
type Result struct {
	IsDD       bool
	Score      int
	Confidence float64
	Reasons    []string
	WordCount  int
}

// Metadata holds content attributes extracted for posts classified as DD.
type Metadata struct {
	Tags      []string
	HasCharts bool
	HasTables bool
	WordCount int
}

// Config tunes the classifier. Zero values fall back to Defaults.
type Config struct {
	// MinWordCount gates the long-form length tier.
	MinWordCount int

	// Threshold is the score at which a post counts as DD.
	Threshold int

	// CommunityWeights scales the keyword score per community; unlisted
	// communities use 1.0.
	CommunityWeights map[string]float64
}

// DefaultCommunityWeights favors analysis-focused communities and discounts
// high-noise ones.
func DefaultCommunityWeights() map[string]float64 {
	return map[string]float64{
		"SecurityAnalysis":      2.0,
		"ValueInvesting":        1.8,
		"investing":             1.2,
		"financialindependence": 1.1,
		"dividends":             1.1,
		"stocks":                1.0,
		"StockMarket":           1.0,
		"pennystocks":           0.8,
		"wallstreetbets":        0.5,
	}
}

// Classifier scores posts as due-diligence content using an additive point
// system over fixed keyword tables. It is deterministic and holds no mutable
// state, so one instance serves any number of goroutines.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a classifier. Missing config fields take defaults:
// minimum word count 300, threshold 6, default community weights.
func NewClassifier(cfg Config) *Classifier {
	if cfg.MinWordCount <= 0 {
		cfg.MinWordCount = 300
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 6
	}
	if cfg.CommunityWeights == nil {
		cfg.CommunityWeights = DefaultCommunityWeights()
	}
	return &Classifier{cfg: cfg}
}

// Classify scores a post. Posts with an empty title or body score zero: there
// is nothing substantive to classify.
func (c *Classifier) Classify(title, body, community string) Result {
	if title == "" || body == "" {
		return Result{}
	}

	titleLower := strings.ToLower(title)
	bodyLower := strings.ToLower(body)
	combined := titleLower + " " + bodyLower

	score := 0
	var reasons []string

	// DD keywords in the title weigh heaviest.
	if n := countContained(titleLower, ddKeywords); n > 0 {
		points := capInt(3*n, 6)
		score += points
		reasons = append(reasons, fmt.Sprintf("DD keywords in title (+%d)", points))
	}

	// DD keywords anywhere in the post.
	if n := countContained(combined, ddKeywords); n > 0 {
		points := capInt(2*n, 4)
		score += points
		reasons = append(reasons, fmt.Sprintf("DD keywords in content (+%d)", points))
	}

	// Financial vocabulary density.
	if n := countContained(combined, financialTerms); n >= 3 {
		points := capInt(n, 5)
		score += points
		reasons = append(reasons, fmt.Sprintf("Financial terms density (+%d)", points))
	}

	// Long-form length tiers, gated by the configured minimum.
	wordCount := len(strings.Fields(body))
	if wordCount >= c.cfg.MinWordCount {
		points := 2
		switch {
		case wordCount >= 1000:
			points = 4
		case wordCount >= 500:
			points = 3
		}
		score += points
		reasons = append(reasons, fmt.Sprintf("Long form content (%d words, +%d)", wordCount, points))
	}

	// Structured-format markers.
	if n := countContained(combined, structureKeywords); n > 0 {
		points := capInt(2*n, 4)
		score += points
		reasons = append(reasons, fmt.Sprintf("Structured format (+%d)", points))
	}

	// Quantitative data: count distinct pattern types with at least one hit.
	dataTypes := 0
	for _, p := range numberPatterns {
		if p.MatchString(combined) {
			dataTypes++
		}
	}
	if dataTypes >= 2 {
		points := capInt(dataTypes, 3)
		score += points
		reasons = append(reasons, fmt.Sprintf("Quantitative data (+%d)", points))
	}

	// Community weighting, truncated to int.
	if weight, ok := c.cfg.CommunityWeights[community]; ok && weight != 1.0 {
		weighted := int(float64(score) * weight)
		reasons = append(reasons, fmt.Sprintf("Community weight %.1fx (%d -> %d)", weight, score, weighted))
		score = weighted
	}

	// Meme-language penalty, applied after weighting.
	if n := countContained(combined, memeKeywords); n > 0 {
		penalty := capInt(2*n, 4)
		score -= penalty
		reasons = append(reasons, fmt.Sprintf("Meme language penalty (-%d)", penalty))
	}

	if score < 0 {
		score = 0
	}

	confidence := float64(score) / confidenceDivisor
	if confidence > 1.0 {
		confidence = 1.0
	}

	return Result{
		IsDD:       score >= c.cfg.Threshold,
		Score:      score,
		Confidence: confidence,
		Reasons:    reasons,
		WordCount:  wordCount,
	}
}

// Metadata extracts tags and layout attributes for a post already classified
// as DD.
func (c *Classifier) Metadata(title, body string) Metadata {
	combined := strings.ToLower(title + " " + body)
	bodyLower := strings.ToLower(body)

	var tags []string
	for _, tag := range tagOrder {
		for _, kw := range tagKeywords[tag] {
			if strings.Contains(combined, kw) {
				tags = append(tags, tag)
				break
			}
		}
	}

	hasCharts := false
	for _, indicator := range chartIndicators {
		if strings.Contains(bodyLower, indicator) {
			hasCharts = true
			break
		}
	}

	// Markdown tables need both a pipe and a separator row marker.
	hasTables := strings.Contains(body, "|") && strings.Contains(body, "---")

	return Metadata{
		Tags:      tags,
		HasCharts: hasCharts,
		HasTables: hasTables,
		WordCount: len(strings.Fields(body)),
	}
}

// countContained counts how many distinct needles appear in text.
func countContained(text string, needles []string) int {
	n := 0
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			n++
		}
	}
	return n
}

func capInt(v, max int) int {
	if v > max {
		return max
	}
	return v
}

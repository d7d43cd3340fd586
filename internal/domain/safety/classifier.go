// Package safety reviews outbound chat messages before delivery. A classifier
// scores content; the gate maps scores to a delivery decision. Classifier
// failures never let content through unreviewed.
package safety

import (
	"context"
	"regexp"
	"strings"
	"unicode"
)

// Verdict is a classifier's judgement of one piece of content.
type Verdict struct {
	IsSafe  bool
	Score   float64
	Reasons []string
}

// Classifier scores content for a given sender. Implementations must be safe
// for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, text string, sender string) (Verdict, error)
}

// Compiled patterns, reused for every call.
var (
	// urlPattern matches http/https URLs, www. URLs, and bare domains with a
	// trailing "/" (the slash avoids false positives on "v2.0" and "3.14").
	urlPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+|\S+\.(com|net|org|io|co|xyz|info|biz|ru|cn|tk|ml|ga|cf)/\S*)`)

	// phonePattern matches common phone formats like +1-555-123-4567,
	// (555) 123-4567 and 555.123.4567, anchored to whitespace boundaries so
	// ordinary digit runs inside words don't trip it.
	phonePattern = regexp.MustCompile(`(?:^|\s)(\+?\d{1,3}[-.\s]?)?\(?\d{2,4}\)?[-.\s]?\d{3,4}[-.\s]?\d{3,4}(?:\s|$)`)
)

// Reason categories produced by the pattern classifier.
const (
	ReasonURL       = "url"
	ReasonPhone     = "phone_number"
	ReasonCharFlood = "char_flood"
	ReasonWordFlood = "word_flood"
)

type patternCheck struct {
	reason string
	score  float64
	match  func(string) bool
}

// Ordered; the first match decides the verdict. URL and phone sharing carry a
// blocking score, flooding only flags.
var patternChecks = []patternCheck{
	{reason: ReasonURL, score: 0.9, match: urlPattern.MatchString},
	{reason: ReasonPhone, score: 0.9, match: phonePattern.MatchString},
	{reason: ReasonCharFlood, score: 0.6, match: hasCharFlood},
	{reason: ReasonWordFlood, score: 0.6, match: hasWordFlood},
}

// PatternClassifier is the built-in rule-based classifier. It needs no
// external service and is the default when no classifier URL is configured.
type PatternClassifier struct{}

// NewPatternClassifier creates the rule-based classifier
func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{}
}

// Classify runs every pattern check; the first match wins.
func (c *PatternClassifier) Classify(_ context.Context, text string, _ string) (Verdict, error) {
	for _, check := range patternChecks {
		if check.match(text) {
			return Verdict{
				IsSafe:  false,
				Score:   check.score,
				Reasons: []string{check.reason},
			}, nil
		}
	}
	return Verdict{IsSafe: true}, nil
}

// hasCharFlood returns true on 5+ consecutive identical characters. RE2 has
// no backreferences, so this is a linear scan.
func hasCharFlood(text string) bool {
	const threshold = 5

	count := 1
	prev := rune(-1)
	for _, r := range text {
		if r == prev {
			count++
			if count >= threshold {
				return true
			}
		} else {
			count = 1
			prev = r
		}
	}
	return false
}

// hasWordFlood returns true when the same word repeats 3+ times in a row,
// case-insensitive.
func hasWordFlood(text string) bool {
	const threshold = 3

	words := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	if len(words) < threshold {
		return false
	}

	count := 1
	prev := ""
	for _, w := range words {
		lower := strings.ToLower(w)
		if lower == prev {
			count++
			if count >= threshold {
				return true
			}
		} else {
			count = 1
			prev = lower
		}
	}
	return false
}

// Package classify decides whether an item's text qualifies for an alert.
package classify

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Policy is an ordered set of keywords; any single match qualifies.
// Matching is case-insensitive and runs in one pass over the text.
type Policy struct {
	keywords []string
	matcher  *ahocorasick.Matcher
}

// NewPolicy builds a policy, dropping blank keywords.
func NewPolicy(keywords []string) Policy {
	p := Policy{}
	var folded []string
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		p.keywords = append(p.keywords, kw)
		folded = append(folded, strings.ToLower(kw))
	}
	if len(folded) > 0 {
		p.matcher = ahocorasick.NewStringMatcher(folded)
	}
	return p
}

// Keywords returns the policy's keywords in order.
func (p Policy) Keywords() []string {
	return append([]string(nil), p.keywords...)
}

// Empty reports whether the policy can never match.
func (p Policy) Empty() bool {
	return p.matcher == nil
}

// Matches reports whether text contains any keyword, ignoring case.
func (p Policy) Matches(text string) bool {
	_, ok := p.FirstMatch(text)
	return ok
}

// FirstMatch returns the first keyword (in policy order) found in text.
func (p Policy) FirstMatch(text string) (string, bool) {
	if text == "" || p.Empty() {
		return "", false
	}
	hits := p.matcher.MatchThreadSafe([]byte(strings.ToLower(text)))
	if len(hits) == 0 {
		return "", false
	}
	first := hits[0]
	for _, idx := range hits[1:] {
		if idx < first {
			first = idx
		}
	}
	return p.keywords[first], true
}

// Matches is the functional form of Policy.Matches.
func Matches(text string, keywords []string) bool {
	return NewPolicy(keywords).Matches(text)
}

package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatches(t *testing.T) {
	t.Parallel()

	policy := []string{"📌", "More details on", "Early Access"}
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"exact", "contains Early Access", true},
		{"case folded", "EARLY access opens today", true},
		{"emoji", "📌 pinned", true},
		{"multi-line", "line one\nmore DETAILS ON the site", true},
		{"no match", "old", false},
		{"empty text", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Matches(tc.text, policy))
		})
	}
}

func TestEmptyPolicyNeverMatches(t *testing.T) {
	t.Parallel()

	assert.False(t, Matches("anything at all", nil))
	assert.False(t, Matches("anything", []string{""}))
	assert.True(t, NewPolicy([]string{"", ""}).Empty())
}

func TestFirstMatchFollowsPolicyOrder(t *testing.T) {
	t.Parallel()

	p := NewPolicy([]string{"beta", "alpha"})
	kw, ok := p.FirstMatch("alpha then beta")
	assert.True(t, ok)
	assert.Equal(t, "beta", kw)
	assert.Equal(t, []string{"beta", "alpha"}, p.Keywords())
}

func TestPolicySafeForConcurrentUse(t *testing.T) {
	t.Parallel()

	p := NewPolicy([]string{"Early Access"})
	done := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		go func() { done <- p.Matches("early access for all") }()
	}
	for i := 0; i < 8; i++ {
		assert.True(t, <-done)
	}
}

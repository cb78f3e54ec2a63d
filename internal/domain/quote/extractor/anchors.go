package extractor

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// anchor identifies a keyword of the vendor layout
type anchor int

const (
	anchorEnvironmental anchor = iota
	anchorServiceSurcharge
	anchorServiceTime
	anchorCurrency
	anchorNetPrices
	anchorTransport
	anchorPumping
	anchorConcrete
)

// anchorPatterns are lower-case and indexed by anchor
var anchorPatterns = []string{
	anchorEnvironmental:    "ympäristölisä",
	anchorServiceSurcharge: "palveluaikalisä",
	anchorServiceTime:      "palveluaika",
	anchorCurrency:         "€",
	anchorNetPrices:        "nettohinnat betoneista",
	anchorTransport:        "kuljetus",
	anchorPumping:          "pumppaus",
	anchorConcrete:         "betoni",
}

// anchorSet is a bit set of the anchors found on a line
type anchorSet uint16

func (s anchorSet) has(a anchor) bool {
	return s&(1<<uint(a)) != 0
}

// anchorMatcher finds every anchor on a line in a single pass. The underlying
// matcher keeps per-call state, so calls are serialised.
type anchorMatcher struct {
	mu      sync.Mutex
	matcher *ahocorasick.Matcher
}

func newAnchorMatcher() *anchorMatcher {
	return &anchorMatcher{matcher: ahocorasick.NewStringMatcher(anchorPatterns)}
}

// match returns the anchors present in line, ignoring case
func (m *anchorMatcher) match(line string) anchorSet {
	lower := []byte(strings.ToLower(line))

	m.mu.Lock()
	hits := m.matcher.Match(lower)
	m.mu.Unlock()

	var set anchorSet
	for _, idx := range hits {
		if idx >= 0 && idx < len(anchorPatterns) {
			set |= 1 << uint(idx)
		}
	}
	return set
}

package classify

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"mfDealFlow/internal/domain"
	"mfDealFlow/internal/ports"
)

// Matcher decides whether a counterparty name belongs to a known institution.
//
// An alias matches when it occurs in the normalized name bounded on both sides
// by the start/end of the name or by a character that is neither a letter nor
// a digit. "SBI" therefore matches "SBI MUTUAL FUND TRUSTEE" but "UTI" does not
// match "UTILITY CORP". Matching is pure: the result depends only on the name
// and the keyword set the Matcher was built from.
type Matcher struct {
	re      *regexp.Regexp
	aliases map[string]string // normalized alias -> canonical institution
	version int
}

// NewMatcher compiles a keyword set into a single pattern.
func NewMatcher(ks *KeywordSet) (*Matcher, error) {
	if ks == nil {
		return nil, fmt.Errorf("keyword set is required: %w", ports.ErrConfigurationError)
	}
	aliases := ks.aliases()
	if len(aliases) == 0 {
		return nil, fmt.Errorf("keyword set has no usable aliases: %w", ports.ErrConfigurationError)
	}

	alts := make([]string, 0, len(aliases))
	for a := range aliases {
		alts = append(alts, a)
	}
	// Longest first so the most specific alias wins at a given position.
	sort.Slice(alts, func(i, j int) bool {
		if len(alts[i]) != len(alts[j]) {
			return len(alts[i]) > len(alts[j])
		}
		return alts[i] < alts[j]
	})
	for i, a := range alts {
		alts[i] = regexp.QuoteMeta(a)
	}

	pattern := `(?:^|[^\p{L}\p{N}])(` + strings.Join(alts, "|") + `)(?:[^\p{L}\p{N}]|$)`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile institution pattern: %w", err)
	}
	return &Matcher{re: re, aliases: aliases, version: ks.Version}, nil
}

// Version returns the keyword set version the matcher was built from.
func (m *Matcher) Version() int {
	return m.version
}

// IsInstitutional reports whether name contains any configured alias.
// Blank names are never institutional.
func (m *Matcher) IsInstitutional(name string) bool {
	_, ok := m.Match(name)
	return ok
}

// Match returns the canonical institution found in name.
func (m *Matcher) Match(name string) (string, bool) {
	n := domain.NormalizeName(name)
	if n == "" {
		return "", false
	}
	sub := m.re.FindStringSubmatch(n)
	if sub == nil {
		return "", false
	}
	return m.aliases[sub[1]], true
}

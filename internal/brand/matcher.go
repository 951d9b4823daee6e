// Package brand detects brand impersonation in hostnames: exact containment,
// typosquatting and homoglyph substitution against a configurable brand list.
package brand

import (
	"fmt"
	"strings"

	"github.com/Zamiell/confusables"
	"golang.org/x/net/idna"

	"github.com/opensource-security/shrike/internal/domain"
)

const (
	// fuzzyThreshold is the minimum similarity ratio for a typosquatting match.
	fuzzyThreshold = 85

	// editDistanceThreshold is the maximum edit distance for a typosquatting
	// match on brands longer than 4 characters.
	editDistanceThreshold = 2

	// minBrandLen excludes very short brands from fuzzy and homoglyph passes;
	// they produce too many false positives.
	minBrandLen = 4
)

// homoglyphPairs are visually-confusable token substitutions, applied in
// order. Both directions are listed for symmetric pairs.
var homoglyphPairs = []struct {
	from, to string
}{
	{"0", "o"}, {"o", "0"},
	{"1", "l"}, {"l", "1"},
	{"1", "i"}, {"i", "1"},
	{"5", "s"}, {"s", "5"},
	{"rn", "m"}, {"m", "rn"},
	{"cl", "d"}, {"d", "cl"},
	{"vv", "w"}, {"w", "vv"},
	{"nn", "m"}, {"m", "nn"},
}

// Matcher detects brand impersonation against a fixed brand list.
// Safe for concurrent use; the list is read-only after creation.
type Matcher struct {
	brands []string
}

// NewMatcher creates a matcher. A nil or empty brand list selects
// DefaultBrands.
func NewMatcher(brands []string) *Matcher {
	if len(brands) == 0 {
		brands = DefaultBrands
	}
	lowered := make([]string, len(brands))
	for i, b := range brands {
		lowered[i] = strings.ToLower(b)
	}
	return &Matcher{brands: lowered}
}

// Brands returns a copy of the configured brand list.
func (m *Matcher) Brands() []string {
	out := make([]string, len(m.brands))
	copy(out, m.brands)
	return out
}

// FindMatches runs all detection passes against the registrable domain label
// and subdomain. Passes run independently; duplicate signals across passes
// are intentional and left to the risk engine to weigh.
func (m *Matcher) FindMatches(domainLabel, subdomain string) []domain.BrandMatch {
	domainLabel = strings.ToLower(domainLabel)
	subdomain = strings.ToLower(subdomain)

	var matches []domain.BrandMatch
	matches = append(matches, m.containmentMatches(domainLabel, subdomain)...)
	matches = append(matches, m.typosquatMatches(domainLabel)...)
	matches = append(matches, m.homoglyphMatches(domainLabel)...)
	matches = append(matches, m.confusableMatches(domainLabel)...)
	return matches
}

// containmentMatches finds literal brand names embedded in the domain or
// subdomain. A domain exactly equal to the brand is the brand itself and is
// never flagged.
func (m *Matcher) containmentMatches(domainLabel, subdomain string) []domain.BrandMatch {
	var matches []domain.BrandMatch
	for _, b := range m.brands {
		if strings.Contains(domainLabel, b) && domainLabel != b {
			matches = append(matches, domain.BrandMatch{
				Kind:          domain.KindBrandInDomain,
				Brand:         b,
				ObservedValue: domainLabel,
				Description:   fmt.Sprintf("Brand '%s' found in domain", b),
			})
		}
		if subdomain != "" && strings.Contains(subdomain, b) {
			matches = append(matches, domain.BrandMatch{
				Kind:          domain.KindBrandInSubdomain,
				Brand:         b,
				ObservedValue: subdomain,
				Description:   fmt.Sprintf("Brand '%s' found in subdomain", b),
			})
		}
	}
	return matches
}

func (m *Matcher) typosquatMatches(domainLabel string) []domain.BrandMatch {
	var matches []domain.BrandMatch
	for _, b := range m.brands {
		if len(b) < minBrandLen || domainLabel == b {
			continue
		}

		dist := editDistance(domainLabel, b)
		ratio := similarityRatio(domainLabel, b, dist)

		if ratio >= fuzzyThreshold || (dist <= editDistanceThreshold && len(b) > minBrandLen) {
			sim := ratio
			d := dist
			matches = append(matches, domain.BrandMatch{
				Kind:          domain.KindTyposquatting,
				Brand:         b,
				ObservedValue: domainLabel,
				Similarity:    &sim,
				EditDistance:  &d,
				Description:   fmt.Sprintf("Possible typosquatting of '%s' (similarity: %d%%)", b, ratio),
			})
		}
	}
	return matches
}

// homoglyphMatches builds spoof candidates by substituting confusable tokens
// in each brand and compares them against the domain label.
func (m *Matcher) homoglyphMatches(domainLabel string) []domain.BrandMatch {
	var matches []domain.BrandMatch
	for _, b := range m.brands {
		if len(b) < minBrandLen {
			continue
		}

		for _, pair := range homoglyphPairs {
			if !strings.Contains(b, pair.from) {
				continue
			}
			candidate := strings.ReplaceAll(b, pair.from, pair.to)
			substitution := fmt.Sprintf("'%s' to '%s'", pair.from, pair.to)

			if candidate == domainLabel {
				matches = append(matches, domain.BrandMatch{
					Kind:          domain.KindHomoglyphAttack,
					Brand:         b,
					ObservedValue: domainLabel,
					Substitution:  substitution,
					Description:   fmt.Sprintf("Homoglyph attack on '%s' (replacing '%s' with '%s')", b, pair.from, pair.to),
				})
			} else if strings.Contains(domainLabel, candidate) {
				matches = append(matches, domain.BrandMatch{
					Kind:          domain.KindPartialHomoglyph,
					Brand:         b,
					ObservedValue: domainLabel,
					Substitution:  substitution,
					Description:   fmt.Sprintf("Partial homoglyph match for '%s' in domain", b),
				})
			}
		}
	}
	return matches
}

// confusableMatches handles IDN spoofs the ASCII pair table cannot express:
// the punycode domain label is converted back to Unicode and reduced to its
// confusable skeleton, which is then compared against each brand.
func (m *Matcher) confusableMatches(domainLabel string) []domain.BrandMatch {
	if !strings.Contains(domainLabel, "xn--") {
		return nil
	}

	uni, err := idna.Lookup.ToUnicode(domainLabel)
	if err != nil || uni == domainLabel {
		return nil
	}

	skeleton := strings.ToLower(confusables.Normalize(uni))

	var matches []domain.BrandMatch
	for _, b := range m.brands {
		if len(b) < minBrandLen {
			continue
		}
		if skeleton == b {
			matches = append(matches, domain.BrandMatch{
				Kind:          domain.KindHomoglyphAttack,
				Brand:         b,
				ObservedValue: domainLabel,
				Substitution:  fmt.Sprintf("unicode confusable '%s'", uni),
				Description:   fmt.Sprintf("Homoglyph attack on '%s' (IDN confusable '%s')", b, uni),
			})
		} else if strings.Contains(skeleton, b) {
			matches = append(matches, domain.BrandMatch{
				Kind:          domain.KindPartialHomoglyph,
				Brand:         b,
				ObservedValue: domainLabel,
				Substitution:  fmt.Sprintf("unicode confusable '%s'", uni),
				Description:   fmt.Sprintf("Partial homoglyph match for '%s' in IDN domain", b),
			})
		}
	}
	return matches
}

package risk

import "github.com/opensource-security/shrike/internal/domain"

// DefaultWeights is the reference weight table: one entry per known trait
// and brand-match kind. Each kind maps to exactly one weight; kinds absent
// from the table contribute nothing to the score.
func DefaultWeights() map[domain.FactorKind]int {
	return map[domain.FactorKind]int{
		// URL decomposition traits
		domain.KindNonStandardPort: 15,
		domain.KindIPAddress:       25,
		domain.KindPrivateIP:       30,
		domain.KindManySubdomains:  15,
		domain.KindSuspiciousTLD:   20,
		domain.KindHexEncoding:     30,
		domain.KindPunycode:        25,
		domain.KindLongURL:         10,
		domain.KindSpecialChars:    15,

		// Registration intelligence traits
		domain.KindNonExistentDomain:   40,
		domain.KindWhoisLookupFailed:   15,
		domain.KindNewDomain:           25,
		domain.KindSuspiciousRegistrar: 15,
		domain.KindShortRegistration:   20,
		domain.KindIPAddressNoWhois:    25,

		// Brand matches
		domain.KindBrandInDomain:    15,
		domain.KindBrandInSubdomain: 20,
		domain.KindTyposquatting:    40,
		domain.KindHomoglyphAttack:  50,
		domain.KindPartialHomoglyph: 35,
	}
}

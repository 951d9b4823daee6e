// Package domain defines the core interfaces and types for Shrike.
package domain

// FactorKind identifies a suspicious trait, brand match, or risk factor.
// The risk engine keys its weight table on these values; kinds it does not
// know are ignored, so new kinds can be added without touching the engine.
type FactorKind string

// URL decomposition trait kinds.
const (
	KindNonStandardPort FactorKind = "non_standard_port"
	KindIPAddress       FactorKind = "ip_address"
	KindPrivateIP       FactorKind = "private_ip"
	KindManySubdomains  FactorKind = "many_subdomains"
	KindSuspiciousTLD   FactorKind = "suspicious_tld"
	KindHexEncoding     FactorKind = "hex_encoding"
	KindPunycode        FactorKind = "punycode"
	KindLongURL         FactorKind = "long_url"
	KindSpecialChars    FactorKind = "special_chars"
)

// Registration intelligence trait kinds.
const (
	KindNonExistentDomain   FactorKind = "non_existent_domain"
	KindWhoisLookupFailed   FactorKind = "whois_lookup_failed"
	KindNewDomain           FactorKind = "new_domain"
	KindSuspiciousRegistrar FactorKind = "suspicious_registrar"
	KindShortRegistration   FactorKind = "short_registration"
	KindIPAddressNoWhois    FactorKind = "ip_address_no_whois"
)

// Brand match kinds.
const (
	KindBrandInDomain    FactorKind = "brand_in_domain"
	KindBrandInSubdomain FactorKind = "brand_in_subdomain"
	KindTyposquatting    FactorKind = "typosquatting"
	KindHomoglyphAttack  FactorKind = "homoglyph_attack"
	KindPartialHomoglyph FactorKind = "partial_homoglyph"
)

// Trait is a single suspicious observation about a URL or domain.
// Immutable once created; absence of a condition produces no trait.
type Trait struct {
	Kind        FactorKind `json:"kind"`
	Value       any        `json:"value,omitempty"`
	Description string     `json:"description"`
}

// BrandMatch records a brand-impersonation signal found in a hostname.
// Similarity and EditDistance are populated for typosquatting matches,
// Substitution for homoglyph matches.
type BrandMatch struct {
	Kind          FactorKind `json:"kind"`
	Brand         string     `json:"brand"`
	ObservedValue string     `json:"observed_value"`
	Similarity    *int       `json:"similarity,omitempty"`
	EditDistance  *int       `json:"edit_distance,omitempty"`
	Substitution  string     `json:"substitution,omitempty"`
	Description   string     `json:"description"`
}

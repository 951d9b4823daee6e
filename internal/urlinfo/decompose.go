// Package urlinfo normalizes URLs and flags lexical obfuscation traits.
package urlinfo

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/opensource-security/shrike/internal/domain"
)

// ErrMalformedURL marks input that cannot be parsed even after scheme
// normalization. Terminal for that URL; batch callers report it per item.
var ErrMalformedURL = errors.New("malformed URL")

// DefaultSuspiciousTLDs are TLDs statistically associated with abuse.
var DefaultSuspiciousTLDs = []string{
	"tk", "ml", "ga", "cf", "gq", "xyz", "top", "work", "date", "bid",
	"stream", "racing", "win", "review", "country", "science", "download",
}

var (
	schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)
	hexRe    = regexp.MustCompile(`%[0-9a-fA-F]{2}`)
	ipv4Re   = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
)

// Decomposer splits URLs into their components and detects obfuscation
// traits. Safe for concurrent use; its TLD set is read-only after creation.
type Decomposer struct {
	suspiciousTLDs map[string]struct{}
}

// NewDecomposer creates a decomposer. A nil or empty tlds slice selects
// DefaultSuspiciousTLDs.
func NewDecomposer(tlds []string) *Decomposer {
	if len(tlds) == 0 {
		tlds = DefaultSuspiciousTLDs
	}
	set := make(map[string]struct{}, len(tlds))
	for _, t := range tlds {
		set[strings.ToLower(t)] = struct{}{}
	}
	return &Decomposer{suspiciousTLDs: set}
}

// Decompose parses a URL and extracts its components and suspicious traits.
// Input without a scheme is prefixed with http:// before parsing.
func (d *Decomposer) Decompose(rawURL string) (*domain.Decomposition, error) {
	if !schemeRe.MatchString(rawURL) {
		rawURL = "http://" + rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	hostname := u.Hostname()
	if hostname == "" {
		return nil, fmt.Errorf("%w: no host in %q", ErrMalformedURL, rawURL)
	}
	hostname = strings.ToLower(hostname)

	dec := &domain.Decomposition{
		URL:      rawURL,
		Scheme:   u.Scheme,
		Host:     strings.ToLower(u.Host),
		Path:     u.Path,
		Query:    u.RawQuery,
		Fragment: u.Fragment,
		IsIPHost: ipv4Re.MatchString(hostname),
	}

	if dec.IsIPHost {
		dec.Domain = hostname
	} else {
		dec.Domain, dec.Subdomain, dec.Suffix = splitHost(hostname)
	}

	dec.Traits = d.detectTraits(u, dec)
	return dec, nil
}

// splitHost separates a hostname into registrable domain label, subdomain
// and public suffix using the public suffix list. Hosts the list cannot
// resolve (bare suffixes, single labels like "localhost") keep the whole
// host as the domain label.
func splitHost(hostname string) (domainLabel, subdomain, suffix string) {
	ascii := hostname
	if converted, err := idna.Lookup.ToASCII(hostname); err == nil && converted != "" {
		ascii = converted
	}

	suffix, _ = publicsuffix.PublicSuffix(ascii)
	etld1, err := publicsuffix.EffectiveTLDPlusOne(ascii)
	if err != nil {
		return ascii, "", ""
	}

	domainLabel = strings.TrimSuffix(etld1, "."+suffix)
	subdomain = strings.TrimSuffix(strings.TrimSuffix(ascii, etld1), ".")
	return domainLabel, subdomain, suffix
}

func (d *Decomposer) detectTraits(u *url.URL, dec *domain.Decomposition) []domain.Trait {
	var traits []domain.Trait

	if port := u.Port(); port != "" && port != "80" && port != "443" {
		traits = append(traits, domain.Trait{
			Kind:        domain.KindNonStandardPort,
			Value:       port,
			Description: fmt.Sprintf("Non-standard port %s in use", port),
		})
	}

	hostname := dec.Hostname()
	if dec.IsIPHost {
		traits = append(traits, domain.Trait{
			Kind:        domain.KindIPAddress,
			Value:       hostname,
			Description: "IP address used instead of domain name",
		})

		if ip := net.ParseIP(hostname); ip != nil && isPrivateOrReserved(ip) {
			traits = append(traits, domain.Trait{
				Kind:        domain.KindPrivateIP,
				Value:       hostname,
				Description: "Private IP address used",
			})
		}
	}

	if dec.Subdomain != "" {
		if parts := strings.Split(dec.Subdomain, "."); len(parts) > 3 {
			traits = append(traits, domain.Trait{
				Kind:        domain.KindManySubdomains,
				Value:       dec.Subdomain,
				Description: fmt.Sprintf("Excessive number of subdomains (%d)", len(parts)),
			})
		}
	}

	if _, ok := d.suspiciousTLDs[dec.Suffix]; ok {
		traits = append(traits, domain.Trait{
			Kind:        domain.KindSuspiciousTLD,
			Value:       dec.Suffix,
			Description: fmt.Sprintf("Suspicious TLD '%s'", dec.Suffix),
		})
	}

	// u.Path is already percent-decoded, so check the escaped form.
	if hexRe.MatchString(u.Host) || hexRe.MatchString(u.EscapedPath()) {
		traits = append(traits, domain.Trait{
			Kind:        domain.KindHexEncoding,
			Value:       dec.URL,
			Description: "Hexadecimal encoding detected in URL",
		})
	}

	if strings.Contains(dec.Host, "xn--") {
		traits = append(traits, domain.Trait{
			Kind:        domain.KindPunycode,
			Value:       dec.Host,
			Description: "Punycode (IDN) encoding detected",
		})
	}

	if n := len(dec.URL); n > 100 {
		traits = append(traits, domain.Trait{
			Kind:        domain.KindLongURL,
			Value:       n,
			Description: fmt.Sprintf("Excessively long URL (%d characters)", n),
		})
	}

	if n := countSpecialChars(dec.Host); n > 3 {
		traits = append(traits, domain.Trait{
			Kind:        domain.KindSpecialChars,
			Value:       n,
			Description: fmt.Sprintf("Excessive special characters in domain (%d)", n),
		})
	}

	return traits
}

// isPrivateOrReserved reports whether an IP falls in a private or otherwise
// reserved range (RFC 1918, loopback, link-local, unspecified).
func isPrivateOrReserved(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}

func countSpecialChars(host string) int {
	n := 0
	for _, r := range host {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '-', r == ':':
		default:
			n++
		}
	}
	return n
}

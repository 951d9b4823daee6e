// Package registration supplies domain-registration intelligence.
// The production source performs WHOIS lookups; failures are never fatal,
// they degrade into suspicious traits on the returned record.
package registration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"

	"github.com/opensource-security/shrike/internal/domain"
)

const (
	// minDomainAgeDays is the age under which a domain is considered
	// suspiciously new.
	minDomainAgeDays = 30

	// minRegistrationDays is the registration period under which a domain
	// is considered suspiciously short-lived.
	minRegistrationDays = 365
)

// DefaultSuspiciousRegistrars are registrar name fragments frequently seen
// on abusive registrations. Matching is case-insensitive substring.
var DefaultSuspiciousRegistrars = []string{
	"namecheap", "namesilo", "namebright", "porkbun",
	"dynadot", "internetbs", "epik", "regru",
}

// dateLayouts covers the date formats seen in the wild across WHOIS servers.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

// WhoisSource implements domain.RegistrationSource over live WHOIS.
type WhoisSource struct {
	client     *whois.Client
	registrars []string
	now        func() time.Time
}

// NewWhoisSource creates a WHOIS-backed source. Each lookup is bounded by
// timeout at the transport level; callers additionally bound the call with
// a context deadline.
func NewWhoisSource(timeout time.Duration) *WhoisSource {
	client := whois.NewClient()
	client.SetTimeout(timeout)

	return &WhoisSource{
		client:     client,
		registrars: DefaultSuspiciousRegistrars,
		now:        time.Now,
	}
}

// Lookup fetches and annotates the registration record for a registrable
// domain. Never returns nil and never fails: timeouts and transport errors
// yield a degraded record with a whois_lookup_failed trait.
func (s *WhoisSource) Lookup(ctx context.Context, dom string) *domain.RegistrationRecord {
	type lookupResult struct {
		raw string
		err error
	}

	ch := make(chan lookupResult, 1)
	go func() {
		raw, err := s.client.Whois(dom)
		ch <- lookupResult{raw: raw, err: err}
	}()

	select {
	case <-ctx.Done():
		slog.Warn("whois lookup timed out", "domain", dom)
		return failedRecord(dom, "lookup timed out")
	case res := <-ch:
		if res.err != nil {
			slog.Warn("whois lookup failed", "domain", dom, "error", res.err)
			return failedRecord(dom, res.err.Error())
		}
		return s.annotate(dom, res.raw)
	}
}

// annotate parses a raw WHOIS response and derives suspicious traits.
// Split from Lookup so record annotation is testable without network access.
func (s *WhoisSource) annotate(dom, raw string) *domain.RegistrationRecord {
	rec := &domain.RegistrationRecord{Domain: dom}

	parsed, err := whoisparser.Parse(raw)
	if err != nil {
		if err == whoisparser.ErrNotFoundDomain {
			rec.Traits = append(rec.Traits, domain.Trait{
				Kind:        domain.KindNonExistentDomain,
				Value:       dom,
				Description: "Domain does not exist in WHOIS records",
			})
			return rec
		}
		slog.Warn("whois response unparseable", "domain", dom, "error", err)
		return failedRecord(dom, err.Error())
	}
	if parsed.Domain == nil {
		return failedRecord(dom, "no domain section in WHOIS response")
	}

	rec.Exists = true
	rec.CreationDate = parseDate(parsed.Domain.CreatedDateInTime, parsed.Domain.CreatedDate)
	rec.ExpirationDate = parseDate(parsed.Domain.ExpirationDateInTime, parsed.Domain.ExpirationDate)
	if parsed.Registrar != nil {
		rec.Registrar = parsed.Registrar.Name
	}

	if rec.CreationDate != nil {
		age := int(s.now().Sub(*rec.CreationDate).Hours() / 24)
		rec.AgeDays = &age

		if age < minDomainAgeDays {
			rec.Traits = append(rec.Traits, domain.Trait{
				Kind:        domain.KindNewDomain,
				Value:       age,
				Description: fmt.Sprintf("Domain was registered recently (%d days ago)", age),
			})
		}
	}

	if rec.Registrar != "" && s.isSuspiciousRegistrar(rec.Registrar) {
		rec.Traits = append(rec.Traits, domain.Trait{
			Kind:        domain.KindSuspiciousRegistrar,
			Value:       rec.Registrar,
			Description: fmt.Sprintf("Domain registered with suspicious registrar: %s", rec.Registrar),
		})
	}

	if rec.CreationDate != nil && rec.ExpirationDate != nil {
		period := int(rec.ExpirationDate.Sub(*rec.CreationDate).Hours() / 24)
		if period < minRegistrationDays {
			rec.Traits = append(rec.Traits, domain.Trait{
				Kind:        domain.KindShortRegistration,
				Value:       period,
				Description: fmt.Sprintf("Short registration period (%d days)", period),
			})
		}
	}

	return rec
}

func (s *WhoisSource) isSuspiciousRegistrar(registrar string) bool {
	lowered := strings.ToLower(registrar)
	for _, fragment := range s.registrars {
		if strings.Contains(lowered, fragment) {
			return true
		}
	}
	return false
}

// parseDate prefers the parser's pre-parsed time and falls back to trying
// the known WHOIS date layouts.
func parseDate(parsed *time.Time, raw string) *time.Time {
	if parsed != nil {
		return parsed
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// failedRecord builds the degraded record for a lookup that could not
// complete. The failure itself is a suspicious signal.
func failedRecord(dom, reason string) *domain.RegistrationRecord {
	return &domain.RegistrationRecord{
		Domain: dom,
		Traits: []domain.Trait{{
			Kind:        domain.KindWhoisLookupFailed,
			Value:       reason,
			Description: "WHOIS lookup failed, which may indicate a suspicious domain",
		}},
	}
}

// IPRecord synthesizes the record for an IP-literal host. No lookup is
// attempted: WHOIS has nothing useful for raw addresses.
func IPRecord(host string) *domain.RegistrationRecord {
	return &domain.RegistrationRecord{
		Domain: host,
		Traits: []domain.Trait{{
			Kind:        domain.KindIPAddressNoWhois,
			Value:       host,
			Description: "IP address used instead of domain name (no WHOIS data)",
		}},
	}
}

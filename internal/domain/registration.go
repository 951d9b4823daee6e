package domain

import (
	"context"
	"time"
)

// RegistrationRecord is the structured result of a domain registration lookup.
// Optional fields are pointers so "not available" is explicit rather than a
// zero-value sentinel.
type RegistrationRecord struct {
	Domain         string     `json:"domain"`
	Exists         bool       `json:"exists"`
	CreationDate   *time.Time `json:"creation_date,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	Registrar      string     `json:"registrar,omitempty"`
	AgeDays        *int       `json:"age_days,omitempty"`
	Traits         []Trait    `json:"traits,omitempty"`
}

// RegistrationSource supplies registration intelligence for a registrable
// domain. Implementations must never return an error for network failures:
// they return a degraded record carrying a whois_lookup_failed trait instead,
// so one slow or broken lookup can never abort an analysis.
type RegistrationSource interface {
	Lookup(ctx context.Context, domain string) *RegistrationRecord
}

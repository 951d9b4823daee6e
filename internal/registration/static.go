package registration

import (
	"context"
	"time"

	"github.com/opensource-security/shrike/internal/domain"
)

// StaticSource serves canned registration records. Used by tests and the
// benchmark harness to keep analysis deterministic and network-free.
type StaticSource struct {
	// Records maps registrable domain to the record Lookup returns.
	Records map[string]*domain.RegistrationRecord
}

// Lookup returns the canned record for dom, or a clean long-lived record
// when none is configured.
func (s *StaticSource) Lookup(_ context.Context, dom string) *domain.RegistrationRecord {
	if rec, ok := s.Records[dom]; ok {
		return rec
	}

	created := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	expires := time.Date(2035, 1, 1, 0, 0, 0, 0, time.UTC)
	age := int(time.Since(created).Hours() / 24)
	return &domain.RegistrationRecord{
		Domain:         dom,
		Exists:         true,
		CreationDate:   &created,
		ExpirationDate: &expires,
		Registrar:      "Example Registrar LLC",
		AgeDays:        &age,
	}
}

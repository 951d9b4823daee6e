package registration

import (
	"testing"
	"time"

	"github.com/opensource-security/shrike/internal/domain"
)

func testSource(now time.Time) *WhoisSource {
	return &WhoisSource{
		registrars: DefaultSuspiciousRegistrars,
		now:        func() time.Time { return now },
	}
}

func traitKinds(traits []domain.Trait) map[domain.FactorKind]bool {
	kinds := make(map[domain.FactorKind]bool, len(traits))
	for _, tr := range traits {
		kinds[tr.Kind] = true
	}
	return kinds
}

const freshWhois = `Domain Name: FRESH-LOGIN.COM
Registry Domain ID: 2800000000_DOMAIN_COM-VRSN
Registrar WHOIS Server: whois.namecheap.com
Registrar URL: http://www.namecheap.com
Updated Date: 2026-08-10T00:00:00Z
Creation Date: 2026-08-10T00:00:00Z
Registry Expiry Date: 2027-02-10T00:00:00Z
Registrar: NameCheap, Inc.
Registrar IANA ID: 1068
Domain Status: clientTransferProhibited https://icann.org/epp#clientTransferProhibited
Name Server: DNS1.REGISTRAR-SERVERS.COM
Name Server: DNS2.REGISTRAR-SERVERS.COM
DNSSEC: unsigned
>>> Last update of whois database: 2026-08-20T00:00:00Z <<<
`

const matureWhois = `Domain Name: EXAMPLE-MATURE.COM
Registry Domain ID: 100000_DOMAIN_COM-VRSN
Registrar WHOIS Server: whois.markmonitor.com
Registrar URL: http://www.markmonitor.com
Updated Date: 2025-01-01T00:00:00Z
Creation Date: 2010-01-01T00:00:00Z
Registry Expiry Date: 2030-01-01T00:00:00Z
Registrar: MarkMonitor Inc.
Registrar IANA ID: 292
Domain Status: clientTransferProhibited https://icann.org/epp#clientTransferProhibited
Name Server: NS1.EXAMPLE-MATURE.COM
DNSSEC: signedDelegation
>>> Last update of whois database: 2026-08-20T00:00:00Z <<<
`

func TestAnnotate(t *testing.T) {
	now := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	src := testSource(now)

	t.Run("FreshSuspiciousRegistration", func(t *testing.T) {
		rec := src.annotate("fresh-login.com", freshWhois)
		if !rec.Exists {
			t.Fatal("parsed record must be marked as existing")
		}
		if rec.AgeDays == nil || *rec.AgeDays != 15 {
			t.Fatalf("expected age 15 days, got %v", rec.AgeDays)
		}

		kinds := traitKinds(rec.Traits)
		for _, want := range []domain.FactorKind{
			domain.KindNewDomain,
			domain.KindSuspiciousRegistrar,
			domain.KindShortRegistration,
		} {
			if !kinds[want] {
				t.Errorf("expected trait %s, got %v", want, rec.Traits)
			}
		}
	})

	t.Run("MatureRegistration", func(t *testing.T) {
		rec := src.annotate("example-mature.com", matureWhois)
		if !rec.Exists {
			t.Fatal("parsed record must be marked as existing")
		}
		if len(rec.Traits) != 0 {
			t.Errorf("mature registration must carry no traits, got %v", rec.Traits)
		}
		if rec.Registrar != "MarkMonitor Inc." {
			t.Errorf("unexpected registrar %q", rec.Registrar)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		rec := src.annotate("does-not-exist-zz.com", `No match for "DOES-NOT-EXIST-ZZ.COM".`)
		if rec.Exists {
			t.Error("unregistered domain must not be marked as existing")
		}
		if !traitKinds(rec.Traits)[domain.KindNonExistentDomain] {
			t.Errorf("expected non_existent_domain trait, got %v", rec.Traits)
		}
	})

	t.Run("GarbageResponse", func(t *testing.T) {
		rec := src.annotate("weird.example", "%% rate limit exceeded")
		if !traitKinds(rec.Traits)[domain.KindWhoisLookupFailed] {
			t.Errorf("expected whois_lookup_failed trait, got %v", rec.Traits)
		}
	})
}

func TestSuspiciousRegistrarMatching(t *testing.T) {
	src := testSource(time.Now())

	cases := []struct {
		registrar string
		want      bool
	}{
		{"NameCheap, Inc.", true},
		{"PORKBUN LLC", true},
		{"Registrar of Domains REG.RU LLC", false}, // fragment is "regru", no dot
		{"MarkMonitor Inc.", false},
		{"", false},
	}
	for _, c := range cases {
		if got := src.isSuspiciousRegistrar(c.registrar); got != c.want {
			t.Errorf("isSuspiciousRegistrar(%q) = %v, want %v", c.registrar, got, c.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	pre := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	if got := parseDate(&pre, "ignored"); got == nil || !got.Equal(pre) {
		t.Error("pre-parsed time must win over the raw string")
	}

	cases := []struct {
		raw  string
		want time.Time
	}{
		{"2021-03-04T05:06:07Z", time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)},
		{"2021-03-04 05:06:07", time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)},
		{"2021-03-04", time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"04-Mar-2021", time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"2021.03.04", time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got := parseDate(nil, c.raw)
		if got == nil || !got.Equal(c.want) {
			t.Errorf("parseDate(nil, %q) = %v, want %v", c.raw, got, c.want)
		}
	}

	if parseDate(nil, "") != nil {
		t.Error("empty raw date must yield nil")
	}
	if parseDate(nil, "not a date") != nil {
		t.Error("unparseable date must yield nil")
	}
}

func TestIPRecord(t *testing.T) {
	rec := IPRecord("192.168.1.1")
	if rec.Exists {
		t.Error("IP record must not claim registration exists")
	}
	if len(rec.Traits) != 1 || rec.Traits[0].Kind != domain.KindIPAddressNoWhois {
		t.Errorf("expected single ip_address_no_whois trait, got %v", rec.Traits)
	}
}

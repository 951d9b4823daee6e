package domain

import (
	"time"
)

// RiskLevel is the banded interpretation of a risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// LevelForScore maps a risk score to its band. Pure and deterministic:
// < 30 Low, < 70 Medium, otherwise High.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score < 30:
		return RiskLow
	case score < 70:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// RiskFactor is a single weighted contribution to the overall score.
type RiskFactor struct {
	Kind        FactorKind `json:"kind"`
	Weight      int        `json:"weight"`
	Description string     `json:"description"`
}

// Decomposition holds the normalized parts of an analyzed URL.
// Domain is the registrable label without its public suffix, Subdomain may be
// empty, and Suffix is the public-suffix label (empty for IP-literal hosts).
type Decomposition struct {
	URL       string  `json:"url"`
	Scheme    string  `json:"scheme"`
	Host      string  `json:"host"`
	Path      string  `json:"path,omitempty"`
	Query     string  `json:"query,omitempty"`
	Fragment  string  `json:"fragment,omitempty"`
	Domain    string  `json:"domain"`
	Subdomain string  `json:"subdomain,omitempty"`
	Suffix    string  `json:"suffix,omitempty"`
	IsIPHost  bool    `json:"is_ip_host,omitempty"`
	Traits    []Trait `json:"traits,omitempty"`
}

// Hostname returns the host with any port stripped.
func (d *Decomposition) Hostname() string {
	for i := len(d.Host) - 1; i >= 0; i-- {
		if d.Host[i] == ':' {
			return d.Host[:i]
		}
	}
	return d.Host
}

// Features is the verbose detail bag attached to a result on request.
// Sections are named and optional rather than an open-ended map, so callers
// can check for "not collected" explicitly.
type Features struct {
	Decomposition *Decomposition      `json:"decomposition,omitempty"`
	Registration  *RegistrationRecord `json:"registration,omitempty"`
	BrandMatches  []BrandMatch        `json:"brand_matches,omitempty"`
}

// AnalysisResult is the outcome of analyzing one URL. Immutable once
// constructed; one result per URL per call.
type AnalysisResult struct {
	ID          string       `json:"id,omitempty"`
	URL         string       `json:"url"`
	Host        string       `json:"host,omitempty"`
	RiskScore   float64      `json:"risk_score"`
	RiskLevel   RiskLevel    `json:"risk_level"`
	RiskFactors []RiskFactor `json:"risk_factors"`
	Features    *Features    `json:"features,omitempty"`
	AnalyzedAt  time.Time    `json:"analyzed_at"`
}

// BatchItem pairs one input URL with either its result or its error.
// Batch output is aligned to input order; a malformed URL yields an item
// with Error set and never aborts sibling analyses.
type BatchItem struct {
	URL    string          `json:"url"`
	Result *AnalysisResult `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

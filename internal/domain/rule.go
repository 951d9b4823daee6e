package domain

import "time"

// AlertRule is a CEL expression evaluated against every completed analysis.
// When the expression evaluates to true the analysis is published to the
// alert topic. Rules are persisted and hot-reloadable.
type AlertRule struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Expression  string    `json:"expression"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// AlertMatch records one rule firing for one analysis.
type AlertMatch struct {
	RuleID    string    `json:"ruleId"`
	RuleName  string    `json:"ruleName"`
	URL       string    `json:"url"`
	RiskScore float64   `json:"risk_score"`
	RiskLevel RiskLevel `json:"risk_level"`
}

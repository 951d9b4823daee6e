// Package rules provides the CEL-Go based alert rule engine. Rules are
// boolean CEL expressions evaluated against completed analyses; a rule that
// evaluates to true fires an alert.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-security/shrike/internal/domain"
)

// Engine compiles and evaluates alert rules. Safe for concurrent use;
// ReloadRules swaps the rule set atomically under evaluation.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
}

// CompiledRule holds a pre-compiled CEL program alongside its source rule.
type CompiledRule struct {
	Rule    *domain.AlertRule
	Program cel.Program
}

// NewEngine creates an alert rule engine with the analysis variables bound.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("url", cel.StringType),
		cel.Variable("host", cel.StringType),
		cel.Variable("risk_score", cel.DoubleType),
		cel.Variable("risk_level", cel.StringType),
		cel.Variable("factor_kinds", cel.ListType(cel.StringType)),
		cel.Variable("factor_count", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
	}, nil
}

// ValidateRule compiles a rule without loading it.
func (e *Engine) ValidateRule(rule *domain.AlertRule) error {
	if rule == nil {
		return fmt.Errorf("alert rule is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(rule)
	return err
}

// LoadRule compiles and loads a rule into the engine, replacing any loaded
// rule with the same ID.
func (e *Engine) LoadRule(rule *domain.AlertRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(rule)
	if err != nil {
		return err
	}

	e.compiledRules[rule.ID] = compiled
	return nil
}

// LoadRules compiles and loads all enabled rules.
func (e *Engine) LoadRules(rules []*domain.AlertRule) error {
	for _, rule := range rules {
		if rule.Enabled {
			if err := e.LoadRule(rule); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadRules replaces the loaded rule set with the enabled rules from
// configs. Enables hot-reloading after rule edits.
func (e *Engine) ReloadRules(rules []*domain.AlertRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := make(map[string]*CompiledRule)
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		compiled, err := e.compileRule(rule)
		if err != nil {
			return err
		}
		next[rule.ID] = compiled
	}

	e.compiledRules = next
	return nil
}

// UnloadRule removes a rule from the engine. Unknown IDs are a no-op.
func (e *Engine) UnloadRule(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.compiledRules, id)
}

// Evaluate runs every loaded rule against a completed analysis and returns
// one match per firing rule. Evaluation errors disable the firing, not the
// analysis: they are logged and the rule is treated as not matching.
func (e *Engine) Evaluate(_ context.Context, result *domain.AnalysisResult) []domain.AlertMatch {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil
	}

	activation := activationFor(result)

	var matches []domain.AlertMatch
	for _, rule := range rules {
		out, _, err := rule.Program.Eval(activation)
		if err != nil {
			slog.Warn("alert rule evaluation failed",
				"rule", rule.Rule.ID,
				"url", result.URL,
				"error", err,
			)
			continue
		}
		if out == types.True {
			matches = append(matches, domain.AlertMatch{
				RuleID:    rule.Rule.ID,
				RuleName:  rule.Rule.Name,
				URL:       result.URL,
				RiskScore: result.RiskScore,
				RiskLevel: result.RiskLevel,
			})
		}
	}

	return matches
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// GetLoadedRules returns the currently loaded rules.
func (e *Engine) GetLoadedRules() []*domain.AlertRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.AlertRule, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Rule)
	}
	return rules
}

// Close clears the loaded rule set.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(rule *domain.AlertRule) (*CompiledRule, error) {
	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", rule.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", rule.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", rule.ID, err)
	}

	return &CompiledRule{Rule: rule, Program: program}, nil
}

func activationFor(result *domain.AnalysisResult) map[string]any {
	kinds := make([]string, 0, len(result.RiskFactors))
	for _, factor := range result.RiskFactors {
		kinds = append(kinds, string(factor.Kind))
	}

	host := result.Host
	if host == "" && result.Features != nil && result.Features.Decomposition != nil {
		host = result.Features.Decomposition.Host
	}

	return map[string]any{
		"url":          result.URL,
		"host":         host,
		"risk_score":   result.RiskScore,
		"risk_level":   string(result.RiskLevel),
		"factor_kinds": kinds,
		"factor_count": len(result.RiskFactors),
	}
}

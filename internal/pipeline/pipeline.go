// Package pipeline orchestrates a full URL analysis: decomposition, brand
// matching, registration lookup, scoring, persistence and event publishing.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/opensource-security/shrike/internal/brand"
	"github.com/opensource-security/shrike/internal/domain"
	"github.com/opensource-security/shrike/internal/registration"
	"github.com/opensource-security/shrike/internal/risk"
	"github.com/opensource-security/shrike/internal/urlinfo"
)

const (
	defaultLookupTimeout = 10 * time.Second
	defaultConcurrency   = 8
	defaultRecordTTL     = time.Hour
)

// AlertEvaluator checks a completed analysis against configured alert rules.
type AlertEvaluator interface {
	Evaluate(ctx context.Context, result *domain.AnalysisResult) []domain.AlertMatch
}

// Config wires the pipeline's collaborators. Decomposer, Matcher and Engine
// fall back to defaults when nil; Cache, Repo, Bus and Alerts are optional
// and skipped when absent.
type Config struct {
	Decomposer *urlinfo.Decomposer
	Matcher    *brand.Matcher
	Source     domain.RegistrationSource
	Engine     *risk.Engine

	Cache  domain.Cache
	Repo   domain.Repository
	Bus    domain.EventBus
	Alerts AlertEvaluator

	LookupTimeout   time.Duration
	Concurrency     int
	RegistrationTTL time.Duration
}

// Pipeline runs URL analyses. Safe for concurrent use.
type Pipeline struct {
	decomposer *urlinfo.Decomposer
	matcher    *brand.Matcher
	source     domain.RegistrationSource
	engine     *risk.Engine

	cache  domain.Cache
	repo   domain.Repository
	bus    domain.EventBus
	alerts AlertEvaluator

	lookupTimeout time.Duration
	concurrency   int
	recordTTL     time.Duration
}

// New builds a pipeline from cfg, filling in defaults for missing pieces.
func New(cfg Config) *Pipeline {
	p := &Pipeline{
		decomposer:    cfg.Decomposer,
		matcher:       cfg.Matcher,
		source:        cfg.Source,
		engine:        cfg.Engine,
		cache:         cfg.Cache,
		repo:          cfg.Repo,
		bus:           cfg.Bus,
		alerts:        cfg.Alerts,
		lookupTimeout: cfg.LookupTimeout,
		concurrency:   cfg.Concurrency,
		recordTTL:     cfg.RegistrationTTL,
	}

	if p.decomposer == nil {
		p.decomposer = urlinfo.NewDecomposer(nil)
	}
	if p.matcher == nil {
		p.matcher = brand.NewMatcher(nil)
	}
	if p.engine == nil {
		p.engine = risk.NewEngine()
	}
	if p.source == nil {
		p.source = registration.NewWhoisSource(defaultLookupTimeout)
	}
	if p.lookupTimeout <= 0 {
		p.lookupTimeout = defaultLookupTimeout
	}
	if p.concurrency <= 0 {
		p.concurrency = defaultConcurrency
	}
	if p.recordTTL <= 0 {
		p.recordTTL = defaultRecordTTL
	}

	return p
}

// Engine exposes the scoring engine for runtime weight adjustment.
func (p *Pipeline) Engine() *risk.Engine { return p.engine }

// Brands exposes the monitored brand list.
func (p *Pipeline) Brands() []string { return p.matcher.Brands() }

// Analyze runs the full analysis for one URL. Registration failures degrade
// into traits; only a malformed URL fails the call. When verbose is set the
// result carries the decomposition, registration record and brand matches.
func (p *Pipeline) Analyze(ctx context.Context, rawURL string, verbose bool) (*domain.AnalysisResult, error) {
	dec, err := p.decomposer.Decompose(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze %q: %w", rawURL, err)
	}

	matches := p.matcher.FindMatches(dec.Domain, dec.Subdomain)
	rec := p.lookupRegistration(ctx, dec)

	traits := make([]domain.Trait, 0, len(dec.Traits)+len(rec.Traits))
	traits = append(traits, dec.Traits...)
	traits = append(traits, rec.Traits...)

	score, factors := p.engine.Score(traits, matches)

	result := &domain.AnalysisResult{
		ID:          uuid.NewString(),
		URL:         rawURL,
		Host:        dec.Host,
		RiskScore:   score,
		RiskLevel:   domain.LevelForScore(score),
		RiskFactors: factors,
		AnalyzedAt:  time.Now().UTC(),
	}
	if verbose {
		result.Features = &domain.Features{
			Decomposition: dec,
			Registration:  rec,
			BrandMatches:  matches,
		}
	}

	p.persist(ctx, result)
	p.publish(ctx, result)

	return result, nil
}

// AnalyzeBatch analyzes urls with bounded concurrency. Output is aligned to
// input order: item i always describes urls[i]. A failing URL fills its
// item's Error and never aborts sibling analyses.
func (p *Pipeline) AnalyzeBatch(ctx context.Context, urls []string, verbose bool) []domain.BatchItem {
	items := make([]domain.BatchItem, len(urls))
	if len(urls) == 0 {
		return items
	}

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i, rawURL := range urls {
		g.Go(func() error {
			items[i].URL = rawURL
			result, err := p.Analyze(ctx, rawURL, verbose)
			if err != nil {
				items[i].Error = err.Error()
				return nil
			}
			items[i].Result = result
			return nil
		})
	}
	g.Wait()

	return items
}

// lookupRegistration resolves the registration record for the decomposed
// host. IP-literal hosts never hit WHOIS; registrable domains go through the
// cache. Degraded lookups are not cached so transient failures retry.
func (p *Pipeline) lookupRegistration(ctx context.Context, dec *domain.Decomposition) *domain.RegistrationRecord {
	if dec.IsIPHost {
		return registration.IPRecord(dec.Hostname())
	}

	key := registrableDomain(dec)

	if p.cache != nil {
		if rec, err := p.cache.GetRegistration(ctx, key); err != nil {
			slog.Warn("registration cache read failed", "domain", key, "error", err)
		} else if rec != nil {
			return rec
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, p.lookupTimeout)
	defer cancel()
	rec := p.source.Lookup(lookupCtx, key)

	if p.cache != nil && !degraded(rec) {
		if err := p.cache.SetRegistration(ctx, key, rec, p.recordTTL); err != nil {
			slog.Warn("registration cache write failed", "domain", key, "error", err)
		}
	}

	return rec
}

func registrableDomain(dec *domain.Decomposition) string {
	if dec.Domain != "" && dec.Suffix != "" {
		return dec.Domain + "." + dec.Suffix
	}
	return dec.Hostname()
}

func degraded(rec *domain.RegistrationRecord) bool {
	for _, tr := range rec.Traits {
		if tr.Kind == domain.KindWhoisLookupFailed {
			return true
		}
	}
	return false
}

// persist stores the result when a repository is configured. Storage errors
// are logged, never surfaced: analysis output does not depend on the store.
func (p *Pipeline) persist(ctx context.Context, result *domain.AnalysisResult) {
	if p.repo == nil {
		return
	}
	if err := p.repo.SaveAnalysis(ctx, result); err != nil {
		slog.Warn("failed to persist analysis", "id", result.ID, "error", err)
	}
}

// publish emits the completed event and, when alert rules fire, one alert
// event per match.
func (p *Pipeline) publish(ctx context.Context, result *domain.AnalysisResult) {
	if p.bus != nil {
		if payload, err := json.Marshal(result); err == nil {
			if err := p.bus.Publish(ctx, domain.TopicAnalysisCompleted, payload); err != nil {
				slog.Warn("failed to publish analysis event", "id", result.ID, "error", err)
			}
		}
	}

	if p.alerts == nil {
		return
	}
	for _, match := range p.alerts.Evaluate(ctx, result) {
		slog.Info("alert rule fired",
			"rule", match.RuleName,
			"url", match.URL,
			"risk_score", match.RiskScore,
		)
		if p.bus == nil {
			continue
		}
		payload, err := json.Marshal(match)
		if err != nil {
			continue
		}
		if err := p.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
			slog.Warn("failed to publish alert event", "rule", match.RuleID, "error", err)
		}
	}
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-security/shrike/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleResult(id string) *domain.AnalysisResult {
	return &domain.AnalysisResult{
		ID:        id,
		URL:       "http://paypa1-secure.tk/verify",
		Host:      "paypa1-secure.tk",
		RiskScore: 85,
		RiskLevel: domain.RiskHigh,
		RiskFactors: []domain.RiskFactor{
			{Kind: domain.KindHomoglyphAttack, Weight: 50, Description: "Possible homoglyph attack"},
			{Kind: domain.KindSuspiciousTLD, Weight: 20, Description: "Suspicious TLD 'tk'"},
		},
		AnalyzedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestAnalysisRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	result := sampleResult("a-1")
	if err := repo.SaveAnalysis(ctx, result); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := repo.GetAnalysis(ctx, "a-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if got.URL != result.URL || got.RiskScore != result.RiskScore || got.RiskLevel != result.RiskLevel {
		t.Errorf("fields lost in round trip: %+v", got)
	}
	if got.Host != result.Host {
		t.Errorf("host lost in round trip: got %q, want %q", got.Host, result.Host)
	}
	if len(got.RiskFactors) != 2 {
		t.Fatalf("expected 2 factors, got %d", len(got.RiskFactors))
	}
	if got.RiskFactors[0].Kind != domain.KindHomoglyphAttack || got.RiskFactors[0].Weight != 50 {
		t.Errorf("factor order or content lost: %v", got.RiskFactors)
	}
	if got.Features != nil {
		t.Error("features must stay nil when not saved")
	}
}

func TestAnalysisWithFeatures(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	result := sampleResult("a-2")
	result.Features = &domain.Features{
		Decomposition: &domain.Decomposition{
			URL:    result.URL,
			Scheme: "http",
			Host:   "paypa1-secure.tk",
			Domain: "paypa1-secure",
			Suffix: "tk",
		},
		Registration: &domain.RegistrationRecord{Domain: "paypa1-secure.tk", Exists: true},
	}
	if err := repo.SaveAnalysis(ctx, result); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := repo.GetAnalysis(ctx, "a-2")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Features == nil || got.Features.Decomposition == nil {
		t.Fatal("features lost in round trip")
	}
	if got.Features.Decomposition.Host != "paypa1-secure.tk" {
		t.Errorf("decomposition lost: %+v", got.Features.Decomposition)
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetAnalysis(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveAnalysisWithoutID(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.SaveAnalysis(context.Background(), &domain.AnalysisResult{URL: "https://example.com"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListAnalyses(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		result := sampleResult(fmt.Sprintf("a-%d", i))
		result.AnalyzedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.SaveAnalysis(ctx, result); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	t.Run("NewestFirst", func(t *testing.T) {
		results, err := repo.ListAnalyses(ctx, 3)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		if results[0].ID != "a-4" {
			t.Errorf("expected newest first, got %s", results[0].ID)
		}
	})

	t.Run("DefaultLimit", func(t *testing.T) {
		results, err := repo.ListAnalyses(ctx, 0)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(results) != 5 {
			t.Errorf("expected all 5 results, got %d", len(results))
		}
	})
}

func TestAlertRuleCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rule := &domain.AlertRule{
		ID:          "r-1",
		Name:        "High Risk",
		Description: "Fires on high-risk analyses",
		Expression:  "risk_score >= 70.0",
		Enabled:     true,
	}

	t.Run("SaveAndGet", func(t *testing.T) {
		if err := repo.SaveAlertRule(ctx, rule); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		got, err := repo.GetAlertRule(ctx, "r-1")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Name != rule.Name || got.Expression != rule.Expression || !got.Enabled {
			t.Errorf("rule fields lost: %+v", got)
		}
		if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
			t.Error("timestamps must be populated on save")
		}
	})

	t.Run("Upsert", func(t *testing.T) {
		rule.Expression = "risk_score >= 50.0"
		rule.Enabled = false
		if err := repo.SaveAlertRule(ctx, rule); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		got, _ := repo.GetAlertRule(ctx, "r-1")
		if got.Expression != "risk_score >= 50.0" || got.Enabled {
			t.Errorf("upsert did not apply: %+v", got)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo.SaveAlertRule(ctx, &domain.AlertRule{
			ID: "r-2", Name: "Another", Expression: "true", Enabled: true,
		})
		rules, err := repo.ListAlertRules(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(rules) != 2 {
			t.Errorf("expected 2 rules, got %d", len(rules))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.DeleteAlertRule(ctx, "r-1"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, err := repo.GetAlertRule(ctx, "r-1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := repo.DeleteAlertRule(ctx, "r-1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for double delete, got %v", err)
		}
	})
}

func TestGetAnalysisCorruptColumns(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveAnalysis(ctx, sampleResult("a-bad")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	sqlRepo := repo.(*SQLRepository)

	t.Run("CorruptFactors", func(t *testing.T) {
		if _, err := sqlRepo.db.ExecContext(ctx,
			`UPDATE analyses SET risk_factors = '{not json' WHERE id = 'a-bad'`); err != nil {
			t.Fatalf("failed to corrupt row: %v", err)
		}
		if _, err := repo.GetAnalysis(ctx, "a-bad"); err == nil {
			t.Error("expected error for corrupt risk_factors column")
		}
	})

	t.Run("CorruptFeatures", func(t *testing.T) {
		if _, err := sqlRepo.db.ExecContext(ctx,
			`UPDATE analyses SET risk_factors = '[]', features = '{not json' WHERE id = 'a-bad'`); err != nil {
			t.Fatalf("failed to corrupt row: %v", err)
		}
		if _, err := repo.GetAnalysis(ctx, "a-bad"); err == nil {
			t.Error("expected error for corrupt features column")
		}
	})
}

func TestPing(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}

func TestUnsupportedDriver(t *testing.T) {
	if _, err := New(domain.RepositoryConfig{Driver: "oracle"}); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

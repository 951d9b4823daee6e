package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/opensource-security/shrike/internal/domain"
	"github.com/opensource-security/shrike/internal/repository"
	"github.com/opensource-security/shrike/internal/rules"
)

func TestLoadRulesFromDatabaseSkipsBadRules(t *testing.T) {
	ctx := context.Background()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	// The repository stores rules without compiling them, so a rule that no
	// longer compiles can be sitting in the database at startup.
	seed := []*domain.AlertRule{
		{ID: "good", Name: "good", Expression: "risk_score >= 70.0", Enabled: true},
		{ID: "broken", Name: "broken", Expression: "risk_score >=", Enabled: true},
		{ID: "off", Name: "off", Expression: "true", Enabled: false},
	}
	for _, rule := range seed {
		if err := repo.SaveAlertRule(ctx, rule); err != nil {
			t.Fatalf("failed to seed rule %s: %v", rule.ID, err)
		}
	}

	engine, err := rules.NewEngine()
	if err != nil {
		t.Fatalf("failed to create rule engine: %v", err)
	}
	defer engine.Close()

	loadRulesFromDatabase(ctx, repo, engine)

	if engine.RulesCount() != 1 {
		t.Errorf("expected only the valid enabled rule to load, got %d", engine.RulesCount())
	}
	for _, loaded := range engine.GetLoadedRules() {
		if loaded.ID != "good" {
			t.Errorf("unexpected rule loaded: %s", loaded.ID)
		}
	}
}

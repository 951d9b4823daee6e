// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-security/shrike/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveAnalysis stores an analysis result. Factors and verbose features are
// stored as JSON documents: they are read back whole, never queried into.
func (r *SQLRepository) SaveAnalysis(ctx context.Context, result *domain.AnalysisResult) error {
	if result.ID == "" {
		return fmt.Errorf("%w: analysis ID is required", ErrInvalidInput)
	}

	factors, _ := json.Marshal(result.RiskFactors)

	var features any
	if result.Features != nil {
		data, _ := json.Marshal(result.Features)
		features = string(data)
	}

	query := `
		INSERT INTO analyses (
			id, url, host, risk_score, risk_level, risk_factors, features, analyzed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		result.ID, result.URL, result.Host,
		result.RiskScore, string(result.RiskLevel),
		string(factors), features,
		result.AnalyzedAt,
	)
	return err
}

// GetAnalysis retrieves an analysis result by ID.
func (r *SQLRepository) GetAnalysis(ctx context.Context, id string) (*domain.AnalysisResult, error) {
	query := `
		SELECT id, url, host, risk_score, risk_level, risk_factors, features, analyzed_at
		FROM analyses
		WHERE id = ?
	`

	result, err := scanAnalysis(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return result, err
}

// ListAnalyses retrieves the most recent analyses, newest first.
func (r *SQLRepository) ListAnalyses(ctx context.Context, limit int) ([]*domain.AnalysisResult, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, url, host, risk_score, risk_level, risk_factors, features, analyzed_at
		FROM analyses
		ORDER BY analyzed_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.AnalysisResult
	for rows.Next() {
		result, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*domain.AnalysisResult, error) {
	var result domain.AnalysisResult
	var level, factors string
	var features sql.NullString

	err := row.Scan(
		&result.ID, &result.URL, &result.Host,
		&result.RiskScore, &level,
		&factors, &features,
		&result.AnalyzedAt,
	)
	if err != nil {
		return nil, err
	}

	result.RiskLevel = domain.RiskLevel(level)
	if err := json.Unmarshal([]byte(factors), &result.RiskFactors); err != nil {
		return nil, fmt.Errorf("failed to decode risk factors for %s: %w", result.ID, err)
	}
	if features.Valid && features.String != "" {
		result.Features = &domain.Features{}
		if err := json.Unmarshal([]byte(features.String), result.Features); err != nil {
			return nil, fmt.Errorf("failed to decode features for %s: %w", result.ID, err)
		}
	}

	return &result, nil
}

// SaveAlertRule stores an alert rule, updating any existing rule with the
// same ID.
func (r *SQLRepository) SaveAlertRule(ctx context.Context, rule *domain.AlertRule) error {
	if rule.ID == "" {
		return fmt.Errorf("%w: rule ID is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	query := `
		INSERT INTO alert_rules (
			id, name, description, expression, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.Name, rule.Description,
		rule.Expression, enabled,
		rule.CreatedAt, rule.UpdatedAt,
	)
	return err
}

// GetAlertRule retrieves an alert rule by ID.
func (r *SQLRepository) GetAlertRule(ctx context.Context, id string) (*domain.AlertRule, error) {
	query := `
		SELECT id, name, description, expression, enabled, created_at, updated_at
		FROM alert_rules
		WHERE id = ?
	`

	var rule domain.AlertRule
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(
		&rule.ID, &rule.Name, &rule.Description,
		&rule.Expression, &enabled,
		&rule.CreatedAt, &rule.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rule.Enabled = enabled == 1
	return &rule, nil
}

// ListAlertRules retrieves all alert rules ordered by name.
func (r *SQLRepository) ListAlertRules(ctx context.Context) ([]*domain.AlertRule, error) {
	query := `
		SELECT id, name, description, expression, enabled, created_at, updated_at
		FROM alert_rules
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.AlertRule
	for rows.Next() {
		var rule domain.AlertRule
		var enabled int

		if err := rows.Scan(
			&rule.ID, &rule.Name, &rule.Description,
			&rule.Expression, &enabled,
			&rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, err
		}

		rule.Enabled = enabled == 1
		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}

// DeleteAlertRule removes an alert rule.
func (r *SQLRepository) DeleteAlertRule(ctx context.Context, id string) error {
	query := `DELETE FROM alert_rules WHERE id = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-security/shrike/internal/domain"
	"github.com/opensource-security/shrike/internal/pipeline"
	"github.com/opensource-security/shrike/internal/repository"
	"github.com/opensource-security/shrike/internal/rules"
)

// maxBatchSize bounds one batch request. Larger jobs should be split by the
// caller.
const maxBatchSize = 500

// Handler holds dependencies for API handlers.
type Handler struct {
	pipeline    *pipeline.Pipeline
	repo        domain.Repository
	cache       domain.Cache
	rulesEngine *rules.Engine
	version     string
}

// NewHandler creates a new API handler.
func NewHandler(p *pipeline.Pipeline, repo domain.Repository, cache domain.Cache, rulesEngine *rules.Engine, version string) *Handler {
	return &Handler{
		pipeline:    p,
		repo:        repo,
		cache:       cache,
		rulesEngine: rulesEngine,
		version:     version,
	}
}

// AnalyzeRequest is the request body for POST /analyze.
type AnalyzeRequest struct {
	URL     string `json:"url"`
	Verbose bool   `json:"verbose,omitempty"`
}

// BatchRequest is the request body for POST /analyze/batch.
type BatchRequest struct {
	URLs    []string `json:"urls"`
	Verbose bool     `json:"verbose,omitempty"`
}

// Analyze handles POST /analyze requests.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "url is required",
		})
		return
	}

	result, err := h.pipeline.Analyze(ctx, req.URL, req.Verbose)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": err.Error(),
		})
		return
	}

	slog.Info("url analyzed",
		"url", req.URL,
		"risk_score", result.RiskScore,
		"risk_level", result.RiskLevel,
		"duration_ms", time.Since(start).Milliseconds(),
		"trace_id", GetTraceID(ctx),
	)

	writeJSON(w, http.StatusOK, result)
}

// AnalyzeBatch handles POST /analyze/batch requests. The response items are
// aligned to the request URL order; failures are reported per item.
func (h *Handler) AnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if len(req.URLs) > maxBatchSize {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "batch exceeds maximum size",
		})
		return
	}

	items := h.pipeline.AnalyzeBatch(ctx, req.URLs, req.Verbose)

	failed := 0
	for _, item := range items {
		if item.Error != "" {
			failed++
		}
	}

	slog.Info("batch analyzed",
		"urls", len(req.URLs),
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
		"trace_id", GetTraceID(ctx),
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

// GetAnalysis handles GET /analyses/{id}.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	result, err := h.repo.GetAnalysis(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "analysis not found",
			})
			return
		}
		slog.Error("failed to get analysis", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get analysis",
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListAnalyses handles GET /analyses.
func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	results, err := h.repo.ListAnalyses(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list analyses", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list analyses",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"analyses": results,
		"count":    len(results),
	})
}

// GetWeights handles GET /weights.
func (h *Handler) GetWeights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"weights": h.pipeline.Engine().Weights(),
	})
}

// UpdateWeights handles PUT /weights. The body is a kind -> weight object;
// unknown or negative entries are reported back, valid entries still apply.
func (h *Handler) UpdateWeights(w http.ResponseWriter, r *http.Request) {
	var updates map[domain.FactorKind]int
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if len(updates) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "at least one weight is required",
		})
		return
	}

	rejected := h.pipeline.Engine().UpdateWeights(updates)

	writeJSON(w, http.StatusOK, map[string]any{
		"weights":  h.pipeline.Engine().Weights(),
		"rejected": rejected,
	})
}

// GetBrands handles GET /brands.
func (h *Handler) GetBrands(w http.ResponseWriter, r *http.Request) {
	brands := h.pipeline.Brands()
	writeJSON(w, http.StatusOK, map[string]any{
		"brands": brands,
		"count":  len(brands),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// AlertRuleRequest is the request body for creating or updating a rule.
type AlertRuleRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression"`
	Enabled     bool   `json:"enabled"`
}

// ListRules handles GET /rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	if h.repo != nil {
		dbRules, err := h.repo.ListAlertRules(r.Context())
		if err != nil {
			slog.Error("failed to list alert rules", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to list rules",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"rules": dbRules,
			"count": len(dbRules),
		})
		return
	}

	loaded := h.rulesEngine.GetLoadedRules()
	writeJSON(w, http.StatusOK, map[string]any{
		"rules": loaded,
		"count": len(loaded),
	})
}

// GetRule handles GET /rules/{id}.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if h.repo != nil {
		rule, err := h.repo.GetAlertRule(r.Context(), id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{
					"error": "rule not found",
				})
				return
			}
			slog.Error("failed to get alert rule", "id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to get rule",
			})
			return
		}
		writeJSON(w, http.StatusOK, rule)
		return
	}

	for _, rule := range h.rulesEngine.GetLoadedRules() {
		if rule.ID == id {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateRule handles POST /rules. The expression is validated before the
// rule is persisted; enabled rules are hot-loaded into the engine.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AlertRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name and expression are required",
		})
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	rule := &domain.AlertRule{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Expression:  req.Expression,
		Enabled:     req.Enabled,
	}

	if err := h.rulesEngine.ValidateRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveAlertRule(ctx, rule); err != nil {
			slog.Error("failed to save alert rule", "id", rule.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rule",
			})
			return
		}
	}

	if rule.Enabled {
		if err := h.rulesEngine.LoadRule(rule); err != nil {
			slog.Error("failed to load alert rule", "id", rule.ID, "error", err)
		}
	}

	slog.Info("alert rule created", "id", rule.ID, "name", rule.Name)
	writeJSON(w, http.StatusCreated, rule)
}

// UpdateRule handles PUT /rules/{id}.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req AlertRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name and expression are required",
		})
		return
	}

	rule := &domain.AlertRule{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Expression:  req.Expression,
		Enabled:     req.Enabled,
	}

	if err := h.rulesEngine.ValidateRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveAlertRule(ctx, rule); err != nil {
			slog.Error("failed to update alert rule", "id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to update rule",
			})
			return
		}
	}

	if rule.Enabled {
		if err := h.rulesEngine.LoadRule(rule); err != nil {
			slog.Error("failed to load alert rule", "id", id, "error", err)
		}
	} else {
		h.rulesEngine.UnloadRule(id)
	}

	slog.Info("alert rule updated", "id", id)
	writeJSON(w, http.StatusOK, rule)
}

// DeleteRule handles DELETE /rules/{id}.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if h.repo != nil {
		if err := h.repo.DeleteAlertRule(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{
					"error": "rule not found",
				})
				return
			}
			slog.Error("failed to delete alert rule", "id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to delete rule",
			})
			return
		}
	}

	h.rulesEngine.UnloadRule(id)

	slog.Info("alert rule deleted", "id", id)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "rule deleted",
	})
}

// ReloadRules handles POST /rules/reload: reloads all enabled rules from
// the database into the engine.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	dbRules, err := h.repo.ListAlertRules(ctx)
	if err != nil {
		slog.Error("failed to list alert rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.rulesEngine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload alert rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("alert rules reloaded", "count", h.rulesEngine.RulesCount())
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "rules reloaded successfully",
		"count":   h.rulesEngine.RulesCount(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Fanelemenzi/pholli-compare/internal/comparison"
	"github.com/Fanelemenzi/pholli-compare/internal/domain"
	"github.com/Fanelemenzi/pholli-compare/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	manager *comparison.Manager
	version string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, manager *comparison.Manager, version string) *Handler {
	return &Handler{
		repo:    repo,
		cache:   cache,
		bus:     bus,
		manager: manager,
		version: version,
	}
}

// CompareRequest is the request body for POST /compare.
type CompareRequest struct {
	SurveyID string `json:"surveyId"`
	Force    bool   `json:"force,omitempty"`
}

// CompareResponse is the response for POST /compare.
type CompareResponse struct {
	SurveyID    string                        `json:"surveyId"`
	ResultCount int                           `json:"resultCount"`
	Results     []*domain.CompatibilityResult `json:"results"`
	Metadata    struct {
		TraceID string `json:"traceId"`
		TotalMs int64  `json:"totalMs"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// Compare handles POST /compare requests. It scores the survey against every
// active policy of its insurance type and returns the ranked result set.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	traceID := GetTraceID(ctx)

	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.SurveyID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "surveyId is required",
		})
		return
	}

	results, err := h.manager.GenerateComparisons(ctx, req.SurveyID, req.Force)
	if err != nil {
		writeError(w, "comparison failed", err)
		return
	}

	resp := CompareResponse{
		SurveyID:    req.SurveyID,
		ResultCount: len(results),
		Results:     results,
	}
	resp.Metadata.TraceID = traceID
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
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

// ============================================================================
// SURVEY HANDLERS
// ============================================================================

// CreateSurvey handles POST /surveys.
func (h *Handler) CreateSurvey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.SurveyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if !req.InsuranceType.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "insuranceType must be HEALTH or FUNERAL",
		})
		return
	}
	if len(req.Preferences) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "preferences must not be empty",
		})
		return
	}

	survey := req.ToSurvey(uuid.New().String())
	if err := h.repo.SaveSurvey(ctx, survey); err != nil {
		writeError(w, "failed to save survey", err)
		return
	}

	slog.Info("survey created", "id", survey.ID, "type", survey.InsuranceType)
	writeJSON(w, http.StatusCreated, survey)
}

// GetSurvey handles GET /surveys/{id}.
func (h *Handler) GetSurvey(w http.ResponseWriter, r *http.Request) {
	surveyID := chi.URLParam(r, "id")

	survey, err := h.repo.GetSurvey(r.Context(), surveyID)
	if err != nil {
		writeError(w, "survey not found", err)
		return
	}

	writeJSON(w, http.StatusOK, survey)
}

// ListSurveys handles GET /surveys.
func (h *Handler) ListSurveys(w http.ResponseWriter, r *http.Request) {
	surveys, err := h.repo.ListSurveys(r.Context())
	if err != nil {
		writeError(w, "failed to list surveys", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"surveys": surveys,
		"count":   len(surveys),
	})
}

// UpdateSurvey handles PUT /surveys/{id}. Updating a survey invalidates its
// cached results and notifies the regeneration worker.
func (h *Handler) UpdateSurvey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	surveyID := chi.URLParam(r, "id")

	existing, err := h.repo.GetSurvey(ctx, surveyID)
	if err != nil {
		writeError(w, "survey not found", err)
		return
	}

	var req domain.SurveyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if !req.InsuranceType.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "insuranceType must be HEALTH or FUNERAL",
		})
		return
	}

	survey := req.ToSurvey(surveyID)
	survey.CreatedAt = existing.CreatedAt
	if err := h.repo.SaveSurvey(ctx, survey); err != nil {
		writeError(w, "failed to update survey", err)
		return
	}

	h.manager.InvalidateSurvey(ctx, surveyID)
	h.publishSurveyUpdated(ctx, surveyID)

	slog.Info("survey updated", "id", surveyID)
	writeJSON(w, http.StatusOK, survey)
}

// ============================================================================
// RESULT HANDLERS
// ============================================================================

// GetSurveyResults handles GET /surveys/{id}/results.
func (h *Handler) GetSurveyResults(w http.ResponseWriter, r *http.Request) {
	surveyID := chi.URLParam(r, "id")

	results, err := h.manager.GetResults(r.Context(), surveyID)
	if err != nil {
		writeError(w, "failed to get results", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"surveyId": surveyID,
		"results":  results,
		"count":    len(results),
	})
}

// GetBestMatches handles GET /surveys/{id}/results/best.
// Optional query params: minScore (percent) and limit.
func (h *Handler) GetBestMatches(w http.ResponseWriter, r *http.Request) {
	surveyID := chi.URLParam(r, "id")

	var minScore float64
	if raw := r.URL.Query().Get("minScore"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 100 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "minScore must be a number between 0 and 100",
			})
			return
		}
		minScore = v
	}

	var limit int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a non-negative integer",
			})
			return
		}
		limit = v
	}

	matches, err := h.manager.GetBestMatches(r.Context(), surveyID, minScore, limit)
	if err != nil {
		writeError(w, "failed to get best matches", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"surveyId": surveyID,
		"matches":  matches,
		"count":    len(matches),
	})
}

// GetRecommendationSummary handles GET /surveys/{id}/results/summary.
func (h *Handler) GetRecommendationSummary(w http.ResponseWriter, r *http.Request) {
	surveyID := chi.URLParam(r, "id")

	summary, err := h.manager.GetRecommendationSummary(r.Context(), surveyID)
	if err != nil {
		writeError(w, "failed to get summary", err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// GetSurveyAnalysis handles GET /surveys/{id}/results/analysis.
func (h *Handler) GetSurveyAnalysis(w http.ResponseWriter, r *http.Request) {
	surveyID := chi.URLParam(r, "id")

	analysis, err := h.manager.AnalyzeSurvey(r.Context(), surveyID)
	if err != nil {
		writeError(w, "failed to analyze survey", err)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

// GetExplanation handles GET /surveys/{id}/results/{policyID}/explanation.
func (h *Handler) GetExplanation(w http.ResponseWriter, r *http.Request) {
	surveyID := chi.URLParam(r, "id")
	policyID := chi.URLParam(r, "policyID")

	bundle, err := h.manager.Explain(r.Context(), surveyID, policyID)
	if err != nil {
		writeError(w, "failed to generate explanation", err)
		return
	}

	writeJSON(w, http.StatusOK, bundle)
}

// ============================================================================
// POLICY HANDLERS
// ============================================================================

// CreatePolicy handles POST /policies.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.PolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name is required",
		})
		return
	}
	if !req.InsuranceType.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "insuranceType must be HEALTH or FUNERAL",
		})
		return
	}

	policy := req.ToPolicy(uuid.New().String())
	if err := h.repo.SavePolicy(ctx, policy); err != nil {
		writeError(w, "failed to save policy", err)
		return
	}

	h.publishPolicyUpdated(ctx, policy.ID, policy.InsuranceType)

	slog.Info("policy created", "id", policy.ID, "name", policy.Name)
	writeJSON(w, http.StatusCreated, policy)
}

// GetPolicy handles GET /policies/{id}.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	policyID := chi.URLParam(r, "id")

	policy, err := h.repo.GetPolicy(r.Context(), policyID)
	if err != nil {
		writeError(w, "policy not found", err)
		return
	}

	writeJSON(w, http.StatusOK, policy)
}

// ListPolicies handles GET /policies. The insurance type query param is
// required; pass active=true to exclude inactive policies.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	insuranceType := domain.InsuranceType(r.URL.Query().Get("type"))
	if !insuranceType.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "type query param must be HEALTH or FUNERAL",
		})
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"

	policies, err := h.repo.ListPolicies(r.Context(), insuranceType, activeOnly)
	if err != nil {
		writeError(w, "failed to list policies", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"policies": policies,
		"count":    len(policies),
	})
}

// UpdatePolicy handles PUT /policies/{id}.
func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID := chi.URLParam(r, "id")

	existing, err := h.repo.GetPolicy(ctx, policyID)
	if err != nil {
		writeError(w, "policy not found", err)
		return
	}

	var req domain.PolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name is required",
		})
		return
	}
	if !req.InsuranceType.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "insuranceType must be HEALTH or FUNERAL",
		})
		return
	}

	policy := req.ToPolicy(policyID)
	policy.CreatedAt = existing.CreatedAt
	policy.IsActive = existing.IsActive
	if err := h.repo.SavePolicy(ctx, policy); err != nil {
		writeError(w, "failed to update policy", err)
		return
	}

	h.publishPolicyUpdated(ctx, policy.ID, policy.InsuranceType)

	slog.Info("policy updated", "id", policyID)
	writeJSON(w, http.StatusOK, policy)
}

// UpdatePolicyFeatures handles PUT /policies/{id}/features. Feature changes
// notify the regeneration worker so stored comparisons stay current.
func (h *Handler) UpdatePolicyFeatures(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID := chi.URLParam(r, "id")

	policy, err := h.repo.GetPolicy(ctx, policyID)
	if err != nil {
		writeError(w, "policy not found", err)
		return
	}

	var features domain.PolicyFeatureRecord
	if err := json.NewDecoder(r.Body).Decode(&features); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	features.PolicyID = policyID
	features.InsuranceType = policy.InsuranceType
	features.UpdatedAt = time.Now().UTC()

	if err := h.repo.SavePolicyFeatures(ctx, &features); err != nil {
		writeError(w, "failed to save policy features", err)
		return
	}

	h.publishPolicyUpdated(ctx, policyID, policy.InsuranceType)

	slog.Info("policy features updated", "id", policyID)
	writeJSON(w, http.StatusOK, &features)
}

func (h *Handler) publishPolicyUpdated(ctx context.Context, policyID string, insuranceType domain.InsuranceType) {
	if h.bus == nil {
		return
	}
	payload, _ := json.Marshal(domain.PolicyUpdatedEvent{
		PolicyID:      policyID,
		InsuranceType: insuranceType,
	})
	if err := h.bus.Publish(ctx, domain.TopicPolicyUpdated, payload); err != nil {
		slog.Error("failed to publish policy updated event", "policy_id", policyID, "error", err)
	}
}

func (h *Handler) publishSurveyUpdated(ctx context.Context, surveyID string) {
	if h.bus == nil {
		return
	}
	payload, _ := json.Marshal(domain.SurveyUpdatedEvent{SurveyID: surveyID})
	if err := h.bus.Publish(ctx, domain.TopicSurveyUpdated, payload); err != nil {
		slog.Error("failed to publish survey updated event", "survey_id", surveyID, "error", err)
	}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, comparison.ErrNoResults):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrInvalidInput):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		slog.Error(msg, "error", err)
	}
	writeJSON(w, status, map[string]string{
		"error": msg + ": " + err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

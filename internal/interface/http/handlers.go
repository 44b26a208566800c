package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/classdeck/reward-engine/internal/application/command"
	"github.com/classdeck/reward-engine/internal/application/query"
	"github.com/classdeck/reward-engine/internal/domain/reward"
	"github.com/classdeck/reward-engine/internal/domain/shared"
	"github.com/classdeck/reward-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot handles GET / - basic service info.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Endpoint not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "reward-engine",
		"status":  "running",
		"uptime":  s.Uptime().String(),
	})
}

// handleHealth handles GET /health - full health check of all dependencies.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	components := make(map[string]string, len(s.deps.HealthCheckers))
	healthy := true

	for name, checker := range s.deps.HealthCheckers {
		if err := checker.Health(ctx); err != nil {
			components[name] = err.Error()
			healthy = false
		} else {
			components[name] = "ok"
		}
	}

	status := http.StatusOK
	overall := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	writeJSON(w, status, map[string]interface{}{
		"status":     overall,
		"components": components,
		"uptime":     s.Uptime().String(),
	})
}

// handleReady handles GET /ready - readiness probe.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.handleHealth(w, r)
}

// handleLive handles GET /live - liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// REWARD COMMAND HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// awardPointsRequest is the body of POST /api/v1/students/{id}/points.
type awardPointsRequest struct {
	// Delta is the signed merit-point change to apply.
	Delta int `json:"delta"`
}

// handleAwardPoints handles POST /api/v1/students/{id}/points.
func (s *Server) handleAwardPoints(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")

	var req awardPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	result, err := s.deps.AwardPointsHandler.Handle(r.Context(), command.AwardMeritPointsCommand{
		StudentID:     studentID,
		Delta:         req.Delta,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeRewardError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, map[string]interface{}{
		"student_id":       result.StudentID,
		"delta":            result.Delta,
		"tickets_credited": result.UnitsCredited,
		"ticket_balance":   result.NewBalance,
		"accrual_progress": result.NewProgress,
	}, nil)
}

// handleRequestDraw handles POST /api/v1/students/{id}/draws.
func (s *Server) handleRequestDraw(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")

	result, err := s.deps.RequestDrawHandler.Handle(r.Context(), command.RequestDrawCommand{
		StudentID:     studentID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeRewardError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, map[string]interface{}{
		"student_id":     result.StudentID,
		"item_id":        result.ItemID,
		"item_name":      result.ItemName,
		"rarity":         result.Rarity.String(),
		"set_id":         result.SetID,
		"is_duplicate":   result.IsDuplicate,
		"pity_triggered": result.PityTriggered,
		"ticket_delta":   result.TicketDelta,
		"recorded_at":    result.RecordedAt,
	}, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// REWARD QUERY HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetAccount handles GET /api/v1/students/{id}/account.
func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")

	account, err := s.deps.GetAccountHandler.Handle(r.Context(), query.GetAccountQuery{
		StudentID: studentID,
	})
	if err != nil {
		s.writeRewardError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, account, nil)
}

// handleGetLedger handles GET /api/v1/students/{id}/ledger.
// Supports ?offset=, ?limit= and ?since= (RFC 3339) query params.
func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")

	q := query.GetLedgerQuery{
		StudentID: studentID,
		Offset:    getQueryParamInt(r, "offset", 0),
		Limit:     getQueryParamInt(r, "limit", 50),
	}
	if since := r.URL.Query().Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "since must be RFC 3339")
			return
		}
		q.Since = t
	}

	page, err := s.deps.GetLedgerHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeRewardError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, page, &ResponseMeta{
		TotalCount: page.Total,
		Page:       page.Offset/maxInt(page.Limit, 1) + 1,
		PageSize:   page.Limit,
		HasMore:    page.Offset+len(page.Entries) < page.Total,
	})
}

// handleGetStats handles GET /api/v1/stats - aggregated draw statistics.
// Supports ?top= to cap the per-item breakdown (default 10).
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.DrawStats == nil {
		writeJSONError(w, http.StatusNotFound, "not_found", "Statistics are not enabled")
		return
	}

	topN := getQueryParamInt(r, "top", 10)
	writeJSONWithMeta(w, r, http.StatusOK, s.deps.DrawStats.Snapshot(topN), nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeRewardError maps domain errors to HTTP status codes. Internal
// configuration problems are not leaked to clients.
func (s *Server) writeRewardError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, reward.ErrInsufficientTickets):
		writeJSONError(w, http.StatusConflict, "insufficient_tickets", "Not enough tickets for a draw")
	case errors.Is(err, reward.ErrAccountNotFound), shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "account_not_found", "No reward account for this student")
	case errors.Is(err, shared.ErrConcurrentModification):
		writeJSONError(w, http.StatusConflict, "conflict", "The account was modified concurrently, retry the request")
	case errors.Is(err, shared.ErrTransientFailure), errors.Is(err, shared.ErrTimeout):
		writeJSONError(w, http.StatusServiceUnavailable, "temporarily_unavailable", "The service is temporarily unavailable, retry later")
	case shared.IsConfiguration(err):
		s.logger.Error("reward configuration error",
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		s.logger.Error("unhandled error",
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

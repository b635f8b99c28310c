// Package http implements the REST API for Cortex Study Hub.
package http

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/application/command"
	"github.com/cortex-hub/cortex-study-hub/internal/application/query"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/user"
	"github.com/cortex-hub/cortex-study-hub/pkg/logger"
)

// maxBodyBytes caps request body size for all JSON endpoints.
const maxBodyBytes = 256 << 10 // 256 KB

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Cortex Study Hub API",
		"version":     "v1",
		"description": "REST API for Cortex Study Hub - session ingestion, intel and coaching",
		"endpoints": map[string]string{
			"health":   "/health",
			"sessions": "/api/v1/users/{id}/sessions",
			"intel":    "/api/v1/users/{id}/intel",
			"coaching": "/api/v1/users/{id}/coaching",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleMetrics handles the metrics endpoint.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := map[string]interface{}{
		"uptime_seconds": s.Uptime().Seconds(),
		"running":        s.IsRunning(),
	}

	writeJSON(w, http.StatusOK, metrics)
}

// ══════════════════════════════════════════════════════════════════════════════
// USER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type registerUserRequest struct {
	DisplayName string `json:"display_name"`
	Timezone    string `json:"timezone,omitempty"`
}

type userResponse struct {
	ID          string        `json:"id"`
	DisplayName string        `json:"display_name"`
	Timezone    string        `json:"timezone"`
	Settings    user.Settings `json:"settings"`
	CreatedAt   time.Time     `json:"created_at"`
}

// handleRegisterUser handles POST /api/v1/users
func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	if s.deps.RegisterUserHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "User handler not configured")
		return
	}

	var req registerUserRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	u, err := s.deps.RegisterUserHandler.Handle(r.Context(), command.RegisterUserCommand{
		DisplayName: req.DisplayName,
		Timezone:    req.Timezone,
	})
	if err != nil {
		s.writeCommandError(w, err, "failed to register user")
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Timezone:    string(u.Timezone),
		Settings:    u.Settings,
		CreatedAt:   u.CreatedAt,
	})
}

type updateSettingsRequest struct {
	Settings user.Settings `json:"settings"`
	Timezone string        `json:"timezone,omitempty"`
}

// handleUpdateSettings handles PUT /api/v1/users/{id}/settings
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if s.deps.UpdateSettingsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Settings handler not configured")
		return
	}

	var req updateSettingsRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	u, err := s.deps.UpdateSettingsHandler.Handle(r.Context(), command.UpdateSettingsCommand{
		UserID:   userID,
		Settings: req.Settings,
		Timezone: req.Timezone,
	})
	if err != nil {
		s.writeCommandError(w, err, "failed to update settings")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Timezone:    string(u.Timezone),
		Settings:    u.Settings,
		CreatedAt:   u.CreatedAt,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDY INGESTION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type logSessionRequest struct {
	Subject       string    `json:"subject"`
	Topic         string    `json:"topic,omitempty"`
	Minutes       int       `json:"minutes"`
	Effectiveness int       `json:"effectiveness,omitempty"`
	Note          string    `json:"note,omitempty"`
	StartedAt     time.Time `json:"started_at,omitempty"`
}

// handleLogSession handles POST /api/v1/users/{id}/sessions
func (s *Server) handleLogSession(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if s.deps.LogSessionHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Session handler not configured")
		return
	}

	var req logSessionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.LogSessionHandler.Handle(r.Context(), command.LogSessionCommand{
		UserID:        userID,
		Subject:       req.Subject,
		Topic:         req.Topic,
		Minutes:       req.Minutes,
		Effectiveness: req.Effectiveness,
		Note:          req.Note,
		StartedAt:     req.StartedAt,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeCommandError(w, err, "failed to log session")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

type createExamRequest struct {
	Subject  string    `json:"subject"`
	Title    string    `json:"title,omitempty"`
	ExamDate time.Time `json:"exam_date"`
	Topics   []string  `json:"topics"`
}

// handleCreateExam handles POST /api/v1/users/{id}/exams
func (s *Server) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if s.deps.CreateExamHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Exam handler not configured")
		return
	}

	var req createExamRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.CreateExamHandler.Handle(r.Context(), command.CreateExamCommand{
		UserID:        userID,
		Subject:       req.Subject,
		Title:         req.Title,
		ExamDate:      req.ExamDate,
		Topics:        req.Topics,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeCommandError(w, err, "failed to create exam")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleDeleteExam handles DELETE /api/v1/users/{id}/exams/{examID}
func (s *Server) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	examID := r.PathValue("examID")
	if s.deps.DeleteExamHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Exam handler not configured")
		return
	}

	err := s.deps.DeleteExamHandler.Handle(r.Context(), command.DeleteExamCommand{
		UserID: userID,
		ExamID: examID,
	})
	if err != nil {
		s.writeCommandError(w, err, "failed to delete exam")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type reviewTopicRequest struct {
	Subject    string    `json:"subject"`
	Topic      string    `json:"topic"`
	Quality    int       `json:"quality"`
	ReviewedAt time.Time `json:"reviewed_at,omitempty"`
}

// handleReviewTopic handles POST /api/v1/users/{id}/reviews
func (s *Server) handleReviewTopic(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if s.deps.ReviewTopicHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Review handler not configured")
		return
	}

	var req reviewTopicRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.ReviewTopicHandler.Handle(r.Context(), command.ReviewTopicCommand{
		UserID:     userID,
		Subject:    req.Subject,
		Topic:      req.Topic,
		Quality:    req.Quality,
		ReviewedAt: req.ReviewedAt,
	})
	if err != nil {
		s.writeCommandError(w, err, "failed to record review")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type quizResultRequest struct {
	Subject      string    `json:"subject"`
	Topic        string    `json:"topic"`
	ScorePercent int       `json:"score_percent"`
	CompletedAt  time.Time `json:"completed_at,omitempty"`
}

// handleRecordQuizResult handles POST /api/v1/users/{id}/quiz-results
func (s *Server) handleRecordQuizResult(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if s.deps.RecordQuizResultHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Quiz handler not configured")
		return
	}

	var req quizResultRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.RecordQuizResultHandler.Handle(r.Context(), command.RecordQuizResultCommand{
		UserID:       userID,
		Subject:      req.Subject,
		Topic:        req.Topic,
		ScorePercent: req.ScorePercent,
		CompletedAt:  req.CompletedAt,
	})
	if err != nil {
		s.writeCommandError(w, err, "failed to record quiz result")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// INTEL & COACHING HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetIntel handles GET /api/v1/users/{id}/intel
//
// ?refresh=true bypasses the cache and rebuilds the state from storage.
func (s *Server) handleGetIntel(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if s.deps.BuildIntelStateHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Intel handler not configured")
		return
	}

	q := query.BuildIntelStateQuery{
		UserID:      userID,
		BypassCache: getQueryParamBool(r, "refresh"),
	}

	state, err := s.deps.BuildIntelStateHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeCommandError(w, err, "failed to build intel state")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// handleGetCoaching handles GET /api/v1/users/{id}/coaching
func (s *Server) handleGetCoaching(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if s.deps.GetCoachingMessagesHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Coaching handler not configured")
		return
	}

	q := query.GetCoachingMessagesQuery{
		UserID: userID,
		Limit:  getQueryParamInt(r, "limit", 0),
	}

	result, err := s.deps.GetCoachingMessagesHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeCommandError(w, err, "failed to get coaching messages")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleRegenerateCoaching handles POST /api/v1/users/{id}/coaching/regenerate
func (s *Server) handleRegenerateCoaching(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if s.deps.GenerateCoachingHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Coaching handler not configured")
		return
	}

	result, err := s.deps.GenerateCoachingHandler.Handle(r.Context(), command.GenerateCoachingCommand{
		UserID:        userID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeCommandError(w, err, "failed to regenerate coaching")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleDismissMessage handles POST /api/v1/users/{id}/coaching/{messageID}/dismiss
func (s *Server) handleDismissMessage(w http.ResponseWriter, r *http.Request) {
	s.updateMessageStatus(w, r, false)
}

// handleCompleteMessage handles POST /api/v1/users/{id}/coaching/{messageID}/complete
func (s *Server) handleCompleteMessage(w http.ResponseWriter, r *http.Request) {
	s.updateMessageStatus(w, r, true)
}

func (s *Server) updateMessageStatus(w http.ResponseWriter, r *http.Request, complete bool) {
	userID := r.PathValue("id")
	messageID := r.PathValue("messageID")
	if s.deps.UpdateMessageStatusHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Coaching handler not configured")
		return
	}

	err := s.deps.UpdateMessageStatusHandler.Handle(r.Context(), command.UpdateMessageStatusCommand{
		MessageID: messageID,
		UserID:    userID,
		Complete:  complete,
	})
	if err != nil {
		s.writeCommandError(w, err, "failed to update message status")
		return
	}

	status := "dismissed"
	if complete {
		status = "completed"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody reads and unmarshals the JSON body into dst. Writes an error
// response and returns false on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return false
	}
	defer r.Body.Close()

	if err := json.Unmarshal(body, dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return false
	}
	return true
}

// writeCommandError maps domain error kinds to HTTP statuses.
func (s *Server) writeCommandError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsAlreadyExists(err):
		writeJSONError(w, http.StatusConflict, "already_exists", err.Error())
	case shared.IsExternalService(err):
		s.logger.Error(fallback, logger.Err(err))
		writeJSONError(w, http.StatusBadGateway, "upstream_error", fallback)
	default:
		s.logger.Error(fallback, logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}

// Package api exposes the conversation endpoints over HTTP. Authentication
// happens at the gateway; this service trusts the forwarded user identity.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/InterviewAndHealth/Conversation-Service/internal/apperr"
	"github.com/InterviewAndHealth/Conversation-Service/internal/archive"
	"github.com/InterviewAndHealth/Conversation-Service/internal/config"
	"github.com/InterviewAndHealth/Conversation-Service/internal/models"
	"github.com/InterviewAndHealth/Conversation-Service/internal/ratelimit"
	"github.com/InterviewAndHealth/Conversation-Service/internal/telemetry"
)

// InterviewService is the orchestrator surface the handlers call.
type InterviewService interface {
	Start(ctx context.Context, interviewID, userID string, isJob bool) (string, error)
	Continue(ctx context.Context, interviewID, userID, message string) (string, error)
	End(ctx context.Context, interviewID, userID string) error
	Details(ctx context.Context, interviewID, userID string) ([]models.Message, error)
	Report(ctx context.Context, interviewID, userID string) (models.Report, error)
}

// Server wires HTTP handlers for the conversation API.
type Server struct {
	cfg        config.Config
	log        *zap.Logger
	interviews InterviewService
	limiter    *ratelimit.StartLimiter
	archive    *archive.Store
}

// New constructs the API server. limiter and archive may be nil.
func New(cfg config.Config, log *zap.Logger, interviews InterviewService, limiter *ratelimit.StartLimiter, archive *archive.Store) *Server {
	return &Server{
		cfg:        cfg,
		log:        log,
		interviews: interviews,
		limiter:    limiter,
		archive:    archive,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/metrics", telemetry.Handler())

	r.Route("/conversations", func(r chi.Router) {
		r.Use(s.requireUser)
		r.Post("/start/{interviewID}", s.handleStart)
		r.Post("/continue/{interviewID}", s.handleContinue)
		r.Post("/end/{interviewID}", s.handleEnd)
		r.Get("/details/{interviewID}", s.handleDetails)
		r.Get("/report/{interviewID}", s.handleReport)
		r.Get("/archive/{interviewID}", s.handleArchived)
	})
	return r
}

type ctxKey int

const userIDKey ctxKey = 0

// requireUser pulls the authenticated user forwarded by the gateway.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userFrom(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	interviewID := chi.URLParam(r, "interviewID")
	userID := userFrom(r)
	isJob := r.URL.Query().Get("type") == "job"

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(r.Context(), userID)
		if err != nil {
			s.log.Error("rate limiter", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "rate limit error")
			return
		}
		if !allowed {
			telemetry.RateLimitRejects.Inc()
			writeError(w, http.StatusTooManyRequests, "too many interview starts")
			return
		}
	}

	reply, err := s.interviews.Start(r.Context(), interviewID, userID, isJob)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": reply})
}

type continueRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleContinue(w http.ResponseWriter, r *http.Request) {
	var req continueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := s.interviews.Continue(r.Context(), chi.URLParam(r, "interviewID"), userFrom(r), req.Message)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": reply})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	if err := s.interviews.End(r.Context(), chi.URLParam(r, "interviewID"), userFrom(r)); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	interviewID := chi.URLParam(r, "interviewID")
	transcript, err := s.interviews.Details(r.Context(), interviewID, userFrom(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"interviewId": interviewID,
		"messages":    transcript,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.interviews.Report(r.Context(), chi.URLParam(r, "interviewID"), userFrom(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleArchived serves the durable record after Redis state is gone.
func (s *Server) handleArchived(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotFound, "archive not configured")
		return
	}
	ci, ok, err := s.archive.GetCompleted(r.Context(), chi.URLParam(r, "interviewID"))
	if err != nil {
		s.log.Error("archive lookup", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "archive lookup failed")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "interview not archived")
		return
	}
	writeJSON(w, http.StatusOK, ci)
}

// writeAppError maps the error taxonomy to HTTP statuses.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, apperr.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrTimeout):
		status = http.StatusGatewayTimeout
	default:
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

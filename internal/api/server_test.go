package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/InterviewAndHealth/Conversation-Service/internal/apperr"
	"github.com/InterviewAndHealth/Conversation-Service/internal/config"
	"github.com/InterviewAndHealth/Conversation-Service/internal/models"
)

type stubService struct {
	startErr    error
	continueErr error
	reportErr   error
}

func (s *stubService) Start(_ context.Context, _, _ string, _ bool) (string, error) {
	if s.startErr != nil {
		return "", s.startErr
	}
	return "Tell me about yourself.", nil
}

func (s *stubService) Continue(_ context.Context, _, _, _ string) (string, error) {
	if s.continueErr != nil {
		return "", s.continueErr
	}
	return "Interesting, go on.", nil
}

func (s *stubService) End(_ context.Context, _, _ string) error { return nil }

func (s *stubService) Details(_ context.Context, _, _ string) ([]models.Message, error) {
	return []models.Message{{Type: models.RoleInterviewer, Content: "Q1"}}, nil
}

func (s *stubService) Report(_ context.Context, interviewID, _ string) (models.Report, error) {
	if s.reportErr != nil {
		return models.Report{}, s.reportErr
	}
	return models.Report{InterviewID: interviewID, Feedbacks: []models.QuestionFeedback{}}, nil
}

func newTestServer(svc InterviewService) http.Handler {
	return New(config.Config{}, zap.NewNop(), svc, nil, nil).Router()
}

func doRequest(t *testing.T, h http.Handler, method, path, body string, withUser bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if withUser {
		req.Header.Set("X-User-ID", "u1")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMissingUserIsUnauthorized(t *testing.T) {
	h := newTestServer(&stubService{})
	rec := doRequest(t, h, http.MethodPost, "/conversations/start/i1", "", false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestStartReturnsOpeningMessage(t *testing.T) {
	h := newTestServer(&stubService{})
	rec := doRequest(t, h, http.MethodPost, "/conversations/start/i1", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["message"] == "" {
		t.Fatal("expected an opening message")
	}
}

func TestErrorTaxonomyMapsToStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"bad request", apperr.BadRequest("interview already started"), http.StatusBadRequest},
		{"not found", apperr.NotFound("interview not found"), http.StatusNotFound},
		{"timeout", apperr.Timeout("rpc deadline exceeded"), http.StatusGatewayTimeout},
		{"internal", apperr.Internal("model unavailable"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestServer(&stubService{startErr: tc.err})
			rec := doRequest(t, h, http.MethodPost, "/conversations/start/i1", "", true)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestContinueValidatesBody(t *testing.T) {
	h := newTestServer(&stubService{})

	rec := doRequest(t, h, http.MethodPost, "/conversations/continue/i1", "not json", true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid json, got %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodPost, "/conversations/continue/i1", `{"message":""}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty message, got %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodPost, "/conversations/continue/i1", `{"message":"my answer"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDetailsShape(t *testing.T) {
	h := newTestServer(&stubService{})
	rec := doRequest(t, h, http.MethodGet, "/conversations/details/i1", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		InterviewID string           `json:"interviewId"`
		Messages    []models.Message `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.InterviewID != "i1" || len(resp.Messages) != 1 {
		t.Fatalf("unexpected details response %+v", resp)
	}
}

func TestHealthz(t *testing.T) {
	h := newTestServer(&stubService{})
	rec := doRequest(t, h, http.MethodGet, "/healthz", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

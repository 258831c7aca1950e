// Package interview holds the session lifecycle orchestrator. Every
// state-mutating entry point is safe to invoke repeatedly with the same
// interview id: lifecycle advancement is driven by at-least-once event
// delivery, so duplicates are the normal case, not the exception.
package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/InterviewAndHealth/Conversation-Service/internal/ai"
	"github.com/InterviewAndHealth/Conversation-Service/internal/apperr"
	"github.com/InterviewAndHealth/Conversation-Service/internal/broker"
	"github.com/InterviewAndHealth/Conversation-Service/internal/config"
	"github.com/InterviewAndHealth/Conversation-Service/internal/document"
	"github.com/InterviewAndHealth/Conversation-Service/internal/feedback"
	"github.com/InterviewAndHealth/Conversation-Service/internal/history"
	"github.com/InterviewAndHealth/Conversation-Service/internal/models"
	"github.com/InterviewAndHealth/Conversation-Service/internal/session"
	"github.com/InterviewAndHealth/Conversation-Service/internal/telemetry"
)

// openingMessage is the synthetic first turn that kicks off the
// conversation. It is stored in the log and stripped from transcripts.
const openingMessage = "Hello"

// RPCClient issues correlated requests to other services' queues.
type RPCClient interface {
	Request(ctx context.Context, queue string, request broker.Envelope) (json.RawMessage, error)
}

// Publisher is fire-and-forget event publishing.
type Publisher interface {
	Publish(ctx context.Context, topic string, event broker.Envelope)
}

// Scheduler submits delayed events to the external scheduler service.
type Scheduler interface {
	Schedule(ctx context.Context, id string, seconds int, targetTopic, eventType string, data any) error
}

// Archiver persists finished interviews for long-term storage. Optional.
type Archiver interface {
	SaveCompleted(ctx context.Context, interviewID string, transcript []models.Message, report models.Report) error
}

// Service orchestrates the interview lifecycle.
type Service struct {
	cfg         config.Config
	log         *zap.Logger
	sessions    *session.Store
	history     history.Log
	interviewer ai.Interviewer
	reports     *feedback.Generator
	rpc         RPCClient
	bus         Publisher
	sched       Scheduler
	docs        document.Fetcher
	archive     Archiver

	// now is swapped in tests to control elapsed-time checks.
	now func() time.Time
}

// NewService wires the orchestrator. archive may be nil.
func NewService(
	cfg config.Config,
	log *zap.Logger,
	sessions *session.Store,
	hist history.Log,
	interviewer ai.Interviewer,
	reports *feedback.Generator,
	rpc RPCClient,
	bus Publisher,
	sched Scheduler,
	docs document.Fetcher,
	archive Archiver,
) *Service {
	return &Service{
		cfg:         cfg,
		log:         log,
		sessions:    sessions,
		history:     hist,
		interviewer: interviewer,
		reports:     reports,
		rpc:         rpc,
		bus:         bus,
		sched:       sched,
		docs:        docs,
		archive:     archive,
		now:         time.Now,
	}
}

// Start activates an interview: resolves metadata, binds the session,
// schedules the duration timeout, announces the start, and returns the
// interviewer's opening turn. A second start for the same id is rejected.
func (s *Service) Start(ctx context.Context, interviewID, userID string, isJob bool) (string, error) {
	if interviewID == "" || userID == "" {
		return "", apperr.BadRequest("interview id and user id are required")
	}

	status, err := s.sessions.Status(ctx, interviewID)
	if err != nil {
		return "", apperr.Internal("read session status: %v", err)
	}
	if status == models.StatusActive {
		return "", apperr.BadRequest("interview already started")
	}
	if status == models.StatusInactive {
		return "", apperr.BadRequest("interview already ended")
	}

	meta, err := s.resolveMetadata(ctx, interviewID, userID, isJob)
	if err != nil {
		return "", err
	}
	if meta.userID != userID {
		return "", apperr.BadRequest("user is not authorized for this interview")
	}

	resume := meta.resume
	if resume == "" {
		resume, err = s.docs.FetchText(ctx, meta.resumeURL)
		if err != nil {
			s.log.Error("resume fetch failed", zap.String("interview_id", interviewID), zap.Error(err))
			return "", apperr.NotFound("error processing the resume")
		}
	}

	interviewType := models.TypeNormal
	if isJob {
		interviewType = models.TypeJob
	}

	err = s.sessions.Bind(ctx, interviewID, session.Details{
		UserID:         userID,
		JobDescription: meta.jobDescription,
		Resume:         resume,
		Type:           interviewType,
	})
	if err != nil {
		return "", apperr.Internal("bind session: %v", err)
	}
	if err := s.sessions.SetStatus(ctx, interviewID, models.StatusActive); err != nil {
		return "", apperr.Internal("activate session: %v", err)
	}
	if err := s.sessions.SetStartTime(ctx, interviewID, s.now()); err != nil {
		return "", apperr.Internal("record start time: %v", err)
	}

	s.scheduleCompletion(ctx, interviewID)
	s.publishStarted(ctx, interviewID, interviewType)
	telemetry.InterviewsStarted.Inc()

	reply, err := s.converse(ctx, interviewID, meta.jobDescription, resume, openingMessage)
	if err != nil {
		return "", err
	}

	s.log.Info("interview started",
		zap.String("interview_id", interviewID),
		zap.String("type", string(interviewType)))
	return reply, nil
}

// Continue handles one chat turn. No state transition.
func (s *Service) Continue(ctx context.Context, interviewID, userID, message string) (string, error) {
	if err := s.verifyOwner(ctx, interviewID, userID); err != nil {
		return "", err
	}

	status, err := s.sessions.Status(ctx, interviewID)
	if err != nil {
		return "", apperr.Internal("read session status: %v", err)
	}
	if status != models.StatusActive {
		return "", apperr.BadRequest("inactive interview")
	}

	jobDescription, _, err := s.sessions.JobDescription(ctx, interviewID)
	if err != nil {
		return "", apperr.Internal("read job description: %v", err)
	}
	resume, _, err := s.sessions.Resume(ctx, interviewID)
	if err != nil {
		return "", apperr.Internal("read resume: %v", err)
	}

	reply, err := s.converse(ctx, interviewID, jobDescription, resume, message)
	if err != nil {
		return "", err
	}
	telemetry.TurnsHandled.Inc()
	return reply, nil
}

// End marks the interview inactive and schedules report generation after a
// short delay that bounds the window in which late turns can race the
// report. Ending an already-inactive interview is a no-op success: the
// duration timeout races explicit ends by design.
func (s *Service) End(ctx context.Context, interviewID, userID string) error {
	if err := s.verifyOwner(ctx, interviewID, userID); err != nil {
		return err
	}
	return s.end(ctx, interviewID)
}

func (s *Service) end(ctx context.Context, interviewID string) error {
	status, err := s.sessions.Status(ctx, interviewID)
	if err != nil {
		return apperr.Internal("read session status: %v", err)
	}
	if status == models.StatusUnset {
		return apperr.NotFound("interview not found")
	}

	if status == models.StatusActive {
		if err := s.sessions.SetStatus(ctx, interviewID, models.StatusInactive); err != nil {
			return apperr.Internal("deactivate session: %v", err)
		}
		telemetry.InterviewsEnded.Inc()
		s.log.Info("interview ended", zap.String("interview_id", interviewID))
	}

	// Scheduled regardless of whether this call did the transition: the
	// report cache absorbs duplicate generation events.
	err = s.sched.Schedule(ctx,
		"generate_report_"+interviewID,
		int(s.cfg.FeedbackDelay.Seconds()),
		s.cfg.ServiceQueue,
		broker.EventGenerateReport,
		eventPayload{InterviewID: interviewID},
	)
	if err != nil {
		s.log.Error("schedule report generation", zap.String("interview_id", interviewID), zap.Error(err))
	}
	return nil
}

// Details returns the transcript, with the synthetic opening turn removed.
func (s *Service) Details(ctx context.Context, interviewID, userID string) ([]models.Message, error) {
	if err := s.verifyOwner(ctx, interviewID, userID); err != nil {
		return nil, err
	}
	return s.transcript(ctx, interviewID)
}

// Report returns the interview report, generating it on first request if
// the scheduled event has not fired yet. Requests before the interview
// window has elapsed are rejected.
func (s *Service) Report(ctx context.Context, interviewID, userID string) (models.Report, error) {
	if err := s.verifyOwner(ctx, interviewID, userID); err != nil {
		return models.Report{}, err
	}

	if report, ok, err := s.sessions.Report(ctx, interviewID); err != nil {
		return models.Report{}, apperr.Internal("read report: %v", err)
	} else if ok {
		telemetry.ReportCacheHits.Inc()
		return report, nil
	}

	startTime, ok, err := s.sessions.StartTime(ctx, interviewID)
	if err != nil {
		return models.Report{}, apperr.Internal("read start time: %v", err)
	}
	if !ok {
		return models.Report{}, apperr.NotFound("interview not found")
	}
	if s.now().Sub(startTime) < s.cfg.InterviewDuration {
		return models.Report{}, apperr.BadRequest("interview has not ended yet")
	}

	return s.generateReport(ctx, interviewID)
}

// verifyOwner enforces the user binding made at start. A session with no
// bound user fails the same way a mismatched one does, so callers cannot
// probe which interview ids exist.
func (s *Service) verifyOwner(ctx context.Context, interviewID, userID string) error {
	if interviewID == "" || userID == "" {
		return apperr.BadRequest("interview id and user id are required")
	}
	owner, _, err := s.sessions.User(ctx, interviewID)
	if err != nil {
		return apperr.Internal("read session owner: %v", err)
	}
	if owner != userID {
		return apperr.BadRequest("user is not authorized for this interview")
	}
	return nil
}

// converse sends one input through the model and appends both sides to the
// conversation log.
func (s *Service) converse(ctx context.Context, interviewID, jobDescription, resume, input string) (string, error) {
	msgs, err := s.history.Messages(ctx, interviewID)
	if err != nil {
		return "", apperr.Internal("read conversation: %v", err)
	}

	ic := ai.InterviewContext{JobDescription: jobDescription, Resume: resume}
	reply, err := s.interviewer.NextTurn(ctx, ic, msgs, input)
	if err != nil {
		return "", apperr.Internal("model turn: %v", err)
	}

	if err := s.history.Append(ctx, interviewID, models.Message{Type: models.RoleCandidate, Content: input}); err != nil {
		return "", apperr.Internal("append turn: %v", err)
	}
	if err := s.history.Append(ctx, interviewID, models.Message{Type: models.RoleInterviewer, Content: reply}); err != nil {
		return "", apperr.Internal("append reply: %v", err)
	}
	return reply, nil
}

// transcript is the conversation minus the synthetic opening turn, so it
// starts with the interviewer's first question.
func (s *Service) transcript(ctx context.Context, interviewID string) ([]models.Message, error) {
	msgs, err := s.history.Messages(ctx, interviewID)
	if err != nil {
		return nil, apperr.Internal("read conversation: %v", err)
	}
	if len(msgs) == 0 {
		return nil, apperr.NotFound("interview not found")
	}
	return msgs[1:], nil
}

func (s *Service) scheduleCompletion(ctx context.Context, interviewID string) {
	err := s.sched.Schedule(ctx,
		"interview_completed_"+interviewID,
		int(s.cfg.InterviewDuration.Seconds()),
		s.cfg.ServiceQueue,
		broker.EventInterviewCompleted,
		eventPayload{InterviewID: interviewID},
	)
	if err != nil {
		s.log.Error("schedule completion", zap.String("interview_id", interviewID), zap.Error(err))
	}
}

func (s *Service) publishStarted(ctx context.Context, interviewID string, typ models.InterviewType) {
	env, err := broker.NewEnvelope(broker.EventInterviewStarted, eventPayload{InterviewID: interviewID})
	if err != nil {
		s.log.Error("build started event", zap.Error(err))
		return
	}
	s.bus.Publish(ctx, s.downstreamTopic(typ), env)
}

// downstreamTopic routes lifecycle notifications to the service that owns
// this interview variant.
func (s *Service) downstreamTopic(typ models.InterviewType) string {
	if typ == models.TypeJob {
		return s.cfg.JobQueue
	}
	return s.cfg.InterviewQueue
}

type eventPayload struct {
	InterviewID string `json:"interviewId"`
}

type interviewMetadata struct {
	userID         string
	jobDescription string
	resumeURL      string
	resume         string
}

// resolveMetadata asks the owning services who this interview belongs to
// and what documents it grounds on. Both lookups must succeed.
func (s *Service) resolveMetadata(ctx context.Context, interviewID, userID string, isJob bool) (interviewMetadata, error) {
	if isJob {
		return s.jobInterviewMetadata(ctx, interviewID)
	}
	return s.normalInterviewMetadata(ctx, interviewID, userID)
}

func (s *Service) normalInterviewMetadata(ctx context.Context, interviewID, userID string) (interviewMetadata, error) {
	var (
		details struct {
			UserID         string `json:"userid"`
			JobDescription string `json:"jobdescription"`
		}
		resumeURL string
	)

	// Both lookups go out concurrently; either failing fails the start.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := s.request(gctx, s.cfg.InterviewRPCQueue, broker.RPCGetInterviewDetails,
			map[string]string{"interviewId": interviewID})
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &details)
	})
	g.Go(func() error {
		data, err := s.request(gctx, s.cfg.UserRPCQueue, broker.RPCGetUserResume,
			map[string]string{"userId": userID})
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &resumeURL)
	})
	if err := g.Wait(); err != nil {
		return interviewMetadata{}, err
	}

	if details.UserID == "" || resumeURL == "" {
		return interviewMetadata{}, apperr.NotFound("interview not found")
	}

	return interviewMetadata{
		userID:         details.UserID,
		jobDescription: details.JobDescription,
		resumeURL:      resumeURL,
	}, nil
}

func (s *Service) jobInterviewMetadata(ctx context.Context, interviewID string) (interviewMetadata, error) {
	data, err := s.request(ctx, s.cfg.JobRPCQueue, broker.RPCGetApplicantDetails,
		map[string]string{"interview_id": interviewID})
	if err != nil {
		return interviewMetadata{}, err
	}

	var details struct {
		Job struct {
			Title          string   `json:"job_title"`
			Experience     string   `json:"job_experience"`
			Type           string   `json:"job_type"`
			RequiredSkills []string `json:"required_skills"`
			Description    string   `json:"job_description"`
		} `json:"job"`
		Application struct {
			ApplicantUserID string `json:"applicant_user_id"`
		} `json:"application"`
		ResumeURL string `json:"resume_url"`
	}
	if err := json.Unmarshal(data, &details); err != nil {
		return interviewMetadata{}, apperr.Internal("decode applicant details: %v", err)
	}
	if details.Application.ApplicantUserID == "" {
		return interviewMetadata{}, apperr.NotFound("interview not found")
	}

	jobDescription := fmt.Sprintf(
		"Job Title: %s\nJob Experience: %s\nJob Type: %s\nRequired Skills: %s\n\nJob Description:\n\n%s",
		details.Job.Title, details.Job.Experience, details.Job.Type,
		strings.Join(details.Job.RequiredSkills, ", "), details.Job.Description)

	return interviewMetadata{
		userID:         details.Application.ApplicantUserID,
		jobDescription: jobDescription,
		resumeURL:      details.ResumeURL,
	}, nil
}

func (s *Service) request(ctx context.Context, queue, typ string, payload any) (json.RawMessage, error) {
	env, err := broker.NewEnvelope(typ, payload)
	if err != nil {
		return nil, apperr.Internal("build rpc request: %v", err)
	}
	rctx, cancel := context.WithTimeout(ctx, s.cfg.RPCTimeout)
	defer cancel()
	return s.rpc.Request(rctx, queue, env)
}


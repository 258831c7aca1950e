package interview

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/InterviewAndHealth/Conversation-Service/internal/ai"
	"github.com/InterviewAndHealth/Conversation-Service/internal/apperr"
	"github.com/InterviewAndHealth/Conversation-Service/internal/broker"
	"github.com/InterviewAndHealth/Conversation-Service/internal/models"
	"github.com/InterviewAndHealth/Conversation-Service/internal/telemetry"
)

// HandleEvent processes lifecycle events from the service queue. Events
// arrive at least once; every branch tolerates duplicates.
func (s *Service) HandleEvent(ctx context.Context, event broker.Envelope) error {
	var payload eventPayload
	if err := event.Decode(&payload); err != nil {
		return apperr.BadRequest("decode event payload: %v", err)
	}
	if payload.InterviewID == "" {
		return apperr.BadRequest("event without interview id")
	}

	switch event.Type {
	case broker.EventInterviewCompleted:
		return s.onInterviewCompleted(ctx, payload.InterviewID)
	case broker.EventGenerateReport:
		return s.onGenerateReport(ctx, payload.InterviewID)
	default:
		s.log.Warn("unhandled event type", zap.String("type", event.Type))
		return nil
	}
}

// onInterviewCompleted is the scheduled duration timeout. The interview
// may already be inactive if the candidate ended it explicitly.
func (s *Service) onInterviewCompleted(ctx context.Context, interviewID string) error {
	err := s.end(ctx, interviewID)
	if errors.Is(err, apperr.ErrNotFound) {
		// The session expired or never existed. Nothing to report on.
		s.log.Warn("completion event for unknown interview", zap.String("interview_id", interviewID))
		return nil
	}
	return err
}

// onGenerateReport builds and caches the report. The cache write is
// first-writer-wins, so concurrent deliveries produce exactly one stored
// report and exactly one downstream notification.
func (s *Service) onGenerateReport(ctx context.Context, interviewID string) error {
	if _, ok, err := s.sessions.Report(ctx, interviewID); err != nil {
		return apperr.Internal("read report: %v", err)
	} else if ok {
		telemetry.ReportCacheHits.Inc()
		s.log.Debug("report already generated", zap.String("interview_id", interviewID))
		return nil
	}

	_, err := s.generateReport(ctx, interviewID)
	return err
}

// generateReport assesses the transcript and caches the result. Only the
// goroutine that wins the cache write publishes and archives; losers
// discard their copy and return the stored one.
func (s *Service) generateReport(ctx context.Context, interviewID string) (models.Report, error) {
	transcript, err := s.transcript(ctx, interviewID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			transcript = nil
		} else {
			return models.Report{}, err
		}
	}

	jobDescription, _, err := s.sessions.JobDescription(ctx, interviewID)
	if err != nil {
		return models.Report{}, apperr.Internal("read job description: %v", err)
	}
	resume, _, err := s.sessions.Resume(ctx, interviewID)
	if err != nil {
		return models.Report{}, apperr.Internal("read resume: %v", err)
	}

	ic := ai.InterviewContext{JobDescription: jobDescription, Resume: resume}
	report, err := s.reports.Generate(ctx, interviewID, ic, transcript)
	if err != nil {
		return models.Report{}, err
	}

	won, err := s.sessions.SetReport(ctx, interviewID, report)
	if err != nil {
		return models.Report{}, apperr.Internal("cache report: %v", err)
	}
	if !won {
		stored, ok, err := s.sessions.Report(ctx, interviewID)
		if err != nil || !ok {
			return models.Report{}, apperr.Internal("reread report after lost race: %v", err)
		}
		return stored, nil
	}

	telemetry.ReportsGenerated.Inc()
	s.publishReportReady(ctx, interviewID, transcript, report)
	s.archiveCompleted(ctx, interviewID, transcript, report)

	s.log.Info("report generated",
		zap.String("interview_id", interviewID),
		zap.Float64("score", report.FinalScore))
	return report, nil
}

type interviewDetailsPayload struct {
	InterviewID string           `json:"interviewId"`
	Transcript  []models.Message `json:"transcript"`
	Feedback    models.Report    `json:"feedback"`
}

func (s *Service) publishReportReady(ctx context.Context, interviewID string, transcript []models.Message, report models.Report) {
	typ, err := s.sessions.Type(ctx, interviewID)
	if err != nil {
		s.log.Error("read interview type", zap.String("interview_id", interviewID), zap.Error(err))
		typ = models.TypeNormal
	}
	env, err := broker.NewEnvelope(broker.EventInterviewDetails, interviewDetailsPayload{
		InterviewID: interviewID,
		Transcript:  transcript,
		Feedback:    report,
	})
	if err != nil {
		s.log.Error("build interview details event", zap.Error(err))
		return
	}
	s.bus.Publish(ctx, s.downstreamTopic(typ), env)
}

func (s *Service) archiveCompleted(ctx context.Context, interviewID string, transcript []models.Message, report models.Report) {
	if s.archive == nil {
		return
	}
	if err := s.archive.SaveCompleted(ctx, interviewID, transcript, report); err != nil {
		// Archival is best effort. The report is already cached and
		// published.
		s.log.Error("archive interview", zap.String("interview_id", interviewID), zap.Error(err))
	}
}

// HandleRPC answers requests from sibling services on this service's RPC
// queue.
func (s *Service) HandleRPC(ctx context.Context, request broker.Envelope) (any, error) {
	switch request.Type {
	case broker.RPCGetTranscriptAndFeedback:
		var payload eventPayload
		if err := request.Decode(&payload); err != nil {
			return nil, apperr.BadRequest("decode rpc payload: %v", err)
		}
		return s.transcriptAndFeedback(ctx, payload.InterviewID)
	default:
		return nil, apperr.BadRequest("unknown rpc type %q", request.Type)
	}
}

func (s *Service) transcriptAndFeedback(ctx context.Context, interviewID string) (any, error) {
	transcript, err := s.transcript(ctx, interviewID)
	if err != nil {
		return nil, err
	}

	var feedback json.RawMessage
	if report, ok, err := s.sessions.Report(ctx, interviewID); err != nil {
		return nil, apperr.Internal("read report: %v", err)
	} else if ok {
		feedback, err = json.Marshal(report)
		if err != nil {
			return nil, apperr.Internal("encode report: %v", err)
		}
	}

	return struct {
		InterviewID string           `json:"interviewId"`
		Transcript  []models.Message `json:"transcript"`
		Feedback    json.RawMessage  `json:"feedback,omitempty"`
	}{InterviewID: interviewID, Transcript: transcript, Feedback: feedback}, nil
}

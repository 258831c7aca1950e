// Package session persists interview session state in Redis. Each field
// lives under its own namespace so readers and writers never contend on a
// composite document; an unset field reads as "session not found" upstream.
package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/InterviewAndHealth/Conversation-Service/internal/kvstore"
	"github.com/InterviewAndHealth/Conversation-Service/internal/models"
)

const (
	nsUser           = "user"
	nsStatus         = "status"
	nsTime           = "time"
	nsJobDescription = "job_description"
	nsResume         = "resume"
	nsInterviewType  = "interview_type"
	nsFeedback       = "feedback"
)

// Store reads and writes session fields.
type Store struct {
	kv *kvstore.Store
}

func NewStore(kv *kvstore.Store) *Store {
	return &Store{kv: kv}
}

// Details is the set of fields bound at start.
type Details struct {
	UserID         string
	JobDescription string
	Resume         string
	Type           models.InterviewType
}

// Bind writes all start-time fields. Issued together so no torn session is
// visible once Start returns; a concurrent reader mid-write just sees an
// incomplete session and treats it as absent.
func (s *Store) Bind(ctx context.Context, interviewID string, d Details) error {
	if err := s.kv.Set(ctx, nsUser, interviewID, d.UserID); err != nil {
		return fmt.Errorf("bind user: %w", err)
	}
	if err := s.kv.Set(ctx, nsJobDescription, interviewID, d.JobDescription); err != nil {
		return fmt.Errorf("bind job description: %w", err)
	}
	if err := s.kv.Set(ctx, nsResume, interviewID, d.Resume); err != nil {
		return fmt.Errorf("bind resume: %w", err)
	}
	if err := s.kv.Set(ctx, nsInterviewType, interviewID, string(d.Type)); err != nil {
		return fmt.Errorf("bind interview type: %w", err)
	}
	return nil
}

func (s *Store) User(ctx context.Context, interviewID string) (string, bool, error) {
	return s.kv.Get(ctx, nsUser, interviewID)
}

func (s *Store) JobDescription(ctx context.Context, interviewID string) (string, bool, error) {
	return s.kv.Get(ctx, nsJobDescription, interviewID)
}

func (s *Store) Resume(ctx context.Context, interviewID string) (string, bool, error) {
	return s.kv.Get(ctx, nsResume, interviewID)
}

// Type reports the interview variant, defaulting to normal when unset so
// notifications still have a destination.
func (s *Store) Type(ctx context.Context, interviewID string) (models.InterviewType, error) {
	v, ok, err := s.kv.Get(ctx, nsInterviewType, interviewID)
	if err != nil {
		return models.TypeNormal, err
	}
	if !ok || models.InterviewType(v) != models.TypeJob {
		return models.TypeNormal, nil
	}
	return models.TypeJob, nil
}

func (s *Store) Status(ctx context.Context, interviewID string) (models.Status, error) {
	v, ok, err := s.kv.Get(ctx, nsStatus, interviewID)
	if err != nil {
		return models.StatusUnset, err
	}
	if !ok {
		return models.StatusUnset, nil
	}
	return models.Status(v), nil
}

func (s *Store) SetStatus(ctx context.Context, interviewID string, status models.Status) error {
	return s.kv.Set(ctx, nsStatus, interviewID, string(status))
}

// SetStartTime records activation time, set once at first activation.
func (s *Store) SetStartTime(ctx context.Context, interviewID string, t time.Time) error {
	return s.kv.Set(ctx, nsTime, interviewID, strconv.FormatInt(t.Unix(), 10))
}

func (s *Store) StartTime(ctx context.Context, interviewID string) (time.Time, bool, error) {
	v, ok, err := s.kv.Get(ctx, nsTime, interviewID)
	if err != nil || !ok {
		return time.Time{}, ok, err
	}
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse start time for %s: %w", interviewID, err)
	}
	return time.Unix(sec, 0), true, nil
}

// SetReport caches the generated report. First writer wins; repeated
// generation attempts for the same session are no-ops.
func (s *Store) SetReport(ctx context.Context, interviewID string, report models.Report) (bool, error) {
	return s.kv.SetJSONNX(ctx, nsFeedback, interviewID, report)
}

func (s *Store) Report(ctx context.Context, interviewID string) (models.Report, bool, error) {
	var r models.Report
	ok, err := s.kv.GetJSON(ctx, nsFeedback, interviewID, &r)
	return r, ok, err
}

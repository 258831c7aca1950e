// Package archive persists finished interviews in Postgres. Redis holds
// live session state with no retention policy of its own; the archive is
// the durable record once a report exists.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/InterviewAndHealth/Conversation-Service/internal/models"
)

// Store wraps pgxpool for Postgres persistence.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a pooled connection to Postgres.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// CompletedInterview is one archived row.
type CompletedInterview struct {
	InterviewID string           `json:"interview_id"`
	Transcript  []models.Message `json:"transcript"`
	Report      models.Report    `json:"report"`
	FinalScore  float64          `json:"final_score"`
	CompletedAt time.Time        `json:"completed_at"`
}

// SaveCompleted inserts the finished interview. The report is generated
// exactly once but archival retries on redelivery, so conflicts on the
// primary key are silently ignored.
func (s *Store) SaveCompleted(ctx context.Context, interviewID string, transcript []models.Message, report models.Report) error {
	transcriptJSON, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO completed_interviews (interview_id, transcript, report, final_score, completed_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (interview_id) DO NOTHING
	`, interviewID, transcriptJSON, reportJSON, report.FinalScore)
	if err != nil {
		return fmt.Errorf("insert completed interview: %w", err)
	}
	return nil
}

// GetCompleted fetches an archived interview by id.
func (s *Store) GetCompleted(ctx context.Context, interviewID string) (CompletedInterview, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT interview_id, transcript, report, final_score, completed_at
		FROM completed_interviews WHERE interview_id = $1
	`, interviewID)

	var (
		ci             CompletedInterview
		transcriptJSON []byte
		reportJSON     []byte
	)
	if err := row.Scan(&ci.InterviewID, &transcriptJSON, &reportJSON, &ci.FinalScore, &ci.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CompletedInterview{}, false, nil
		}
		return CompletedInterview{}, false, fmt.Errorf("scan completed interview: %w", err)
	}

	if err := json.Unmarshal(transcriptJSON, &ci.Transcript); err != nil {
		return CompletedInterview{}, false, fmt.Errorf("unmarshal transcript: %w", err)
	}
	if err := json.Unmarshal(reportJSON, &ci.Report); err != nil {
		return CompletedInterview{}, false, fmt.Errorf("unmarshal report: %w", err)
	}
	return ci, true, nil
}

// Package feedback turns a finished transcript into the interview report:
// one assessment per question/answer pair plus an aggregate review and
// score.
package feedback

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/InterviewAndHealth/Conversation-Service/internal/ai"
	"github.com/InterviewAndHealth/Conversation-Service/internal/apperr"
	"github.com/InterviewAndHealth/Conversation-Service/internal/models"
)

// maxAssessAttempts bounds retries when the model returns a malformed
// structured verdict. Exhaustion fails report generation; a partial or
// zero-value assessment is never cached.
const maxAssessAttempts = 3

// Generator builds reports from transcripts.
type Generator struct {
	assessor ai.Assessor
	log      *zap.Logger
}

func NewGenerator(assessor ai.Assessor, log *zap.Logger) *Generator {
	return &Generator{assessor: assessor, log: log}
}

// Generate assesses every question/answer pair in the transcript. The
// transcript alternates interviewer question and candidate answer; a
// trailing unanswered question is skipped. An empty transcript yields an
// empty report with score 0, not an error, because an interview can expire
// before the candidate says anything.
func (g *Generator) Generate(ctx context.Context, interviewID string, ic ai.InterviewContext, transcript []models.Message) (models.Report, error) {
	report := models.Report{
		InterviewID: interviewID,
		Feedbacks:   []models.QuestionFeedback{},
	}

	for i := 0; i+1 < len(transcript); i += 2 {
		question := transcript[i].Content
		answer := transcript[i+1].Content
		if question == "" || answer == "" {
			continue
		}

		assessment, err := g.assess(ctx, ic, question, answer)
		if err != nil {
			return models.Report{}, err
		}

		report.Feedbacks = append(report.Feedbacks, models.QuestionFeedback{
			Question: question,
			Answer:   answer,
			Feedback: assessment.Feedback,
			Score:    assessment.Score,
		})
	}

	if len(report.Feedbacks) == 0 {
		return report, nil
	}

	var total float64
	for _, fb := range report.Feedbacks {
		total += fb.Score
	}
	report.FinalScore = round4(total / float64(len(report.Feedbacks)))

	summary, err := g.assessor.Summarize(ctx, report.Feedbacks)
	if err != nil {
		return models.Report{}, apperr.Internal("summarize interview %s: %v", interviewID, err)
	}
	report.FinalFeedback = summary

	return report, nil
}

func (g *Generator) assess(ctx context.Context, ic ai.InterviewContext, question, answer string) (ai.Assessment, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAssessAttempts; attempt++ {
		assessment, err := g.assessor.AssessAnswer(ctx, ic, question, answer)
		if err == nil {
			return assessment, nil
		}
		lastErr = err
		g.log.Warn("answer assessment failed",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return ai.Assessment{}, apperr.Internal("assessment failed after %d attempts: %v", maxAssessAttempts, lastErr)
}

// round4 keeps scores at the 4-decimal precision the report contract
// promises.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

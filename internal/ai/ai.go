// Package ai defines the model collaborator contracts. The orchestrator
// treats generation as opaque: history in, text out, or prompt in,
// structured assessment out. Adapters are swappable; Gemini ships as the
// default.
package ai

import (
	"context"

	"github.com/InterviewAndHealth/Conversation-Service/internal/models"
)

// InterviewContext carries the documents the models ground on.
type InterviewContext struct {
	JobDescription string
	Resume         string
}

// Interviewer produces the next conversational turn.
type Interviewer interface {
	NextTurn(ctx context.Context, ic InterviewContext, history []models.Message, input string) (string, error)
}

// Assessment is the structured verdict on one answer: feedback text and a
// 0-100 score.
type Assessment struct {
	Feedback string  `json:"feedback"`
	Score    float64 `json:"score"`
}

// Assessor grades individual answers and summarizes overall performance.
type Assessor interface {
	AssessAnswer(ctx context.Context, ic InterviewContext, question, answer string) (Assessment, error)
	Summarize(ctx context.Context, feedbacks []models.QuestionFeedback) (string, error)
}

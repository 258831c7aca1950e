package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/InterviewAndHealth/Conversation-Service/internal/models"
)

// Gemini implements Interviewer and Assessor on the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates the default model adapter.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

// NextTurn continues the interview with the candidate's latest input.
func (g *Gemini) NextTurn(ctx context.Context, ic InterviewContext, history []models.Message, input string) (string, error) {
	system := fmt.Sprintf("%s\n\nJob Description: %s\n\nResume: %s",
		interviewGuidelines, ic.JobDescription, ic.Resume)

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		role := genai.Role(genai.RoleUser)
		if msg.Type == models.RoleInterviewer {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(input, genai.RoleUser))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("generate turn: %w", err)
	}

	return extractText(resp)
}

// AssessAnswer grades one question/answer pair, expecting a structured JSON
// verdict. Malformed output is an error; the caller owns retries.
func (g *Gemini) AssessAnswer(ctx context.Context, ic InterviewContext, question, answer string) (Assessment, error) {
	prompt := fmt.Sprintf("%s\n\nJob Description: %s\nResume: %s\nQuestion: %s\nAnswer: %s",
		answerAssessmentInstructions, ic.JobDescription, ic.Resume, question, answer)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return Assessment{}, fmt.Errorf("generate assessment: %w", err)
	}

	raw, err := extractText(resp)
	if err != nil {
		return Assessment{}, err
	}

	var a Assessment
	if err := json.Unmarshal([]byte(stripFences(raw)), &a); err != nil {
		return Assessment{}, fmt.Errorf("malformed assessment %q: %w", raw, err)
	}
	if a.Score < 0 || a.Score > 100 {
		return Assessment{}, fmt.Errorf("assessment score %v out of range", a.Score)
	}
	return a, nil
}

// Summarize writes the overall performance review from per-question feedback.
func (g *Gemini) Summarize(ctx context.Context, feedbacks []models.QuestionFeedback) (string, error) {
	var sb strings.Builder
	sb.WriteString(performanceReviewInstructions)
	sb.WriteString("\n\n")
	for i, fb := range feedbacks {
		fmt.Fprintf(&sb, "Question %d: %s\nFeedback: %s\nScore: %.4f\n\n", i+1, fb.Question, fb.Feedback, fb.Score)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(sb.String()), nil)
	if err != nil {
		return "", fmt.Errorf("generate review: %w", err)
	}
	return extractText(resp)
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if text := strings.TrimSpace(part.Text); text != "" {
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(text)
			}
		}
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", errors.New("model returned empty response")
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

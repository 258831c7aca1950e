package models

// Status is the lifecycle state of an interview session. Sessions move
// UNSET -> ACTIVE -> INACTIVE and never back.
type Status string

const (
	StatusUnset    Status = ""
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// InterviewType selects the metadata source and the downstream topic for
// lifecycle notifications.
type InterviewType string

const (
	TypeNormal InterviewType = "normal"
	TypeJob    InterviewType = "job"
)

// Role tags a conversation message by speaker.
type Role string

const (
	RoleInterviewer Role = "ai"
	RoleCandidate   Role = "human"
)

// Message is one entry in the conversation log.
type Message struct {
	Type    Role   `json:"type"`
	Content string `json:"message"`
}

// QuestionFeedback is the assessment of a single question/answer pair.
type QuestionFeedback struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Feedback string  `json:"feedback"`
	Score    float64 `json:"score"`
}

// Report is the generated interview report cached write-once per session.
type Report struct {
	InterviewID   string             `json:"interview_id"`
	Feedbacks     []QuestionFeedback `json:"feedbacks"`
	FinalFeedback string             `json:"final_feedback"`
	FinalScore    float64            `json:"final_score"`
}

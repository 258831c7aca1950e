package broker

import "encoding/json"

// Event and RPC payload tags on the wire.
const (
	EventInterviewStarted   = "INTERVIEW_STARTED"
	EventInterviewCompleted = "INTERVIEW_COMPLETED"
	EventGenerateReport     = "GENERATE_REPORT"
	EventInterviewDetails   = "INTERVIEW_DETAILS"
	EventScheduleEvent      = "SCHEDULE_EVENT"

	RPCGetInterviewDetails      = "GET_INTERVIEW_DETAILS"
	RPCGetUserResume            = "GET_USER_RESUME"
	RPCGetApplicantDetails      = "GET_APPLICANT_DETAILS_FOR_JOB_INTERVIEW"
	RPCGetTranscriptAndFeedback = "GET_TRANSCRIPT_AND_FEEDBACK"
)

// Envelope is the shared wire shape for events and RPC requests: a type tag
// and an opaque payload. Correlation metadata travels in message properties,
// never in the body.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewEnvelope builds an envelope, marshalling data into the payload.
func NewEnvelope(typ string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: typ, Data: raw}, nil
}

// Decode unmarshals the payload into out.
func (e Envelope) Decode(out any) error {
	return json.Unmarshal(e.Data, out)
}

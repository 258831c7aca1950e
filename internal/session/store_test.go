package session

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/InterviewAndHealth/Conversation-Service/internal/kvstore"
	"github.com/InterviewAndHealth/Conversation-Service/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return NewStore(kvstore.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})))
}

func TestStatusDefaultsToUnset(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	status, err := st.Status(ctx, "i1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != models.StatusUnset {
		t.Fatalf("expected unset, got %q", status)
	}
}

func TestBindAndReadBack(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	err := st.Bind(ctx, "i1", Details{
		UserID:         "u1",
		JobDescription: "backend engineer",
		Resume:         "resume text",
		Type:           models.TypeJob,
	})
	if err != nil {
		t.Fatalf("bind: %v", err)
	}

	user, ok, err := st.User(ctx, "i1")
	if err != nil || !ok || user != "u1" {
		t.Fatalf("user: %q ok=%v err=%v", user, ok, err)
	}
	typ, err := st.Type(ctx, "i1")
	if err != nil || typ != models.TypeJob {
		t.Fatalf("type: %q err=%v", typ, err)
	}

	// Unbound session stays absent.
	_, ok, err = st.User(ctx, "i2")
	if err != nil || ok {
		t.Fatalf("expected absent user, ok=%v err=%v", ok, err)
	}
}

func TestStartTimeRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	now := time.Now().Truncate(time.Second)
	if err := st.SetStartTime(ctx, "i1", now); err != nil {
		t.Fatalf("set start time: %v", err)
	}
	got, ok, err := st.StartTime(ctx, "i1")
	if err != nil || !ok {
		t.Fatalf("start time: ok=%v err=%v", ok, err)
	}
	if !got.Equal(now) {
		t.Fatalf("start time mismatch: %v != %v", got, now)
	}
}

func TestReportWriteOnce(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	first := models.Report{
		InterviewID: "i1",
		Feedbacks: []models.QuestionFeedback{
			{Question: "Q1", Answer: "A1", Feedback: "solid", Score: 80.1234},
			{Question: "Q2", Answer: "A2", Feedback: "vague", Score: 64.8766},
		},
		FinalFeedback: "Good overall.",
		FinalScore:    72.5,
	}
	won, err := st.SetReport(ctx, "i1", first)
	if err != nil || !won {
		t.Fatalf("first report write: won=%v err=%v", won, err)
	}

	won, err = st.SetReport(ctx, "i1", models.Report{InterviewID: "i1", FinalScore: 1})
	if err != nil {
		t.Fatalf("second report write: %v", err)
	}
	if won {
		t.Fatal("report must be write-once")
	}

	got, ok, err := st.Report(ctx, "i1")
	if err != nil || !ok {
		t.Fatalf("report: ok=%v err=%v", ok, err)
	}
	if got.FinalScore != first.FinalScore {
		t.Fatalf("expected cached score %v, got %v", first.FinalScore, got.FinalScore)
	}
	if len(got.Feedbacks) != len(first.Feedbacks) {
		t.Fatalf("feedbacks lost in round trip: %+v", got.Feedbacks)
	}
	for i := range first.Feedbacks {
		if got.Feedbacks[i] != first.Feedbacks[i] {
			t.Fatalf("feedback %d changed in round trip: %+v != %+v", i, got.Feedbacks[i], first.Feedbacks[i])
		}
	}
}

package history

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/InterviewAndHealth/Conversation-Service/internal/models"
)

func TestAppendPreservesOrder(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	log := NewRedisLog(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	turns := []models.Message{
		{Type: models.RoleCandidate, Content: "Hello"},
		{Type: models.RoleInterviewer, Content: "Tell me about yourself."},
		{Type: models.RoleCandidate, Content: "I build backend systems."},
	}
	for _, m := range turns {
		if err := log.Append(ctx, "i1", m); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := log.Messages(ctx, "i1")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(got) != len(turns) {
		t.Fatalf("expected %d messages, got %d", len(turns), len(got))
	}
	for i := range turns {
		if got[i] != turns[i] {
			t.Fatalf("message %d out of order: %+v", i, got[i])
		}
	}
}

func TestMessagesEmptyForUnknownInterview(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	log := NewRedisLog(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	got, err := log.Messages(context.Background(), "missing")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty log, got %d messages", len(got))
	}
}

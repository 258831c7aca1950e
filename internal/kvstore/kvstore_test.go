package kvstore

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestSetGetNamespaced(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	if err := st.Set(ctx, "status", "i1", "active"); err != nil {
		t.Fatalf("set: %v", err)
	}

	v, ok, err := st.Get(ctx, "status", "i1")
	if err != nil || !ok || v != "active" {
		t.Fatalf("get: v=%q ok=%v err=%v", v, ok, err)
	}

	// Same key under a different namespace must be independent.
	_, ok, err = st.Get(ctx, "user", "i1")
	if err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	type doc struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	}

	in := doc{Name: "n", Score: 87.1234}
	if err := st.SetJSON(ctx, "feedback", "i1", in); err != nil {
		t.Fatalf("set json: %v", err)
	}

	var out doc
	ok, err := st.GetJSON(ctx, "feedback", "i1", &out)
	if err != nil || !ok {
		t.Fatalf("get json: ok=%v err=%v", ok, err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestSetJSONNXFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	type doc struct {
		Score float64 `json:"score"`
	}

	won, err := st.SetJSONNX(ctx, "feedback", "i1", doc{Score: 10})
	if err != nil || !won {
		t.Fatalf("first write: won=%v err=%v", won, err)
	}

	won, err = st.SetJSONNX(ctx, "feedback", "i1", doc{Score: 99})
	if err != nil {
		t.Fatalf("second write: %v", err)
	}
	if won {
		t.Fatal("second writer should lose")
	}

	var out doc
	if _, err := st.GetJSON(ctx, "feedback", "i1", &out); err != nil {
		t.Fatalf("get json: %v", err)
	}
	if out.Score != 10 {
		t.Fatalf("expected first write retained, got score=%v", out.Score)
	}
}

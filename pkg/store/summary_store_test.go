package store

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestKey_Deterministic(t *testing.T) {
	t.Parallel()

	a := Key("Some post body.", 300, 80)
	b := Key("Some post body.", 300, 80)
	if a != b {
		t.Errorf("Key not deterministic: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "summary:") || len(a) != len("summary:")+32 {
		t.Errorf("unexpected key shape %q", a)
	}
}

func TestKey_DependsOnParameters(t *testing.T) {
	t.Parallel()

	base := Key("text", 300, 80)
	if base == Key("text", 200, 80) || base == Key("text", 300, 50) || base == Key("text2", 300, 80) {
		t.Error("expected key to change with text and length parameters")
	}
}

func TestSummaryStore_UnreachableServer(t *testing.T) {
	t.Parallel()

	s := NewSummaryStore("127.0.0.1:1", "", 0, time.Minute)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.Ping(ctx); err == nil {
		t.Fatal("expected ping to fail against a closed port")
	}
	if _, found, err := s.Get(ctx, "summary:x"); err == nil || found {
		t.Errorf("Get = (found=%v, err=%v), want error", found, err)
	}
	if err := s.Set(ctx, "summary:x", "v"); err == nil {
		t.Error("expected Set to fail")
	}
}

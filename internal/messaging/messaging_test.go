package messaging

import (
	"context"
	"errors"
	"testing"
)

func TestDialStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Dial(ctx, "test", func() error {
		calls++
		return errors.New("refused")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestDialSucceedsFirstTry(t *testing.T) {
	if err := Dial(context.Background(), "test", func() error { return nil }); err != nil {
		t.Fatalf("Dial returned error: %v", err)
	}
}

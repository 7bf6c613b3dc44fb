package log

import (
	"context"
	"errors"
	"testing"
)

func TestNop_DiscardsEverything(t *testing.T) {
	l := Nop()
	ctx := context.Background()

	l.Debug(ctx, "d")
	l.Info(ctx, "i", "k", "v")
	l.Warn(ctx, "w")
	l.Error(ctx, errors.New("boom"), "e")

	if l.With("k", "v") == nil {
		t.Fatal("With should return a logger")
	}
	if err := l.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}

package util

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	l := NewLimiter(1, 2)

	if !l.Allow(1) || !l.Allow(1) {
		t.Error("burst of 2 should be allowed immediately")
	}
	if l.Allow(1) {
		t.Error("third immediate event should be rejected")
	}
}

func TestLimiter_Wait(t *testing.T) {
	l := NewLimiter(100, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := l.Wait(ctx, 1); err != nil {
		t.Errorf("Wait failed: %v", err)
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	l := NewLimiter(0.001, 1)
	l.Allow(1) // drain the burst

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, 1); err == nil {
		t.Error("expected Wait to fail on cancelled context")
	}
}

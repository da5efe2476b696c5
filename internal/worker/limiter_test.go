package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_WaitURL(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.WaitURL(ctx, "http://api.example.com/feed"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	if err := limiter.WaitURL(ctx, "http://other.example.com/posts/1"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_PerKey(t *testing.T) {
	limiter := NewLimiter(1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "api.example.com"); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}
	if err := limiter.Wait(ctx, "api.example.com"); err == nil {
		t.Error("expected wait to fail once the bucket is exhausted")
	}
	if err := limiter.Wait(ctx, "ph.example.com"); err != nil {
		t.Errorf("other key should pass: %v", err)
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	if err := limiter.Wait(context.Background(), "k"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "k"); err == nil {
		t.Error("expected error when context expires before a token is available")
	}
}

func TestHostOf(t *testing.T) {
	host, err := HostOf("http://example.com:8000/posts")
	if err != nil {
		t.Fatalf("HostOf failed: %v", err)
	}
	if host != "example.com:8000" {
		t.Errorf("expected example.com:8000, got %s", host)
	}

	if _, err := HostOf("::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
}

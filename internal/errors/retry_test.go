package errors

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"network error from downloader", errors.New("yt-dlp failed: network error"), true},
		{"rate limited", errors.New("HTTP Error 429: too many requests"), true},
		{"bad gateway", errors.New("completions request failed with status 502"), true},
		{"private video", errors.New("yt-dlp failed: video is private"), false},
		{"validation", errors.New("invalid url format"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.want {
				t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetry_SucceedsAfterTransientFailure(t *testing.T) {
	cfg := &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
	}

	attempts := 0
	err := Retry(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	cfg := &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
	}

	attempts := 0
	permanent := errors.New("video is private")
	err := Retry(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		return permanent
	})
	if err != permanent {
		t.Fatalf("expected the permanent error back, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected a single attempt, got %d", attempts)
	}
}

func TestRetryWithResult_ReturnsLastValue(t *testing.T) {
	cfg := &RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
	}

	attempts := 0
	got, err := RetryWithResult(context.Background(), cfg, func(ctx context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "", errors.New("network error")
		}
		return "video_abc", nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got != "video_abc" {
		t.Errorf("expected video_abc, got %q", got)
	}
}

func TestRetry_HonorsContextCancellation(t *testing.T) {
	cfg := &RetryConfig{
		MaxRetries:     5,
		InitialBackoff: time.Hour,
		MaxBackoff:     time.Hour,
		BackoffFactor:  2.0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, cfg, func(ctx context.Context) error {
		return errors.New("connection refused")
	})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

package queue

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		expected bool
	}{
		{StatusPending, false},
		{StatusDownloading, false},
		{StatusTranscribing, false},
		{StatusSummarizing, false},
		{StatusCompleted, true},
		{StatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.expected {
			t.Errorf("IsTerminal() for status %s = %v, want %v", tt.status, got, tt.expected)
		}
	}
}

func TestStatus_IsActive(t *testing.T) {
	tests := []struct {
		status   Status
		expected bool
	}{
		{StatusPending, false},
		{StatusDownloading, true},
		{StatusTranscribing, true},
		{StatusSummarizing, true},
		{StatusCompleted, false},
		{StatusFailed, false},
	}

	for _, tt := range tests {
		if got := tt.status.IsActive(); got != tt.expected {
			t.Errorf("IsActive() for status %s = %v, want %v", tt.status, got, tt.expected)
		}
	}
}

func TestItem_ErrorSetOnlyWhenFailed(t *testing.T) {
	item := newItem("https://example.com/video")

	if item.Err() != "" {
		t.Error("New item should have no error")
	}

	item.fail("disk full")
	if item.Status() != StatusFailed {
		t.Errorf("Expected status %s, got %s", StatusFailed, item.Status())
	}
	if item.Err() != "disk full" {
		t.Errorf("Expected error recorded verbatim, got %q", item.Err())
	}

	item.resetAttempt()
	if item.Err() != "" {
		t.Error("Requeued item should have no error")
	}

	item.complete()
	if item.Err() != "" {
		t.Error("Completed item should have no error")
	}
}

func TestItem_CompleteSetsFullProgress(t *testing.T) {
	item := newItem("https://example.com/video")
	item.setProgress(80, "Generating summary...")

	item.complete()

	if item.Progress() != 100 {
		t.Errorf("Expected progress 100, got %d", item.Progress())
	}
	if item.Status() != StatusCompleted {
		t.Errorf("Expected status %s, got %s", StatusCompleted, item.Status())
	}
}

func TestItem_ProgressIsMonotonic(t *testing.T) {
	item := newItem("https://example.com/video")

	item.setProgress(25, "Download complete")
	item.setProgress(5, "Starting download...")

	if item.Progress() != 25 {
		t.Errorf("Lower progress should be clamped: got %d, want 25", item.Progress())
	}
	if step := item.Snapshot().CurrentStep; step != "Starting download..." {
		t.Errorf("Step should still update: got %q", step)
	}
}

func TestItem_FailTruncatesStepText(t *testing.T) {
	item := newItem("https://example.com/video")
	long := strings.Repeat("x", 200)

	item.fail(long)

	if item.Err() != long {
		t.Error("Error message should be stored untruncated")
	}
	step := item.Snapshot().CurrentStep
	if len(step) > len("Failed: ")+maxStepErrorLen {
		t.Errorf("Step text should be truncated, got %d chars", len(step))
	}
}

func TestItem_FailTruncatesOnRuneBoundary(t *testing.T) {
	item := newItem("https://example.com/video")
	// 49 ASCII bytes followed by a three-byte rune straddling the limit.
	msg := strings.Repeat("x", maxStepErrorLen-1) + "日本語"

	item.fail(msg)

	step := item.Snapshot().CurrentStep
	if !utf8.ValidString(step) {
		t.Errorf("Step text must stay valid UTF-8, got %q", step)
	}
	if want := "Failed: " + strings.Repeat("x", maxStepErrorLen-1); step != want {
		t.Errorf("expected %q, got %q", want, step)
	}
}

func TestItem_SetMetadataKeepsExistingValues(t *testing.T) {
	item := newItem("https://example.com/video")

	item.setMetadata("Some Talk", 1800)
	item.setMetadata("", 0)

	snap := item.Snapshot()
	if snap.Title != "Some Talk" {
		t.Errorf("Title overwritten by empty value: %q", snap.Title)
	}
	if snap.Duration != 1800 {
		t.Errorf("Duration overwritten by zero value: %d", snap.Duration)
	}
}

func TestItem_RevertToPendingKeepsProgressAndMetadata(t *testing.T) {
	item := newItem("https://example.com/video")
	item.setMetadata("Some Talk", 1800)
	item.setStatus(StatusDownloading)
	item.setProgress(25, "Download complete")

	item.revertToPending()

	snap := item.Snapshot()
	if snap.Status != StatusPending {
		t.Errorf("Expected status %s, got %s", StatusPending, snap.Status)
	}
	if snap.Progress != 25 {
		t.Errorf("Progress should be retained on stop, got %d", snap.Progress)
	}
	if snap.Title != "Some Talk" || snap.Duration != 1800 {
		t.Errorf("Metadata should be retained on stop: %+v", snap)
	}
	if snap.CurrentStep != DefaultStep {
		t.Errorf("Expected step %q, got %q", DefaultStep, snap.CurrentStep)
	}
}

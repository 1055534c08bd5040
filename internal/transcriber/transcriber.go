// Package transcriber turns audio files into text with whisper.cpp.
// Long recordings are split into fixed-length segments with ffmpeg so
// each whisper invocation stays within a bounded working set.
package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	// ErrWhisperNotFound is returned when the whisper binary is not on PATH
	ErrWhisperNotFound = errors.New("whisper binary not found")
	// ErrFfmpegNotFound is returned when ffmpeg or ffprobe is not on PATH
	ErrFfmpegNotFound = errors.New("ffmpeg not found")
	// ErrModelNotFound is returned when the whisper model file does not exist
	ErrModelNotFound = errors.New("whisper model not found")
	// ErrAudioNotFound is returned when the input audio file does not exist
	ErrAudioNotFound = errors.New("audio file not found")
	// ErrEmptyTranscript is returned when whisper produces no text
	ErrEmptyTranscript = errors.New("transcription produced no text")
)

// segmentSeconds keeps each whisper run comfortably under its context window
const segmentSeconds = 1400

// Config holds configuration for the transcriber
type Config struct {
	// WhisperPath is the path to the whisper-cli binary (default: "whisper-cli")
	WhisperPath string
	// ModelPath is the path to the ggml model file
	ModelPath string
	// FfmpegPath is the path to the ffmpeg binary (default: "ffmpeg")
	FfmpegPath string
	// FfprobePath is the path to the ffprobe binary (default: "ffprobe")
	FfprobePath string
	// WorkDir is where segment files are written (default: os.TempDir())
	WorkDir string
	// Threads passed to whisper via -t; 0 lets whisper decide
	Threads int
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		WhisperPath: "whisper-cli",
		FfmpegPath:  "ffmpeg",
		FfprobePath: "ffprobe",
		WorkDir:     os.TempDir(),
	}
}

// Transcriber runs whisper.cpp over audio files
type Transcriber struct {
	cfg *Config
}

// New creates a transcriber and verifies its external tools exist
func New(cfg *Config) (*Transcriber, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if _, err := exec.LookPath(cfg.WhisperPath); err != nil {
		return nil, ErrWhisperNotFound
	}
	if _, err := exec.LookPath(cfg.FfmpegPath); err != nil {
		return nil, ErrFfmpegNotFound
	}
	if _, err := exec.LookPath(cfg.FfprobePath); err != nil {
		return nil, ErrFfmpegNotFound
	}
	if cfg.ModelPath != "" {
		if _, err := os.Stat(cfg.ModelPath); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
		}
	}

	return &Transcriber{cfg: cfg}, nil
}

// Transcribe converts the audio file at path into text. Files longer than
// the segment length are split, transcribed piecewise, and rejoined in order.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("%w: %s", ErrAudioNotFound, audioPath)
	}

	duration, err := t.probeDuration(ctx, audioPath)
	if err != nil {
		return "", err
	}

	if duration <= segmentSeconds {
		return t.transcribeFile(ctx, audioPath)
	}

	segments, err := t.splitAudio(ctx, audioPath)
	if err != nil {
		return "", err
	}
	defer func() {
		for _, seg := range segments {
			os.Remove(seg)
		}
	}()

	var parts []string
	for _, seg := range segments {
		text, err := t.transcribeFile(ctx, seg)
		if err != nil {
			return "", fmt.Errorf("segment %s: %w", filepath.Base(seg), err)
		}
		parts = append(parts, text)
	}

	combined := strings.TrimSpace(strings.Join(parts, " "))
	if combined == "" {
		return "", ErrEmptyTranscript
	}
	return combined, nil
}

// probeDuration reads the container duration in seconds via ffprobe
func (t *Transcriber) probeDuration(ctx context.Context, audioPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, t.cfg.FfprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		audioPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", probe.Format.Duration, err)
	}
	return duration, nil
}

// splitAudio cuts the file into numbered WAV segments and returns their
// paths in playback order
func (t *Transcriber) splitAudio(ctx context.Context, audioPath string) ([]string, error) {
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	pattern := filepath.Join(t.cfg.WorkDir, base+"_seg%03d.wav")

	cmd := exec.CommandContext(ctx, t.cfg.FfmpegPath,
		"-y",
		"-i", audioPath,
		"-f", "segment",
		"-segment_time", strconv.Itoa(segmentSeconds),
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		pattern,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg segmentation failed: %w: %s", err, lastLine(stderr.String()))
	}

	segments, err := filepath.Glob(filepath.Join(t.cfg.WorkDir, base+"_seg*.wav"))
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, errors.New("ffmpeg produced no segments")
	}
	// Glob returns lexically sorted paths, which matches the %03d numbering
	return segments, nil
}

// transcribeFile runs whisper over a single audio file
func (t *Transcriber) transcribeFile(ctx context.Context, audioPath string) (string, error) {
	args := []string{
		"-f", audioPath,
		"--no-timestamps",
	}
	if t.cfg.ModelPath != "" {
		args = append(args, "-m", t.cfg.ModelPath)
	}
	if t.cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(t.cfg.Threads))
	}

	cmd := exec.CommandContext(ctx, t.cfg.WhisperPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("whisper failed: %w: %s", err, lastLine(stderr.String()))
	}

	text := cleanTranscript(stdout.String())
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

// cleanTranscript collapses whisper's line-per-segment output into a single
// whitespace-normalized string
func cleanTranscript(raw string) string {
	var parts []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, " ")
}

// lastLine returns the final non-empty line of s, useful for surfacing the
// actionable part of tool stderr
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Config holds configuration for the yt-dlp client
type Config struct {
	// AudioDir is the directory downloaded audio is written to
	AudioDir string
	// YtdlpPath is the path to the yt-dlp binary (default: "yt-dlp")
	YtdlpPath string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		AudioDir:  filepath.Join(os.TempDir(), "vidigest-audio"),
		YtdlpPath: "yt-dlp",
	}
}

// Client wraps the yt-dlp binary for metadata extraction and audio downloads
type Client struct {
	cfg *Config
}

// New creates a new yt-dlp client
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if _, err := exec.LookPath(cfg.YtdlpPath); err != nil {
		return nil, ErrYtdlpNotFound
	}

	if err := os.MkdirAll(cfg.AudioDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory: %w", err)
	}

	return &Client{cfg: cfg}, nil
}

// AudioDir returns the directory audio files are downloaded into
func (c *Client) AudioDir() string {
	return c.cfg.AudioDir
}

// FetchMetadata extracts video information without downloading
func (c *Client) FetchMetadata(ctx context.Context, sourceURL string) (*Metadata, error) {
	cmd := exec.CommandContext(ctx, c.cfg.YtdlpPath,
		"--dump-json",
		"--no-warnings",
		"--no-playlist",
		sourceURL,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, classifyError(sourceURL, stderr.String(), err)
	}

	var out ytdlpOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, &DownloadError{
			URL:     sourceURL,
			Message: "failed to parse video info",
			Err:     err,
		}
	}

	return out.toMetadata(), nil
}

// DownloadAudio downloads the video's audio track as 16 kHz mono 16-bit WAV
// (the input format whisper.cpp expects) and returns the handle: the file's
// basename without extension. When the target file already exists a random
// suffix disambiguates, so repeated downloads of the same video never collide.
func (c *Client) DownloadAudio(ctx context.Context, sourceURL string) (string, error) {
	videoID, err := ExtractVideoID(sourceURL)
	if err != nil {
		return "", err
	}

	handle := "video_" + videoID
	outputPath := filepath.Join(c.cfg.AudioDir, handle+".wav")

	if _, err := os.Stat(outputPath); err == nil {
		handle = fmt.Sprintf("video_%s_%d", videoID, rand.Intn(10000)+1)
		outputPath = filepath.Join(c.cfg.AudioDir, handle+".wav")
	}

	cmd := exec.CommandContext(ctx, c.cfg.YtdlpPath,
		"--no-warnings",
		"--no-playlist",
		"-x",
		"--audio-format", "wav",
		"--postprocessor-args", "ffmpeg:-ar 16000 -ac 1",
		"--output", outputPath,
		sourceURL,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", classifyError(sourceURL, stderr.String(), err)
	}

	return handle, nil
}

// ExtractVideoID parses the video id out of a YouTube URL
func ExtractVideoID(sourceURL string) (string, error) {
	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return "", ErrInvalidURL
	}

	host := strings.ToLower(parsed.Host)
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")

	switch host {
	case "youtube.com", "music.youtube.com":
		if id := parsed.Query().Get("v"); id != "" {
			return id, nil
		}
		// /shorts/ID and /live/ID forms carry the id in the path
		for _, prefix := range []string{"/shorts/", "/live/", "/embed/"} {
			if strings.HasPrefix(parsed.Path, prefix) {
				if id := strings.TrimPrefix(parsed.Path, prefix); id != "" {
					return strings.SplitN(id, "/", 2)[0], nil
				}
			}
		}
	case "youtu.be":
		if id := strings.TrimPrefix(parsed.Path, "/"); id != "" {
			return id, nil
		}
	}

	return "", ErrInvalidURL
}

// classifyError maps yt-dlp stderr output to sentinel errors
func classifyError(sourceURL, stderr string, err error) error {
	lower := strings.ToLower(stderr)

	var cause error
	switch {
	case strings.Contains(lower, "private video"):
		cause = ErrVideoPrivate
	case strings.Contains(lower, "video unavailable"),
		strings.Contains(lower, "this video is not available"):
		cause = ErrVideoUnavailable
	case strings.Contains(lower, "age-restricted"),
		strings.Contains(lower, "sign in to confirm your age"):
		cause = ErrAgeRestricted
	case strings.Contains(lower, "unable to download"),
		strings.Contains(lower, "network"),
		strings.Contains(lower, "timed out"):
		cause = ErrNetworkError
	default:
		cause = err
	}

	msg := "yt-dlp failed"
	if line := firstErrorLine(stderr); line != "" {
		msg = line
	}

	return &DownloadError{URL: sourceURL, Message: msg, Err: cause}
}

// firstErrorLine returns the first "ERROR:" line from yt-dlp stderr
func firstErrorLine(stderr string) string {
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	return ""
}

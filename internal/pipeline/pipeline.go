// Package pipeline wires the external tools into the stage sequence the
// queue processor drives: yt-dlp for metadata and audio, whisper.cpp for
// transcription, a chat completions API for summaries, and Postgres for the
// final record. Artifact archival to object storage is best-effort.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vidigest/backend/internal/cache"
	"github.com/vidigest/backend/internal/db"
	apperrors "github.com/vidigest/backend/internal/errors"
	"github.com/vidigest/backend/internal/logger"
	"github.com/vidigest/backend/internal/queue"
	"github.com/vidigest/backend/internal/storage"
	"github.com/vidigest/backend/internal/summarizer"
	"github.com/vidigest/backend/internal/transcriber"
	"github.com/vidigest/backend/internal/ytdlp"
)

// Pipeline implements the processing stages for a video. One Pipeline is
// shared by all workers; per-video state lives in the jobs map keyed by URL.
type Pipeline struct {
	downloader  *ytdlp.Client
	transcriber *transcriber.Transcriber
	summarizer  *summarizer.Client
	repo        *db.VideoRepository
	cache       *cache.Cache
	archiver    storage.Archiver
	log         *logger.Logger

	timeouts Timeouts

	mu   sync.Mutex
	jobs map[string]*jobState
}

// Timeouts bounds the long-running stages. A zero value leaves the stage
// unbounded; Stop still interrupts between stages either way.
type Timeouts struct {
	Download   time.Duration
	Transcribe time.Duration
	Summarize  time.Duration
}

// jobState accumulates what earlier stages learned about a video so Persist
// can write the full record
type jobState struct {
	title     string
	channel   string
	duration  int
	handle    string
	audioPath string
}

// Options carries the pipeline's collaborators. Cache and Archiver may be
// nil; the stages they serve degrade gracefully without them.
type Options struct {
	Downloader  *ytdlp.Client
	Transcriber *transcriber.Transcriber
	Summarizer  *summarizer.Client
	Repo        *db.VideoRepository
	Cache       *cache.Cache
	Archiver    storage.Archiver
	Timeouts    Timeouts
}

// New creates a pipeline from its collaborators
func New(opts Options) (*Pipeline, error) {
	if opts.Downloader == nil || opts.Transcriber == nil || opts.Summarizer == nil || opts.Repo == nil {
		return nil, fmt.Errorf("pipeline requires downloader, transcriber, summarizer, and repository")
	}

	return &Pipeline{
		downloader:  opts.Downloader,
		transcriber: opts.Transcriber,
		summarizer:  opts.Summarizer,
		repo:        opts.Repo,
		cache:       opts.Cache,
		archiver:    opts.Archiver,
		timeouts:    opts.Timeouts,
		log:         logger.Default().WithComponent("pipeline"),
		jobs:        make(map[string]*jobState),
	}, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func (p *Pipeline) state(url string) *jobState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.jobs[url]
	if !ok {
		st = &jobState{}
		p.jobs[url] = st
	}
	return st
}

func (p *Pipeline) clearState(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.jobs, url)
}

// discard drops a job's accumulated state along with its downloaded audio.
// Stages call it on failure so an abandoned job leaves nothing behind.
func (p *Pipeline) discard(ctx context.Context, url string) {
	p.mu.Lock()
	st, ok := p.jobs[url]
	delete(p.jobs, url)
	p.mu.Unlock()

	if ok && st.audioPath != "" {
		p.removeAudio(ctx, st.audioPath)
	}
}

func (p *Pipeline) urlForHandle(handle string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for url, st := range p.jobs {
		if st.handle == handle {
			return url, true
		}
	}
	return "", false
}

func (p *Pipeline) removeAudio(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.log.Warn(ctx, "failed to remove audio file", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}

// FetchMetadata looks up title, channel, and duration, consulting the Redis
// cache before shelling out to yt-dlp
func (p *Pipeline) FetchMetadata(ctx context.Context, url string) (queue.Metadata, error) {
	if p.cache != nil {
		if meta, ok := p.cache.GetVideoMetadata(ctx, db.NormalizeURL(url)); ok {
			st := p.state(url)
			st.title = meta.Title
			st.channel = meta.Channel
			st.duration = meta.Duration
			return queue.Metadata{Title: meta.Title, Duration: meta.Duration}, nil
		}
	}

	meta, err := p.downloader.FetchMetadata(ctx, url)
	if err != nil {
		return queue.Metadata{}, err
	}

	duration := int(meta.Duration)
	st := p.state(url)
	st.title = meta.Title
	st.channel = meta.Uploader
	st.duration = duration

	if p.cache != nil {
		if err := p.cache.SetVideoMetadata(ctx, db.NormalizeURL(url), &cache.VideoMetadata{
			Title:    meta.Title,
			Channel:  meta.Uploader,
			Duration: duration,
		}); err != nil {
			p.log.Warn(ctx, "failed to cache video metadata", map[string]interface{}{
				"url":   url,
				"error": err.Error(),
			})
		}
	}

	return queue.Metadata{Title: meta.Title, Duration: duration}, nil
}

// Download fetches the audio track and returns its handle. Network failures
// are retried with backoff; private or removed videos fail immediately.
func (p *Pipeline) Download(ctx context.Context, url string) (string, error) {
	ctx, cancel := withTimeout(ctx, p.timeouts.Download)
	defer cancel()

	handle, err := apperrors.RetryWithResult(ctx, apperrors.DownloadRetryConfig(), func(ctx context.Context) (string, error) {
		return p.downloader.DownloadAudio(ctx, url)
	})
	if err != nil {
		p.discard(ctx, url)
		return "", err
	}

	st := p.state(url)
	audioPath := filepath.Join(p.downloader.AudioDir(), handle+".wav")
	if st.audioPath != "" && st.audioPath != audioPath {
		// A requeued job can leave the previous run's audio behind.
		p.removeAudio(ctx, st.audioPath)
	}
	st.handle = handle
	st.audioPath = audioPath
	return handle, nil
}

// Transcribe runs whisper over the downloaded audio
func (p *Pipeline) Transcribe(ctx context.Context, handle string) (string, error) {
	ctx, cancel := withTimeout(ctx, p.timeouts.Transcribe)
	defer cancel()

	audioPath := filepath.Join(p.downloader.AudioDir(), handle+".wav")
	text, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		if url, ok := p.urlForHandle(handle); ok {
			p.discard(ctx, url)
		}
		return "", err
	}
	return text, nil
}

// Summarize produces the summary from the transcript
func (p *Pipeline) Summarize(ctx context.Context, transcript, url string) (string, error) {
	ctx, cancel := withTimeout(ctx, p.timeouts.Summarize)
	defer cancel()

	summary, err := p.summarizer.Summarize(ctx, transcript, url)
	if err != nil {
		p.discard(ctx, url)
		return "", err
	}
	return summary, nil
}

// Persist writes the video record, upserting by URL, then archives the
// audio and transcript. Archival failures are logged, not fatal: the record
// of truth is the database row.
func (p *Pipeline) Persist(ctx context.Context, url, transcription, summary string) error {
	st := p.state(url)
	defer p.clearState(url)

	title := st.title
	if title == "" {
		title = url
	}

	identityHash := db.CalculateIdentityHash(url)
	var audioKey, transcriptKey string
	if p.archiver != nil {
		if st.audioPath != "" {
			key, err := p.archiver.ArchiveAudio(ctx, identityHash, st.audioPath)
			if err != nil {
				p.log.Warn(ctx, "audio archive failed", map[string]interface{}{
					"url":   url,
					"error": err.Error(),
				})
			} else {
				audioKey = key
			}
		}
		key, err := p.archiver.ArchiveTranscript(ctx, identityHash, transcription)
		if err != nil {
			p.log.Warn(ctx, "transcript archive failed", map[string]interface{}{
				"url":   url,
				"error": err.Error(),
			})
		} else {
			transcriptKey = key
		}
	}

	_, err := p.repo.Upsert(ctx, db.VideoRecord{
		URL:           url,
		Title:         title,
		Channel:       st.channel,
		VideoLength:   st.duration,
		Transcription: transcription,
		Summary:       summary,
		AudioKey:      audioKey,
		TranscriptKey: transcriptKey,
	})
	if st.audioPath != "" {
		p.removeAudio(ctx, st.audioPath)
	}
	if err != nil {
		return fmt.Errorf("failed to save video: %w", err)
	}

	return nil
}

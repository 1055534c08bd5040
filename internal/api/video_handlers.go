package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/vidigest/backend/internal/db"
	apperrors "github.com/vidigest/backend/internal/errors"
	"github.com/vidigest/backend/internal/logger"
	"github.com/vidigest/backend/internal/queue"
	"github.com/vidigest/backend/internal/storage"
	"github.com/vidigest/backend/internal/validators"
)

// VideoHandlers contains handlers for video processing and retrieval
type VideoHandlers struct {
	repo     *db.VideoRepository
	stages   queue.Stages
	registry *validators.Registry
	store    *storage.Client
	log      *logger.Logger
}

// NewVideoHandlers creates a new VideoHandlers instance. store backs the
// archived-artifact endpoints and may be nil when object storage is absent.
func NewVideoHandlers(repo *db.VideoRepository, stages queue.Stages, registry *validators.Registry, store *storage.Client) *VideoHandlers {
	return &VideoHandlers{
		repo:     repo,
		stages:   stages,
		registry: registry,
		store:    store,
		log:      logger.Default().WithComponent("api"),
	}
}

// ProcessRequest is the request body for processing a single video
type ProcessRequest struct {
	URL string `json:"url"`
}

// VideoResponse is the JSON shape of a stored video
type VideoResponse struct {
	ID            int64     `json:"id"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Channel       string    `json:"channel,omitempty"`
	VideoLength   int       `json:"video_length,omitempty"`
	Transcription string    `json:"transcription,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// VideoListResponse is the paginated list shape
type VideoListResponse struct {
	Videos []VideoResponse `json:"videos"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func toVideoResponse(v *db.Video) VideoResponse {
	resp := VideoResponse{
		ID:        v.ID,
		URL:       v.URL,
		Title:     v.Title,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
	if v.Channel.Valid {
		resp.Channel = v.Channel.String
	}
	if v.VideoLength.Valid {
		resp.VideoLength = int(v.VideoLength.Int32)
	}
	if v.Transcription.Valid {
		resp.Transcription = v.Transcription.String
	}
	if v.Summary.Valid {
		resp.Summary = v.Summary.String
	}
	return resp
}

// ProcessVideo handles POST /api/v1/videos/process. It runs the full
// pipeline synchronously for a single URL, bypassing the queue.
func (h *VideoHandlers) ProcessVideo(w http.ResponseWriter, r *http.Request) error {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequest("invalid JSON body")
	}
	if req.URL == "" {
		return apperrors.ValidationError("url field is required")
	}

	result := h.registry.Validate(req.URL)
	if !result.Valid {
		return apperrors.UnsupportedSource(req.URL).WithDetails(map[string]any{
			"reason": result.Error,
		})
	}

	ctx := r.Context()

	// Metadata failures are non-fatal here just as in queued processing
	if _, err := h.stages.FetchMetadata(ctx, req.URL); err != nil {
		h.log.Warn(ctx, "metadata fetch failed", map[string]interface{}{
			"url":   req.URL,
			"error": err.Error(),
		})
	}

	handle, err := h.stages.Download(ctx, req.URL)
	if err != nil {
		return apperrors.DownloadError("failed to download video").WithCause(err)
	}

	transcript, err := h.stages.Transcribe(ctx, handle)
	if err != nil {
		return apperrors.TranscribeError("failed to transcribe audio").WithCause(err)
	}

	summary, err := h.stages.Summarize(ctx, transcript, req.URL)
	if err != nil {
		return apperrors.SummarizeError("failed to generate summary").WithCause(err)
	}

	if err := h.stages.Persist(ctx, req.URL, transcript, summary); err != nil {
		return apperrors.DatabaseError("failed to save video").WithCause(err)
	}

	video, err := h.repo.GetByURL(ctx, req.URL)
	if err != nil {
		return apperrors.DatabaseError("failed to load saved video").WithCause(err)
	}

	requestID := apperrors.GetRequestID(ctx)
	apperrors.WriteJSON(w, requestID, http.StatusOK, toVideoResponse(video))
	return nil
}

// ListVideos handles GET /api/v1/videos
func (h *VideoHandlers) ListVideos(w http.ResponseWriter, r *http.Request) error {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	videos, total, err := h.repo.List(r.Context(), limit, offset)
	if err != nil {
		return apperrors.DatabaseError("failed to list videos").WithCause(err)
	}

	resp := VideoListResponse{
		Videos: make([]VideoResponse, 0, len(videos)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for i := range videos {
		resp.Videos = append(resp.Videos, toVideoResponse(&videos[i]))
	}

	requestID := apperrors.GetRequestID(r.Context())
	apperrors.WriteJSON(w, requestID, http.StatusOK, resp)
	return nil
}

// GetVideo handles GET /api/v1/videos/{id}
func (h *VideoHandlers) GetVideo(w http.ResponseWriter, r *http.Request) error {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return apperrors.ValidationError("invalid video id")
	}

	video, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrVideoNotFound) {
			return apperrors.VideoNotFound()
		}
		return apperrors.DatabaseError("failed to load video").WithCause(err)
	}

	requestID := apperrors.GetRequestID(r.Context())
	apperrors.WriteJSON(w, requestID, http.StatusOK, toVideoResponse(video))
	return nil
}

// GetVideoTranscript handles GET /api/v1/videos/{id}/transcript, streaming
// the archived transcript object
func (h *VideoHandlers) GetVideoTranscript(w http.ResponseWriter, r *http.Request) error {
	return h.streamArtifact(w, r, func(v *db.Video) (string, string) {
		if !v.TranscriptKey.Valid {
			return "", ""
		}
		return v.TranscriptKey.String, "text/plain; charset=utf-8"
	})
}

// GetVideoAudio handles GET /api/v1/videos/{id}/audio, streaming the
// archived audio object
func (h *VideoHandlers) GetVideoAudio(w http.ResponseWriter, r *http.Request) error {
	return h.streamArtifact(w, r, func(v *db.Video) (string, string) {
		if !v.AudioKey.Valid {
			return "", ""
		}
		return v.AudioKey.String, "audio/wav"
	})
}

func (h *VideoHandlers) streamArtifact(w http.ResponseWriter, r *http.Request, pick func(*db.Video) (key, contentType string)) error {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return apperrors.ValidationError("invalid video id")
	}
	if h.store == nil {
		return apperrors.StorageError("artifact storage is not configured")
	}

	video, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrVideoNotFound) {
			return apperrors.VideoNotFound()
		}
		return apperrors.DatabaseError("failed to load video").WithCause(err)
	}

	key, contentType := pick(video)
	if key == "" {
		return apperrors.NotFound("archived artifact")
	}

	obj, info, err := h.store.GetObject(r.Context(), key)
	if err != nil {
		return apperrors.StorageError("failed to load artifact").WithCause(err)
	}
	defer obj.Close()

	w.Header().Set("Content-Type", contentType)
	if info != nil && info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if _, err := io.Copy(w, obj); err != nil {
		h.log.Warn(r.Context(), "artifact stream interrupted", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
	return nil
}

// DeleteVideo handles DELETE /api/v1/videos/{id}
func (h *VideoHandlers) DeleteVideo(w http.ResponseWriter, r *http.Request) error {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return apperrors.ValidationError("invalid video id")
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrVideoNotFound) {
			return apperrors.VideoNotFound()
		}
		return apperrors.DatabaseError("failed to delete video").WithCause(err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

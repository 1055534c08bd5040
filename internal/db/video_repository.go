package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrVideoNotFound = errors.New("video not found")

type Video struct {
	ID            int64
	IdentityHash  string
	URL           string
	Title         string
	Channel       sql.NullString
	VideoLength   sql.NullInt32
	Transcription sql.NullString
	Summary       sql.NullString
	AudioKey      sql.NullString
	TranscriptKey sql.NullString
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type VideoRepository struct {
	db *DB
}

func NewVideoRepository(db *DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// VideoRecord carries the fields written on upsert.
type VideoRecord struct {
	URL           string
	Title         string
	Channel       string
	VideoLength   int
	Transcription string
	Summary       string
	AudioKey      string
	TranscriptKey string
}

// Upsert inserts the video or, when the same URL was processed before,
// replaces its transcription and summary. Returns the row id.
func (r *VideoRepository) Upsert(ctx context.Context, rec VideoRecord) (int64, error) {
	query := `
		INSERT INTO videos (identity_hash, url, title, channel, video_length,
			transcription, summary, audio_key, transcript_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (identity_hash) DO UPDATE SET
			title = EXCLUDED.title,
			channel = EXCLUDED.channel,
			video_length = EXCLUDED.video_length,
			transcription = EXCLUDED.transcription,
			summary = EXCLUDED.summary,
			audio_key = EXCLUDED.audio_key,
			transcript_key = EXCLUDED.transcript_key,
			updated_at = NOW()
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		CalculateIdentityHash(rec.URL),
		NormalizeURL(rec.URL),
		rec.Title,
		nullString(rec.Channel),
		nullInt32(rec.VideoLength),
		nullString(rec.Transcription),
		nullString(rec.Summary),
		nullString(rec.AudioKey),
		nullString(rec.TranscriptKey),
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

const videoColumns = `id, identity_hash, url, title, channel, video_length,
	transcription, summary, audio_key, transcript_key, created_at, updated_at`

// GetByID retrieves a video by its row id
func (r *VideoRepository) GetByID(ctx context.Context, id int64) (*Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`

	var v Video
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.IdentityHash, &v.URL, &v.Title, &v.Channel, &v.VideoLength,
		&v.Transcription, &v.Summary, &v.AudioKey, &v.TranscriptKey,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}
	return &v, nil
}

// GetByURL retrieves a video by its normalized source URL
func (r *VideoRepository) GetByURL(ctx context.Context, rawURL string) (*Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE identity_hash = $1`

	var v Video
	err := r.db.QueryRowContext(ctx, query, CalculateIdentityHash(rawURL)).Scan(
		&v.ID, &v.IdentityHash, &v.URL, &v.Title, &v.Channel, &v.VideoLength,
		&v.Transcription, &v.Summary, &v.AudioKey, &v.TranscriptKey,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}
	return &v, nil
}

// List returns videos newest first with the total count for pagination
func (r *VideoRepository) List(ctx context.Context, limit, offset int) ([]Video, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + videoColumns + `
		FROM videos
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var videos []Video
	for rows.Next() {
		var v Video
		err := rows.Scan(
			&v.ID, &v.IdentityHash, &v.URL, &v.Title, &v.Channel, &v.VideoLength,
			&v.Transcription, &v.Summary, &v.AudioKey, &v.TranscriptKey,
			&v.CreatedAt, &v.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		videos = append(videos, v)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return videos, total, nil
}

// Delete removes a video row
func (r *VideoRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVideoNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt32(n int) sql.NullInt32 {
	return sql.NullInt32{Int32: int32(n), Valid: n > 0}
}

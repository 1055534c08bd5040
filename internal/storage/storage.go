package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/vidigest/backend/internal/config"
	apperrors "github.com/vidigest/backend/internal/errors"
)

// ============================================================================
// Streaming Client (minio-go) - for serving archived artifacts
// ============================================================================

// Client provides access to S3-compatible object storage (MinIO).
type Client struct {
	client *minio.Client
	bucket string
}

// Config holds the configuration for the streaming storage client.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// New creates a new streaming storage client.
func New(cfg *Config) (*Client, error) {
	// Strip protocol prefix if present (minio-go expects host:port)
	endpoint := cfg.Endpoint
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  miniocreds.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Client{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Size        int64
	ContentType string
	ETag        string
}

// StatObject returns metadata about an object without downloading it.
func (c *Client) StatObject(ctx context.Context, key string) (*ObjectInfo, error) {
	info, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to stat object %s: %w", key, err)
	}

	return &ObjectInfo{
		Size:        info.Size,
		ContentType: info.ContentType,
		ETag:        info.ETag,
	}, nil
}

// GetObject retrieves an entire object from storage.
func (c *Client) GetObject(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}

	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, nil, fmt.Errorf("failed to stat object %s: %w", key, err)
	}

	return obj, &ObjectInfo{
		Size:        info.Size,
		ContentType: info.ContentType,
		ETag:        info.ETag,
	}, nil
}

// ObjectExists checks if an object exists in storage.
func (c *Client) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence %s: %w", key, err)
	}
	return true, nil
}

// PutObject uploads an object to storage.
func (c *Client) PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{
		ContentType: contentType,
	}

	_, err := c.client.PutObject(ctx, c.bucket, key, reader, size, opts)
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}

	return nil
}

// DeleteObject removes an object from storage.
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	err := c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", c.bucket, err)
		}
	}

	return nil
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// Ping checks if the storage is accessible by verifying bucket exists.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.client.BucketExists(ctx, c.bucket)
	return err
}

// ============================================================================
// ArchiveStorage (aws-sdk-go-v2) - for archiving pipeline artifacts
// ============================================================================

// ArchiveResult contains the keys written for a processed video
type ArchiveResult struct {
	AudioKey      string `json:"audio_key,omitempty"`
	TranscriptKey string `json:"transcript_key,omitempty"`
}

// Archiver defines the interface for pipeline artifact storage
type Archiver interface {
	// ArchiveAudio uploads the downloaded audio file, keyed by identity hash
	ArchiveAudio(ctx context.Context, identityHash, filePath string) (string, error)
	// ArchiveTranscript uploads the transcript text, keyed by identity hash
	ArchiveTranscript(ctx context.Context, identityHash, transcript string) (string, error)
	// Delete removes all artifacts for an identity hash
	Delete(ctx context.Context, identityHash string) error
}

// ArchiveStorage implements Archiver using S3-compatible storage (AWS S3 or MinIO)
type ArchiveStorage struct {
	client *s3.Client
	bucket string
}

// NewArchiveStorage creates a new ArchiveStorage instance
func NewArchiveStorage(cfg *config.Config) (*ArchiveStorage, error) {
	opts := s3.Options{
		Region:       cfg.S3Region,
		Credentials:  awscreds.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		UsePathStyle: cfg.S3UsePathStyle, // Required for MinIO
	}

	// Set custom endpoint for MinIO/non-AWS S3
	if cfg.S3Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.S3Endpoint)
	}

	client := s3.New(opts)

	return &ArchiveStorage{
		client: client,
		bucket: cfg.S3Bucket,
	}, nil
}

// audioKey returns the S3 key for the archived audio of a video
func (s *ArchiveStorage) audioKey(identityHash string) string {
	return fmt.Sprintf("videos/%s/audio.wav", identityHash)
}

// transcriptKey returns the S3 key for the archived transcript of a video
func (s *ArchiveStorage) transcriptKey(identityHash string) string {
	return fmt.Sprintf("videos/%s/transcript.txt", identityHash)
}

// ArchiveAudio uploads the audio file for a video and returns its key.
// Re-archiving the same video overwrites the previous object.
func (s *ArchiveStorage) ArchiveAudio(ctx context.Context, identityHash, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat audio file: %w", err)
	}

	key := s.audioKey(identityHash)
	err = apperrors.Retry(ctx, apperrors.StorageRetryConfig(), func(ctx context.Context) error {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return err
		}
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(key),
			Body:          file,
			ContentLength: aws.Int64(fileInfo.Size()),
			ContentType:   aws.String("audio/wav"),
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload audio: %w", err)
	}

	return key, nil
}

// ArchiveTranscript uploads the transcript text for a video and returns its key
func (s *ArchiveStorage) ArchiveTranscript(ctx context.Context, identityHash, transcript string) (string, error) {
	key := s.transcriptKey(identityHash)
	err := apperrors.Retry(ctx, apperrors.StorageRetryConfig(), func(ctx context.Context) error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        strings.NewReader(transcript),
			ContentType: aws.String("text/plain; charset=utf-8"),
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload transcript: %w", err)
	}

	return key, nil
}

// Exists checks whether the audio artifact exists for an identity hash
func (s *ArchiveStorage) Exists(ctx context.Context, identityHash string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.audioKey(identityHash)),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return true, nil
}

// isNotFoundError checks if the error indicates the object was not found
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "NotFound") ||
		strings.Contains(err.Error(), "NoSuchKey") ||
		strings.Contains(err.Error(), "404")
}

// Delete removes all archived artifacts for a video
func (s *ArchiveStorage) Delete(ctx context.Context, identityHash string) error {
	for _, key := range []string{s.audioKey(identityHash), s.transcriptKey(identityHash)} {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

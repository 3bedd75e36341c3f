// Package storage provides the S3-compatible object store for call recordings.
package storage

import (
	"context"
	"time"
)

// PresignedURL contains the URL and metadata for a presigned download.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RecordingService defines the storage operations for raw call audio.
type RecordingService interface {
	// SaveRecording stores the call's raw audio and returns the object key.
	SaveRecording(ctx context.Context, callSID string, audio []byte) (string, error)

	// RecordingDownloadURL creates a presigned URL for fetching a recording.
	RecordingDownloadURL(ctx context.Context, fileKey string) (*PresignedURL, error)

	// EnsureBucketExists creates the recordings bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketCallRecordings() string
	IsMinIOEnabled() bool
}

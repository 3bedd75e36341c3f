package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	// PresignedURLTTL is the default expiration time for presigned URLs.
	PresignedURLTTL = 15 * time.Minute

	// recordingContentType is the raw telephony payload: 8kHz G.711 mu-law.
	recordingContentType = "audio/basic"
)

// MinIOService implements RecordingService using MinIO.
type MinIOService struct {
	client *minio.Client
	bucket string
}

// NewMinIOService creates a new MinIO recording store.
func NewMinIOService(cfg Config) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{
		client: client,
		bucket: cfg.GetMinioBucketCallRecordings(),
	}, nil
}

// EnsureBucketExists creates the recordings bucket if it doesn't exist.
func (s *MinIOService) EnsureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}

	return nil
}

// SaveRecording stores the call's raw audio under a key derived from the
// provider call SID and returns that key. Re-saving the same call overwrites
// the previous object.
func (s *MinIOService) SaveRecording(ctx context.Context, callSID string, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("recording for call %s is empty", callSID)
	}

	fileKey := path.Join("recordings", callSID+".ulaw")
	_, err := s.client.PutObject(ctx, s.bucket, fileKey, bytes.NewReader(audio), int64(len(audio)), minio.PutObjectOptions{
		ContentType: recordingContentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload recording %s: %w", fileKey, err)
	}
	return fileKey, nil
}

// RecordingDownloadURL creates a presigned URL for fetching a recording.
func (s *MinIOService) RecordingDownloadURL(ctx context.Context, fileKey string) (*PresignedURL, error) {
	expiresAt := time.Now().Add(PresignedURLTTL)

	reqParams := make(url.Values)
	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucket, fileKey, PresignedURLTTL, reqParams)
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned download URL: %w", err)
	}

	return &PresignedURL{
		URL:       presignedURL.String(),
		FileKey:   fileKey,
		ExpiresAt: expiresAt,
	}, nil
}

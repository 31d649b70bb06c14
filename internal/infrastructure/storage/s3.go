package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"

	"proctorhub/internal/core/domain"
	"proctorhub/internal/core/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds the recording bucket settings.
type Config struct {
	Bucket        string
	Region        string
	Endpoint      string // non-empty for S3-compatible stores (MinIO etc.)
	PublicBaseURL string // overrides the derived object URL when set
}

// S3Uploader pushes finished interview recordings to an S3 bucket and hands
// back the object URL. The relay core never touches recording bytes beyond
// streaming them through here.
type S3Uploader struct {
	uploader *manager.Uploader
	cfg      Config
	logger   *zap.SugaredLogger
}

func NewS3Uploader(ctx context.Context, cfg Config, logger *zap.SugaredLogger) (ports.RecordingUploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{
		uploader: manager.NewUploader(client),
		cfg:      cfg,
		logger:   logger,
	}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, id domain.SessionID, r io.Reader, size int64, contentType string) (string, error) {
	key := fmt.Sprintf("recordings/%s/%s%s", id, uuid.New().String(), extensionFor(contentType))

	_, err := u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload recording: %w", err)
	}

	url := u.objectURL(key)
	u.logger.Infow("recording uploaded",
		"session_id", id,
		"key", key,
		"size", size,
	)
	return url, nil
}

func (u *S3Uploader) objectURL(key string) string {
	if u.cfg.PublicBaseURL != "" {
		return strings.TrimSuffix(u.cfg.PublicBaseURL, "/") + "/" + key
	}
	if u.cfg.Endpoint != "" {
		return strings.TrimSuffix(u.cfg.Endpoint, "/") + "/" + u.cfg.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.cfg.Bucket, u.cfg.Region, key)
}

func extensionFor(contentType string) string {
	switch contentType {
	case "video/webm":
		return ".webm"
	case "video/mp4":
		return ".mp4"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

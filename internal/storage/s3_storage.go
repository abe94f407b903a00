package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"estatehub/listings/internal/config"
)

// UploadTarget describes where a client should PUT a listing image and the
// URL the image will be served from afterwards.
type UploadTarget struct {
	UploadURL string    `json:"uploadUrl"`
	ObjectKey string    `json:"objectKey"`
	PublicURL string    `json:"publicUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IImageStorage issues upload URLs for listing images.
type IImageStorage interface {
	PresignImageUpload(ctx context.Context, ownerID, filename, contentType string) (*UploadTarget, error)
}

// s3Storage implements IImageStorage.
type s3Storage struct {
	bucket        string
	baseURL       string
	ttl           time.Duration
	presignClient *s3.PresignClient
	logger        *zap.Logger
}

// NewS3Storage creates a new S3 storage service.
func NewS3Storage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (IImageStorage, error) {
	if cfg.AwsS3Bucket == "" {
		return nil, fmt.Errorf("AWS_S3_BUCKET is not configured")
	}
	awsCfg, err := aws_config.LoadDefaultConfig(ctx,
		aws_config.WithRegion(cfg.AwsRegion),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	baseURL := cfg.ImageBaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.AwsS3Bucket, cfg.AwsRegion)
	}
	ttl := cfg.UploadURLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &s3Storage{
		bucket:        cfg.AwsS3Bucket,
		baseURL:       baseURL,
		ttl:           ttl,
		presignClient: s3.NewPresignClient(s3.NewFromConfig(awsCfg)),
		logger:        logger,
	}, nil
}

// ObjectKey builds listings/<owner>/<uuid><ext>. Only the extension of
// filename is kept.
func ObjectKey(ownerID, filename string) string {
	if ownerID == "" {
		ownerID = "anonymous"
	}
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	return fmt.Sprintf("listings/%s/%s%s", ownerID, uuid.NewString(), ext)
}

// PresignImageUpload creates a pre-signed PUT URL for a new image object.
func (s *s3Storage) PresignImageUpload(ctx context.Context, ownerID, filename, contentType string) (*UploadTarget, error) {
	objectKey := ObjectKey(ownerID, filename)

	presignedReq, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned PUT URL for key %s: %w", objectKey, err)
	}

	s.logger.Debug("generated presigned upload URL", zap.String("key", objectKey))
	return &UploadTarget{
		UploadURL: presignedReq.URL,
		ObjectKey: objectKey,
		PublicURL: strings.TrimRight(s.baseURL, "/") + "/" + objectKey,
		ExpiresAt: time.Now().UTC().Add(s.ttl),
	}, nil
}

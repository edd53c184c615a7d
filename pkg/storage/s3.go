package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/autoparts-market/backend/pkg/apperr"
)

// S3Config holds S3 client configuration.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ImagesBucket    string
}

// S3 stores advertising images as public objects under advertising/ in the images bucket.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using credentials from config or .env (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY).
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ImagesBucket == "" {
		return nil, fmt.Errorf("s3: images bucket not configured")
	}
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
		logger.Info("S3 client using credentials from .env/config", zap.String("region", cfg.Region), zap.String("bucket", cfg.ImagesBucket))
	} else {
		logger.Warn("S3 client using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
	})
	return &S3{
		client:   client,
		uploader: uploader,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// ImageKey returns the object key for an advertising image: advertising/{filename}.
func ImageKey(filename string) string {
	return path.Join(FolderAdvertising, path.Base(filename))
}

// ContentTypeForExt returns the MIME type for an allowed image extension.
func ContentTypeForExt(ext string) string {
	if ext == "jpg" {
		return "image/jpeg"
	}
	return "image/" + ext
}

// Store decodes a data URI and uploads it. URLs and existing filenames pass through.
func (s *S3) Store(ctx context.Context, payload, discriminator string) (string, error) {
	if IsExternal(payload) {
		return payload, nil
	}
	if !IsDataURI(payload) {
		if err := checkOpaqueName(payload); err != nil {
			return "", err
		}
		return payload, nil
	}
	ext, data, err := ParseDataURI(payload)
	if err != nil {
		return "", err
	}
	name := GenerateFilename(discriminator, ext)
	if err := s.Upload(ctx, ImageKey(name), ContentTypeForExt(ext), bytes.NewReader(data), int64(len(data))); err != nil {
		return "", apperr.IO("upload image", err)
	}
	return name, nil
}

// Remove deletes the object behind a stored filename. Deleting a missing key succeeds on S3.
func (s *S3) Remove(ctx context.Context, stored string) error {
	if !IsLocallyOwned(stored) {
		return nil
	}
	if err := s.DeleteObject(ctx, ImageKey(stored)); err != nil {
		return apperr.Cleanup("remove image "+stored, err)
	}
	return nil
}

// URL returns the public object URL of a stored filename.
func (s *S3) URL(stored string) string {
	if stored == "" || IsExternal(stored) || IsDataURI(stored) {
		return stored
	}
	return s.PublicObjectURL(ImageKey(stored))
}

// PublicObjectURL returns the public URL for an object (no signing; bucket is public).
func (s *S3) PublicObjectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.ImagesBucket, s.cfg.Region, key)
}

// Upload streams a reader to the images bucket as a public-read object.
func (s *S3) Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) error {
	var contentLengthPtr *int64
	if contentLength > 0 {
		contentLengthPtr = &contentLength
	}
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.ImagesBucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: contentLengthPtr,
		ACL:           types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	return nil
}

// DeleteObject removes an object from the images bucket.
func (s *S3) DeleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.ImagesBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrDisabled is returned by Upload when object storage is not configured
var ErrDisabled = errors.New("file uploads are not configured")

// Config holds S3-compatible bucket settings
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string
}

type putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader stores client photos and documents and returns their public URLs.
// A nil *Uploader rejects every upload with ErrDisabled.
type Uploader struct {
	client    putter
	bucket    string
	publicURL string
	now       func() time.Time
}

// New builds an uploader for an S3-compatible endpoint such as Cloudflare R2.
// It returns nil, nil when no bucket is configured.
func New(ctx context.Context, cfg Config) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to configure object storage: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return newUploader(client, cfg.Bucket, cfg.PublicURL), nil
}

func newUploader(client putter, bucket, publicURL string) *Uploader {
	return &Uploader{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}
}

// Upload stores body under a fresh key derived from name and returns its URL
func (u *Uploader) Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	if u == nil {
		return "", ErrDisabled
	}

	key := u.objectKey(name)
	input := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := u.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}

	return u.URL(key), nil
}

// URL returns the public address of key
func (u *Uploader) URL(key string) string {
	if u.publicURL == "" {
		return fmt.Sprintf("s3://%s/%s", u.bucket, key)
	}
	return u.publicURL + "/" + key
}

func (u *Uploader) objectKey(name string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(name, "\\", "/"))))
	return fmt.Sprintf("clients/%s/%s%s", u.now().UTC().Format("2006/01"), uuid.NewString(), ext)
}

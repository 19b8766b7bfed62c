// Package storage issues presigned S3 upload URLs for media files.
//
// The browser PUTs the file straight to the bucket; the server only signs
// the request and later records the resulting public URL as a media row.
// Works against AWS S3 or any S3-compatible endpoint (MinIO, R2).
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/sakif/utility-lineups/internal/model"
)

// DefaultUploadExpiry is how long a presigned PUT stays usable.
const DefaultUploadExpiry = 15 * time.Minute

// ErrUnsupportedContentType is returned for files the app does not store.
var ErrUnsupportedContentType = errors.New("storage: unsupported content type")

// contentTypes maps accepted uploads to a file extension and media type.
var contentTypes = map[string]struct {
	ext  string
	kind model.MediaType
}{
	"image/png":  {".png", model.MediaImage},
	"image/jpeg": {".jpg", model.MediaImage},
	"image/webp": {".webp", model.MediaImage},
	"image/gif":  {".gif", model.MediaGIF},
	"video/mp4":  {".mp4", model.MediaVideo},
	"video/webm": {".webm", model.MediaVideo},
}

type Config struct {
	Region    string
	AccessKey string
	SecretKey string
	// Endpoint is the S3 API base URL. Empty means AWS.
	Endpoint string
	Bucket   string
	// PublicBaseURL prefixes object keys to form the URL stored on media
	// rows. Empty derives it from Endpoint and Bucket.
	PublicBaseURL string
	Expiry        time.Duration
}

// Upload is a signed PUT target and the URL the object will be readable at.
type Upload struct {
	Key       string          `json:"key"`
	UploadURL string          `json:"uploadUrl"`
	PublicURL string          `json:"publicUrl"`
	MediaType model.MediaType `json:"mediaType"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

type Presigner struct {
	client *s3.PresignClient
	cfg    Config
	now    func() time.Time
}

// NewPresigner builds a presign client from static credentials.
func NewPresigner(ctx context.Context, cfg Config) (*Presigner, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = DefaultUploadExpiry
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("storage: loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Presigner{client: s3.NewPresignClient(client), cfg: cfg, now: time.Now}, nil
}

// objectKey is media/<user>/<yyyy>/<m>/<d>/<uuid><ext>.
func (p *Presigner) objectKey(userID, ext string) string {
	d := p.now().UTC()
	return fmt.Sprintf("media/%s/%d/%d/%d/%s%s", userID, d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

func (p *Presigner) publicURL(key string) string {
	if p.cfg.PublicBaseURL != "" {
		return strings.TrimRight(p.cfg.PublicBaseURL, "/") + "/" + key
	}
	if p.cfg.Endpoint != "" {
		return strings.TrimRight(p.cfg.Endpoint, "/") + "/" + p.cfg.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.cfg.Bucket, p.cfg.Region, key)
}

// PresignUpload signs a PUT of contentType under a fresh key owned by userID.
func (p *Presigner) PresignUpload(ctx context.Context, userID, contentType string) (*Upload, error) {
	ct, ok := contentTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}

	key := p.objectKey(userID, ct.ext)
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(p.cfg.Expiry))
	if err != nil {
		return nil, fmt.Errorf("storage: presigning put %s: %w", key, err)
	}

	return &Upload{
		Key:       key,
		UploadURL: req.URL,
		PublicURL: p.publicURL(key),
		MediaType: ct.kind,
		ExpiresAt: p.now().Add(p.cfg.Expiry),
	}, nil
}

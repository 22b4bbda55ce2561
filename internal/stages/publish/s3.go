// Package publish uploads finished episode audio to S3-compatible object
// storage and resolves the public URL callers are given.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

const (
	keyPrefix   = "episodes/"
	contentType = "audio/mpeg"
)

// Config holds artifact publication configuration
type Config struct {
	Bucket string
	Region string

	// PublicBaseURL, when set, fronts the bucket (CDN or reverse proxy)
	// and takes precedence over the storage endpoint's own URL.
	PublicBaseURL string
}

// S3Publisher uploads episode audio through the s3manager uploader. It
// implements the worker's ArtifactPublisher contract.
type S3Publisher struct {
	uploader s3manageriface.UploaderAPI
	bucket   string
	region   string
	baseURL  string
}

// NewS3Publisher creates a publisher on the given uploader.
func NewS3Publisher(uploader s3manageriface.UploaderAPI, cfg *Config) *S3Publisher {
	return &S3Publisher{
		uploader: uploader,
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		baseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
}

// PublishArtifact uploads the audio under episodes/<name>.mp3 and returns
// the URL the episode is reachable at.
func (p *S3Publisher) PublishArtifact(ctx context.Context, data []byte, name string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("no audio data to publish")
	}

	key := keyPrefix + name + ".mp3"
	out, err := p.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to bucket %s: %w", key, p.bucket, err)
	}

	return p.publicURL(key, out.Location), nil
}

func (p *S3Publisher) publicURL(key, uploadLocation string) string {
	if p.baseURL != "" {
		return p.baseURL + "/" + key
	}
	if uploadLocation != "" {
		return uploadLocation
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, key)
}

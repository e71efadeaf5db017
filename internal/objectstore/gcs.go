// Package objectstore stores uploaded poster images in Google Cloud Storage.
package objectstore

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Uploader writes an object and returns the URL it can be fetched from.
type Uploader interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS creates a client for bucket. An empty credsPath uses application
// default credentials.
func NewGCS(ctx context.Context, bucket, credsPath string) (*GCS, error) {
	var opts []option.ClientOption
	if credsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}

	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	wc := g.client.Bucket(g.bucket).Object(objectPath).NewWriter(ctx)
	wc.ContentType = contentType
	wc.ChunkSize = 0 // posters are small, send in one request

	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("gcs write %s: %w", objectPath, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("gcs close %s: %w", objectPath, err)
	}

	return PublicURL(g.bucket, objectPath), nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

// PublicURL assumes the bucket grants public read.
func PublicURL(bucket, objectPath string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, objectPath)
}

package illustration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Uploader stores image bytes under key and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// GCSConfig describes the bucket illustrations are written to.
type GCSConfig struct {
	Bucket          string
	PublicBaseURL   string
	CredentialsFile string
}

// GCSUploader writes illustrations to a Google Cloud Storage bucket.
type GCSUploader struct {
	client     *storage.Client
	bucket     string
	publicBase string
}

// NewGCSUploader opens a storage client. An empty CredentialsFile falls back
// to application default credentials.
func NewGCSUploader(ctx context.Context, cfg GCSConfig) (*GCSUploader, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("gcs credentials file %s: %w", cfg.CredentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSUploader{client: client, bucket: cfg.Bucket, publicBase: cfg.PublicBaseURL}, nil
}

// Upload implements Uploader.
func (u *GCSUploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	w := u.client.Bucket(u.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gs://%s/%s: %w", u.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close gs://%s/%s: %w", u.bucket, key, err)
	}
	return ObjectURL(u.publicBase, u.bucket, key), nil
}

// Close releases the storage client.
func (u *GCSUploader) Close() error {
	return u.client.Close()
}

// ObjectURL is the public address of key. Without a base URL the default
// storage.googleapis.com host is used.
func ObjectURL(publicBase, bucket, key string) string {
	key = strings.TrimLeft(key, "/")
	if publicBase == "" {
		return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
	}
	return strings.TrimRight(publicBase, "/") + "/" + key
}

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/gabriel-vasile/mimetype"
)

// ErrNotImage is returned when an upload is not one of the accepted image
// formats or does not match its declared type.
var ErrNotImage = errors.New("content is not an accepted image")

var imageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// DetectImageType sniffs body and returns its MIME type. A non-empty
// declared type must agree with what was sniffed.
func DetectImageType(body []byte, declared string) (string, error) {
	detected := mimetype.Detect(body)

	var contentType string
	for _, t := range imageTypes {
		if detected.Is(t) {
			contentType = t
			break
		}
	}
	if contentType == "" {
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, detected.String())
	}

	declared = strings.TrimSpace(strings.ToLower(declared))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" && !detected.Is(declared) {
		return "", fmt.Errorf("%w: declared %s but content is %s", ErrNotImage, declared, contentType)
	}
	return contentType, nil
}

// GCSImageStore writes menu images to a Cloud Storage bucket.
type GCSImageStore struct {
	client *storage.Client
	bucket string
}

func NewGCSImageStore(client *storage.Client, bucket string) (*GCSImageStore, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	return &GCSImageStore{client: client, bucket: bucket}, nil
}

// Put uploads body under objectName and returns its public URL.
func (s *GCSImageStore) Put(ctx context.Context, objectName, contentType string, body []byte) (string, error) {
	objectName = strings.TrimLeft(strings.TrimSpace(objectName), "/")
	if objectName == "" {
		return "", errors.New("object name is empty")
	}

	ctype, err := DetectImageType(body, contentType)
	if err != nil {
		return "", err
	}

	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = ctype
	w.CacheControl = "public, max-age=86400"

	if _, err := io.Copy(w, bytes.NewReader(body)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object bucket=%s object=%s: %w", s.bucket, objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object bucket=%s object=%s: %w", s.bucket, objectName, err)
	}

	return PublicURL(s.bucket, objectName), nil
}

func PublicURL(bucket, object string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, object)
}

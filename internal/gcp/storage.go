package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"

	"github.com/Lllllllleong/prescriptionflow/internal/models"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// ImageStore persists prescription images in a single GCS bucket, namespaced
// by folder (original vs processed).
type ImageStore struct {
	client *storage.Client
	bucket string
}

// NewImageStore wraps an existing storage client for the given bucket.
func NewImageStore(client *storage.Client, bucket string) (*ImageStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket must be provided to create an image store")
	}
	return &ImageStore{client: client, bucket: bucket}, nil
}

// Upload writes the image bytes to a fresh object under the given folder and
// returns its public URL and object key. Keys are random, so uploading the
// original and the processed image can never overwrite each other. The write
// carries a DoesNotExist precondition; a 412 means the object is already
// there, which we treat as stored.
func (s *ImageStore) Upload(ctx context.Context, data []byte, folder string) (models.ImageAsset, error) {
	if len(data) == 0 {
		return models.ImageAsset{}, fmt.Errorf("refusing to upload empty image to folder %q", folder)
	}

	objectName := fmt.Sprintf("%s/%s", folder, uuid.NewString())
	asset := models.ImageAsset{
		URL:       fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, objectName),
		StorageID: objectName,
	}

	writer := s.client.Bucket(s.bucket).Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = http.DetectContentType(data)

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 412 {
			slog.Info("Object already exists, skipping write.", "object", objectName)
			return asset, nil
		}
		return models.ImageAsset{}, fmt.Errorf("failed to write image to GCS object %s: %w", objectName, err)
	}

	if err := writer.Close(); err != nil {
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 412 {
			slog.Info("Object already exists, skipping write.", "object", objectName)
			return asset, nil
		}
		return models.ImageAsset{}, fmt.Errorf("failed to finalize GCS write for %s: %w", objectName, err)
	}

	return asset, nil
}

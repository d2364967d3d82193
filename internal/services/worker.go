package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
)

// GCSEvent is the storage-object payload of a GCS finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// ProcessObject handles a prescription dropped directly into a GCS bucket:
// it streams the object and runs the pipeline inline. An error is returned
// only when the object could not be fetched, which is the one transient
// condition where redelivery can help.
func (p *Processor) ProcessObject(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new GCS object.")

	reader, err := p.Storage.Bucket(e.Bucket).Object(e.Name).NewReader(ctx)
	if err != nil {
		logCtx.Error("Failed to open GCS object", "error", err)
		return fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", e.Bucket, e.Name, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		logCtx.Error("Failed to read GCS object", "error", err)
		return fmt.Errorf("failed to read GCS object gs://%s/%s: %w", e.Bucket, e.Name, err)
	}

	return p.runObjectPipeline(ctx, logCtx, data, path.Base(e.Name))
}

// runObjectPipeline normalizes the fetched payload and runs the pipeline.
// It always acks: a malformed payload never becomes processable, and a
// pipeline failure is already recorded on the submission, so returning an
// error would only make Eventarc redeliver a single-attempt workflow.
func (p *Processor) runObjectPipeline(ctx context.Context, logCtx *slog.Logger, data []byte, filename string) error {
	imageBytes, err := NormalizeUpload(data, filename)
	if err != nil {
		logCtx.Error("Rejected GCS object", "error", err)
		return nil
	}

	if err := p.Pipeline.Process(ctx, imageBytes, filename); err != nil {
		logCtx.Error("Pipeline finished with failure.", "error", err)
	}
	return nil
}

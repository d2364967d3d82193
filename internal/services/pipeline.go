package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/prescriptionflow/internal/enhance"
	"github.com/Lllllllleong/prescriptionflow/internal/models"
	"github.com/Lllllllleong/prescriptionflow/internal/scribe"
	"github.com/Lllllllleong/prescriptionflow/internal/store"
)

// ImageUploader persists image bytes under a namespace folder.
type ImageUploader interface {
	Upload(ctx context.Context, data []byte, folder string) (models.ImageAsset, error)
}

// Analyzer turns a processed-image URL into a structured medical record.
type Analyzer interface {
	Analyze(ctx context.Context, imageURL string) (scribe.Record, error)
}

// PipelineConfig holds the pipeline's namespace and provenance settings.
type PipelineConfig struct {
	OriginalsFolder string
	ProcessedFolder string
	ScribeID        string
}

// PipelineFunction runs the per-submission workflow: create record, upload
// original, enhance, upload processed, analyze, save. Each submission is an
// independent unit of work; steps within it are strictly sequential.
type PipelineFunction struct {
	store  store.SubmissionStore
	images ImageUploader
	scribe Analyzer
	config PipelineConfig
	now    func() time.Time
}

// NewPipeline wires the pipeline's collaborators. The zero values of config
// fall back to the default namespaces and scribe identity.
func NewPipeline(submissions store.SubmissionStore, images ImageUploader, analyzer Analyzer, config PipelineConfig) *PipelineFunction {
	if config.OriginalsFolder == "" {
		config.OriginalsFolder = "original_prescriptions"
	}
	if config.ProcessedFolder == "" {
		config.ProcessedFolder = "processed_prescriptions"
	}
	if config.ScribeID == "" {
		config.ScribeID = "AI_SCRIBE_V1"
	}
	return &PipelineFunction{
		store:  submissions,
		images: images,
		scribe: analyzer,
		config: config,
		now:    time.Now,
	}
}

// Process handles one uploaded prescription image from record creation to the
// terminal completed or failed state. Failures after record creation are
// absorbed into the record; the returned error exists for callers that run
// the pipeline inline rather than fire-and-forget.
func (f *PipelineFunction) Process(ctx context.Context, imageBytes []byte, filename string) error {
	logCtx := slog.With("filename", filename)
	logCtx.Info("Processing started.")

	sub := models.Submission{
		Filename:   filename,
		Status:     models.StatusProcessing,
		ReceivedAt: f.now().UTC(),
	}
	id, err := f.store.Create(ctx, sub)
	if err != nil {
		// No record exists yet, so there is nothing to mark failed.
		logCtx.Error("Failed to create submission record", "error", err)
		return fmt.Errorf("failed to create submission record: %w", err)
	}
	logCtx = logCtx.With("submissionId", id)

	original, err := f.images.Upload(ctx, imageBytes, f.config.OriginalsFolder)
	if err != nil {
		return f.fail(ctx, logCtx, id, "failed to upload original image", err)
	}
	logCtx.Info("Step 1/5: Original image uploaded.", "storageId", original.StorageID)

	processedBytes := enhance.Enhance(imageBytes)
	logCtx.Info("Step 2/5: Image enhancement complete.")

	processed, err := f.images.Upload(ctx, processedBytes, f.config.ProcessedFolder)
	if err != nil {
		return f.fail(ctx, logCtx, id, "failed to upload processed image", err)
	}
	logCtx.Info("Step 3/5: Processed image uploaded.", "storageId", processed.StorageID)

	record, err := f.scribe.Analyze(ctx, processed.URL)
	if err != nil {
		return f.fail(ctx, logCtx, id, "scribe analysis failed", err)
	}
	if record == nil {
		return f.fail(ctx, logCtx, id, "scribe analysis failed", errors.New("returned no record"))
	}
	if msg, ok := record.ErrorMessage(); ok {
		return f.fail(ctx, logCtx, id, "scribe returned an error", errors.New(msg))
	}
	logCtx.Info("Step 4/5: Scribe analysis complete.")

	completedAt := f.now().UTC()
	record["scribePrescription"] = map[string]any{
		"scribeId":  f.config.ScribeID,
		"imageUrl":  processed.URL,
		"storageId": processed.StorageID,
		"date":      completedAt.Format(time.RFC3339),
	}

	update := map[string]any{
		"status":          models.StatusCompleted,
		"processed_at":    completedAt,
		"original_image":  original,
		"processed_image": processed,
		"analysis_data":   map[string]any(record),
	}
	if err := f.store.Update(ctx, id, update); err != nil {
		return f.fail(ctx, logCtx, id, "failed to save analysis results", err)
	}

	logCtx.Info("Step 5/5: Submission completed.")
	return nil
}

// fail flips the submission to failed with the first fatal error. The record
// keeps whatever the earlier steps already wrote; updates are merge-only.
func (f *PipelineFunction) fail(ctx context.Context, logCtx *slog.Logger, id, message string, cause error) error {
	logCtx.Error(message, "error", cause)
	update := map[string]any{
		"status":        models.StatusFailed,
		"error_message": fmt.Sprintf("%s: %v", message, cause),
	}
	if err := f.store.Update(ctx, id, update); err != nil {
		logCtx.Error("CRITICAL: Failed to update submission status to failed after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, cause)
}

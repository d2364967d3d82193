package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/prescriptionflow/internal/gcp"
	"github.com/Lllllllleong/prescriptionflow/internal/scribe"
	"github.com/Lllllllleong/prescriptionflow/internal/store"
)

// ProcessorConfig holds all configuration for the prescription processor.
type ProcessorConfig struct {
	ProjectID       string
	VertexAIRegion  string
	ScribeModel     string
	Bucket          string
	CollectionName  string
	OriginalsFolder string
	ProcessedFolder string
	ScribeID        string
	DispatchLimit   int
}

// Processor bundles the fully wired pipeline with its fire-and-forget
// dispatcher and the submission store for the read path.
type Processor struct {
	Pipeline    *PipelineFunction
	Dispatcher  *Dispatcher
	Submissions store.SubmissionStore
	Storage     *storage.Client
	config      ProcessorConfig
}

func loadProcessorConfig() (*ProcessorConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	bucket := gcp.GetEnv("PRESCRIPTIONS_BUCKET", "")
	if bucket == "" {
		return nil, fmt.Errorf("PRESCRIPTIONS_BUCKET environment variable must be set")
	}

	dispatchLimit, err := strconv.Atoi(gcp.GetEnv("DISPATCH_LIMIT", "0"))
	if err != nil {
		return nil, fmt.Errorf("DISPATCH_LIMIT must be an integer: %w", err)
	}

	return &ProcessorConfig{
		ProjectID:       projectID,
		VertexAIRegion:  gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		ScribeModel:     gcp.GetEnv("SCRIBE_MODEL", "gemini-2.0-flash"),
		Bucket:          bucket,
		CollectionName:  gcp.GetEnv("FIRESTORE_COLLECTION", "prescriptions"),
		OriginalsFolder: gcp.GetEnv("ORIGINALS_FOLDER", "original_prescriptions"),
		ProcessedFolder: gcp.GetEnv("PROCESSED_FOLDER", "processed_prescriptions"),
		ScribeID:        gcp.GetEnv("SCRIBE_ID", "AI_SCRIBE_V1"),
		DispatchLimit:   dispatchLimit,
	}, nil
}

// NewProcessor creates the processor from environment configuration,
// constructing all GCP clients explicitly. Lifecycle is owned by process
// startup; there are no lazy globals.
func NewProcessor(ctx context.Context) (*Processor, error) {
	config, err := loadProcessorConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	submissions, err := store.NewFirestoreStore(firestoreClient, config.CollectionName)
	if err != nil {
		return nil, err
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	images, err := gcp.NewImageStore(storageClient, config.Bucket)
	if err != nil {
		return nil, err
	}

	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion, config.ScribeModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	pipeline := NewPipeline(submissions, images, scribe.New(vertexClient), PipelineConfig{
		OriginalsFolder: config.OriginalsFolder,
		ProcessedFolder: config.ProcessedFolder,
		ScribeID:        config.ScribeID,
	})

	slog.Info("Prescription processor initialized.", "collection", config.CollectionName, "bucket", config.Bucket, "model", config.ScribeModel)
	return &Processor{
		Pipeline:    pipeline,
		Dispatcher:  NewDispatcher(pipeline, config.DispatchLimit),
		Submissions: submissions,
		Storage:     storageClient,
		config:      *config,
	}, nil
}

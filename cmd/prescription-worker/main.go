package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/joho/godotenv"

	"github.com/Lllllllleong/prescriptionflow/internal/services"
)

var (
	processorInstance *services.Processor
	once              sync.Once
	initErr           error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	// Register the CloudEvent function. The framework will handle routing the
	// GCS finalize event here.
	functions.CloudEvent("ProcessPrescriptionObject", processPrescriptionObject)
}

// main is required by the Go Functions Framework.
func main() {}

// processPrescriptionObject runs the pipeline for a prescription image that
// was dropped directly into the intake bucket.
func processPrescriptionObject(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		processorInstance, initErr = services.NewProcessor(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	return processorInstance.ProcessObject(ctx, gcsEvent)
}

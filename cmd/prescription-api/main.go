package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/joho/godotenv"

	"github.com/Lllllllleong/prescriptionflow/internal/models"
	"github.com/Lllllllleong/prescriptionflow/internal/services"
)

// maxUploadBytes caps a single prescription upload.
const maxUploadBytes = 32 << 20

var (
	processorInstance *services.Processor
	once              sync.Once
	initErr           error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Local development convenience; deployed functions get real env vars.
	_ = godotenv.Load()

	// Register the HTTP function with the framework.
	functions.HTTP("UploadPrescription", handleUpload)
}

// main is required by the Go Functions Framework.
func main() {}

// handleUpload accepts a multipart prescription image, dispatches background
// processing, and acknowledges immediately. It never waits for the pipeline.
func handleUpload(w http.ResponseWriter, r *http.Request) {
	// Use sync.Once for robust, one-time initialization of clients.
	once.Do(func() {
		processorInstance, initErr = services.NewProcessor(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		writeError(w, http.StatusInternalServerError, "failed to initialize service")
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "only POST is supported")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "request must carry a multipart 'file' field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("Failed to read upload", "filename", header.Filename, "error", err)
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	imageBytes, err := services.NormalizeUpload(data, header.Filename)
	if err != nil {
		slog.Warn("Rejected upload", "filename", header.Filename, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	processorInstance.Dispatcher.Submit(imageBytes, header.Filename)

	writeJSON(w, http.StatusOK, models.UploadResponse{
		Message:  "Prescription received. Processing has started in the background.",
		Filename: header.Filename,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/joho/godotenv"

	"github.com/Lllllllleong/prescriptionflow/internal/models"
	"github.com/Lllllllleong/prescriptionflow/internal/services"
	"github.com/Lllllllleong/prescriptionflow/internal/store"
)

var (
	readerInstance *services.Reader
	once           sync.Once
	initErr        error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	functions.HTTP("GetSubmission", handleGetSubmission)
}

// main is required by the Go Functions Framework.
func main() {}

// handleGetSubmission serves a single submission by ?id= or, without an id,
// the most recent submissions. This is the only way to observe a pipeline
// outcome; the upload endpoint has long since returned.
func handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		readerInstance, initErr = services.NewReader(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		writeError(w, http.StatusInternalServerError, "failed to initialize service")
		return
	}

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "only GET is supported")
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		subs, err := readerInstance.Submissions.List(r.Context(), 20)
		if err != nil {
			slog.Error("Failed to list submissions", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list submissions")
			return
		}
		writeJSON(w, http.StatusOK, models.SubmissionList{Submissions: subs})
		return
	}

	sub, err := readerInstance.Submissions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no submission with that id")
			return
		}
		slog.Error("Failed to get submission", "submissionId", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get submission")
		return
	}
	writeJSON(w, http.StatusOK, sub)
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

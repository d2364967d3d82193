package services

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/prescriptionflow/internal/gcp"
	"github.com/Lllllllleong/prescriptionflow/internal/store"
)

// Reader serves the external read path for submission records. It carries no
// pipeline dependencies: just the store.
type Reader struct {
	Submissions store.SubmissionStore
}

// NewReader creates the reader from environment configuration.
func NewReader(ctx context.Context) (*Reader, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	submissions, err := store.NewFirestoreStore(firestoreClient, gcp.GetEnv("FIRESTORE_COLLECTION", "prescriptions"))
	if err != nil {
		return nil, err
	}
	return &Reader{Submissions: submissions}, nil
}

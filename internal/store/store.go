// Package store persists submission records in a single Firestore collection.
package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/prescriptionflow/internal/models"
)

// ErrNotFound is returned by Get when no submission exists for the ID.
var ErrNotFound = errors.New("submission not found")

// SubmissionStore is the persistence contract the pipeline depends on.
// Update has top-level merge semantics: keys in fields replace existing keys,
// everything else on the record is left untouched.
type SubmissionStore interface {
	Create(ctx context.Context, sub models.Submission) (string, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	Get(ctx context.Context, id string) (*models.Submission, error)
	List(ctx context.Context, limit int) ([]models.Submission, error)
}

// FirestoreStore implements SubmissionStore over one Firestore collection.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore wraps an existing Firestore client.
func NewFirestoreStore(client *firestore.Client, collection string) (*FirestoreStore, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection must be provided to create a submission store")
	}
	return &FirestoreStore{client: client, collection: collection}, nil
}

// Create inserts a new submission record and returns its generated ID.
func (s *FirestoreStore) Create(ctx context.Context, sub models.Submission) (string, error) {
	docRef, _, err := s.client.Collection(s.collection).Add(ctx, sub)
	if err != nil {
		return "", fmt.Errorf("failed to create submission record: %w", err)
	}
	return docRef.ID, nil
}

// Update merges the given top-level fields into an existing record.
func (s *FirestoreStore) Update(ctx context.Context, id string, fields map[string]any) error {
	_, err := s.client.Collection(s.collection).Doc(id).Set(ctx, fields, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update submission %s: %w", id, err)
	}
	return nil
}

// Get fetches one submission by ID.
func (s *FirestoreStore) Get(ctx context.Context, id string) (*models.Submission, error) {
	snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission %s: %w", id, err)
	}

	var sub models.Submission
	if err := snap.DataTo(&sub); err != nil {
		return nil, fmt.Errorf("failed to decode submission %s: %w", id, err)
	}
	sub.ID = snap.Ref.ID
	return &sub, nil
}

// List returns the most recently received submissions, newest first.
func (s *FirestoreStore) List(ctx context.Context, limit int) ([]models.Submission, error) {
	if limit <= 0 {
		limit = 20
	}

	it := s.client.Collection(s.collection).
		OrderBy("received_at", firestore.Desc).
		Limit(limit).
		Documents(ctx)

	var subs []models.Submission
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list submissions: %w", err)
		}
		var sub models.Submission
		if err := snap.DataTo(&sub); err != nil {
			return nil, fmt.Errorf("failed to decode submission %s: %w", snap.Ref.ID, err)
		}
		sub.ID = snap.Ref.ID
		subs = append(subs, sub)
	}
	return subs, nil
}

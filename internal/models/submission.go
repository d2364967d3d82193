package models

import "time"

// Submission statuses. These are the externally visible lifecycle states;
// a record starts as processing and transitions exactly once to completed
// or failed.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ImageAsset points at an image persisted in object storage.
type ImageAsset struct {
	URL       string `firestore:"url" json:"url"`
	StorageID string `firestore:"storage_id" json:"storage_id"`
}

// Submission is the main record for one uploaded prescription in Firestore.
// Field names are the persisted schema that downstream readers depend on;
// do not rename them without migrating the collection.
type Submission struct {
	ID             string         `firestore:"-" json:"id"`
	Filename       string         `firestore:"filename" json:"filename"`
	Status         string         `firestore:"status" json:"status"`
	ReceivedAt     time.Time      `firestore:"received_at" json:"received_at"`
	ProcessedAt    *time.Time     `firestore:"processed_at,omitempty" json:"processed_at,omitempty"`
	OriginalImage  *ImageAsset    `firestore:"original_image,omitempty" json:"original_image,omitempty"`
	ProcessedImage *ImageAsset    `firestore:"processed_image,omitempty" json:"processed_image,omitempty"`
	AnalysisData   map[string]any `firestore:"analysis_data,omitempty" json:"analysis_data,omitempty"`
	ErrorMessage   string         `firestore:"error_message,omitempty" json:"error_message,omitempty"`
}

package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/Lllllllleong/prescriptionflow/internal/models"
	"github.com/Lllllllleong/prescriptionflow/internal/scribe"
)

func TestRunObjectPipelineAcksMalformedPayload(t *testing.T) {
	subs := newFakeStore()
	p := &Processor{Pipeline: newTestPipeline(subs, &fakeUploader{}, &fakeScribe{record: scribe.Record{}})}

	broken := []byte("%PDF-1.4\nthis is not a real pdf body")
	if err := p.runObjectPipeline(context.Background(), slog.Default(), broken, "rx.pdf"); err != nil {
		t.Fatalf("a permanently malformed payload must be acked, got %v", err)
	}
	if len(subs.docs) != 0 {
		t.Fatal("a rejected payload must not create a submission record")
	}
}

func TestRunObjectPipelineAcksPipelineFailure(t *testing.T) {
	subs := newFakeStore()
	p := &Processor{Pipeline: newTestPipeline(subs, &fakeUploader{}, &fakeScribe{record: scribe.Record{"error": "unreadable"}})}

	if err := p.runObjectPipeline(context.Background(), slog.Default(), []byte("raw-image"), "rx.png"); err != nil {
		t.Fatalf("a recorded pipeline failure must be acked, got %v", err)
	}
	if status := subs.doc(t, "sub-1")["status"]; status != models.StatusFailed {
		t.Fatalf("expected the failure to be recorded on the submission, got status %v", status)
	}
}

package services

import (
	"fmt"
	"testing"

	"github.com/Lllllllleong/prescriptionflow/internal/models"
	"github.com/Lllllllleong/prescriptionflow/internal/scribe"
)

func TestDispatcherRunsDetachedUnitsOfWork(t *testing.T) {
	subs := newFakeStore()
	p := newTestPipeline(subs, &fakeUploader{}, &fakeScribe{record: scribe.Record{"medication": []any{}}})
	d := NewDispatcher(p, 0)

	const n = 8
	for i := 0; i < n; i++ {
		d.Submit([]byte("raw-image"), fmt.Sprintf("rx-%d.png", i))
	}
	d.Wait()

	subs.mu.Lock()
	defer subs.mu.Unlock()
	if len(subs.docs) != n {
		t.Fatalf("expected %d submissions, got %d", n, len(subs.docs))
	}
	for id, doc := range subs.docs {
		if doc["status"] != models.StatusCompleted {
			t.Fatalf("submission %s ended as %v", id, doc["status"])
		}
	}
}

func TestDispatcherIsolatesFailures(t *testing.T) {
	subs := newFakeStore()
	// Every unit hits the sentinel, so every unit fails independently.
	p := newTestPipeline(subs, &fakeUploader{}, &fakeScribe{record: scribe.Record{"error": "unreadable"}})
	d := NewDispatcher(p, 2)

	for i := 0; i < 5; i++ {
		d.Submit([]byte("raw-image"), fmt.Sprintf("rx-%d.png", i))
	}
	d.Wait()

	subs.mu.Lock()
	defer subs.mu.Unlock()
	if len(subs.docs) != 5 {
		t.Fatalf("a failing unit blocked the others: got %d of 5 submissions", len(subs.docs))
	}
	for id, doc := range subs.docs {
		if doc["status"] != models.StatusFailed {
			t.Fatalf("submission %s ended as %v", id, doc["status"])
		}
	}
}

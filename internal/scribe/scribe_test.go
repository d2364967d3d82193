package scribe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloud.google.com/go/vertexai/genai"
)

type fakeGenerator struct {
	resp  *genai.GenerateContentResponse
	err   error
	calls int
}

func (g *fakeGenerator) GenerateContent(_ context.Context, _ ...genai.Part) (*genai.GenerateContentResponse, error) {
	g.calls++
	return g.resp, g.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}}},
		},
	}
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAnalyzeParsesModelJSON(t *testing.T) {
	srv := imageServer(t)
	gen := &fakeGenerator{resp: textResponse(`{"name": "Jordan Example", "medication": []}`)}
	s := NewWithDeps(gen, srv.Client())

	record, err := s.Analyze(context.Background(), srv.URL+"/rx.png")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if record["name"] != "Jordan Example" {
		t.Fatalf("unexpected record contents: %v", record)
	}
	if _, ok := record.ErrorMessage(); ok {
		t.Fatal("clean record must not report an error message")
	}
	if gen.calls != 1 {
		t.Fatalf("expected exactly one model call, got %d", gen.calls)
	}
}

func TestAnalyzeStripsCodeFences(t *testing.T) {
	srv := imageServer(t)
	gen := &fakeGenerator{resp: textResponse("```json\n{\"diagnosis\": [\"flu\"]}\n```")}
	s := NewWithDeps(gen, srv.Client())

	record, err := s.Analyze(context.Background(), srv.URL+"/rx.png")
	if err != nil {
		t.Fatalf("expected fenced JSON to parse, got %v", err)
	}
	if _, ok := record["diagnosis"]; !ok {
		t.Fatalf("unexpected record contents: %v", record)
	}
}

func TestAnalyzeFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	gen := &fakeGenerator{resp: textResponse("{}")}
	s := NewWithDeps(gen, srv.Client())

	_, err := s.Analyze(context.Background(), srv.URL+"/missing.png")
	var scribeErr *ScribeError
	if !errors.As(err, &scribeErr) {
		t.Fatalf("expected *ScribeError, got %v", err)
	}
	if scribeErr.URL != srv.URL+"/missing.png" {
		t.Fatalf("sentinel carries wrong locator %q", scribeErr.URL)
	}
	if gen.calls != 0 {
		t.Fatal("model must not be called when the image fetch failed")
	}
}

func TestAnalyzeRemoteFailure(t *testing.T) {
	srv := imageServer(t)
	gen := &fakeGenerator{err: errors.New("deadline exceeded")}
	s := NewWithDeps(gen, srv.Client())

	_, err := s.Analyze(context.Background(), srv.URL+"/rx.png")
	var scribeErr *ScribeError
	if !errors.As(err, &scribeErr) {
		t.Fatalf("expected *ScribeError, got %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", gen.calls)
	}
}

func TestAnalyzeRejectsJSONNull(t *testing.T) {
	srv := imageServer(t)
	gen := &fakeGenerator{resp: textResponse("null")}
	s := NewWithDeps(gen, srv.Client())

	record, err := s.Analyze(context.Background(), srv.URL+"/rx.png")
	var scribeErr *ScribeError
	if !errors.As(err, &scribeErr) {
		t.Fatalf("expected *ScribeError for a JSON null body, got (%v, %v)", record, err)
	}
}

func TestAnalyzeRejectsNonJSONResponse(t *testing.T) {
	srv := imageServer(t)
	gen := &fakeGenerator{resp: textResponse("I am unable to read this prescription.")}
	s := NewWithDeps(gen, srv.Client())

	if _, err := s.Analyze(context.Background(), srv.URL+"/rx.png"); err == nil {
		t.Fatal("expected non-JSON model output to be rejected")
	}
}

func TestAnalyzeRejectsEmptyResponse(t *testing.T) {
	srv := imageServer(t)
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{}}
	s := NewWithDeps(gen, srv.Client())

	if _, err := s.Analyze(context.Background(), srv.URL+"/rx.png"); err == nil {
		t.Fatal("expected an empty model response to be rejected")
	}
}

func TestRecordErrorMessage(t *testing.T) {
	if msg, ok := (Record{"error": "quota exceeded"}).ErrorMessage(); !ok || msg != "quota exceeded" {
		t.Fatalf("got (%q, %v)", msg, ok)
	}
	if _, ok := (Record{"name": "x"}).ErrorMessage(); ok {
		t.Fatal("record without error key must not report one")
	}
}

// Package scribe wraps the Vertex AI vision call that turns a prescription
// image into a structured medical record.
package scribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/prescriptionflow/internal/gcp"
)

// Record is the opaque analysis document produced by the scribe model. The
// pipeline stores it verbatim; only the error flag is ever inspected.
type Record map[string]any

// ErrorMessage reports a model-emitted top-level "error" value, if any.
func (r Record) ErrorMessage() (string, bool) {
	v, ok := r["error"]
	if !ok {
		return "", false
	}
	return fmt.Sprint(v), true
}

// ScribeError is the sentinel returned for every extraction failure. It
// carries the image locator alongside the cause so a failed submission can be
// traced back to the exact object that was analyzed.
type ScribeError struct {
	URL string
	Err error
}

func (e *ScribeError) Error() string {
	return fmt.Sprintf("scribe analysis of %s failed: %v", e.URL, e.Err)
}

func (e *ScribeError) Unwrap() error { return e.Err }

// generator is the slice of *genai.GenerativeModel the scribe depends on.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Scribe fetches a prescription image and asks the vision model to transcribe
// it. Single attempt, no retry; every failure surfaces as a *ScribeError.
type Scribe struct {
	model      generator
	httpClient *http.Client
}

// New creates a Scribe around a pre-configured vertex client.
func New(client *gcp.VertexClient) *Scribe {
	return &Scribe{model: client.ScribeModel, httpClient: http.DefaultClient}
}

// NewWithDeps wires an explicit model and HTTP client. Used by tests.
func NewWithDeps(model generator, httpClient *http.Client) *Scribe {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Scribe{model: model, httpClient: httpClient}
}

// Analyze downloads the image at imageURL, submits it to the scribe model and
// parses the JSON transcription.
func (s *Scribe) Analyze(ctx context.Context, imageURL string) (Record, error) {
	imageBytes, err := s.fetchImage(ctx, imageURL)
	if err != nil {
		return nil, &ScribeError{URL: imageURL, Err: err}
	}

	imagePart := genai.Blob{
		MIMEType: http.DetectContentType(imageBytes),
		Data:     imageBytes,
	}

	resp, err := s.model.GenerateContent(ctx, imagePart, genai.Text(gcp.ScribeUserPrompt))
	if err != nil {
		return nil, &ScribeError{URL: imageURL, Err: fmt.Errorf("failed to generate transcription from gemini: %w", err)}
	}

	jsonString := extractJSONContent(resp)
	if jsonString == "" {
		return nil, &ScribeError{URL: imageURL, Err: fmt.Errorf("gemini returned an empty response instead of JSON")}
	}

	var record Record
	if err := json.Unmarshal([]byte(jsonString), &record); err != nil {
		slog.Error("Failed to unmarshal JSON response from Gemini", "error", err, "responseBody", jsonString)
		return nil, &ScribeError{URL: imageURL, Err: fmt.Errorf("failed to parse JSON from model: %w", err)}
	}
	// "null" unmarshals into a nil map without an error; a transcription must
	// be an object.
	if record == nil {
		return nil, &ScribeError{URL: imageURL, Err: fmt.Errorf("model returned JSON null instead of a record")}
	}

	return record, nil
}

func (s *Scribe) fetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image download returned an empty body")
	}
	return data, nil
}

// extractJSONContent robustly gets the raw text content from the model response.
func extractJSONContent(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	// The model is configured to return JSON, but clean potential markdown
	// fences just in case.
	cleanJSON := strings.TrimSpace(sb.String())
	cleanJSON = strings.TrimPrefix(cleanJSON, "```json")
	cleanJSON = strings.TrimPrefix(cleanJSON, "```")
	cleanJSON = strings.TrimSuffix(cleanJSON, "```")
	return strings.TrimSpace(cleanJSON)
}

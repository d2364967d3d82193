package services

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeUploadPassesRasterThrough(t *testing.T) {
	data := pngBytes(t)
	out, err := NormalizeUpload(data, "rx.png")
	if err != nil {
		t.Fatalf("raster upload rejected: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatal("raster bytes must pass through unchanged")
	}
}

func TestNormalizeUploadRejectsEmpty(t *testing.T) {
	if _, err := NormalizeUpload(nil, "rx.png"); err == nil {
		t.Fatal("expected empty upload to be rejected")
	}
}

func TestNormalizeUploadRejectsBrokenPDF(t *testing.T) {
	broken := []byte("%PDF-1.4\nthis is not a real pdf body")
	if _, err := NormalizeUpload(broken, "rx.pdf"); err == nil {
		t.Fatal("expected a malformed pdf to be rejected")
	}
}

// Package enhance prepares prescription images for the scribe model by
// flattening them to high-contrast bilevel scans.
package enhance

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"
	"log/slog"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// binarizationThreshold splits foreground ink from paper after the contrast
// stretch. Matches the tuning used for handwritten prescriptions.
const binarizationThreshold = 160

// Enhance converts an encoded raster image into a grayscale, autocontrasted,
// binarized PNG to aid downstream text recognition. It is fail-open: if the
// input cannot be decoded or the result cannot be encoded, the original bytes
// are returned unchanged so the pipeline always has a usable image.
func Enhance(data []byte) []byte {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Warn("Enhancement skipped, input is not a decodable image.", "error", err)
		return data
	}

	gray := toGray(img)
	autocontrast(gray)
	binarize(gray, binarizationThreshold)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		slog.Warn("Enhancement skipped, failed to encode result.", "format", format, "error", err)
		return data
	}
	return buf.Bytes()
}

// toGray flattens any channel layout to 8-bit grayscale.
func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// autocontrast stretches the intensity histogram linearly to span the full
// 0..255 range. A flat image is left untouched.
func autocontrast(gray *image.Gray) {
	min, max := uint8(255), uint8(0)
	for _, p := range gray.Pix {
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	if min >= max {
		return
	}

	span := int(max) - int(min)
	for i, p := range gray.Pix {
		gray.Pix[i] = uint8((int(p) - int(min)) * 255 / span)
	}
}

// binarize clamps every pixel to pure black or white.
func binarize(gray *image.Gray, threshold uint8) {
	for i, p := range gray.Pix {
		if p > threshold {
			gray.Pix[i] = 255
		} else {
			gray.Pix[i] = 0
		}
	}
}

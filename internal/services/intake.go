package services

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// NormalizeUpload turns an uploaded payload into raster image bytes the
// pipeline can process. Raster uploads pass through untouched. PDF uploads
// (prescriptions scanned to PDF) yield the first embedded page image; a PDF
// with no embedded image is rejected.
func NormalizeUpload(data []byte, filename string) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("upload %q is empty", filename)
	}
	if http.DetectContentType(data) != "application/pdf" {
		return data, nil
	}
	img, err := firstScannedImage(data)
	if err != nil {
		return nil, fmt.Errorf("upload %q: %w", filename, err)
	}
	return img, nil
}

// firstScannedImage extracts the first embedded image from page one of a PDF.
func firstScannedImage(data []byte) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pageImages, err := api.ExtractImagesRaw(bytes.NewReader(data), []string{"1"}, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to extract images from pdf: %w", err)
	}

	for _, imagesByObj := range pageImages {
		// Map iteration is random; pick the lowest object number so repeated
		// uploads of the same PDF select the same image.
		objNrs := make([]int, 0, len(imagesByObj))
		for objNr := range imagesByObj {
			objNrs = append(objNrs, objNr)
		}
		sort.Ints(objNrs)

		for _, objNr := range objNrs {
			imageBytes, err := io.ReadAll(imagesByObj[objNr])
			if err != nil {
				return nil, fmt.Errorf("failed to read extracted pdf image: %w", err)
			}
			if len(imageBytes) > 0 {
				return imageBytes, nil
			}
		}
	}
	return nil, fmt.Errorf("pdf contains no embedded page image")
}

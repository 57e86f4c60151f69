package storage

import (
	"bytes"
	"fmt"
	"io"

	"eventhub/internal/domain"

	"github.com/disintegration/imaging"
)

const jpegQuality = 85

type jpegProcessor struct{}

// NewJPEGProcessor returns an ImageProcessor that decodes any format imaging
// supports, applies EXIF orientation, and re-encodes as JPEG.
func NewJPEGProcessor() domain.ImageProcessor {
	return jpegProcessor{}
}

// NormalizeJPEG shrinks the image to fit within maxWidth x maxHeight keeping
// its aspect ratio. Smaller images are not enlarged.
func (jpegProcessor) NormalizeJPEG(r io.Reader, maxWidth, maxHeight int) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, domain.NewValidationError("file", "unsupported or corrupt image")
	}
	img = imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

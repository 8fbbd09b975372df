package epub

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

const (
	coverMaxWidth       = 1600
	coverMaxHeight      = 2400
	coverJPEGQuality    = 90
	chapterImageMaxSide = 1200
	chapterJPEGQuality  = 85
)

// normalizeCover loads a cover image, bounds it to the reader-friendly
// cover dimensions, and re-encodes it as JPEG.
func normalizeCover(path string) ([]byte, error) {
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}

	bounds := src.Bounds()
	if bounds.Dx() > coverMaxWidth || bounds.Dy() > coverMaxHeight {
		src = imaging.Fit(src, coverMaxWidth, coverMaxHeight, imaging.Lanczos)
	}

	return encodeJPEG(src, coverJPEGQuality)
}

// normalizeChapterImage bounds a chapter illustration to a sane size and
// re-encodes it as JPEG.
func normalizeChapterImage(path string) ([]byte, error) {
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}

	bounds := src.Bounds()
	if bounds.Dx() > chapterImageMaxSide || bounds.Dy() > chapterImageMaxSide {
		src = imaging.Fit(src, chapterImageMaxSide, chapterImageMaxSide, imaging.Lanczos)
	}

	return encodeJPEG(src, chapterJPEGQuality)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Package receipt turns uploaded receipt images into structured receipts.
package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
)

var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrParseFailed          = errors.New("receipt could not be parsed")
)

// MaxImageSize is the largest upload accepted, in bytes.
const MaxImageSize = 10 << 20

// DefaultMaxDimension bounds the longer side of a normalized image, in pixels.
const DefaultMaxDimension = 2048

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
}

// Normalize validates an uploaded image, shrinks it to fit within maxDim
// pixels on either side and re-encodes it as JPEG.
func Normalize(image []byte, maxDim int) ([]byte, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("empty upload: %w", ErrUnsupportedMediaType)
	}
	if len(image) > MaxImageSize {
		return nil, fmt.Errorf("image exceeds %d bytes: %w", MaxImageSize, ErrUnsupportedMediaType)
	}

	contentType := http.DetectContentType(image)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if !allowedTypes[contentType] {
		return nil, fmt.Errorf("%s: %w", contentType, ErrUnsupportedMediaType)
	}

	img, err := imaging.Decode(bytes.NewReader(image), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", ErrUnsupportedMediaType)
	}

	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	bounds := img.Bounds()
	if bounds.Dx() > maxDim || bounds.Dy() > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

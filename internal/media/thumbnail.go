// Package media derives previews from uploaded photos.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/bbrks/go-blurhash"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

const (
	ThumbnailSize = 300
	blurHashSize  = 64
	jpegQuality   = 82
)

var ErrUnsupportedImage = errors.New("unsupported image format")

// Preview is a JPEG thumbnail plus a BlurHash placeholder for one photo.
type Preview struct {
	JPEG     []byte
	BlurHash string
	Width    int
	Height   int
}

// NewPreview decodes a photo and builds its preview. Formats without a
// registered decoder (HEIC) return ErrUnsupportedImage.
func NewPreview(data []byte) (*Preview, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if errors.Is(err, image.ErrFormat) {
		return nil, ErrUnsupportedImage
	}
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	thumb := resize.Thumbnail(ThumbnailSize, ThumbnailSize, img, resize.Lanczos3)

	var buf bytes.Buffer
	err = jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: jpegQuality})
	if err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}

	hash, err := BlurHash(thumb)
	if err != nil {
		return nil, err
	}

	b := thumb.Bounds()
	return &Preview{JPEG: buf.Bytes(), BlurHash: hash, Width: b.Dx(), Height: b.Dy()}, nil
}

// BlurHash encodes img with 4x3 components after shrinking it, since the
// hash only keeps low frequencies.
func BlurHash(img image.Image) (string, error) {
	small := resize.Thumbnail(blurHashSize, blurHashSize, img, resize.NearestNeighbor)
	hash, err := blurhash.Encode(4, 3, small)
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, nil
}

package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNewPreview(t *testing.T) {
	t.Run("large image is scaled to fit", func(t *testing.T) {
		p, err := NewPreview(testPNG(t, 1200, 600))
		require.NoError(t, err)

		assert.Equal(t, 300, p.Width)
		assert.Equal(t, 150, p.Height)
		assert.NotEmpty(t, p.BlurHash)

		decoded, format, err := image.Decode(bytes.NewReader(p.JPEG))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
		assert.Equal(t, 300, decoded.Bounds().Dx())
	})

	t.Run("small image keeps its size", func(t *testing.T) {
		p, err := NewPreview(testPNG(t, 40, 80))
		require.NoError(t, err)
		assert.Equal(t, 40, p.Width)
		assert.Equal(t, 80, p.Height)
	})

	t.Run("not an image", func(t *testing.T) {
		_, err := NewPreview([]byte("definitely not pixels"))
		assert.ErrorIs(t, err, ErrUnsupportedImage)
	})
}

func TestBlurHashIsStable(t *testing.T) {
	img, _, err := image.Decode(bytes.NewReader(testPNG(t, 200, 200)))
	require.NoError(t, err)

	a, err := BlurHash(img)
	require.NoError(t, err)
	b, err := BlurHash(img)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	// 4x3 components: 1 size + 1 max AC + 4 DC + 2 per AC component
	assert.Len(t, a, 4+2*(4*3-1)+2)
}

package raster_test

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZGSQ-QIANG/scholarship/internal/adapter/raster"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeResult(t *testing.T, b64 string) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestToImage_SmallImagePassesThrough(t *testing.T) {
	converter := raster.New()

	b64, err := converter.ToImage(encodePNG(t, 640, 480), "certificate.png")
	require.NoError(t, err)

	img := decodeResult(t, b64)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 480, img.Bounds().Dy())
}

func TestToImage_OversizedImageIsShrunk(t *testing.T) {
	converter := raster.New()

	b64, err := converter.ToImage(encodePNG(t, 2048, 1024), "scan.png")
	require.NoError(t, err)

	img := decodeResult(t, b64)
	assert.Equal(t, 1024, img.Bounds().Dx())
	assert.Equal(t, 512, img.Bounds().Dy())
}

func TestToImage_GarbageBytesFail(t *testing.T) {
	converter := raster.New()

	_, err := converter.ToImage([]byte("这不是图片"), "broken.jpg")
	assert.Error(t, err)
}

func TestToImage_EmptyPDFFails(t *testing.T) {
	converter := raster.New()

	_, err := converter.ToImage([]byte("%PDF-1.4 truncated"), "evidence.pdf")
	assert.Error(t, err)
}

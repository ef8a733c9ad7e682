// Package raster turns uploaded documents into a single base64-encoded JPEG
// suitable for a multimodal model turn. PDFs render their first page; images
// are re-encoded and downscaled so oversized scans do not blow up request
// payloads.
package raster

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"

	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	pdfDPI      = 200
	maxEdge     = 1024
	jpegQuality = 85
)

// Converter rasterizes documents for model consumption.
type Converter struct{}

func New() *Converter {
	return &Converter{}
}

// ToImage renders data into a base64-encoded JPEG. The filename extension
// selects the decoding path; anything that is not a PDF is treated as an
// image.
func (c *Converter) ToImage(data []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".pdf" {
		return renderPDF(data)
	}
	return renderImage(data)
}

// renderPDF rasterizes the first page only. Scholarship evidence documents
// are single-page certificates; later pages carry no extra claims.
func renderPDF(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("打开 PDF 失败: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return "", fmt.Errorf("PDF 没有可渲染的页面")
	}

	img, err := doc.ImageDPI(0, pdfDPI)
	if err != nil {
		return "", fmt.Errorf("渲染 PDF 页面失败: %w", err)
	}

	return encodeJPEG(img)
}

func renderImage(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("解码图片失败: %w", err)
	}

	img = shrink(img, maxEdge)
	return encodeJPEG(img)
}

// shrink scales img down so its longest edge is at most limit pixels,
// preserving aspect ratio. Smaller images pass through untouched.
func shrink(img image.Image, limit int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= limit {
		return img
	}

	scale := float64(limit) / float64(longest)
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("编码 JPEG 失败: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

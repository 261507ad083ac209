package extract

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

// jpegQuality balances OCR accuracy against page image size.
const jpegQuality = 90

// Renderer rasterizes a page range of a PDF into per-page images.
// Implementations may return fewer images than requested when the
// document is shorter than lastPage.
type Renderer interface {
	RenderPages(pdfPath string, dpi, firstPage, lastPage int) ([][]byte, error)
}

// FitzRenderer renders pages with the embedded MuPDF via go-fitz.
type FitzRenderer struct{}

// NewFitzRenderer creates a go-fitz based renderer.
func NewFitzRenderer() *FitzRenderer {
	return &FitzRenderer{}
}

// RenderPages rasterizes pages firstPage..lastPage (1-based, inclusive)
// at the given DPI and encodes each as JPEG. A document shorter than
// lastPage yields fewer images, silently.
func (f *FitzRenderer) RenderPages(pdfPath string, dpi, firstPage, lastPage int) ([][]byte, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if lastPage > doc.NumPage() {
		lastPage = doc.NumPage()
	}

	var pages [][]byte
	for num := firstPage; num <= lastPage; num++ {
		// go-fitz uses 0-based indexing
		img, err := doc.ImageDPI(num-1, float64(dpi))
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", num, err)
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("failed to encode page %d: %w", num, err)
		}

		bounds := img.Bounds()
		log.Debug().
			Int("page", num).
			Int("width", bounds.Dx()).
			Int("height", bounds.Dy()).
			Int("jpeg_size", buf.Len()).
			Int("dpi", dpi).
			Msg("rendered page to JPEG")

		pages = append(pages, buf.Bytes())
	}

	return pages, nil
}

// Package extract turns a staged document into text. PDFs are
// rasterized page by page and each page image is OCR'd; single images
// are OCR'd whole. All capability failures are converted to a failed
// Result at this boundary; nothing escapes as a crash.
package extract

import (
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/local/ocrapi/internal/metrics"
)

// PageBreak separates per-page text in the combined PDF output.
const PageBreak = "\n\n--- Page Break ---\n\n"

// Result is the normalized outcome of one extraction. Success implies
// Err is empty; failure implies Text is empty.
type Result struct {
	Success   bool
	Text      string
	PageCount int
	Truncated bool
	Err       string
}

// Gateway drives the rasterization and OCR capabilities.
type Gateway struct {
	renderer Renderer
	ocr      Recognizer
}

// New creates a Gateway. Nil dependencies default to the go-fitz
// renderer and the Tesseract recognizer.
func New(renderer Renderer, ocr Recognizer) *Gateway {
	if renderer == nil {
		renderer = NewFitzRenderer()
	}
	if ocr == nil {
		ocr = NewTesseractRecognizer()
	}
	return &Gateway{renderer: renderer, ocr: ocr}
}

// ExtractPDF rasterizes pages 1..maxPages at the given DPI and OCRs
// them sequentially in page order.
//
// Truncated is pageCount >= maxPages: a document with exactly maxPages
// pages reports truncated even though nothing was cut off. Downstream
// consumers may rely on this, so it is kept as is.
func (g *Gateway) ExtractPDF(pdfPath string, maxPages, dpi int, language string) Result {
	// Advisory page count; rasterization is the authority on how many
	// pages actually render.
	if total, err := api.PageCountFile(pdfPath); err != nil {
		log.Debug().Err(err).Str("file", pdfPath).Msg("preflight page count failed")
	} else {
		log.Info().Str("file", pdfPath).Int("total_pages", total).Int("max_pages", maxPages).Msg("starting pdf extraction")
	}

	images, err := g.renderer.RenderPages(pdfPath, dpi, 1, maxPages)
	if err != nil {
		log.Error().Err(err).Str("file", pdfPath).Msg("pdf rasterization failed")
		return Result{Success: false, Err: err.Error()}
	}

	pageCount := len(images)
	truncated := pageCount >= maxPages

	texts := make([]string, 0, pageCount)
	for i, img := range images {
		text, err := g.ocr.RecognizeImage(img, language)
		if err != nil {
			log.Error().Err(err).Int("page", i+1).Msg("page ocr failed")
			return Result{Success: false, Err: err.Error()}
		}
		texts = append(texts, text)
	}
	metrics.AddPagesOCR(pageCount)

	return Result{
		Success:   true,
		Text:      strings.Join(texts, PageBreak),
		PageCount: pageCount,
		Truncated: truncated,
	}
}

// ExtractImage OCRs a single image file. PageCount and Truncated do not
// apply to single images and stay zero-valued.
func (g *Gateway) ExtractImage(imagePath, language string) Result {
	text, err := g.ocr.RecognizeFile(imagePath, language)
	if err != nil {
		log.Error().Err(err).Str("file", imagePath).Msg("image ocr failed")
		return Result{Success: false, Err: err.Error()}
	}
	metrics.AddPagesOCR(1)
	return Result{Success: true, Text: text}
}

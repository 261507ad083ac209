package extract

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Recognizer runs OCR over a single image, either in-memory bytes or a
// file on disk. The language code is passed to the engine unvalidated;
// an uninstalled language surfaces as a recognition error.
type Recognizer interface {
	RecognizeImage(imageData []byte, language string) (string, error)
	RecognizeFile(path, language string) (string, error)
}

// TesseractRecognizer wraps the Tesseract engine via gosseract. It
// requires the tesseract shared library and the requested language data
// to be installed on the host.
type TesseractRecognizer struct{}

// NewTesseractRecognizer creates a Tesseract-backed recognizer.
func NewTesseractRecognizer() *TesseractRecognizer {
	return &TesseractRecognizer{}
}

// RecognizeImage performs OCR on encoded image bytes (JPEG, PNG, ...).
func (t *TesseractRecognizer) RecognizeImage(imageData []byte, language string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return "", fmt.Errorf("set language %q: %w", language, err)
	}
	if err := client.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr failed: %w", err)
	}
	return text, nil
}

// RecognizeFile performs OCR on an image file.
func (t *TesseractRecognizer) RecognizeFile(path, language string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return "", fmt.Errorf("set language %q: %w", language, err)
	}
	if err := client.SetImage(path); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr failed: %w", err)
	}
	return text, nil
}

// Package params normalizes optional OCR request parameters from either
// form fields or a JSON body, presented by the handler as a flat
// key-value view.
package params

import (
	"fmt"
	"strconv"
	"strings"
)

// Values is a uniform view over form fields or a decoded JSON object.
// JSON numbers and booleans are carried as their string form.
type Values map[string]string

// Defaults seeds the normalizer; caps are hard upper limits applied
// after parsing.
type Defaults struct {
	Language    string
	MaxPages    int
	MaxPagesCap int
	DPI         int
	DPICap      int
}

// Options is the normalized parameter set handed to the pipeline.
type Options struct {
	Language string
	MaxPages int
	DPI      int
	FileURL  string
	PDFPath  string
}

// Normalize extracts max_pages, dpi, language, file_url and pdf_path
// from v. Missing numeric fields take defaults; present but non-integer
// values are an error. Values above the caps are silently clamped.
// There is deliberately no lower clamp: zero or negative values pass
// through unchanged after the min, matching the historical behavior of
// this service.
func Normalize(v Values, d Defaults) (Options, error) {
	opts := Options{
		Language: d.Language,
		MaxPages: d.MaxPages,
		DPI:      d.DPI,
		FileURL:  strings.TrimSpace(v["file_url"]),
		PDFPath:  strings.TrimSpace(v["pdf_path"]),
	}

	if lang := strings.TrimSpace(v["language"]); lang != "" {
		// passed through unvalidated; the OCR engine decides whether the
		// language code is installed
		opts.Language = lang
	}

	if raw, ok := v["max_pages"]; ok && strings.TrimSpace(raw) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return Options{}, fmt.Errorf("max_pages must be an integer, got %q", raw)
		}
		opts.MaxPages = n
	}
	if opts.MaxPages > d.MaxPagesCap {
		opts.MaxPages = d.MaxPagesCap
	}

	if raw, ok := v["dpi"]; ok && strings.TrimSpace(raw) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return Options{}, fmt.Errorf("dpi must be an integer, got %q", raw)
		}
		opts.DPI = n
	}
	if opts.DPI > d.DPICap {
		opts.DPI = d.DPICap
	}

	return opts, nil
}

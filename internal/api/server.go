// Package api exposes the OCR pipeline over HTTP and maps internal
// results onto the external JSON contract.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/ocrapi/internal/config"
	"github.com/local/ocrapi/internal/extract"
	"github.com/local/ocrapi/internal/metrics"
	"github.com/local/ocrapi/internal/params"
	"github.com/local/ocrapi/internal/source"
	"github.com/local/ocrapi/internal/statuscheck"
)

// Extractor is the pipeline capability consumed by the handlers.
type Extractor interface {
	ExtractPDF(pdfPath string, maxPages, dpi int, language string) extract.Result
	ExtractImage(imagePath, language string) extract.Result
}

// Server wires resolvers, the extraction gateway and diagnostics into
// an http.ServeMux.
type Server struct {
	cfg      config.Config
	gateway  Extractor
	pdfSrc   *source.Resolver
	imageSrc *source.Resolver
	checker  *statuscheck.Checker
}

// New creates a Server. A nil gateway defaults to the real go-fitz +
// Tesseract pipeline.
func New(cfg config.Config, gateway Extractor) *Server {
	if gateway == nil {
		gateway = extract.New(nil, nil)
	}
	client := &http.Client{Timeout: cfg.HTTP.FetchTimeout}
	return &Server{
		cfg:     cfg,
		gateway: gateway,
		pdfSrc: source.New(source.Options{
			SafeRoot:   cfg.HTTP.SafeRoot,
			Client:     client,
			UploadExts: []string{".pdf"},
			AllowURL:   true,
			AllowPath:  true,
		}),
		// The image endpoint is upload-only; remote and local-path
		// modes are a PDF-endpoint feature.
		imageSrc: source.New(source.Options{
			UploadExts: []string{".png", ".jpg", ".jpeg"},
		}),
		checker: statuscheck.New(statuscheck.Options{SafeRoot: cfg.HTTP.SafeRoot}),
	}
}

// RegisterRoutes attaches all endpoints to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/ocr/pdf", s.recovered("pdf", s.handlePDF))
	mux.HandleFunc("/ocr/image", s.recovered("image", s.handleImage))
}

// recovered converts any panic in an OCR handler into a 500 envelope so
// no request dies without a structured response.
func (s *Server) recovered(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("endpoint", endpoint).Msg("handler panic")
				metrics.ObserveRequest(endpoint, "unknown", "panic", 0)
				writeError(w, http.StatusInternalServerError, fmt.Sprintf("internal error: %v", rec))
			}
		}()
		next(w, r)
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "OCR API",
		"version": "1.0",
		"endpoints": map[string]string{
			"/":          "API documentation (GET)",
			"/ocr/pdf":   "Process PDF file (POST)",
			"/ocr/image": "Process image file (POST)",
			"/health":    "Health check (GET)",
			"/status":    "Dependency diagnostics (GET)",
			"/metrics":   "Prometheus metrics (GET)",
		},
		"usage": map[string]string{
			"pdf":   "POST multipart/form-data with \"file\", or JSON/form with \"file_url\" or \"pdf_path\"",
			"image": "POST multipart/form-data with \"file\" field containing image",
		},
		"limits": map[string]any{
			"max_file_size":   fmt.Sprintf("%dMB", s.cfg.HTTP.MaxBodyBytes>>20),
			"max_pages":       s.cfg.OCR.MaxPagesCap,
			"max_dpi":         s.cfg.OCR.DPICap,
			"allowed_formats": []string{"pdf", "png", "jpg", "jpeg"},
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.checker.Summary())
}

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()
	reqID := uuid.NewString()
	w.Header().Set("X-Request-ID", reqID)
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.HTTP.MaxBodyBytes)

	in, values, err := s.parseBody(r)
	if err != nil {
		s.rejectInput(w, "pdf", reqID, start, err)
		return
	}
	if in.File != nil {
		defer in.File.Close()
	}

	opts, err := params.Normalize(values, s.defaults())
	if err != nil {
		log.Warn().Err(err).Str("request_id", reqID).Msg("parameter normalization failed")
		metrics.ObserveRequest("pdf", "unknown", "invalid_params", time.Since(start))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.FileURL = opts.FileURL
	in.PDFPath = opts.PDFPath

	staged, err := s.pdfSrc.Resolve(r.Context(), in)
	if err != nil {
		s.rejectInput(w, "pdf", reqID, start, err)
		return
	}
	defer staged.Release()

	log.Info().
		Str("request_id", reqID).
		Str("source", staged.Mode).
		Int("max_pages", opts.MaxPages).
		Int("dpi", opts.DPI).
		Str("language", opts.Language).
		Msg("pdf ocr request accepted")

	result := s.gateway.ExtractPDF(staged.Path, opts.MaxPages, opts.DPI, opts.Language)
	if !result.Success {
		metrics.ObserveRequest("pdf", staged.Mode, "extraction_failed", time.Since(start))
		writeError(w, http.StatusInternalServerError, result.Err)
		return
	}

	metrics.ObserveRequest("pdf", staged.Mode, "ok", time.Since(start))
	log.Info().
		Str("request_id", reqID).
		Int("num_pages", result.PageCount).
		Bool("was_truncated", result.Truncated).
		Int("chars", len(result.Text)).
		Dur("duration", time.Since(start)).
		Msg("pdf ocr request completed")

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"source":          staged.Mode,
		"text":            result.Text,
		"num_pages":       result.PageCount,
		"was_truncated":   result.Truncated,
		"character_count": len(result.Text),
	})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()
	reqID := uuid.NewString()
	w.Header().Set("X-Request-ID", reqID)
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.HTTP.MaxBodyBytes)

	if err := r.ParseMultipartForm(s.cfg.HTTP.MaxBodyBytes); err != nil {
		s.rejectInput(w, "image", reqID, start, fmt.Errorf("invalid multipart form: %w", err))
		return
	}

	var in source.Input
	if file, hdr, err := r.FormFile("file"); err == nil {
		in.File = file
		in.Header = hdr
		defer file.Close()
	}

	language := strings.TrimSpace(r.FormValue("language"))
	if language == "" {
		language = s.cfg.OCR.DefaultLanguage
	}

	staged, err := s.imageSrc.Resolve(r.Context(), in)
	if err != nil {
		s.rejectInput(w, "image", reqID, start, err)
		return
	}
	defer staged.Release()

	log.Info().Str("request_id", reqID).Str("language", language).Msg("image ocr request accepted")

	result := s.gateway.ExtractImage(staged.Path, language)
	if !result.Success {
		metrics.ObserveRequest("image", staged.Mode, "extraction_failed", time.Since(start))
		writeError(w, http.StatusInternalServerError, result.Err)
		return
	}

	metrics.ObserveRequest("image", staged.Mode, "ok", time.Since(start))
	log.Info().
		Str("request_id", reqID).
		Int("chars", len(result.Text)).
		Dur("duration", time.Since(start)).
		Msg("image ocr request completed")

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"text":            result.Text,
		"character_count": len(result.Text),
	})
}

// rejectInput maps resolution and body-parse failures onto status codes:
// oversized bodies get 413, everything else in the input taxonomy is a
// 400.
func (s *Server) rejectInput(w http.ResponseWriter, endpoint, reqID string, start time.Time, err error) {
	status := http.StatusBadRequest
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		status = http.StatusRequestEntityTooLarge
	}
	kind := source.KindOf(err)
	log.Warn().Err(err).Str("request_id", reqID).Str("kind", kind.String()).Msg("request rejected")
	metrics.ObserveRequest(endpoint, "unknown", "rejected", time.Since(start))
	writeError(w, status, err.Error())
}

func (s *Server) defaults() params.Defaults {
	return params.Defaults{
		Language:    s.cfg.OCR.DefaultLanguage,
		MaxPages:    s.cfg.OCR.DefaultMaxPages,
		MaxPagesCap: s.cfg.OCR.MaxPagesCap,
		DPI:         s.cfg.OCR.DefaultDPI,
		DPICap:      s.cfg.OCR.DPICap,
	}
}

// parseBody reads the PDF endpoint body in any of its three shapes
// (multipart, urlencoded form, JSON object) into a resolver Input plus
// a flat key-value view for the parameter normalizer.
func (s *Server) parseBody(r *http.Request) (source.Input, params.Values, error) {
	values := params.Values{}
	var in source.Input

	ct := r.Header.Get("Content-Type")
	mediaType := ct
	if parsed, _, err := mime.ParseMediaType(ct); err == nil {
		mediaType = parsed
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		if err := r.ParseMultipartForm(s.cfg.HTTP.MaxBodyBytes); err != nil {
			return in, nil, fmt.Errorf("invalid multipart form: %w", err)
		}
		if file, hdr, err := r.FormFile("file"); err == nil {
			in.File = file
			in.Header = hdr
		}
		for _, key := range []string{"language", "max_pages", "dpi", "file_url", "pdf_path"} {
			if v := r.FormValue(key); v != "" {
				values[key] = v
			}
		}

	case mediaType == "application/json":
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return in, nil, fmt.Errorf("invalid json body: %w", err)
		}
		for key, v := range body {
			values[key] = jsonScalar(v)
		}

	default:
		if err := r.ParseForm(); err != nil {
			return in, nil, fmt.Errorf("invalid form body: %w", err)
		}
		for _, key := range []string{"language", "max_pages", "dpi", "file_url", "pdf_path"} {
			if v := r.FormValue(key); v != "" {
				values[key] = v
			}
		}
	}

	return in, values, nil
}

// jsonScalar renders a decoded JSON value as the string the normalizer
// expects. Integral floats print without a fraction so {"dpi": 150}
// parses the same as dpi=150.
func jsonScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Package source stages the input document for an OCR request. Exactly
// one of three modes applies per request, in fixed priority order:
// uploaded file, remote URL, server-local path.
package source

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/ocrapi/internal/filetype"
	"github.com/local/ocrapi/internal/metrics"
	"github.com/local/ocrapi/internal/pathsafe"
)

// tempPrefix names staged temp files; the sweeper keys off the same
// prefix.
const tempPrefix = "ocrstage-"

// Input carries the candidate references from one HTTP request. File
// and Header are nil when no multipart file part was sent.
type Input struct {
	File    multipart.File
	Header  *multipart.FileHeader
	FileURL string
	PDFPath string
}

// Staged is a readable local file handed to the extraction gateway.
// Owned resources are temp files created for this request and must be
// released after use; non-owned resources are pre-existing files that
// are never deleted.
type Staged struct {
	Path  string
	Owned bool
	Mode  string // "upload", "url" or "path"
}

// Release deletes an owned staged file. Deletion failures are logged
// and swallowed; they never reach the caller.
func (s Staged) Release() {
	if !s.Owned || s.Path == "" {
		return
	}
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", s.Path).Msg("failed to remove staged temp file")
	}
}

// Resolver stages request inputs. The zero value is not usable; use New.
type Resolver struct {
	safeRoot   string
	client     *http.Client
	uploadExts []string
	allowURL   bool
	allowPath  bool
}

// Options configures a Resolver.
type Options struct {
	// SafeRoot is the canonical directory bounding pdf_path references.
	SafeRoot string
	// Client performs remote fetches; it must carry the fetch timeout.
	Client *http.Client
	// UploadExts is the accepted upload extension whitelist, lowercase
	// with leading dot.
	UploadExts []string
	// AllowURL/AllowPath enable the remote-URL and local-path modes.
	// The image endpoint is upload-only.
	AllowURL  bool
	AllowPath bool
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Resolver{
		safeRoot:   opts.SafeRoot,
		client:     client,
		uploadExts: opts.UploadExts,
		allowURL:   opts.AllowURL,
		allowPath:  opts.AllowPath,
	}
}

// Resolve picks the active source mode by priority (upload, then
// file_url, then pdf_path; later candidates are ignored once an earlier
// one is present) and stages the bytes. On success the caller owns the
// returned resource and must call Release.
func (r *Resolver) Resolve(ctx context.Context, in Input) (Staged, error) {
	switch {
	case in.File != nil && in.Header != nil && in.Header.Filename != "":
		return r.stageUpload(in.File, in.Header)
	case r.allowURL && in.FileURL != "":
		return r.fetchRemote(ctx, in.FileURL)
	case r.allowPath && in.PDFPath != "":
		return r.resolveLocal(in.PDFPath)
	default:
		return Staged{}, errf(KindNoInput, "no input provided: send a file upload, file_url or pdf_path")
	}
}

func (r *Resolver) stageUpload(file multipart.File, hdr *multipart.FileHeader) (Staged, error) {
	ext := strings.ToLower(filepath.Ext(hdr.Filename))
	if !r.extAllowed(ext) {
		return Staged{}, errf(KindInvalidFileType, "invalid file type %q, allowed: %s", ext, strings.Join(r.uploadExts, ", "))
	}

	tmp, err := os.CreateTemp("", tempPrefix+"*"+ext)
	if err != nil {
		return Staged{}, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return Staged{}, fmt.Errorf("write upload to temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return Staged{}, fmt.Errorf("close temp file: %w", err)
	}

	staged := Staged{Path: tmp.Name(), Owned: true, Mode: "upload"}
	r.logDetectedType(staged.Path)
	return staged, nil
}

func (r *Resolver) fetchRemote(ctx context.Context, rawURL string) (Staged, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Staged{}, errf(KindInvalidURLScheme, "file_url must use http or https")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Staged{}, errf(KindFetchFailed, "invalid file_url: %v", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		metrics.IncFetch("network_error")
		return Staged{}, errf(KindFetchFailed, "failed to download file: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.IncFetch("http_error")
		return Staged{}, errf(KindFetchFailed, "failed to download file: HTTP %d", resp.StatusCode)
	}

	// Accept only when the server declares a PDF or the URL path looks
	// like one; the declared type wins over magic bytes here.
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "pdf") && !strings.HasSuffix(strings.ToLower(u.Path), ".pdf") {
		metrics.IncFetch("not_pdf")
		return Staged{}, errf(KindNotAPDF, "URL does not point to a PDF (content-type %q)", contentType)
	}

	tmp, err := os.CreateTemp("", tempPrefix+"*.pdf")
	if err != nil {
		return Staged{}, fmt.Errorf("create temp file: %w", err)
	}
	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		metrics.IncFetch("network_error")
		return Staged{}, errf(KindFetchFailed, "failed to download file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return Staged{}, fmt.Errorf("close temp file: %w", err)
	}

	metrics.IncFetch("ok")
	metrics.ObserveFetchBytes(n)
	log.Debug().Str("url", rawURL).Int64("bytes", n).Msg("downloaded remote pdf to temp")

	staged := Staged{Path: tmp.Name(), Owned: true, Mode: "url"}
	r.logDetectedType(staged.Path)
	return staged, nil
}

func (r *Resolver) resolveLocal(path string) (Staged, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.safeRoot, path)
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return Staged{}, errf(KindInvalidFileType, "pdf_path must reference a .pdf file")
	}
	if !pathsafe.IsSafe(r.safeRoot, path) {
		return Staged{}, errf(KindPathTraversal, "pdf_path escapes the allowed directory")
	}
	if _, err := os.Stat(path); err != nil {
		return Staged{}, errf(KindNotFound, "pdf_path not found")
	}

	// Pre-existing server file: referenced in place, never copied and
	// never deleted.
	staged := Staged{Path: path, Owned: false, Mode: "path"}
	r.logDetectedType(staged.Path)
	return staged, nil
}

func (r *Resolver) extAllowed(ext string) bool {
	for _, allowed := range r.uploadExts {
		if ext == allowed {
			return true
		}
	}
	return false
}

// logDetectedType records the magic-byte type of the staged resource.
// Acceptance was already decided by extension/content-type rules; this
// is observability only.
func (r *Resolver) logDetectedType(path string) {
	info, err := filetype.Detect(path)
	if err != nil {
		log.Debug().Err(err).Str("file", path).Msg("file type detection failed")
		return
	}
	ev := log.Debug()
	if !info.Supported {
		ev = log.Warn()
	}
	ev.Str("mime", info.MIMEType).Str("desc", info.Description).Str("file", path).Msg("detected staged file type")
}

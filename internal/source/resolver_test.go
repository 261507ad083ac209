package source

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type memFile struct{ *bytes.Reader }

func (memFile) Close() error { return nil }

func uploadInput(name string, data []byte) Input {
	return Input{
		File:   memFile{bytes.NewReader(data)},
		Header: &multipart.FileHeader{Filename: name, Size: int64(len(data))},
	}
}

func pdfResolver(t *testing.T, safeRoot string, client *http.Client) *Resolver {
	t.Helper()
	return New(Options{
		SafeRoot:   safeRoot,
		Client:     client,
		UploadExts: []string{".pdf"},
		AllowURL:   true,
		AllowPath:  true,
	})
}

func canonicalTempDir(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("eval symlinks: %v", err)
	}
	return root
}

func TestResolveUploadStagesOwnedTemp(t *testing.T) {
	r := pdfResolver(t, canonicalTempDir(t), nil)
	staged, err := r.Resolve(context.Background(), uploadInput("Scan.PDF", []byte("%PDF-1.4 test")))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !staged.Owned {
		t.Error("uploaded resource should be owned")
	}
	if staged.Mode != "upload" {
		t.Errorf("mode = %q, want upload", staged.Mode)
	}
	data, err := os.ReadFile(staged.Path)
	if err != nil {
		t.Fatalf("staged file unreadable: %v", err)
	}
	if string(data) != "%PDF-1.4 test" {
		t.Errorf("staged contents = %q", data)
	}

	staged.Release()
	if _, err := os.Stat(staged.Path); !os.IsNotExist(err) {
		t.Error("Release should delete the owned temp file")
	}
}

func TestResolveUploadRejectsExtension(t *testing.T) {
	r := pdfResolver(t, canonicalTempDir(t), nil)
	_, err := r.Resolve(context.Background(), uploadInput("notes.txt", []byte("hello")))
	if KindOf(err) != KindInvalidFileType {
		t.Fatalf("kind = %v, want invalid_file_type (err: %v)", KindOf(err), err)
	}
}

func TestResolveUploadTakesPriorityOverPath(t *testing.T) {
	root := canonicalTempDir(t)
	r := pdfResolver(t, root, nil)
	in := uploadInput("a.pdf", []byte("%PDF-1.4"))
	in.PDFPath = "does-not-exist.pdf" // would fail if it were consulted
	staged, err := r.Resolve(context.Background(), in)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	defer staged.Release()
	if staged.Mode != "upload" {
		t.Errorf("mode = %q, want upload", staged.Mode)
	}
}

func TestResolveRejectsNonHTTPScheme(t *testing.T) {
	r := pdfResolver(t, canonicalTempDir(t), nil)
	for _, u := range []string{"ftp://host/file.pdf", "file:///etc/passwd", "gopher://x"} {
		_, err := r.Resolve(context.Background(), Input{FileURL: u})
		if KindOf(err) != KindInvalidURLScheme {
			t.Errorf("Resolve(%q) kind = %v, want invalid_url_scheme", u, KindOf(err))
		}
	}
}

func TestResolveFetchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	r := pdfResolver(t, canonicalTempDir(t), srv.Client())
	_, err := r.Resolve(context.Background(), Input{FileURL: srv.URL + "/missing.pdf"})
	if KindOf(err) != KindFetchFailed {
		t.Fatalf("kind = %v, want fetch_failed (err: %v)", KindOf(err), err)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error %q should carry the upstream status", err)
	}
}

func TestResolveFetchRejectsNonPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	r := pdfResolver(t, canonicalTempDir(t), srv.Client())
	_, err := r.Resolve(context.Background(), Input{FileURL: srv.URL + "/page"})
	if KindOf(err) != KindNotAPDF {
		t.Fatalf("kind = %v, want not_a_pdf (err: %v)", KindOf(err), err)
	}
}

func TestResolveFetchAcceptsPDFContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 remote"))
	}))
	defer srv.Close()

	r := pdfResolver(t, canonicalTempDir(t), srv.Client())
	staged, err := r.Resolve(context.Background(), Input{FileURL: srv.URL + "/doc"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !staged.Owned || staged.Mode != "url" {
		t.Errorf("staged = %+v, want owned url resource", staged)
	}
	staged.Release()
	if _, err := os.Stat(staged.Path); !os.IsNotExist(err) {
		t.Error("Release should delete the downloaded temp file")
	}
}

func TestResolveFetchAcceptsPDFSuffixWithoutContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("%PDF-1.4 remote"))
	}))
	defer srv.Close()

	r := pdfResolver(t, canonicalTempDir(t), srv.Client())
	staged, err := r.Resolve(context.Background(), Input{FileURL: srv.URL + "/files/report.pdf"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	defer staged.Release()
}

func TestResolveLocalPathRelative(t *testing.T) {
	root := canonicalTempDir(t)
	if err := os.WriteFile(filepath.Join(root, "doc.pdf"), []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := pdfResolver(t, root, nil)
	staged, err := r.Resolve(context.Background(), Input{PDFPath: "doc.pdf"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if staged.Owned {
		t.Error("local path resource must not be owned")
	}
	if staged.Mode != "path" {
		t.Errorf("mode = %q, want path", staged.Mode)
	}

	// Release on a non-owned resource must never delete the file.
	staged.Release()
	if _, err := os.Stat(staged.Path); err != nil {
		t.Errorf("local file was deleted: %v", err)
	}
}

func TestResolveLocalPathTraversal(t *testing.T) {
	root := canonicalTempDir(t)
	outside := filepath.Join(filepath.Dir(root), "secret.pdf")
	if err := os.WriteFile(outside, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := pdfResolver(t, root, nil)
	_, err := r.Resolve(context.Background(), Input{PDFPath: "../secret.pdf"})
	if KindOf(err) != KindPathTraversal {
		t.Fatalf("kind = %v, want path_traversal (err: %v)", KindOf(err), err)
	}
}

func TestResolveLocalPathRequiresPDFSuffix(t *testing.T) {
	root := canonicalTempDir(t)
	if err := os.WriteFile(filepath.Join(root, "doc.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := pdfResolver(t, root, nil)
	_, err := r.Resolve(context.Background(), Input{PDFPath: "doc.txt"})
	if KindOf(err) != KindInvalidFileType {
		t.Fatalf("kind = %v, want invalid_file_type", KindOf(err))
	}
}

func TestResolveNoInput(t *testing.T) {
	r := pdfResolver(t, canonicalTempDir(t), nil)
	_, err := r.Resolve(context.Background(), Input{})
	if KindOf(err) != KindNoInput {
		t.Fatalf("kind = %v, want no_input", KindOf(err))
	}
}

func TestResolveUploadOnlyIgnoresURLAndPath(t *testing.T) {
	// The image endpoint configuration: no remote, no local path.
	r := New(Options{UploadExts: []string{".png", ".jpg", ".jpeg"}})
	_, err := r.Resolve(context.Background(), Input{FileURL: "https://example.com/a.pdf", PDFPath: "a.pdf"})
	if KindOf(err) != KindNoInput {
		t.Fatalf("kind = %v, want no_input (url/path modes are pdf-endpoint only)", KindOf(err))
	}
}

func TestSweepTempsRemovesOnlyStaleStaged(t *testing.T) {
	stale, err := os.CreateTemp("", tempPrefix+"*.pdf")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	stale.Close()
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale.Name(), old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	fresh, err := os.CreateTemp("", tempPrefix+"*.pdf")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	fresh.Close()
	defer os.Remove(fresh.Name())

	other, err := os.CreateTemp("", "unrelated-*.pdf")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	other.Close()
	defer os.Remove(other.Name())
	if err := os.Chtimes(other.Name(), old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	SweepTemps(time.Hour)

	if _, err := os.Stat(stale.Name()); !os.IsNotExist(err) {
		t.Error("stale staged temp should have been swept")
	}
	if _, err := os.Stat(fresh.Name()); err != nil {
		t.Error("fresh staged temp should survive the sweep")
	}
	if _, err := os.Stat(other.Name()); err != nil {
		t.Error("unrelated temp files must not be touched")
	}
}

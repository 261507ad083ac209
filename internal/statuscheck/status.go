package statuscheck

import (
    "os"
    "os/exec"
    "path/filepath"

    "github.com/otiai10/gosseract/v2"
)

// Checker aggregates readiness checks for the external capabilities the
// OCR pipeline depends on.
type Checker struct {
    safeRoot string
}

// Options configures the Checker.
type Options struct {
    SafeRoot string
}

// Status represents the readiness of a subsystem.
type Status struct {
    OK      bool   `json:"ok"`
    Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
    Tesseract Status `json:"tesseract"`
    MuPDF     Status `json:"mupdf"`
    SafeRoot  Status `json:"safe_root"`
    TempDir   Status `json:"temp_dir"`
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
    return &Checker{safeRoot: opts.SafeRoot}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary() Summary {
    return Summary{
        Tesseract: c.checkTesseract(),
        MuPDF:     c.checkMuPDF(),
        SafeRoot:  c.checkSafeRoot(),
        TempDir:   c.checkTempDir(),
    }
}

func (c *Checker) checkTesseract() Status {
    if _, err := exec.LookPath("tesseract"); err != nil {
        return Status{OK: false, Message: "Binary not found"}
    }
    version := gosseract.Version()
    if version == "" {
        return Status{OK: false, Message: "Library not available"}
    }
    return Status{OK: true, Message: "Tesseract " + version}
}

func (c *Checker) checkMuPDF() Status {
    // go-fitz embeds MuPDF; presence is a build-time property.
    return Status{OK: true, Message: "Embedded"}
}

func (c *Checker) checkSafeRoot() Status {
    if c.safeRoot == "" {
        return Status{OK: false, Message: "Not configured"}
    }
    info, err := os.Stat(c.safeRoot)
    if err != nil {
        return Status{OK: false, Message: "Directory missing"}
    }
    if !info.IsDir() {
        return Status{OK: false, Message: "Not a directory"}
    }
    return Status{OK: true, Message: c.safeRoot}
}

func (c *Checker) checkTempDir() Status {
    probe, err := os.CreateTemp("", "ocrprobe-*")
    if err != nil {
        return Status{OK: false, Message: "Not writable"}
    }
    name := probe.Name()
    probe.Close()
    _ = os.Remove(name)
    return Status{OK: true, Message: filepath.Dir(name)}
}

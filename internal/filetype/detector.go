package filetype

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Info contains detected file type information
type Info struct {
	MIMEType    string
	Extension   string
	IsPDF       bool
	IsImage     bool
	Supported   bool
	Description string
}

// Detect detects the actual file type using magic bytes, not filename.
// The acceptance rules of the service are extension/content-type based;
// this detector exists for diagnostics so mismatches between declared
// and actual types show up in the logs.
func Detect(filePath string) (*Info, error) {
	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}

	info := &Info{
		MIMEType:  mtype.String(),
		Extension: mtype.Extension(),
	}
	classify(info)
	return info, nil
}

// classify determines file characteristics for the OCR pipeline
func classify(info *Info) {
	switch {
	case info.MIMEType == "application/pdf":
		info.IsPDF = true
		info.Supported = true
		info.Description = "PDF document"

	case info.MIMEType == "image/png":
		info.IsImage = true
		info.Supported = true
		info.Description = "PNG image"

	case info.MIMEType == "image/jpeg":
		info.IsImage = true
		info.Supported = true
		info.Description = "JPEG image"

	// Other raster formats OCR fine but are outside the upload
	// whitelist; flag them so the mismatch is visible in logs.
	case strings.HasPrefix(info.MIMEType, "image/"):
		info.IsImage = true
		info.Supported = false
		info.Description = "Image file outside the accepted formats"

	default:
		info.Supported = false
		info.Description = fmt.Sprintf("Unsupported file type: %s", info.MIMEType)
	}
}

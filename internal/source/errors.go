package source

import (
	"errors"
	"fmt"
)

// Kind classifies resolution failures so the HTTP layer can map them to
// status codes without string matching.
type Kind int

const (
	KindNone Kind = iota
	KindNoInput
	KindInvalidFileType
	KindInvalidURLScheme
	KindFetchFailed
	KindNotAPDF
	KindPathTraversal
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindNoInput:
		return "no_input"
	case KindInvalidFileType:
		return "invalid_file_type"
	case KindInvalidURLScheme:
		return "invalid_url_scheme"
	case KindFetchFailed:
		return "fetch_failed"
	case KindNotAPDF:
		return "not_a_pdf"
	case KindPathTraversal:
		return "path_traversal"
	case KindNotFound:
		return "not_found"
	default:
		return "none"
	}
}

// Error carries a resolution failure kind and a human-readable message
// suitable for the response envelope.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the failure kind from err, or KindNone if err is not
// a resolution error.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindNone
}

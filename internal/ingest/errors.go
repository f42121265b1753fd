package ingest

import "errors"

var (
	// ErrUnsupportedType rejects files that are neither images nor PDFs.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrFileTooLarge rejects non-image files above the size ceiling.
	ErrFileTooLarge = errors.New("file too large")
	// ErrDecodeFailure reports an unreadable image or a failed re-encode.
	ErrDecodeFailure = errors.New("decode failed")
)

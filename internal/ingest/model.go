package ingest

import "encoding/base64"

// MediaType is the transport media type of a canonical file. Images are
// always re-encoded to JPEG, so exactly two values exist.
type MediaType string

const (
	MediaTypeImage MediaType = "image/jpeg"
	MediaTypePDF   MediaType = "application/pdf"
)

// CanonicalFile is the normalized, transport-ready representation of an
// uploaded report. Data is base64 so the unit is safe to embed in JSON
// payloads; it always round-trips to the exact transport bytes. A
// CanonicalFile is immutable once built: re-uploads replace it wholesale.
type CanonicalFile struct {
	Data      string    `json:"data"`
	MediaType MediaType `json:"mediaType"`
	Name      string    `json:"name"`
	SizeBytes int64     `json:"sizeBytes"`
}

// Bytes decodes the transport payload back to binary.
func (f CanonicalFile) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(f.Data)
}

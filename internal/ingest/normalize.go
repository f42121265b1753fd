package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/png"

	"github.com/ledongthuc/pdf"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"labreport-backend/internal/shared/util"
)

const (
	// maxPDFBytes is the ceiling for raw PDF passthrough.
	maxPDFBytes = 35 << 20
	// maxImageDim bounds the longer image dimension after normalization.
	maxImageDim = 2048
	// jpegQuality is the fixed re-encode quality factor.
	jpegQuality = 80
)

// Upload is one raw uploaded file as received at the boundary.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Normalize converts a raw upload into its canonical transport unit.
// Images are decoded, downscaled so the longer dimension is at most 2048px
// (aspect ratio preserved) and re-encoded as JPEG. PDFs pass through
// unmodified under the size ceiling. Everything else is rejected before
// any binary work. There is no retry: callers prompt for a different file.
func Normalize(ctx context.Context, upload Upload) (CanonicalFile, error) {
	if err := ctx.Err(); err != nil {
		return CanonicalFile{}, err
	}

	name, err := util.SanitizeFileName(upload.Name)
	if err != nil {
		name = "report"
	}

	switch classify(upload.ContentType, upload.Name, upload.Data) {
	case kindImage:
		return normalizeImage(upload.Data, name)
	case kindPDF:
		return normalizePDF(upload.Data, name)
	default:
		return CanonicalFile{}, fmt.Errorf("%w: %s", ErrUnsupportedType, upload.ContentType)
	}
}

func normalizeImage(data []byte, name string) (CanonicalFile, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return CanonicalFile{}, fmt.Errorf("%w: image decode: %v", ErrDecodeFailure, err)
	}
	_ = format

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return CanonicalFile{}, fmt.Errorf("%w: empty image", ErrDecodeFailure)
	}

	if w > maxImageDim || h > maxImageDim {
		nw, nh := scaledDims(w, h)
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return CanonicalFile{}, fmt.Errorf("%w: jpeg encode: %v", ErrDecodeFailure, err)
	}

	return CanonicalFile{
		Data:      base64.StdEncoding.EncodeToString(buf.Bytes()),
		MediaType: MediaTypeImage,
		Name:      name,
		SizeBytes: int64(buf.Len()),
	}, nil
}

func normalizePDF(data []byte, name string) (CanonicalFile, error) {
	if int64(len(data)) > maxPDFBytes {
		return CanonicalFile{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, len(data), int64(maxPDFBytes))
	}
	// Confirm the document actually opens before shipping it anywhere.
	if _, err := pdf.NewReader(bytes.NewReader(data), int64(len(data))); err != nil {
		return CanonicalFile{}, fmt.Errorf("%w: pdf open: %v", ErrDecodeFailure, err)
	}
	return CanonicalFile{
		Data:      base64.StdEncoding.EncodeToString(data),
		MediaType: MediaTypePDF,
		Name:      name,
		SizeBytes: int64(len(data)),
	}, nil
}

// scaledDims shrinks (w, h) so the longer dimension equals maxImageDim,
// preserving aspect ratio. The shorter side never rounds below 1.
func scaledDims(w, h int) (int, int) {
	if w >= h {
		nh := h * maxImageDim / w
		if nh < 1 {
			nh = 1
		}
		return maxImageDim, nh
	}
	nw := w * maxImageDim / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxImageDim
}

type fileKind int

const (
	kindOther fileKind = iota
	kindImage
	kindPDF
)

// classify resolves the declared content type, falling back to content
// sniffing and the file extension when the declaration is missing or
// generic, the same way document mime types are normalized upstream.
func classify(contentType, fileName string, data []byte) fileKind {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if clean == "" || clean == "application/octet-stream" {
		if len(data) > 0 {
			sniffLen := len(data)
			if sniffLen > 512 {
				sniffLen = 512
			}
			clean = strings.ToLower(strings.Split(http.DetectContentType(data[:sniffLen]), ";")[0])
		}
	}
	switch {
	case strings.HasPrefix(clean, "image/"):
		return kindImage
	case clean == "application/pdf":
		return kindPDF
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return kindPDF
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return kindImage
	}
	return kindOther
}

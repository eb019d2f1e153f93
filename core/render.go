package core

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrSourceUnavailable is returned when a source document cannot be fetched or parsed.
	ErrSourceUnavailable = errors.New("source document unavailable")

	// ErrPageOutOfRange is returned when rendering a page index outside [0, PageCount).
	ErrPageOutOfRange = errors.New("page out of range")
)

type (
	// Image is a displayable rendition of a page: either inline Data or a URL.
	Image struct {
		ContentType string `json:"contentType,omitempty"`
		Data        []byte `json:"data,omitempty"`
		URL         string `json:"url,omitempty"`
	}

	// RenderedDocument is a source document opened by a Renderer.
	RenderedDocument interface {
		PageCount() int
		Render(ctx context.Context, index int) (Image, error)
		Close() error
	}

	// Renderer opens source documents (an URL or a data URL) for page by page rendering.
	Renderer interface {
		Open(ctx context.Context, source string) (RenderedDocument, error)
	}

	// BlobStore stores binary assets and returns the URL they can be read from.
	BlobStore interface {
		Upload(ctx context.Context, name, contentType string, data []byte) (string, error)
	}

	// InlineBlobStore is a BlobStore whose URLs carry the asset itself.
	InlineBlobStore interface {
		BlobStore
		// StoredSize is the length of the URL returned for n bytes of contentType.
		StoredSize(contentType string, n int) int64
	}
)

// StoredSize is the number of bytes an asset of n bytes adds to the document referencing it.
func StoredSize(blobs BlobStore, contentType string, n int) int64 {
	if inline, ok := blobs.(InlineBlobStore); ok {
		return inline.StoredSize(contentType, n)
	}
	return int64(n)
}

package blobsvc

import (
	"context"
	"encoding/base64"

	"github.com/trezcool/ebd/core"
)

const defaultContentType = "application/octet-stream"

type inlineStore struct{}

var _ core.InlineBlobStore = inlineStore{}

// NewInlineStore keeps assets inside the documents, as data URLs.
func NewInlineStore() core.BlobStore { return inlineStore{} }

func (inlineStore) Upload(_ context.Context, _, contentType string, data []byte) (string, error) {
	if contentType == "" {
		contentType = defaultContentType
	}
	return core.EncodeDataURL(contentType, data), nil
}

func (inlineStore) StoredSize(contentType string, n int) int64 {
	if contentType == "" {
		contentType = defaultContentType
	}
	return int64(len("data:"+contentType+";base64,") + base64.StdEncoding.EncodedLen(n))
}

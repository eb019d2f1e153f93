package blobsvc

import (
	"context"

	"github.com/trezcool/ebd/core"
)

// New returns the B2 store when credentials are configured, the inline store otherwise.
func New(ctx context.Context, conf *core.Config) (core.BlobStore, error) {
	if conf.B2.Account == "" || conf.B2.Bucket == "" {
		return NewInlineStore(), nil
	}
	return NewB2Store(ctx, conf)
}

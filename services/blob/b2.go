// Package blobsvc stores magazine assets.
package blobsvc

import (
	"bytes"
	"context"
	"io"

	"github.com/kurin/blazer/b2"
	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
)

type b2Store struct {
	bucket *b2.Bucket
}

var _ core.BlobStore = (*b2Store)(nil)

// NewB2Store uploads to a Backblaze B2 bucket.
func NewB2Store(ctx context.Context, conf *core.Config) (core.BlobStore, error) {
	client, err := b2.NewClient(ctx, conf.B2.Account, conf.B2.Key)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to b2")
	}
	bucket, err := client.Bucket(ctx, conf.B2.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "opening bucket %s", conf.B2.Bucket)
	}
	return &b2Store{bucket: bucket}, nil
}

func (s *b2Store) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	obj := s.bucket.Object(name)
	w := obj.NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: contentType}))
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", errors.Wrapf(err, "uploading %s", name)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "uploading %s", name)
	}
	return obj.URL(), nil
}

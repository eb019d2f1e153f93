package mirror

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
)

// list decodes every mirrored document of coll into D and converts it with conv.
// Documents that do not decode are logged and skipped.
func list[D any, T any](s *Store, coll string, conv func(id string, d D) T) []T {
	docs := s.Docs(coll)
	res := make([]T, 0, len(docs))
	for _, doc := range docs {
		var d D
		if err := doc.DataTo(&d); err != nil {
			s.logger.Warn(fmt.Sprintf("decoding %s/%s: %v", coll, doc.ID(), err), err)
			continue
		}
		res = append(res, conv(doc.ID(), d))
	}
	return res
}

// get decodes a single mirrored document; notFound is returned when it is not mirrored.
func get[D any, T any](s *Store, coll, id string, conv func(id string, d D) T, notFound error) (T, error) {
	var zero T
	doc, ok := s.Doc(coll, id)
	if !ok {
		return zero, notFound
	}
	var d D
	if err := doc.DataTo(&d); err != nil {
		return zero, errors.Wrapf(err, "decoding %s/%s", coll, id)
	}
	return conv(id, d), nil
}

// fetch decodes a document read from the remote database.
func fetch[D any, T any](ctx context.Context, s *Store, coll, id string, conv func(id string, d D) T, notFound error) (T, error) {
	var zero T
	doc, err := s.Fetch(ctx, coll, id)
	if err != nil {
		if errors.Cause(err) == core.ErrDocNotFound {
			return zero, notFound
		}
		return zero, err
	}
	var d D
	if err := doc.DataTo(&d); err != nil {
		return zero, errors.Wrapf(err, "decoding %s/%s", coll, id)
	}
	return conv(id, d), nil
}

package database

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
	boltdb "github.com/trezcool/ebd/storage/database/bolt"
	firestoredb "github.com/trezcool/ebd/storage/database/firestore"
	inmemdb "github.com/trezcool/ebd/storage/database/inmem"
)

// Open connects to the DocumentDB selected by conf.Database.Engine.
func Open(ctx context.Context, conf *core.Config) (core.DocumentDB, error) {
	switch conf.Database.Engine {
	case core.DatabaseInMem:
		return inmemdb.Open(), nil
	case core.DatabaseBolt:
		db, err := boltdb.Open(conf)
		if err != nil {
			return nil, err
		}
		return db, nil
	case core.DatabaseFirestore:
		db, err := firestoredb.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}

// Package boltdb is a DocumentDB stored in a local bbolt file, one bucket per collection.
// Listeners are notified of the writes made through the same DB.
package boltdb

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/storage/database/feed"
)

type DB struct {
	db   *bbolt.DB
	feed *feed.Feed
}

var _ core.DocumentDB = (*DB)(nil) // interface compliance check

func Open(conf *core.Config) (*DB, error) {
	path := conf.Database.BoltPath
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "creating database directory")
		}
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, coll := range core.AllCollections {
			if _, err := tx.CreateBucketIfNotExists([]byte(coll)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating buckets")
	}
	return &DB{db: db, feed: feed.New()}, nil
}

func (db *DB) snapshot(coll string) ([]core.Document, error) {
	docs := make([]core.Document, 0)
	err := db.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(coll))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			docs = append(docs, feed.Document{DocID: string(k), Data: append([]byte(nil), v...)})
			return nil
		})
	})
	return docs, errors.Wrapf(err, "reading %s", coll)
}

func (db *DB) Listen(ctx context.Context, coll string, fn core.SnapshotFunc) error {
	changes, unsubscribe := db.feed.Subscribe(coll)
	defer unsubscribe()

	for {
		docs, err := db.snapshot(coll)
		if err != nil {
			return err
		}
		fn(docs)

		select {
		case <-ctx.Done():
			return nil
		case <-db.feed.Done():
			return errors.New("database closed")
		case <-changes:
		}
	}
}

func (db *DB) Get(_ context.Context, coll, id string) (core.Document, error) {
	var data []byte
	err := db.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(coll))
		if b == nil {
			return core.ErrDocNotFound
		}
		v := b.Get([]byte(id))
		if v == nil {
			return core.ErrDocNotFound
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return feed.Document{DocID: id, Data: data}, nil
}

func (db *DB) Set(_ context.Context, coll, id string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "encoding document")
	}
	return db.update(coll, func(b *bbolt.Bucket) error {
		return b.Put([]byte(id), raw)
	})
}

func (db *DB) Merge(_ context.Context, coll, id string, fields map[string]interface{}) error {
	return db.update(coll, func(b *bbolt.Bucket) error {
		raw, err := feed.Merge(b.Get([]byte(id)), fields)
		if err != nil {
			return errors.Wrap(err, "merging document")
		}
		return b.Put([]byte(id), raw)
	})
}

func (db *DB) AddToSet(_ context.Context, coll, id, field string, values ...string) error {
	return db.update(coll, func(b *bbolt.Bucket) error {
		raw, err := feed.AddToSet(b.Get([]byte(id)), field, values...)
		if err != nil {
			return errors.Wrap(err, "adding to set")
		}
		return b.Put([]byte(id), raw)
	})
}

func (db *DB) Delete(_ context.Context, coll, id string) error {
	return db.update(coll, func(b *bbolt.Bucket) error {
		return b.Delete([]byte(id))
	})
}

func (db *DB) update(coll string, fn func(b *bbolt.Bucket) error) error {
	err := db.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(coll))
		if err != nil {
			return err
		}
		return fn(b)
	})
	if err != nil {
		return errors.Wrapf(err, "writing %s", coll)
	}
	db.feed.Publish(coll)
	return nil
}

func (db *DB) Close() error {
	db.feed.Close()
	return db.db.Close()
}

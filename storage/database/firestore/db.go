// Package firestoredb is the production DocumentDB, backed by Cloud Firestore realtime snapshots.
package firestoredb

import (
	"context"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/trezcool/ebd/core"
)

type DB struct {
	app    *firebase.App
	client *firestore.Client
}

var _ core.DocumentDB = (*DB)(nil) // interface compliance check

func Open(ctx context.Context, conf *core.Config) (*DB, error) {
	var opts []option.ClientOption
	if conf.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.Firebase.CredentialsFile))
	}
	var fbConf *firebase.Config
	if conf.Firebase.ProjectID != "" {
		fbConf = &firebase.Config{ProjectID: conf.Firebase.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConf, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase")
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to firestore")
	}
	return &DB{app: app, client: client}, nil
}

// Auth returns the identity client of the same Firebase project.
func (db *DB) Auth(ctx context.Context) (*auth.Client, error) {
	return db.app.Auth(ctx)
}

func (db *DB) Listen(ctx context.Context, coll string, fn core.SnapshotFunc) error {
	it := db.client.Collection(coll).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if ctx.Err() != nil {
			return nil
		}
		if err == iterator.Done {
			return errors.Errorf("%s subscription stopped", coll)
		}
		if err != nil {
			return translate(err)
		}

		snaps, err := snap.Documents.GetAll()
		if err != nil {
			return translate(err)
		}
		docs := make([]core.Document, 0, len(snaps))
		for _, s := range snaps {
			docs = append(docs, document{s})
		}
		fn(docs)
	}
}

func (db *DB) Get(ctx context.Context, coll, id string) (core.Document, error) {
	snap, err := db.client.Collection(coll).Doc(id).Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return document{snap}, nil
}

func (db *DB) Set(ctx context.Context, coll, id string, data interface{}) error {
	_, err := db.client.Collection(coll).Doc(id).Set(ctx, data)
	return translate(err)
}

func (db *DB) Merge(ctx context.Context, coll, id string, fields map[string]interface{}) error {
	_, err := db.client.Collection(coll).Doc(id).Set(ctx, fields, firestore.MergeAll)
	return translate(err)
}

func (db *DB) AddToSet(ctx context.Context, coll, id, field string, values ...string) error {
	elems := make([]interface{}, len(values))
	for i, v := range values {
		elems[i] = v
	}
	_, err := db.client.Collection(coll).Doc(id).Set(ctx, map[string]interface{}{field: firestore.ArrayUnion(elems...)}, firestore.MergeAll)
	return translate(err)
}

func (db *DB) Delete(ctx context.Context, coll, id string) error {
	_, err := db.client.Collection(coll).Doc(id).Delete(ctx)
	return translate(err)
}

func (db *DB) Close() error {
	return db.client.Close()
}

// translate maps remote status codes to the core errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return errors.Wrap(core.ErrPermissionDenied, err.Error())
	case codes.NotFound:
		return core.ErrDocNotFound
	}
	return err
}

type document struct {
	snap *firestore.DocumentSnapshot
}

func (d document) ID() string { return d.snap.Ref.ID }

func (d document) DataTo(v interface{}) error { return d.snap.DataTo(v) }

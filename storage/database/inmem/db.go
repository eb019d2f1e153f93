// Package inmemdb is a DocumentDB kept in memory, used by tests.
//
// Snapshots are delivered to listeners before a write returns, so a write is mirrored as
// soon as it completes. Access to a collection can be revoked to simulate remote
// permission errors.
package inmemdb

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/storage/database/feed"
)

var errClosed = errors.New("database closed")

type (
	DB struct {
		sync.RWMutex
		tables map[string]map[string][]byte
		denied map[string]bool
		closed bool

		deliverMu sync.Mutex
		lisMu     sync.Mutex
		listeners map[string]map[int]*listener
		nextID    int
	}

	listener struct {
		fn   core.SnapshotFunc
		fail chan error
	}
)

var _ core.DocumentDB = (*DB)(nil) // interface compliance check

func Open() *DB {
	return &DB{
		tables:    make(map[string]map[string][]byte),
		denied:    make(map[string]bool),
		listeners: make(map[string]map[int]*listener),
	}
}

// Deny revokes (or restores) access to coll. Active listeners of coll fail at once.
func (db *DB) Deny(coll string, deny bool) {
	db.Lock()
	db.denied[coll] = deny
	err := db.check(coll)
	db.Unlock()

	if deny {
		db.broadcastFailure(coll, err)
	}
}

// check must be called with db held.
func (db *DB) check(coll string) error {
	if db.closed {
		return errClosed
	}
	if db.denied[coll] {
		return errors.Wrapf(core.ErrPermissionDenied, "accessing %s", coll)
	}
	return nil
}

func (db *DB) snapshot(coll string) ([]core.Document, error) {
	db.RLock()
	defer db.RUnlock()
	if err := db.check(coll); err != nil {
		return nil, err
	}
	docs := make([]core.Document, 0, len(db.tables[coll]))
	for id, data := range db.tables[coll] {
		docs = append(docs, feed.Document{DocID: id, Data: data})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID() < docs[j].ID() })
	return docs, nil
}

func (db *DB) Listen(ctx context.Context, coll string, fn core.SnapshotFunc) error {
	l := &listener{fn: fn, fail: make(chan error, 1)}

	db.deliverMu.Lock()
	docs, err := db.snapshot(coll)
	if err != nil {
		db.deliverMu.Unlock()
		return err
	}
	fn(docs)
	id := db.addListener(coll, l)
	db.deliverMu.Unlock()
	defer db.removeListener(coll, id)

	select {
	case <-ctx.Done():
		return nil
	case err := <-l.fail:
		return err
	}
}

func (db *DB) addListener(coll string, l *listener) int {
	db.lisMu.Lock()
	defer db.lisMu.Unlock()
	id := db.nextID
	db.nextID++
	if db.listeners[coll] == nil {
		db.listeners[coll] = make(map[int]*listener)
	}
	db.listeners[coll][id] = l
	return id
}

func (db *DB) removeListener(coll string, id int) {
	db.lisMu.Lock()
	defer db.lisMu.Unlock()
	delete(db.listeners[coll], id)
}

func (db *DB) collListeners(coll string) []*listener {
	db.lisMu.Lock()
	defer db.lisMu.Unlock()
	res := make([]*listener, 0, len(db.listeners[coll]))
	for _, l := range db.listeners[coll] {
		res = append(res, l)
	}
	return res
}

func (db *DB) broadcastFailure(coll string, err error) {
	for _, l := range db.collListeners(coll) {
		select {
		case l.fail <- err:
		default:
		}
	}
}

// deliver sends the current content of coll to its listeners.
func (db *DB) deliver(coll string) {
	db.deliverMu.Lock()
	defer db.deliverMu.Unlock()

	docs, err := db.snapshot(coll)
	if err != nil {
		return
	}
	for _, l := range db.collListeners(coll) {
		l.fn(docs)
	}
}

func (db *DB) Get(_ context.Context, coll, id string) (core.Document, error) {
	db.RLock()
	defer db.RUnlock()
	if err := db.check(coll); err != nil {
		return nil, err
	}
	data, ok := db.tables[coll][id]
	if !ok {
		return nil, core.ErrDocNotFound
	}
	return feed.Document{DocID: id, Data: data}, nil
}

func (db *DB) Set(_ context.Context, coll, id string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "encoding document")
	}
	return db.write(coll, func(table map[string][]byte) error {
		table[id] = raw
		return nil
	})
}

func (db *DB) Merge(_ context.Context, coll, id string, fields map[string]interface{}) error {
	return db.write(coll, func(table map[string][]byte) error {
		raw, err := feed.Merge(table[id], fields)
		if err != nil {
			return errors.Wrap(err, "merging document")
		}
		table[id] = raw
		return nil
	})
}

func (db *DB) AddToSet(_ context.Context, coll, id, field string, values ...string) error {
	return db.write(coll, func(table map[string][]byte) error {
		raw, err := feed.AddToSet(table[id], field, values...)
		if err != nil {
			return errors.Wrap(err, "adding to set")
		}
		table[id] = raw
		return nil
	})
}

func (db *DB) Delete(_ context.Context, coll, id string) error {
	return db.write(coll, func(table map[string][]byte) error {
		delete(table, id)
		return nil
	})
}

func (db *DB) write(coll string, fn func(table map[string][]byte) error) error {
	db.Lock()
	if err := db.check(coll); err != nil {
		db.Unlock()
		return err
	}
	if db.tables[coll] == nil {
		db.tables[coll] = make(map[string][]byte)
	}
	err := fn(db.tables[coll])
	db.Unlock()

	if err != nil {
		return err
	}
	db.deliver(coll)
	return nil
}

func (db *DB) Close() error {
	db.Lock()
	db.closed = true
	db.Unlock()

	db.lisMu.Lock()
	colls := make([]string, 0, len(db.listeners))
	for coll := range db.listeners {
		colls = append(colls, coll)
	}
	db.lisMu.Unlock()
	for _, coll := range colls {
		db.broadcastFailure(coll, errClosed)
	}
	return nil
}

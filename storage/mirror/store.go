// Package mirror keeps an in-memory copy of the remote collections.
//
// Every collection is fed by its own realtime subscription: each snapshot replaces the
// local copy wholesale and subscribers are notified with the collection name. Writes go to
// the remote database and are reflected locally by the next snapshot; SetLocal and
// AddToSetLocal additionally apply the change to the local copy before writing.
//
// A remote permission-denied error raises a banner for the collection it happened on;
// the banner is cleared by the next successful snapshot or write on that collection.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/storage/database/feed"
)

var (
	snapshotsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ebd",
		Subsystem: "sync",
		Name:      "snapshots_total",
		Help:      "Number of collection snapshots applied to the mirror.",
	}, []string{"collection"})

	syncFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ebd",
		Subsystem: "sync",
		Name:      "failures_total",
		Help:      "Number of failed remote operations.",
	}, []string{"collection", "op"})

	activeBanners = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ebd",
		Subsystem: "sync",
		Name:      "banners",
		Help:      "Number of collections currently blocked by a permission error.",
	})
)

// operations
const (
	opSync   = "syncing"
	opSave   = "saving"
	opUpdate = "updating"
	opDelete = "deleting"
)

type Store struct {
	db         core.DocumentDB
	logger     core.Logger
	retryDelay time.Duration

	mu          sync.RWMutex
	collections map[string]map[string]core.Document
	synced      map[string]chan struct{}
	banners     map[string]string

	subMu   sync.Mutex
	subs    map[int]func(collection string)
	nextSub int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewStore(db core.DocumentDB, logger core.Logger, conf *core.Config) *Store {
	s := &Store{
		db:          db,
		logger:      logger,
		retryDelay:  conf.SyncRetryDelay,
		collections: make(map[string]map[string]core.Document),
		synced:      make(map[string]chan struct{}),
		banners:     make(map[string]string),
		subs:        make(map[int]func(string)),
	}
	for _, coll := range core.AllCollections {
		s.collections[coll] = make(map[string]core.Document)
		s.synced[coll] = make(chan struct{})
	}
	return s
}

// Start subscribes to every collection. Listeners run until Stop is called or ctx is done.
func (s *Store) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, coll := range core.AllCollections {
		s.wg.Add(1)
		go s.listen(ctx, coll)
	}
}

// Stop cancels the subscriptions and waits for the listeners to return.
func (s *Store) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Store) listen(ctx context.Context, coll string) {
	defer s.wg.Done()
	for {
		err := s.db.Listen(ctx, coll, func(docs []core.Document) {
			s.replace(coll, docs)
		})
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("subscription ended")
		}
		s.fail(coll, opSync, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retryDelay):
		}
	}
}

func (s *Store) replace(coll string, docs []core.Document) {
	table := make(map[string]core.Document, len(docs))
	for _, d := range docs {
		table[d.ID()] = d
	}

	s.mu.Lock()
	s.collections[coll] = table
	select {
	case <-s.synced[coll]:
	default:
		close(s.synced[coll])
	}
	s.clearBanner(coll)
	s.mu.Unlock()

	snapshotsApplied.WithLabelValues(coll).Inc()
	s.notify(coll)
}

// WaitSynced blocks until the first snapshot of every given collection has been applied.
func (s *Store) WaitSynced(ctx context.Context, collections ...string) error {
	if len(collections) == 0 {
		collections = core.AllCollections
	}
	for _, coll := range collections {
		s.mu.RLock()
		ch := s.synced[coll]
		s.mu.RUnlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "waiting for %s", coll)
		}
	}
	return nil
}

// Docs returns the mirrored documents of coll, sorted by id.
func (s *Store) Docs(coll string) []core.Document {
	s.mu.RLock()
	table := s.collections[coll]
	docs := make([]core.Document, 0, len(table))
	for _, d := range table {
		docs = append(docs, d)
	}
	s.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID() < docs[j].ID() })
	return docs
}

// Doc returns a mirrored document.
func (s *Store) Doc(coll, id string) (core.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.collections[coll][id]
	return d, ok
}

// Fetch reads a document from the remote database, bypassing the mirror.
func (s *Store) Fetch(ctx context.Context, coll, id string) (core.Document, error) {
	doc, err := s.db.Get(ctx, coll, id)
	if err != nil && errors.Cause(err) == core.ErrDocNotFound {
		return nil, err
	}
	if err := s.result(coll, "fetching", err); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) Set(ctx context.Context, coll, id string, data interface{}) error {
	return s.result(coll, opSave, s.db.Set(ctx, coll, id, data))
}

func (s *Store) Merge(ctx context.Context, coll, id string, fields map[string]interface{}) error {
	return s.result(coll, opUpdate, s.db.Merge(ctx, coll, id, fields))
}

func (s *Store) Delete(ctx context.Context, coll, id string) error {
	return s.result(coll, opDelete, s.db.Delete(ctx, coll, id))
}

// SetLocal stores data in the mirror, then writes it remotely.
// On failure the local copy is left for the next snapshot to reconcile.
func (s *Store) SetLocal(ctx context.Context, coll, id string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "encoding document")
	}
	s.put(coll, localDoc{id: id, data: raw})
	return s.Set(ctx, coll, id, data)
}

// AddToSetLocal adds the values missing from the array field of the mirrored document,
// then adds them remotely. A document not mirrored yet is only written remotely.
func (s *Store) AddToSetLocal(ctx context.Context, coll, id, field string, values ...string) error {
	if d, ok := s.Doc(coll, id); ok {
		fields := make(map[string]interface{})
		if err := d.DataTo(&fields); err != nil {
			return errors.Wrap(err, "decoding document")
		}
		raw, err := json.Marshal(fields)
		if err != nil {
			return errors.Wrap(err, "encoding document")
		}
		if raw, err = feed.AddToSet(raw, field, values...); err != nil {
			return errors.Wrap(err, "adding to set")
		}
		s.put(coll, localDoc{id: id, data: raw})
	}
	return s.result(coll, opUpdate, s.db.AddToSet(ctx, coll, id, field, values...))
}

func (s *Store) put(coll string, doc core.Document) {
	s.mu.Lock()
	table := make(map[string]core.Document, len(s.collections[coll])+1)
	for id, d := range s.collections[coll] {
		table[id] = d
	}
	table[doc.ID()] = doc
	s.collections[coll] = table
	s.mu.Unlock()

	s.notify(coll)
}

func (s *Store) result(coll, op string, err error) error {
	if err == nil {
		s.mu.Lock()
		cleared := s.clearBanner(coll)
		s.mu.Unlock()
		if cleared {
			s.notify(coll)
		}
		return nil
	}
	s.fail(coll, op, err)
	return &core.SyncError{Collection: coll, Op: op, Err: err}
}

func (s *Store) fail(coll, op string, err error) {
	syncFailures.WithLabelValues(coll, op).Inc()
	s.logger.Error(fmt.Sprintf("%s %s: %v", op, coll, err), err)

	if !core.IsPermissionDenied(err) {
		return
	}
	s.mu.Lock()
	if _, ok := s.banners[coll]; !ok {
		activeBanners.Inc()
	}
	s.banners[coll] = fmt.Sprintf("permission denied while %s %s", op, coll)
	s.mu.Unlock()
	s.notify(coll)
}

// clearBanner must be called with s.mu held.
func (s *Store) clearBanner(coll string) bool {
	if _, ok := s.banners[coll]; !ok {
		return false
	}
	delete(s.banners, coll)
	activeBanners.Dec()
	return true
}

// Banners returns the active permission banners, by collection.
func (s *Store) Banners() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	banners := make(map[string]string, len(s.banners))
	for k, v := range s.banners {
		banners[k] = v
	}
	return banners
}

// Subscribe registers fn to be called with the collection name after every change.
// fn must not block.
func (s *Store) Subscribe(fn func(collection string)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(coll string) {
	s.subMu.Lock()
	fns := make([]func(string), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(coll)
	}
}

type localDoc struct {
	id   string
	data []byte
}

var _ core.Document = localDoc{}

func (d localDoc) ID() string { return d.id }

func (d localDoc) DataTo(v interface{}) error { return json.Unmarshal(d.data, v) }

package inmemdb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ebd/core"
)

type doc struct {
	Name string `json:"name"`
	Age  int    `json:"age,omitempty"`
}

// recorder keeps the last snapshot received by a listener.
type recorder struct {
	mu   sync.Mutex
	docs []core.Document
	n    int
}

func (r *recorder) fn(docs []core.Document) {
	r.mu.Lock()
	r.docs = docs
	r.n++
	r.mu.Unlock()
}

func (r *recorder) last() ([]core.Document, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs, r.n
}

func listen(t *testing.T, db *DB, coll string) (*recorder, <-chan error, context.CancelFunc) {
	t.Helper()

	rec := new(recorder)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- db.Listen(ctx, coll, rec.fn) }()

	require.Eventually(t, func() bool {
		_, n := rec.last()
		return n > 0
	}, time.Second, time.Millisecond)
	return rec, done, cancel
}

func TestDB(t *testing.T) {
	db := Open()
	ctx := context.Background()

	require.NoError(t, db.Set(ctx, core.CollUsers, "u1", doc{Name: "Ana"}))

	rec, done, cancel := listen(t, db, core.CollUsers)
	docs, _ := rec.last()
	require.Len(t, docs, 1)

	// writes are delivered before they return
	require.NoError(t, db.Set(ctx, core.CollUsers, "u2", doc{Name: "Zoe"}))
	docs, _ = rec.last()
	require.Len(t, docs, 2)
	assert.Equal(t, "u2", docs[1].ID())

	require.NoError(t, db.Merge(ctx, core.CollUsers, "u1", map[string]interface{}{"age": 30}))
	got, err := db.Get(ctx, core.CollUsers, "u1")
	require.NoError(t, err)
	var d doc
	require.NoError(t, got.DataTo(&d))
	assert.Equal(t, doc{Name: "Ana", Age: 30}, d)

	require.NoError(t, db.Delete(ctx, core.CollUsers, "u2"))
	docs, _ = rec.last()
	assert.Len(t, docs, 1)
	_, err = db.Get(ctx, core.CollUsers, "u2")
	assert.Equal(t, core.ErrDocNotFound, err)

	// other collections are not delivered to this listener
	_, n := rec.last()
	require.NoError(t, db.Set(ctx, core.CollClasses, "c1", doc{Name: "Adultos"}))
	_, n2 := rec.last()
	assert.Equal(t, n, n2)

	cancel()
	assert.NoError(t, <-done)
}

func TestDB_Deny(t *testing.T) {
	db := Open()
	ctx := context.Background()

	_, done, cancel := listen(t, db, core.CollUsers)
	defer cancel()

	db.Deny(core.CollUsers, true)
	assert.True(t, core.IsPermissionDenied(<-done))

	assert.True(t, core.IsPermissionDenied(db.Set(ctx, core.CollUsers, "u1", doc{Name: "Ana"})))
	_, err := db.Get(ctx, core.CollUsers, "u1")
	assert.True(t, core.IsPermissionDenied(err))
	assert.True(t, core.IsPermissionDenied(db.Listen(ctx, core.CollUsers, func([]core.Document) {})))

	// other collections stay available
	assert.NoError(t, db.Set(ctx, core.CollClasses, "c1", doc{Name: "Adultos"}))

	db.Deny(core.CollUsers, false)
	assert.NoError(t, db.Set(ctx, core.CollUsers, "u1", doc{Name: "Ana"}))
}

func TestDB_Close(t *testing.T) {
	db := Open()

	_, done, cancel := listen(t, db, core.CollUsers)
	defer cancel()

	require.NoError(t, db.Close())
	assert.Equal(t, errClosed, <-done)
	assert.Equal(t, errClosed, db.Set(context.Background(), core.CollUsers, "u1", doc{}))
}

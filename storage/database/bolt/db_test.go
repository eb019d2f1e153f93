package boltdb

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ebd/core"
)

type doc struct {
	Name       string `json:"name"`
	IsApproved bool   `json:"isApproved"`
}

func openDB(t *testing.T, path string) *DB {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Database.BoltPath = path
	db, err := Open(conf)
	require.NoError(t, err)
	return db
}

func TestDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "ebd.db")
	db := openDB(t, path)
	ctx := context.Background()

	snapshots := make(chan []core.Document, 16)
	lctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- db.Listen(lctx, core.CollUsers, func(docs []core.Document) { snapshots <- docs })
	}()

	waitFor := func(n int) []core.Document {
		t.Helper()
		timeout := time.After(2 * time.Second)
		for {
			select {
			case docs := <-snapshots:
				if len(docs) == n {
					return docs
				}
			case <-timeout:
				t.Fatalf("no snapshot with %d documents", n)
				return nil
			}
		}
	}

	waitFor(0)
	require.NoError(t, db.Set(ctx, core.CollUsers, "u1", doc{Name: "Ana"}))
	require.NoError(t, db.Set(ctx, core.CollUsers, "u2", doc{Name: "Zoe"}))
	docs := waitFor(2)
	assert.Equal(t, "u1", docs[0].ID())

	require.NoError(t, db.Merge(ctx, core.CollUsers, "u2", map[string]interface{}{"isApproved": true}))
	got, err := db.Get(ctx, core.CollUsers, "u2")
	require.NoError(t, err)
	var d doc
	require.NoError(t, got.DataTo(&d))
	assert.Equal(t, doc{Name: "Zoe", IsApproved: true}, d)

	require.NoError(t, db.Delete(ctx, core.CollUsers, "u1"))
	waitFor(1)
	_, err = db.Get(ctx, core.CollUsers, "u1")
	assert.Equal(t, core.ErrDocNotFound, err)

	cancel()
	assert.NoError(t, <-done)
	require.NoError(t, db.Close())

	// documents survive a reopen
	db = openDB(t, path)
	defer db.Close()
	got, err = db.Get(ctx, core.CollUsers, "u2")
	require.NoError(t, err)
	require.NoError(t, got.DataTo(&d))
	assert.True(t, d.IsApproved)
}

func TestDB_AddToSet(t *testing.T) {
	db := openDB(t, filepath.Join(t.TempDir(), "ebd.db"))
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.Set(ctx, core.CollUsers, "u1", doc{Name: "Ana"}))

	var wg sync.WaitGroup
	for _, id := range []string{"a1", "a2", "a3", "a2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, db.AddToSet(ctx, core.CollUsers, "u1", "viewedAnnouncements", id))
		}(id)
	}
	wg.Wait()

	got, err := db.Get(ctx, core.CollUsers, "u1")
	require.NoError(t, err)
	var d struct {
		Name   string   `json:"name"`
		Viewed []string `json:"viewedAnnouncements"`
	}
	require.NoError(t, got.DataTo(&d))
	assert.Equal(t, "Ana", d.Name)
	assert.ElementsMatch(t, []string{"a1", "a2", "a3"}, d.Viewed)
}

func TestDB_Close(t *testing.T) {
	db := openDB(t, filepath.Join(t.TempDir(), "ebd.db"))

	done := make(chan error, 1)
	started := make(chan struct{}, 1)
	go func() {
		done <- db.Listen(context.Background(), core.CollClasses, func([]core.Document) {
			select {
			case started <- struct{}{}:
			default:
			}
		})
	}()
	<-started

	require.NoError(t, db.Close())
	assert.Error(t, <-done)
}

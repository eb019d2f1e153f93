// Package feed fans collection change notifications out to the listeners of a local database.
package feed

import "sync"

type Feed struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan struct{}
	nextID int
	done   chan struct{}
	closed bool
}

func New() *Feed {
	return &Feed{
		subs: make(map[string]map[int]chan struct{}),
		done: make(chan struct{}),
	}
}

// Subscribe returns a channel receiving a value after changes to coll.
// Notifications are coalesced: a slow listener sees at most one pending change.
func (f *Feed) Subscribe(coll string) (<-chan struct{}, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan struct{}, 1)
	id := f.nextID
	f.nextID++
	if f.subs[coll] == nil {
		f.subs[coll] = make(map[int]chan struct{})
	}
	f.subs[coll][id] = ch

	return ch, func() {
		f.mu.Lock()
		delete(f.subs[coll], id)
		f.mu.Unlock()
	}
}

func (f *Feed) Publish(coll string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs[coll] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Done is closed by Close.
func (f *Feed) Done() <-chan struct{} { return f.done }

func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.done)
	}
}

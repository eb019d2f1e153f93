package core

import "context"

// Collections
const (
	CollUsers         = "users"
	CollClasses       = "classes"
	CollMagazines     = "magazines"
	CollComments      = "comments"
	CollAttendances   = "attendances"
	CollAnnouncements = "announcements"
	CollResponses     = "responses"
)

// AllCollections lists every collection mirrored by the sync layer.
var AllCollections = []string{
	CollUsers,
	CollClasses,
	CollMagazines,
	CollComments,
	CollAttendances,
	CollAnnouncements,
	CollResponses,
}

type (
	// Document is a single document of a collection snapshot.
	Document interface {
		ID() string
		// DataTo decodes the document fields into v (a pointer to struct).
		DataTo(v interface{}) error
	}

	// SnapshotFunc receives the full content of a collection, every time it changes.
	SnapshotFunc func(docs []Document)

	// DocumentDB is a remote document database with realtime collection subscriptions.
	DocumentDB interface {
		// Listen calls fn with the initial snapshot of collection and again after every change.
		// It blocks until ctx is done (returning nil) or the subscription fails.
		Listen(ctx context.Context, collection string, fn SnapshotFunc) error

		// Get fetches a single document; ErrDocNotFound if it does not exist.
		Get(ctx context.Context, collection, id string) (Document, error)

		// Set creates or overwrites a document with data (a struct or map).
		Set(ctx context.Context, collection, id string, data interface{}) error

		// Merge updates the given top-level fields of a document, creating it if needed.
		Merge(ctx context.Context, collection, id string, fields map[string]interface{}) error

		// AddToSet atomically appends the values missing from the array field of a document,
		// creating it if needed.
		AddToSet(ctx context.Context, collection, id, field string, values ...string) error

		Delete(ctx context.Context, collection, id string) error

		Close() error
	}
)

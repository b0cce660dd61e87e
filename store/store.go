package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a snapshot that is not in the store.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is a persisted capture of a document: its identity, version and
// native-format bytes. Data is nil in List results.
type Snapshot struct {
	DocID     string
	Version   int
	Data      []byte
	UpdatedAt time.Time
}

// SnapshotStore abstracts snapshot persistence.
// Implementations: MemoryStore, FirestoreStore, CachedStore (write-behind).
type SnapshotStore interface {
	// Save upserts the snapshot for docID.
	Save(ctx context.Context, docID string, version int, data []byte) error
	Load(ctx context.Context, docID string) (*Snapshot, error)
	// List returns snapshot metadata (no Data) for every stored document.
	List(ctx context.Context) ([]Snapshot, error)
	Delete(ctx context.Context, docID string) error
}

package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// CachedStore wraps a backing SnapshotStore with an in-memory cache.
// Saves land in the cache immediately and are flushed to the backing store
// periodically in the background, so the edit pipeline never waits on the
// backing store.
type CachedStore struct {
	cache         *MemoryStore
	backing       SnapshotStore
	mu            sync.Mutex
	dirty         map[string]bool
	flushInterval time.Duration
	stop          chan struct{}
	done          chan struct{}
}

// NewCachedStore creates a CachedStore that flushes dirty snapshots to the
// backing store every flushInterval.
func NewCachedStore(backing SnapshotStore, flushInterval time.Duration) *CachedStore {
	cs := &CachedStore{
		cache:         NewMemoryStore(),
		backing:       backing,
		dirty:         make(map[string]bool),
		flushInterval: flushInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go cs.flushLoop()
	return cs
}

func (cs *CachedStore) Save(ctx context.Context, docID string, version int, data []byte) error {
	if err := cs.cache.Save(ctx, docID, version, data); err != nil {
		return err
	}
	cs.mu.Lock()
	cs.dirty[docID] = true
	cs.mu.Unlock()
	return nil
}

func (cs *CachedStore) Load(ctx context.Context, docID string) (*Snapshot, error) {
	snap, err := cs.cache.Load(ctx, docID)
	if err == nil {
		return snap, nil
	}
	// Cache miss — read through to the backing store.
	snap, err = cs.backing.Load(ctx, docID)
	if err != nil {
		return nil, err
	}
	if err := cs.cache.Save(ctx, docID, snap.Version, snap.Data); err != nil {
		return nil, err
	}
	return snap, nil
}

func (cs *CachedStore) List(ctx context.Context) ([]Snapshot, error) {
	return cs.backing.List(ctx)
}

func (cs *CachedStore) Delete(ctx context.Context, docID string) error {
	cs.mu.Lock()
	delete(cs.dirty, docID)
	cs.mu.Unlock()
	cs.cache.Delete(ctx, docID)
	return cs.backing.Delete(ctx, docID)
}

func (cs *CachedStore) flushLoop() {
	ticker := time.NewTicker(cs.flushInterval)
	defer ticker.Stop()
	defer close(cs.done)

	for {
		select {
		case <-ticker.C:
			cs.flush()
		case <-cs.stop:
			cs.flush()
			return
		}
	}
}

// flush writes every dirty snapshot to the backing store. A snapshot that
// fails to flush stays dirty and is retried next cycle.
func (cs *CachedStore) flush() {
	cs.mu.Lock()
	ids := make([]string, 0, len(cs.dirty))
	for id := range cs.dirty {
		ids = append(ids, id)
	}
	cs.mu.Unlock()

	ctx := context.Background()
	for _, id := range ids {
		snap, err := cs.cache.Load(ctx, id)
		if err != nil {
			// Deleted since it was marked dirty.
			cs.mu.Lock()
			delete(cs.dirty, id)
			cs.mu.Unlock()
			continue
		}
		if err := cs.backing.Save(ctx, id, snap.Version, snap.Data); err != nil {
			slog.Error("cached store: flush failed", "docId", id, "error", err)
			continue
		}

		cs.mu.Lock()
		// Only clear the flag if no newer save arrived meanwhile.
		if cur, err := cs.cache.Load(ctx, id); err == nil && cur.Version == snap.Version {
			delete(cs.dirty, id)
		}
		cs.mu.Unlock()
	}
}

// Close performs a final flush and waits for the flush loop to exit.
func (cs *CachedStore) Close() {
	close(cs.stop)
	<-cs.done
}

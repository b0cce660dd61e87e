package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of SnapshotStore.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]*Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]*Snapshot)}
}

func (s *MemoryStore) Save(_ context.Context, docID string, version int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	s.snaps[docID] = &Snapshot{
		DocID:     docID,
		Version:   version,
		Data:      cp,
		UpdatedAt: time.Now(),
	}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, docID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snaps[docID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *snap
	cp.Data = make([]byte, len(snap.Data))
	copy(cp.Data, snap.Data)
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Snapshot, 0, len(s.snaps))
	for _, snap := range s.snaps {
		result = append(result, Snapshot{
			DocID:     snap.DocID,
			Version:   snap.Version,
			UpdatedAt: snap.UpdatedAt,
		})
	}
	return result, nil
}

func (s *MemoryStore) Delete(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snaps[docID]; !ok {
		return ErrNotFound
	}
	delete(s.snaps, docID)
	return nil
}

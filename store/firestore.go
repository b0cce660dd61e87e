package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore is a Firestore-backed implementation of SnapshotStore.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore creates a FirestoreStore using the given client.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{
		client:     client,
		collection: "snapshots",
	}
}

func (s *FirestoreStore) docRef(docID string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(docID)
}

func (s *FirestoreStore) Save(ctx context.Context, docID string, version int, data []byte) error {
	_, err := s.docRef(docID).Set(ctx, map[string]interface{}{
		"version":   version,
		"data":      data,
		"updatedAt": time.Now(),
	})
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", docID, err)
	}
	return nil
}

func (s *FirestoreStore) Load(ctx context.Context, docID string) (*Snapshot, error) {
	snap, err := s.docRef(docID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return snapshotFromDoc(docID, snap, true)
}

func snapshotFromDoc(docID string, snap *firestore.DocumentSnapshot, withData bool) (*Snapshot, error) {
	data := snap.Data()
	version, _ := data["version"].(int64)
	updatedAt, _ := data["updatedAt"].(time.Time)
	out := &Snapshot{
		DocID:     docID,
		Version:   int(version),
		UpdatedAt: updatedAt,
	}
	if withData {
		bytes, _ := data["data"].([]byte)
		out.Data = bytes
	}
	return out, nil
}

func (s *FirestoreStore) List(ctx context.Context) ([]Snapshot, error) {
	iter := s.client.Collection(s.collection).Documents(ctx)
	defer iter.Stop()

	var result []Snapshot
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		info, err := snapshotFromDoc(snap.Ref.ID, snap, false)
		if err != nil {
			return nil, err
		}
		result = append(result, *info)
	}
	return result, nil
}

func (s *FirestoreStore) Delete(ctx context.Context, docID string) error {
	// Verify existence so Delete reports missing snapshots like the
	// other implementations do.
	_, err := s.docRef(docID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	_, err = s.docRef(docID).Delete(ctx)
	return err
}

// Package session is the concurrency controller: a per-context document
// with an identity/version counter, an idempotent op cache, and a mutation
// lock, so the whole pipeline (cache-check, validate, edit, bump, cache)
// is indivisible with respect to other mutations on the same document.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/alimasry/richedit/doc"
	"github.com/alimasry/richedit/history"
	"github.com/alimasry/richedit/render"
	"github.com/alimasry/richedit/store"
)

// ChangeFunc receives a notification after each applied mutation.
type ChangeFunc func(session, docID string, version int)

func mintDocID() string {
	return "Doc_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Session holds one editing context. All mutations for the context are
// serialized through its mutex; reads take the same lock so they observe a
// consistent tree.
type Session struct {
	name      string
	engine    render.Engine
	snapshots store.SnapshotStore // nil disables persistence
	onChange  ChangeFunc

	mu       sync.Mutex
	docID    string
	version  int
	document *doc.Document
	hist     *history.History
	cache    *opCache
}

// New creates a session holding the default document.
func New(name string, engine render.Engine, snapshots store.SnapshotStore) *Session {
	s := &Session{
		name:      name,
		engine:    engine,
		snapshots: snapshots,
		hist:      history.New(history.DefaultMaxEntries),
		cache:     newOpCache(opCacheCapacity),
	}
	s.loadDefaultLocked()
	return s
}

// Name returns the context name.
func (s *Session) Name() string {
	return s.name
}

// State returns the current document identity and version.
func (s *Session) State() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docID, s.version
}

func (s *Session) loadDefaultLocked() {
	s.document = doc.Default()
	s.docID = mintDocID()
	s.version = 0
	s.hist.Clear()
}

// Init reloads the default document under a fresh identity.
func (s *Session) Init(page int) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadDefaultLocked()
	resp, err := s.buildLocked(page, nil)
	if err != nil {
		return nil, err
	}
	s.persistLocked()
	s.notifyLocked()
	return resp, nil
}

// Render produces the current state without mutating anything.
func (s *Session) Render(page int) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildLocked(page, nil)
}

// Mutate runs the full mutation pipeline for one edit: cache check,
// version/identity validation, history record, edit, version bump,
// response build, response cache. An edit whose address resolves to
// nothing still records history and bumps the version.
func (s *Session) Mutate(req VersionedRequest, page int, kind string, apply func(*doc.Document) *doc.EditResult) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cacheKey{req.DocID, req.BaseVersion, req.ClientOpID, page}
	if resp, ok := s.cache.get(key); ok {
		return resp, nil
	}
	if resp := s.validateLocked(req, page); resp != nil {
		return resp, nil
	}

	snapshot, err := s.engine.Serialize(s.document)
	if err != nil {
		return nil, fmt.Errorf("snapshot before edit: %w", err)
	}
	s.hist.RecordChange(kind, snapshot)

	res := apply(s.document)
	s.version++

	resp, err := s.buildLocked(page, res)
	if err != nil {
		// Version is already bumped; the edit stands even though the
		// render failed.
		return nil, err
	}
	s.cache.put(key, resp)
	s.persistLocked()
	s.notifyLocked()
	return resp, nil
}

// Undo restores the previous snapshot, if any. An undo against an empty
// stack is answered with didUndo:false and no version bump.
func (s *Session) Undo(req VersionedRequest, page int) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cacheKey{req.DocID, req.BaseVersion, req.ClientOpID, page}
	if resp, ok := s.cache.get(key); ok {
		return resp, nil
	}
	if resp := s.validateLocked(req, page); resp != nil {
		return resp, nil
	}

	did := false
	if s.hist.CanUndo() {
		if err := s.restoreFromHistoryLocked((*history.History).Undo); err != nil {
			return nil, err
		}
		did = true
	}

	resp, err := s.buildLocked(page, nil)
	if err != nil {
		return nil, err
	}
	resp.DidUndo = &did
	s.cache.put(key, resp)
	if did {
		s.persistLocked()
		s.notifyLocked()
	}
	return resp, nil
}

// Redo is symmetric to Undo.
func (s *Session) Redo(req VersionedRequest, page int) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cacheKey{req.DocID, req.BaseVersion, req.ClientOpID, page}
	if resp, ok := s.cache.get(key); ok {
		return resp, nil
	}
	if resp := s.validateLocked(req, page); resp != nil {
		return resp, nil
	}

	did := false
	if s.hist.CanRedo() {
		if err := s.restoreFromHistoryLocked((*history.History).Redo); err != nil {
			return nil, err
		}
		did = true
	}

	resp, err := s.buildLocked(page, nil)
	if err != nil {
		return nil, err
	}
	resp.DidRedo = &did
	s.cache.put(key, resp)
	if did {
		s.persistLocked()
		s.notifyLocked()
	}
	return resp, nil
}

func (s *Session) restoreFromHistoryLocked(pop func(*history.History, []byte) ([]byte, error)) error {
	current, err := s.engine.Serialize(s.document)
	if err != nil {
		return fmt.Errorf("snapshot current state: %w", err)
	}
	snapshot, err := pop(s.hist, current)
	if err != nil {
		return err
	}
	restored, err := s.engine.Restore(snapshot)
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	s.document = restored
	s.version++
	return nil
}

// Upload replaces the document with one loaded from native-format bytes.
// The pre-upload state is preserved as a single undo entry so the upload
// itself is undoable. On parse failure the prior state is retained.
func (s *Session) Upload(data []byte) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.engine.Serialize(s.document)
	if err != nil {
		return nil, fmt.Errorf("snapshot pre-upload state: %w", err)
	}
	loaded, err := s.engine.Load(data)
	if err != nil {
		return nil, err
	}

	s.document = loaded
	s.docID = mintDocID()
	s.version = 0
	s.hist.Clear()
	s.hist.PreserveAsUndo(prev)

	resp, err := s.buildLocked(1, nil)
	if err != nil {
		return nil, err
	}
	s.persistLocked()
	s.notifyLocked()
	return resp, nil
}

// Restore swaps in a persisted snapshot, preserving its captured identity,
// version and addresses. Like Upload, the prior state stays undoable.
func (s *Session) Restore(ctx context.Context, docID string, page int) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshots == nil {
		return nil, errors.New("no snapshot store configured")
	}
	snap, err := s.snapshots.Load(ctx, docID)
	if err != nil {
		return nil, err
	}
	prev, err := s.engine.Serialize(s.document)
	if err != nil {
		return nil, fmt.Errorf("snapshot current state: %w", err)
	}
	restored, err := s.engine.Restore(snap.Data)
	if err != nil {
		return nil, err
	}

	s.document = restored
	s.docID = snap.DocID
	s.version = snap.Version
	s.hist.Clear()
	s.hist.PreserveAsUndo(prev)

	resp, err := s.buildLocked(page, nil)
	if err != nil {
		return nil, err
	}
	s.notifyLocked()
	return resp, nil
}

// Export serializes the current document in the native format.
func (s *Session) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Serialize(s.document)
}

// validateLocked returns a conflict response for a stale request, or nil.
// Conflict responses are not cached and never bump the version.
func (s *Session) validateLocked(req VersionedRequest, page int) *Response {
	kind := ""
	switch {
	case req.DocID != s.docID:
		kind = ConflictDoc
	case req.BaseVersion != s.version:
		kind = ConflictVersion
	default:
		return nil
	}

	resp, err := s.buildLocked(page, nil)
	if err != nil {
		// Best effort: the conflict report matters more than its markup.
		total := s.engine.PageCount(s.document)
		resp = &Response{
			DocID:     s.docID,
			Version:   s.version,
			History:   s.historyLocked(),
			PageIndex: render.ClampPage(page, total),
			PageCount: total,
		}
	}
	resp.Error = kind
	return resp
}

func (s *Session) buildLocked(page int, res *doc.EditResult) (*Response, error) {
	total := s.engine.PageCount(s.document)
	page = render.ClampPage(page, total)
	resp := &Response{
		DocID:     s.docID,
		Version:   s.version,
		History:   s.historyLocked(),
		PageIndex: page,
		PageCount: total,
	}
	if res != nil && res.Caret != nil {
		resp.Selection = &Selection{NodeID: res.Caret.Address, Offset: res.Caret.Offset}
	}
	if res != nil && !res.FullRender && len(res.Touched) > 0 {
		if frag := s.patchLocked(res.Touched); frag != nil {
			resp.Patches = []Patch{{
				NodeID:         res.Touched[0],
				ParagraphIndex: frag.ParagraphIndex,
				HTML:           frag.HTML,
			}}
		}
	}
	if resp.Patches == nil {
		html, err := s.engine.HTML(s.document, page)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		resp.HTML = html
	}
	return resp, nil
}

func (s *Session) patchLocked(touched []string) *render.Fragment {
	if len(touched) == 1 {
		return s.engine.ParagraphPatch(s.document, touched[0])
	}
	return s.engine.RangePatch(s.document, touched[0], touched[len(touched)-1])
}

func (s *Session) historyLocked() HistoryInfo {
	return HistoryInfo{
		CanUndo:   s.hist.CanUndo(),
		CanRedo:   s.hist.CanRedo(),
		UndoDepth: s.hist.UndoDepth(),
		RedoDepth: s.hist.RedoDepth(),
	}
}

func (s *Session) persistLocked() {
	if s.snapshots == nil {
		return
	}
	data, err := s.engine.Serialize(s.document)
	if err != nil {
		slog.Error("session: serialize for persistence", "session", s.name, "error", err)
		return
	}
	if err := s.snapshots.Save(context.Background(), s.docID, s.version, data); err != nil {
		slog.Error("session: persist snapshot", "session", s.name, "docId", s.docID, "error", err)
	}
}

func (s *Session) notifyLocked() {
	if s.onChange != nil {
		s.onChange(s.name, s.docID, s.version)
	}
}

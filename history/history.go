// Package history keeps bounded undo/redo stacks of full document
// snapshots. Snapshots are opaque bytes produced by the document engine's
// serialize capability and immutable once pushed.
package history

import (
	"errors"
	"sync"
	"time"
)

// Common errors for history operations.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Change kinds. KindInsert participates in coalescing; everything else
// always pushes a snapshot.
const (
	KindInsert = "insert"
	KindStyle  = "style"
	KindDelete = "delete"
	KindBreak  = "break"
)

const (
	// DefaultMaxEntries bounds each stack; the oldest entry is dropped
	// past capacity.
	DefaultMaxEntries = 50
	// DefaultCoalesceWindow collapses a burst of consecutive insert
	// changes into one undo step.
	DefaultCoalesceWindow = 2500 * time.Millisecond
)

// History manages undo/redo state for one document context.
type History struct {
	mu sync.Mutex

	undo [][]byte
	redo [][]byte

	max    int
	window time.Duration
	now    func() time.Time

	lastKind string
	lastAt   time.Time
}

// New creates a history manager with the given stack capacity.
func New(max int) *History {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &History{
		max:    max,
		window: DefaultCoalesceWindow,
		now:    time.Now,
	}
}

func push(stack [][]byte, snapshot []byte, max int) [][]byte {
	stack = append(stack, snapshot)
	if len(stack) > max {
		stack = stack[len(stack)-max:]
	}
	return stack
}

// RecordChange pushes a snapshot of the pre-change state onto the undo
// stack and clears redo. Consecutive insert-kind changes within the
// coalescing window do not push, so continuous typing collapses into one
// undo step.
func (h *History) RecordChange(kind string, snapshot []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	coalesce := kind == KindInsert &&
		h.lastKind == KindInsert &&
		now.Sub(h.lastAt) < h.window
	h.lastKind = kind
	h.lastAt = now

	h.redo = nil
	if coalesce {
		return
	}
	h.undo = push(h.undo, snapshot, h.max)
}

// PreserveAsUndo pushes a snapshot as a single undo entry and clears redo,
// without touching the coalescing state. Used so a document replacement
// (upload, restore) is itself undoable.
func (h *History) PreserveAsUndo(snapshot []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = push(h.undo, snapshot, h.max)
	h.redo = nil
}

// Undo pops the newest undo snapshot, pushing current onto redo. The
// caller restores the returned snapshot.
func (h *History) Undo(current []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.undo) == 0 {
		return nil, ErrNothingToUndo
	}
	snapshot := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = push(h.redo, current, h.max)
	h.lastKind = ""
	return snapshot, nil
}

// Redo pops the newest redo snapshot, pushing current onto undo.
func (h *History) Redo(current []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.redo) == 0 {
		return nil, ErrNothingToRedo
	}
	snapshot := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = push(h.undo, current, h.max)
	h.lastKind = ""
	return snapshot, nil
}

// Clear drops both stacks and resets the coalescing timer. Called when a
// new document is loaded.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = nil
	h.redo = nil
	h.lastKind = ""
	h.lastAt = time.Time{}
}

func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0
}

func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

func (h *History) UndoDepth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo)
}

func (h *History) RedoDepth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo)
}

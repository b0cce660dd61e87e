package session

// Conflict kinds reported to stale writers, with the authoritative current
// state attached so they can resync instead of guessing.
const (
	ConflictDoc     = "doc_conflict"
	ConflictVersion = "version_conflict"
)

// VersionedRequest is the optimistic-lock token and idempotency key every
// mutating call carries.
type VersionedRequest struct {
	DocID       string
	BaseVersion int
	ClientOpID  string
}

// HistoryInfo mirrors the history stacks in responses.
type HistoryInfo struct {
	CanUndo   bool `json:"canUndo"`
	CanRedo   bool `json:"canRedo"`
	UndoDepth int  `json:"undoDepth"`
	RedoDepth int  `json:"redoDepth"`
}

// Patch is a single-paragraph re-render unit.
type Patch struct {
	NodeID         string `json:"nodeId"`
	ParagraphIndex int    `json:"paragraphIndex"`
	HTML           string `json:"html"`
}

// Selection is the caret reported after an edit.
type Selection struct {
	NodeID string `json:"nodeId"`
	Offset int    `json:"offset"`
}

// Response is the payload of every operation. Conflict responses carry a
// non-empty Error plus the server's current state.
type Response struct {
	Error     string      `json:"error,omitempty"`
	DocID     string      `json:"docId"`
	Version   int         `json:"version"`
	History   HistoryInfo `json:"history"`
	PageIndex int         `json:"pageIndex"`
	PageCount int         `json:"pageCount"`
	HTML      string      `json:"html,omitempty"`
	Patches   []Patch     `json:"patches,omitempty"`
	Selection *Selection  `json:"selection,omitempty"`
	DidUndo   *bool       `json:"didUndo,omitempty"`
	DidRedo   *bool       `json:"didRedo,omitempty"`
}

// Conflict reports whether the response is a conflict payload.
func (r *Response) Conflict() bool {
	return r.Error != ""
}

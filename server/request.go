package server

import (
	"github.com/alimasry/richedit/doc"
	"github.com/alimasry/richedit/session"
)

// Versioned is the optimistic-lock envelope every mutating request
// carries. client_op_id doubles as the idempotency key for replays.
type Versioned struct {
	DocID       string `json:"doc_id" binding:"required"`
	BaseVersion int    `json:"base_version"`
	ClientOpID  string `json:"client_op_id" binding:"required"`
}

func (f Versioned) versioned() session.VersionedRequest {
	return session.VersionedRequest{
		DocID:       f.DocID,
		BaseVersion: f.BaseVersion,
		ClientOpID:  f.ClientOpID,
	}
}

type updateRequest struct {
	Versioned
	Style doc.Style `json:"style"`
}

type updateNodeRequest struct {
	Versioned
	NodeID      string    `json:"node_id" binding:"required"`
	StartOffset int       `json:"start_offset"`
	EndOffset   int       `json:"end_offset"`
	Style       doc.Style `json:"style"`
}

type updateRangeRequest struct {
	Versioned
	StartNodeID string    `json:"start_node_id" binding:"required"`
	StartOffset int       `json:"start_offset"`
	EndNodeID   string    `json:"end_node_id" binding:"required"`
	EndOffset   int       `json:"end_offset"`
	Style       doc.Style `json:"style"`
}

type insertTextRequest struct {
	Versioned
	NodeID string     `json:"node_id" binding:"required"`
	Offset int        `json:"offset"`
	Text   string     `json:"text"`
	Style  *doc.Style `json:"style,omitempty"`
}

type deleteRangeRequest struct {
	Versioned
	StartNodeID string `json:"start_node_id" binding:"required"`
	StartOffset int    `json:"start_offset"`
	EndNodeID   string `json:"end_node_id" binding:"required"`
	EndOffset   int    `json:"end_offset"`
}

type deleteCharsRequest struct {
	Versioned
	NodeID string `json:"node_id" binding:"required"`
	Offset int    `json:"offset"`
	Count  int    `json:"count"`
}

func (r *deleteCharsRequest) count() int {
	if r.Count <= 0 {
		return 1
	}
	return r.Count
}

type insertBreakRequest struct {
	Versioned
	NodeID string `json:"node_id" binding:"required"`
	Offset int    `json:"offset"`
}

type restoreRequest struct {
	DocID string `json:"doc_id" binding:"required"`
}

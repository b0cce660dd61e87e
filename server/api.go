// Package server exposes the editing core over HTTP: a JSON API in the
// original snake_case-request / camelCase-response shape, plus a websocket
// endpoint that pushes change notifications.
package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alimasry/richedit/doc"
	"github.com/alimasry/richedit/history"
	"github.com/alimasry/richedit/session"
	"github.com/alimasry/richedit/store"
)

const maxUploadBytes = 8 << 20

// API wires the session hub and the snapshot store to HTTP routes.
type API struct {
	hub       *session.Hub
	snapshots store.SnapshotStore // nil disables /api/documents and /api/restore
	notifier  *Notifier
}

func NewAPI(hub *session.Hub, snapshots store.SnapshotStore) *API {
	a := &API{
		hub:       hub,
		snapshots: snapshots,
		notifier:  NewNotifier(),
	}
	hub.SetOnChange(a.notifier.Broadcast)
	return a
}

// Router builds the gin engine with every route registered.
func (a *API) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), corsMiddleware())

	api := router.Group("/api")
	{
		api.GET("/init", a.handleInit)
		api.GET("/render", a.handleRender)
		api.POST("/update", a.handleUpdate)
		api.POST("/update_node", a.handleUpdateNode)
		api.POST("/update_range", a.handleUpdateRange)
		api.POST("/insert_text", a.handleInsertText)
		api.POST("/delete_range", a.handleDeleteRange)
		api.POST("/delete_backward", a.handleDeleteBackward)
		api.POST("/delete_forward", a.handleDeleteForward)
		api.POST("/insert_break", a.handleInsertBreak)
		api.POST("/undo", a.handleUndo)
		api.POST("/redo", a.handleRedo)
		api.POST("/upload", a.handleUpload)
		api.GET("/download", a.handleDownload)
		api.GET("/documents", a.handleDocuments)
		api.POST("/restore", a.handleRestore)
	}
	router.GET("/ws", a.notifier.Handler())

	return router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// contextOf picks the editing context: `session` query parameter, default
// "default".
func (a *API) contextOf(c *gin.Context) *session.Session {
	return a.hub.Session(c.DefaultQuery("session", "default"))
}

func pageOf(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		return 1
	}
	return page
}

// respond emits the session payload: 409 for conflicts, 200 otherwise.
func respond(c *gin.Context, resp *session.Response) {
	status := http.StatusOK
	if resp.Conflict() {
		status = http.StatusConflict
	}
	c.JSON(status, resp)
}

func internalError(c *gin.Context, op string, err error) {
	slog.Error("api: "+op, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func (a *API) handleInit(c *gin.Context) {
	resp, err := a.contextOf(c).Init(pageOf(c))
	if err != nil {
		internalError(c, "init", err)
		return
	}
	respond(c, resp)
}

func (a *API) handleRender(c *gin.Context) {
	resp, err := a.contextOf(c).Render(pageOf(c))
	if err != nil {
		internalError(c, "render", err)
		return
	}
	respond(c, resp)
}

func (a *API) mutate(c *gin.Context, req Versioned, kind string, apply func(*doc.Document) *doc.EditResult) {
	resp, err := a.contextOf(c).Mutate(req.versioned(), pageOf(c), kind, apply)
	if err != nil {
		internalError(c, "mutate", err)
		return
	}
	respond(c, resp)
}

func (a *API) handleUpdate(c *gin.Context) {
	var req updateRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a.mutate(c, req.Versioned, history.KindStyle, func(d *doc.Document) *doc.EditResult {
		return d.UpdateDocumentStyle(req.Style)
	})
}

func (a *API) handleUpdateNode(c *gin.Context) {
	var req updateNodeRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a.mutate(c, req.Versioned, history.KindStyle, func(d *doc.Document) *doc.EditResult {
		return d.UpdateNodeStyle(req.NodeID, req.StartOffset, req.EndOffset, req.Style)
	})
}

func (a *API) handleUpdateRange(c *gin.Context) {
	var req updateRangeRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a.mutate(c, req.Versioned, history.KindStyle, func(d *doc.Document) *doc.EditResult {
		return d.UpdateRangeStyle(req.StartNodeID, req.StartOffset, req.EndNodeID, req.EndOffset, req.Style)
	})
}

func (a *API) handleInsertText(c *gin.Context) {
	var req insertTextRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a.mutate(c, req.Versioned, history.KindInsert, func(d *doc.Document) *doc.EditResult {
		return d.InsertText(req.NodeID, req.Offset, req.Text, req.Style)
	})
}

func (a *API) handleDeleteRange(c *gin.Context) {
	var req deleteRangeRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a.mutate(c, req.Versioned, history.KindDelete, func(d *doc.Document) *doc.EditResult {
		return d.DeleteRange(req.StartNodeID, req.StartOffset, req.EndNodeID, req.EndOffset)
	})
}

func (a *API) handleDeleteBackward(c *gin.Context) {
	var req deleteCharsRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a.mutate(c, req.Versioned, history.KindDelete, func(d *doc.Document) *doc.EditResult {
		return d.DeleteBackward(req.NodeID, req.Offset, req.count())
	})
}

func (a *API) handleDeleteForward(c *gin.Context) {
	var req deleteCharsRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a.mutate(c, req.Versioned, history.KindDelete, func(d *doc.Document) *doc.EditResult {
		return d.DeleteForward(req.NodeID, req.Offset, req.count())
	})
}

func (a *API) handleInsertBreak(c *gin.Context) {
	var req insertBreakRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a.mutate(c, req.Versioned, history.KindBreak, func(d *doc.Document) *doc.EditResult {
		return d.InsertBreak(req.NodeID, req.Offset)
	})
}

func (a *API) handleUndo(c *gin.Context) {
	var req Versioned
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	resp, err := a.contextOf(c).Undo(req.versioned(), pageOf(c))
	if err != nil {
		internalError(c, "undo", err)
		return
	}
	respond(c, resp)
}

func (a *API) handleRedo(c *gin.Context) {
	var req Versioned
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	resp, err := a.contextOf(c).Redo(req.versioned(), pageOf(c))
	if err != nil {
		internalError(c, "redo", err)
		return
	}
	respond(c, resp)
}

func (a *API) handleUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	f, err := file.Open()
	if err != nil {
		internalError(c, "upload open", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		internalError(c, "upload read", err)
		return
	}

	resp, err := a.contextOf(c).Upload(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not parse document"})
		return
	}
	respond(c, resp)
}

func (a *API) handleDownload(c *gin.Context) {
	s := a.contextOf(c)
	data, err := s.Export()
	if err != nil {
		internalError(c, "download", err)
		return
	}
	docID, _ := s.State()
	c.Header("Content-Disposition", `attachment; filename="`+docID+`.json"`)
	c.Data(http.StatusOK, "application/json", data)
}

// documentInfo is one row of /api/documents.
type documentInfo struct {
	DocID     string    `json:"docId"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *API) handleDocuments(c *gin.Context) {
	infos := []documentInfo{}
	if a.snapshots != nil {
		snaps, err := a.snapshots.List(c.Request.Context())
		if err != nil {
			internalError(c, "list documents", err)
			return
		}
		for _, snap := range snaps {
			infos = append(infos, documentInfo{
				DocID:     snap.DocID,
				Version:   snap.Version,
				UpdatedAt: snap.UpdatedAt,
			})
		}
	}
	c.JSON(http.StatusOK, gin.H{"documents": infos})
}

func (a *API) handleRestore(c *gin.Context) {
	var req restoreRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	resp, err := a.contextOf(c).Restore(c.Request.Context(), req.DocID, pageOf(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		internalError(c, "restore", err)
		return
	}
	respond(c, resp)
}

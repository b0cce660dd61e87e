package session

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alimasry/richedit/doc"
	"github.com/alimasry/richedit/history"
	"github.com/alimasry/richedit/render"
	"github.com/alimasry/richedit/store"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return New("test", render.NewHTMLEngine(10), nil)
}

// firstRunAddr returns the address of the document's first run.
func firstRunAddr(t *testing.T, s *Session) string {
	t.Helper()
	addr, ok := s.document.Addresses().AddressOf(s.document.Paragraphs[0].Runs[0])
	if !ok {
		t.Fatal("first run unaddressed")
	}
	return addr
}

func (s *Session) req() VersionedRequest {
	docID, version := s.State()
	return VersionedRequest{DocID: docID, BaseVersion: version, ClientOpID: "op-" + mintDocID()}
}

func mustMutate(t *testing.T, s *Session, kind string, apply func(*doc.Document) *doc.EditResult) *Response {
	t.Helper()
	resp, err := s.Mutate(s.req(), 1, kind, apply)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Conflict() {
		t.Fatalf("unexpected conflict: %s", resp.Error)
	}
	return resp
}

func TestSession_MutateBumpsVersionByOne(t *testing.T) {
	s := newTestSession(t)
	addr := firstRunAddr(t, s)

	resp := mustMutate(t, s, history.KindStyle, func(d *doc.Document) *doc.EditResult {
		return d.InsertText(addr, 0, "X", nil)
	})

	if resp.Version != 1 {
		t.Errorf("version = %d, want 1", resp.Version)
	}
	if _, version := s.State(); version != 1 {
		t.Errorf("server version = %d, want 1", version)
	}
	if !resp.History.CanUndo || resp.History.UndoDepth != 1 {
		t.Errorf("history = %+v", resp.History)
	}
}

func TestSession_IdempotentReplay(t *testing.T) {
	s := newTestSession(t)
	addr := firstRunAddr(t, s)
	req := s.req()

	apply := func(d *doc.Document) *doc.EditResult {
		return d.InsertText(addr, 0, "X", nil)
	}
	first, err := s.Mutate(req, 1, history.KindInsert, apply)
	if err != nil {
		t.Fatal(err)
	}

	// Replay with the identical key: no re-execution, byte-identical payload.
	second, err := s.Mutate(req, 1, history.KindInsert, apply)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("replay payload differs:\n%s\n%s", a, b)
	}
	if _, version := s.State(); version != 1 {
		t.Errorf("replay must not advance the version, got %d", version)
	}
}

func TestSession_VersionConflict(t *testing.T) {
	s := newTestSession(t)
	addr := firstRunAddr(t, s)
	mustMutate(t, s, history.KindStyle, func(d *doc.Document) *doc.EditResult {
		return d.InsertText(addr, 0, "X", nil)
	})

	docID, version := s.State()
	stale := VersionedRequest{DocID: docID, BaseVersion: version - 1, ClientOpID: "stale-op"}
	resp, err := s.Mutate(stale, 1, history.KindStyle, func(d *doc.Document) *doc.EditResult {
		t.Fatal("a conflicting request must not execute")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Error != ConflictVersion {
		t.Fatalf("error = %q, want %s", resp.Error, ConflictVersion)
	}
	if resp.DocID != docID || resp.Version != version {
		t.Errorf("conflict must report current truth, got %s v%d", resp.DocID, resp.Version)
	}
	if _, now := s.State(); now != version {
		t.Errorf("rejected request must not advance the version, got %d", now)
	}
}

func TestSession_DocConflict(t *testing.T) {
	s := newTestSession(t)
	_, version := s.State()

	resp, err := s.Mutate(VersionedRequest{DocID: "Doc_stale", BaseVersion: version, ClientOpID: "op1"},
		1, history.KindStyle, func(d *doc.Document) *doc.EditResult { return &doc.EditResult{} })
	if err != nil {
		t.Fatal(err)
	}
	if resp.Error != ConflictDoc {
		t.Errorf("error = %q, want %s", resp.Error, ConflictDoc)
	}
}

func TestSession_UnresolvedAddressStillBumps(t *testing.T) {
	s := newTestSession(t)

	resp := mustMutate(t, s, history.KindStyle, func(d *doc.Document) *doc.EditResult {
		return d.InsertText("Run_gone", 0, "X", nil)
	})

	// The edit applied nothing, but the caller already paid the version
	// cost and a history entry was recorded.
	if resp.Version != 1 {
		t.Errorf("version = %d, want 1", resp.Version)
	}
	if resp.History.UndoDepth != 1 {
		t.Errorf("undo depth = %d, want 1", resp.History.UndoDepth)
	}
}

func TestSession_UndoRedoRoundTrip(t *testing.T) {
	s := newTestSession(t)
	addr := firstRunAddr(t, s)

	initial, err := s.Render(1)
	if err != nil {
		t.Fatal(err)
	}

	kinds := []string{history.KindStyle, history.KindDelete, history.KindBreak}
	for i, kind := range kinds {
		text := strings.Repeat("x", i+1)
		mustMutate(t, s, kind, func(d *doc.Document) *doc.EditResult {
			return d.InsertText(addr, 0, text, nil)
		})
	}
	final, err := s.Render(1)
	if err != nil {
		t.Fatal(err)
	}

	for range kinds {
		resp, err := s.Undo(s.req(), 1)
		if err != nil {
			t.Fatal(err)
		}
		if resp.DidUndo == nil || !*resp.DidUndo {
			t.Fatal("undo should apply")
		}
	}
	back, err := s.Render(1)
	if err != nil {
		t.Fatal(err)
	}
	if back.HTML != initial.HTML {
		t.Errorf("undo chain did not restore the initial render:\n%s\n%s", back.HTML, initial.HTML)
	}

	for range kinds {
		resp, err := s.Redo(s.req(), 1)
		if err != nil {
			t.Fatal(err)
		}
		if resp.DidRedo == nil || !*resp.DidRedo {
			t.Fatal("redo should apply")
		}
	}
	forward, err := s.Render(1)
	if err != nil {
		t.Fatal(err)
	}
	if forward.HTML != final.HTML {
		t.Error("redo chain did not restore the final render")
	}
}

func TestSession_UndoEmptyStack(t *testing.T) {
	s := newTestSession(t)

	resp, err := s.Undo(s.req(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.DidUndo == nil || *resp.DidUndo {
		t.Error("undo on empty stack should report didUndo=false")
	}
	if resp.Version != 0 {
		t.Errorf("no-op undo must not bump the version, got %d", resp.Version)
	}
}

func TestSession_UndoPreservesAddresses(t *testing.T) {
	s := newTestSession(t)
	addr := firstRunAddr(t, s)

	mustMutate(t, s, history.KindStyle, func(d *doc.Document) *doc.EditResult {
		return d.UpdateNodeStyle(addr, 0, 5, doc.Style{Bold: boolPtr(true)})
	})
	if _, err := s.Undo(s.req(), 1); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.document.Addresses().Resolve(addr); !ok {
		t.Error("client-held address should survive an undo")
	}
}

func TestSession_PatchForSingleParagraphEdit(t *testing.T) {
	s := newTestSession(t)
	addr := firstRunAddr(t, s)

	resp := mustMutate(t, s, history.KindStyle, func(d *doc.Document) *doc.EditResult {
		return d.UpdateNodeStyle(addr, 0, 5, doc.Style{Bold: boolPtr(true)})
	})

	if len(resp.Patches) != 1 {
		t.Fatalf("got %d patches, want 1", len(resp.Patches))
	}
	if resp.HTML != "" {
		t.Error("patched response should omit whole-document markup")
	}
	if resp.Patches[0].ParagraphIndex != 0 {
		t.Errorf("paragraph index = %d", resp.Patches[0].ParagraphIndex)
	}
}

func TestSession_FullRenderForStructuralEdit(t *testing.T) {
	s := newTestSession(t)
	addr := firstRunAddr(t, s)

	resp := mustMutate(t, s, history.KindBreak, func(d *doc.Document) *doc.EditResult {
		return d.InsertBreak(addr, 3)
	})

	if resp.Patches != nil {
		t.Error("structural edits must fall back to a whole-document render")
	}
	if resp.HTML == "" {
		t.Error("expected whole-document markup")
	}
}

func TestSession_UploadUndoable(t *testing.T) {
	s := newTestSession(t)
	oldDocID, _ := s.State()
	oldText := s.document.Paragraphs[0].Text()

	data, err := s.Export()
	if err != nil {
		t.Fatal(err)
	}
	// Upload a modified copy.
	modified := strings.Replace(string(data), oldText, "Uploaded content.", 1)

	resp, err := s.Upload([]byte(modified))
	if err != nil {
		t.Fatal(err)
	}
	if resp.DocID == oldDocID {
		t.Error("upload must mint a new document identity")
	}
	if resp.Version != 0 {
		t.Errorf("version = %d, want 0", resp.Version)
	}
	if !resp.History.CanUndo || resp.History.UndoDepth != 1 {
		t.Errorf("upload should leave exactly one undo entry, got %+v", resp.History)
	}

	undone, err := s.Undo(s.req(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if undone.DidUndo == nil || !*undone.DidUndo {
		t.Fatal("upload should be undoable")
	}
	if got := s.document.Paragraphs[0].Text(); got != oldText {
		t.Errorf("undo after upload restored %q, want %q", got, oldText)
	}
}

func TestSession_UploadInvalidRetainsState(t *testing.T) {
	s := newTestSession(t)
	docID, version := s.State()

	if _, err := s.Upload([]byte("not a document")); err == nil {
		t.Fatal("invalid upload should fail")
	}
	if gotID, gotVersion := s.State(); gotID != docID || gotVersion != version {
		t.Error("failed upload must leave state unchanged")
	}
}

func TestSession_PersistsSnapshots(t *testing.T) {
	st := store.NewMemoryStore()
	s := New("test", render.NewHTMLEngine(10), st)
	addr := firstRunAddr(t, s)

	mustMutate(t, s, history.KindStyle, func(d *doc.Document) *doc.EditResult {
		return d.InsertText(addr, 0, "X", nil)
	})

	docID, version := s.State()
	snap, err := st.Load(context.Background(), docID)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Version != version {
		t.Errorf("persisted version = %d, want %d", snap.Version, version)
	}
}

func TestSession_RestorePersistedSnapshot(t *testing.T) {
	st := store.NewMemoryStore()
	s := New("test", render.NewHTMLEngine(10), st)
	addr := firstRunAddr(t, s)

	mustMutate(t, s, history.KindStyle, func(d *doc.Document) *doc.EditResult {
		return d.InsertText(addr, 0, "MARKER", nil)
	})
	oldDocID, oldVersion := s.State()

	// Replace the document, then bring the persisted one back.
	if _, err := s.Init(1); err != nil {
		t.Fatal(err)
	}
	resp, err := s.Restore(context.Background(), oldDocID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.DocID != oldDocID || resp.Version != oldVersion {
		t.Errorf("restored identity = %s v%d, want %s v%d", resp.DocID, resp.Version, oldDocID, oldVersion)
	}
	if !strings.Contains(s.document.Paragraphs[0].Text(), "MARKER") {
		t.Error("restored document content missing")
	}
}

func TestSession_ScenarioInsertStyleRender(t *testing.T) {
	s := newTestSession(t)
	addr := firstRunAddr(t, s)

	ins := mustMutate(t, s, history.KindInsert, func(d *doc.Document) *doc.EditResult {
		return d.InsertText(addr, 0, "ABCDE", nil)
	})
	if ins.Selection == nil {
		t.Fatal("insert should report a caret")
	}
	target := ins.Selection.NodeID

	upd := mustMutate(t, s, history.KindStyle, func(d *doc.Document) *doc.EditResult {
		return d.UpdateRangeStyle(target, 0, target, 5, doc.Style{Color: strPtr("#ff0000")})
	})

	rendered, err := s.Render(1)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rendered.HTML, ">ABCDE</span>") {
		t.Errorf("render missing styled span: %s", rendered.HTML)
	}
	if !strings.Contains(rendered.HTML, "color:#ff0000") {
		t.Error("render missing the applied color")
	}
	if rendered.DocID != upd.DocID || rendered.Version != upd.Version {
		t.Error("render must report the last mutation's identity and version")
	}
}

func TestSession_ScenarioBackwardMerge(t *testing.T) {
	s := newTestSession(t)

	// Two paragraphs: "Hello" and "World".
	d := doc.NewDocument()
	for _, text := range []string{"Hello", "World"} {
		r := &doc.Run{Text: text, Format: doc.DefaultFormat}
		d.Paragraphs = append(d.Paragraphs, &doc.Paragraph{Runs: []*doc.Run{r}})
	}
	d.RebindAll()
	s.document = d
	helloAddr, _ := d.Addresses().AddressOf(d.Paragraphs[0].Runs[0])
	worldAddr, _ := d.Addresses().AddressOf(d.Paragraphs[1].Runs[0])

	resp := mustMutate(t, s, history.KindDelete, func(d *doc.Document) *doc.EditResult {
		return d.DeleteBackward(worldAddr, 0, 1)
	})

	if len(s.document.Paragraphs) != 1 || s.document.Paragraphs[0].Text() != "HelloWorld" {
		t.Fatalf("merge failed: %d paragraphs", len(s.document.Paragraphs))
	}
	if resp.Selection == nil || resp.Selection.NodeID != helloAddr || resp.Selection.Offset != 5 {
		t.Errorf("caret = %+v, want {%s 5}", resp.Selection, helloAddr)
	}
}

func TestHub_SessionsAreIndependent(t *testing.T) {
	hub := NewHub(render.NewHTMLEngine(10), nil)

	a := hub.Session("a")
	b := hub.Session("b")
	if a == b {
		t.Fatal("distinct names must give distinct contexts")
	}
	if again := hub.Session("a"); again != a {
		t.Fatal("same name must give the same context")
	}

	addr := firstRunAddr(t, a)
	mustMutate(t, a, history.KindStyle, func(d *doc.Document) *doc.EditResult {
		return d.InsertText(addr, 0, "X", nil)
	})

	if _, version := b.State(); version != 0 {
		t.Error("mutating one context must not touch another")
	}
}

func TestHub_NotifyOnChange(t *testing.T) {
	hub := NewHub(render.NewHTMLEngine(10), nil)
	var gotSession string
	var gotVersion int
	hub.SetOnChange(func(name, docID string, version int) {
		gotSession = name
		gotVersion = version
	})

	s := hub.Session("notify")
	addr := firstRunAddr(t, s)
	mustMutate(t, s, history.KindStyle, func(d *doc.Document) *doc.EditResult {
		return d.InsertText(addr, 0, "X", nil)
	})

	if gotSession != "notify" || gotVersion != 1 {
		t.Errorf("notification = %s v%d", gotSession, gotVersion)
	}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestHub_SetOnChangeAppliesToLiveSessions(t *testing.T) {
	hub := NewHub(render.NewHTMLEngine(10), nil)
	s := hub.Session("live")
	addr := firstRunAddr(t, s)
	mustMutate(t, s, history.KindStyle, func(d *doc.Document) *doc.EditResult {
		return d.InsertText(addr, 0, "X", nil)
	})

	// Installed after the session already served traffic.
	var gotVersion int
	hub.SetOnChange(func(name, docID string, version int) {
		gotVersion = version
	})

	mustMutate(t, s, history.KindStyle, func(d *doc.Document) *doc.EditResult {
		return d.InsertText(addr, 0, "Y", nil)
	})
	if gotVersion != 2 {
		t.Errorf("notification version = %d, want 2", gotVersion)
	}
}

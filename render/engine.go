// Package render is the document engine capability the editing core calls
// into: render visible markup for a page or paragraph, serialize the whole
// document, load a document from bytes. The core never looks inside it.
package render

import "github.com/alimasry/richedit/doc"

// Engine abstracts the document engine. The editing core treats every
// method as a bounded synchronous operation.
type Engine interface {
	// HTML renders one page of the document as markup with inline CSS.
	// page is clamped to [1, PageCount].
	HTML(d *doc.Document, page int) (string, error)
	// PageCount reports the number of renderable pages, at least 1.
	PageCount(d *doc.Document) int
	// ParagraphPatch renders only the paragraph containing addr, or nil
	// if no containing paragraph is found.
	ParagraphPatch(d *doc.Document, addr string) *Fragment
	// RangePatch renders the single paragraph containing both addresses,
	// or nil, forcing callers back to a whole-document render.
	RangePatch(d *doc.Document, startAddr, endAddr string) *Fragment
	// Serialize captures the whole document, addresses included, in the
	// native format.
	Serialize(d *doc.Document) ([]byte, error)
	// Load parses native-format bytes into a fresh document with freshly
	// minted addresses (source addresses are stripped first).
	Load(data []byte) (*doc.Document, error)
	// Restore parses native-format bytes preserving the captured
	// addresses. Used for history snapshots.
	Restore(data []byte) (*doc.Document, error)
}

// DefaultParagraphsPerPage is the pagination unit when none is configured.
const DefaultParagraphsPerPage = 10

// HTMLEngine is the built-in engine: HTML with inline CSS, pagination by a
// fixed paragraphs-per-page count, JSON native format.
type HTMLEngine struct {
	ParagraphsPerPage int
}

func NewHTMLEngine(paragraphsPerPage int) *HTMLEngine {
	if paragraphsPerPage <= 0 {
		paragraphsPerPage = DefaultParagraphsPerPage
	}
	return &HTMLEngine{ParagraphsPerPage: paragraphsPerPage}
}

// ClampPage clamps a requested page number to [1, total].
func ClampPage(page, total int) int {
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

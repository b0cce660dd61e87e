package render

import (
	"strings"

	"github.com/alimasry/richedit/doc"
)

// Fragment is a minimal re-render unit: one paragraph's markup. Callers
// use it instead of a whole-document render when an edit's blast radius is
// provably confined to one paragraph.
type Fragment struct {
	ParagraphIndex int
	HTML           string
}

func (e *HTMLEngine) ParagraphPatch(d *doc.Document, addr string) *Fragment {
	p, pi := d.ParagraphOf(addr)
	if p == nil {
		return nil
	}
	var b strings.Builder
	e.writeParagraph(&b, d, p)
	return &Fragment{
		ParagraphIndex: pi,
		HTML:           strings.TrimSuffix(b.String(), "\n"),
	}
}

func (e *HTMLEngine) RangePatch(d *doc.Document, startAddr, endAddr string) *Fragment {
	sp, spi := d.ParagraphOf(startAddr)
	ep, epi := d.ParagraphOf(endAddr)
	if sp == nil || ep == nil || spi != epi {
		return nil
	}
	return e.ParagraphPatch(d, startAddr)
}

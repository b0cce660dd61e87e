package render

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/alimasry/richedit/doc"
)

// ErrRenderFailed reports that the engine could not produce markup.
var ErrRenderFailed = errors.New("render failed")

func (e *HTMLEngine) PageCount(d *doc.Document) int {
	if d == nil || len(d.Paragraphs) == 0 {
		return 1
	}
	pp := e.ParagraphsPerPage
	if pp <= 0 {
		pp = DefaultParagraphsPerPage
	}
	return (len(d.Paragraphs) + pp - 1) / pp
}

func (e *HTMLEngine) HTML(d *doc.Document, page int) (string, error) {
	if d == nil {
		return "", fmt.Errorf("%w: no document", ErrRenderFailed)
	}
	pp := e.ParagraphsPerPage
	if pp <= 0 {
		pp = DefaultParagraphsPerPage
	}
	page = ClampPage(page, e.PageCount(d))
	start := (page - 1) * pp
	end := start + pp
	if end > len(d.Paragraphs) {
		end = len(d.Paragraphs)
	}

	var b strings.Builder
	b.WriteString("<div class=\"document\">\n")
	for pi := start; pi < end; pi++ {
		e.writeParagraph(&b, d, d.Paragraphs[pi])
	}
	b.WriteString("</div>")
	return b.String(), nil
}

func (e *HTMLEngine) writeParagraph(b *strings.Builder, d *doc.Document, p *doc.Paragraph) {
	b.WriteString("<p")
	if style := paragraphStyle(p.Format); style != "" {
		fmt.Fprintf(b, " style=%q", style)
	}
	b.WriteString(">")
	for _, r := range p.Runs {
		addr, _ := d.Addresses().AddressOf(r)
		fmt.Fprintf(b, "<span id=%q style=%q>%s</span>",
			addr, runStyle(r.Format), html.EscapeString(r.Text))
	}
	b.WriteString("</p>\n")
}

func runStyle(f doc.RunFormat) string {
	var parts []string
	if f.FontName != "" {
		parts = append(parts, "font-family:'"+f.FontName+"'")
	}
	if f.FontSize > 0 {
		parts = append(parts, fmt.Sprintf("font-size:%gpt", f.FontSize))
	}
	if f.Color != "" {
		parts = append(parts, "color:"+f.Color)
	}
	if f.Bold {
		parts = append(parts, "font-weight:bold")
	}
	if f.Italic {
		parts = append(parts, "font-style:italic")
	}
	return strings.Join(parts, ";")
}

func paragraphStyle(f doc.ParagraphFormat) string {
	var parts []string
	if f.Alignment != "" {
		parts = append(parts, "text-align:"+f.Alignment)
	}
	if f.FirstLineIndent != 0 {
		parts = append(parts, fmt.Sprintf("text-indent:%gpt", f.FirstLineIndent))
	}
	return strings.Join(parts, ";")
}

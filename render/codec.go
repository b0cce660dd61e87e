package render

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alimasry/richedit/doc"
)

// ErrInvalidFormat reports bytes that cannot be parsed as a document.
var ErrInvalidFormat = errors.New("invalid document format")

// Native format: a self-contained JSON capture of the document tree,
// run addresses included so history restores keep addressing intact.

type runJSON struct {
	ID       string  `json:"id,omitempty"`
	Text     string  `json:"text"`
	FontName string  `json:"font_name,omitempty"`
	FontSize float64 `json:"font_size,omitempty"`
	Color    string  `json:"color,omitempty"`
	Bold     bool    `json:"bold,omitempty"`
	Italic   bool    `json:"italic,omitempty"`
}

type paragraphJSON struct {
	Alignment       string    `json:"alignment,omitempty"`
	FirstLineIndent float64   `json:"first_line_indent,omitempty"`
	Runs            []runJSON `json:"runs"`
}

type documentJSON struct {
	Paragraphs []paragraphJSON `json:"paragraphs"`
}

func (e *HTMLEngine) Serialize(d *doc.Document) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("serialize: no document")
	}
	out := documentJSON{Paragraphs: make([]paragraphJSON, 0, len(d.Paragraphs))}
	for _, p := range d.Paragraphs {
		pj := paragraphJSON{
			Alignment:       p.Format.Alignment,
			FirstLineIndent: p.Format.FirstLineIndent,
			Runs:            make([]runJSON, 0, len(p.Runs)),
		}
		for _, r := range p.Runs {
			id, _ := d.Addresses().AddressOf(r)
			pj.Runs = append(pj.Runs, runJSON{
				ID:       id,
				Text:     r.Text,
				FontName: r.Format.FontName,
				FontSize: r.Format.FontSize,
				Color:    r.Format.Color,
				Bold:     r.Format.Bold,
				Italic:   r.Format.Italic,
			})
		}
		out.Paragraphs = append(out.Paragraphs, pj)
	}
	return json.Marshal(out)
}

// Restore rebuilds a document from native-format bytes, binding each run
// to its captured address. Runs captured without an address get a fresh
// one.
func (e *HTMLEngine) Restore(data []byte) (*doc.Document, error) {
	var in documentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if len(in.Paragraphs) == 0 {
		return nil, fmt.Errorf("%w: no paragraphs", ErrInvalidFormat)
	}
	d := doc.NewDocument()
	for _, pj := range in.Paragraphs {
		p := &doc.Paragraph{
			Format: doc.ParagraphFormat{
				Alignment:       pj.Alignment,
				FirstLineIndent: pj.FirstLineIndent,
			},
		}
		for _, rj := range pj.Runs {
			r := &doc.Run{
				Text: rj.Text,
				Format: doc.RunFormat{
					FontName: rj.FontName,
					FontSize: rj.FontSize,
					Color:    rj.Color,
					Bold:     rj.Bold,
					Italic:   rj.Italic,
				},
			}
			p.Runs = append(p.Runs, r)
			id := rj.ID
			if id == "" {
				id = doc.MintAddress()
			}
			d.Addresses().Bind(r, id)
		}
		d.Paragraphs = append(d.Paragraphs, p)
	}
	return d, nil
}

// Load parses uploaded bytes. Unlike Restore it strips any addresses the
// source carries and mints fresh ones, so addresses from other documents
// never collide with ours.
func (e *HTMLEngine) Load(data []byte) (*doc.Document, error) {
	d, err := e.Restore(data)
	if err != nil {
		return nil, err
	}
	d.RebindAll()
	return d, nil
}

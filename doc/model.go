package doc

// Style is a partial-update record: nil fields mean "leave unchanged".
// Font fields apply to runs, alignment and first-line indent to paragraphs.
type Style struct {
	FontName        *string  `json:"font_name,omitempty"`
	FontSize        *float64 `json:"font_size,omitempty"`
	Color           *string  `json:"color,omitempty"`
	Bold            *bool    `json:"bold,omitempty"`
	Italic          *bool    `json:"italic,omitempty"`
	Alignment       *string  `json:"alignment,omitempty"`
	FirstLineIndent *float64 `json:"first_line_indent,omitempty"`
}

// HasRunAttrs reports whether the style carries character-level fields.
func (s Style) HasRunAttrs() bool {
	return s.FontName != nil || s.FontSize != nil || s.Color != nil || s.Bold != nil || s.Italic != nil
}

// HasParagraphAttrs reports whether the style carries block-level fields.
func (s Style) HasParagraphAttrs() bool {
	return s.Alignment != nil || s.FirstLineIndent != nil
}

// RunFormat is the resolved character formatting of a run.
type RunFormat struct {
	FontName string
	FontSize float64
	Color    string
	Bold     bool
	Italic   bool
}

// Run is an atomic span of uniformly formatted text, the unit of addressing.
type Run struct {
	Text   string
	Format RunFormat
}

func (r *Run) applyStyle(s Style) {
	if s.FontName != nil {
		r.Format.FontName = *s.FontName
	}
	if s.FontSize != nil {
		r.Format.FontSize = *s.FontSize
	}
	if s.Color != nil {
		r.Format.Color = *s.Color
	}
	if s.Bold != nil {
		r.Format.Bold = *s.Bold
	}
	if s.Italic != nil {
		r.Format.Italic = *s.Italic
	}
}

func cloneRun(r *Run) *Run {
	return &Run{Text: r.Text, Format: r.Format}
}

// ParagraphFormat is the resolved block formatting of a paragraph.
type ParagraphFormat struct {
	Alignment       string
	FirstLineIndent float64
}

// Paragraph is an ordered container of runs plus block-level formatting.
type Paragraph struct {
	Runs   []*Run
	Format ParagraphFormat
}

func (p *Paragraph) applyStyle(s Style) {
	if s.Alignment != nil {
		p.Format.Alignment = *s.Alignment
	}
	if s.FirstLineIndent != nil {
		p.Format.FirstLineIndent = *s.FirstLineIndent
	}
}

// Text returns the concatenated text of the paragraph's runs.
func (p *Paragraph) Text() string {
	var out string
	for _, r := range p.Runs {
		out += r.Text
	}
	return out
}

// DefaultFormat is the character formatting of freshly created text.
var DefaultFormat = RunFormat{
	FontName: "Arial",
	FontSize: 12,
	Color:    "#000000",
}

// Document owns an ordered sequence of paragraphs and the address index
// over their runs.
type Document struct {
	Paragraphs []*Paragraph
	addresses  *Resolver
}

// NewDocument creates an empty document with an empty address index.
func NewDocument() *Document {
	return &Document{addresses: NewResolver()}
}

// Default creates the built-in starter document with every run addressed.
func Default() *Document {
	d := NewDocument()
	for _, line := range []string{
		"Hello, this is a prototype document.",
		"You can change the font style of this text using the controls on the right.",
		"The editing core keeps your formatting and addressing intact.",
	} {
		p := &Paragraph{Runs: []*Run{{Text: line, Format: DefaultFormat}}}
		d.Paragraphs = append(d.Paragraphs, p)
	}
	d.RebindAll()
	return d
}

// Addresses exposes the document's resolver.
func (d *Document) Addresses() *Resolver {
	return d.addresses
}

// RebindAll strips every existing address and binds each run to a freshly
// minted one. Used on load so addresses from prior incarnations never collide.
func (d *Document) RebindAll() {
	d.addresses = NewResolver()
	for _, p := range d.Paragraphs {
		for _, r := range p.Runs {
			d.addresses.Bind(r, MintAddress())
		}
	}
}

// location returns the paragraph and run indices of a run, or (-1, -1).
func (d *Document) location(run *Run) (int, int) {
	for pi, p := range d.Paragraphs {
		for ri, r := range p.Runs {
			if r == run {
				return pi, ri
			}
		}
	}
	return -1, -1
}

// ParagraphOf returns the paragraph containing the run bound to addr and
// its index, or (nil, -1).
func (d *Document) ParagraphOf(addr string) (*Paragraph, int) {
	run, ok := d.addresses.Resolve(addr)
	if !ok {
		return nil, -1
	}
	pi, _ := d.location(run)
	if pi < 0 {
		return nil, -1
	}
	return d.Paragraphs[pi], pi
}

// insertRuns splices runs into p at index i, replacing count existing runs.
func insertRuns(p *Paragraph, i, count int, runs ...*Run) {
	tail := append([]*Run{}, p.Runs[i+count:]...)
	p.Runs = append(append(p.Runs[:i:i], runs...), tail...)
}

// removeParagraph deletes the paragraph at index pi.
func (d *Document) removeParagraph(pi int) {
	d.Paragraphs = append(d.Paragraphs[:pi], d.Paragraphs[pi+1:]...)
}

// insertParagraph inserts p at index pi.
func (d *Document) insertParagraph(pi int, p *Paragraph) {
	d.Paragraphs = append(d.Paragraphs[:pi], append([]*Paragraph{p}, d.Paragraphs[pi:]...)...)
}

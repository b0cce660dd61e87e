package doc

import "unicode/utf8"

// Caret is a position within an addressed run.
type Caret struct {
	Address string
	Offset  int
}

// EditResult reports what an edit touched. Touched addresses feed patch
// extraction; Caret is the reported selection after the edit. FullRender
// forces callers to re-render the whole document (paragraph structure
// changed).
type EditResult struct {
	Touched    []string
	Caret      *Caret
	FullRender bool
}

func (r *EditResult) touch(addr string) {
	for _, a := range r.Touched {
		if a == addr {
			return
		}
	}
	r.Touched = append(r.Touched, addr)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// All caller-facing offsets count characters, not bytes, so multibyte text
// never splits mid-rune. runeLen and byteOff translate between the two.

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// byteOff converts a character offset in [0, runeLen(s)] into a byte index.
func byteOff(s string, off int) int {
	for i := range s {
		if off == 0 {
			return i
		}
		off--
	}
	return len(s)
}

// splitKeepMid cuts the run at index ri of paragraph p at the character
// range [start, end), replacing it with up to three segments. The middle
// segment inherits the run's address (and the optional style override);
// outer segments get freshly minted addresses. Zero-length segments are
// not materialized. Requires 0 <= start < end <= runeLen(text).
func (d *Document) splitKeepMid(p *Paragraph, ri int, addr string, start, end int, style *Style) *Run {
	run := p.Runs[ri]
	i := byteOff(run.Text, start)
	j := byteOff(run.Text, end)
	preText := run.Text[:i]
	midText := run.Text[i:j]
	postText := run.Text[j:]

	d.addresses.Unbind(addr)

	var segs []*Run
	if preText != "" {
		pre := cloneRun(run)
		pre.Text = preText
		d.addresses.Bind(pre, MintAddress())
		segs = append(segs, pre)
	}
	mid := cloneRun(run)
	mid.Text = midText
	if style != nil {
		mid.applyStyle(*style)
	}
	d.addresses.Bind(mid, addr)
	segs = append(segs, mid)
	if postText != "" {
		post := cloneRun(run)
		post.Text = postText
		d.addresses.Bind(post, MintAddress())
		segs = append(segs, post)
	}

	insertRuns(p, ri, 1, segs...)
	return mid
}

// runsBetween returns the runs strictly between from and to in document
// order. Returns nil if either run is not in the tree or to precedes from.
func (d *Document) runsBetween(from, to *Run) []*Run {
	fpi, fri := d.location(from)
	tpi, tri := d.location(to)
	if fpi < 0 || tpi < 0 {
		return nil
	}
	var out []*Run
	ri := fri + 1
	for pi := fpi; pi <= tpi; pi++ {
		p := d.Paragraphs[pi]
		limit := len(p.Runs)
		if pi == tpi {
			limit = tri
		}
		for ; ri < limit; ri++ {
			out = append(out, p.Runs[ri])
		}
		ri = 0
	}
	return out
}

// addressFor returns the run's address, minting and binding a fresh one if
// the run is currently unaddressed.
func (d *Document) addressFor(r *Run) string {
	if addr, ok := d.addresses.AddressOf(r); ok {
		return addr
	}
	addr := MintAddress()
	d.addresses.Bind(r, addr)
	return addr
}

// UpdateDocumentStyle applies font attributes to every run and paragraph
// attributes to every paragraph. No addressing changes.
func (d *Document) UpdateDocumentStyle(s Style) *EditResult {
	for _, p := range d.Paragraphs {
		p.applyStyle(s)
		for _, r := range p.Runs {
			r.applyStyle(s)
		}
	}
	return &EditResult{FullRender: true}
}

// UpdateNodeStyle restyles the [startOff, endOff) span of a single run.
func (d *Document) UpdateNodeStyle(addr string, startOff, endOff int, s Style) *EditResult {
	return d.UpdateRangeStyle(addr, startOff, addr, endOff, s)
}

// UpdateRangeStyle restyles the text between (startAddr, startOff) and
// (endAddr, endOff). Boundary runs are trimmed with splits that keep the
// original address on the restyled middle; whole runs strictly between the
// boundaries are restyled unconditionally. Paragraph attributes apply to
// every paragraph the range touches.
func (d *Document) UpdateRangeStyle(startAddr string, startOff int, endAddr string, endOff int, s Style) *EditResult {
	startRun, ok := d.addresses.Resolve(startAddr)
	if !ok {
		return &EditResult{}
	}
	endRun, ok := d.addresses.Resolve(endAddr)
	if !ok {
		return &EditResult{}
	}

	if startRun == endRun {
		n := runeLen(startRun.Text)
		a := clamp(startOff, 0, n)
		b := clamp(endOff, 0, n)
		if a >= b {
			return &EditResult{}
		}
		pi, ri := d.location(startRun)
		if pi < 0 {
			return &EditResult{}
		}
		if s.HasParagraphAttrs() {
			d.Paragraphs[pi].applyStyle(s)
		}
		if s.HasRunAttrs() {
			if a == 0 && b == n {
				startRun.applyStyle(s)
			} else {
				d.splitKeepMid(d.Paragraphs[pi], ri, startAddr, a, b, &s)
			}
		}
		return &EditResult{Touched: []string{startAddr}}
	}

	spi, sri := d.location(startRun)
	epi, eri := d.location(endRun)
	if spi < 0 || epi < 0 || spi > epi || (spi == epi && sri > eri) {
		return &EditResult{}
	}

	if s.HasParagraphAttrs() {
		for pi := spi; pi <= epi; pi++ {
			d.Paragraphs[pi].applyStyle(s)
		}
	}

	res := &EditResult{Touched: []string{startAddr, endAddr}}
	if !s.HasRunAttrs() {
		return res
	}

	sn := runeLen(startRun.Text)
	en := runeLen(endRun.Text)
	a := clamp(startOff, 0, sn)
	b := clamp(endOff, 0, en)

	startCursor := startRun
	switch {
	case a == sn:
		// Range starts at the run's end; nothing of it is covered.
	case a == 0:
		startRun.applyStyle(s)
	default:
		if mid := d.splitKeepMid(d.Paragraphs[spi], sri, startAddr, a, sn, &s); mid != nil {
			startCursor = mid
		}
	}

	endCursor := endRun
	includeEnd := true
	switch {
	case b == 0:
		includeEnd = false
	case b == en:
		// Whole end run is covered; styled below.
	default:
		pi, ri := d.location(endRun)
		if mid := d.splitKeepMid(d.Paragraphs[pi], ri, endAddr, 0, b, &s); mid != nil {
			endCursor = mid
		}
		includeEnd = false // mid is already styled by the split
	}

	for _, r := range d.runsBetween(startCursor, endCursor) {
		r.applyStyle(s)
	}
	if includeEnd {
		endCursor.applyStyle(s)
	}
	return res
}

// InsertText inserts text at (addr, offset). The inserted segment carries
// the original address; surrounding segments get fresh ones. An empty run
// is rewritten in place with no split.
func (d *Document) InsertText(addr string, offset int, text string, style *Style) *EditResult {
	run, ok := d.addresses.Resolve(addr)
	if !ok || text == "" {
		return &EditResult{}
	}
	pi, ri := d.location(run)
	if pi < 0 {
		return &EditResult{}
	}

	if len(run.Text) == 0 {
		run.Text = text
		if style != nil {
			run.applyStyle(*style)
		}
		return &EditResult{
			Touched: []string{addr},
			Caret:   &Caret{Address: addr, Offset: runeLen(text)},
		}
	}

	o := byteOff(run.Text, clamp(offset, 0, runeLen(run.Text)))
	preText := run.Text[:o]
	postText := run.Text[o:]

	d.addresses.Unbind(addr)
	var segs []*Run
	if preText != "" {
		pre := cloneRun(run)
		pre.Text = preText
		d.addresses.Bind(pre, MintAddress())
		segs = append(segs, pre)
	}
	ins := cloneRun(run)
	ins.Text = text
	if style != nil {
		ins.applyStyle(*style)
	}
	d.addresses.Bind(ins, addr)
	segs = append(segs, ins)
	if postText != "" {
		post := cloneRun(run)
		post.Text = postText
		d.addresses.Bind(post, MintAddress())
		segs = append(segs, post)
	}
	insertRuns(d.Paragraphs[pi], ri, 1, segs...)

	return &EditResult{
		Touched: []string{addr},
		Caret:   &Caret{Address: addr, Offset: runeLen(text)},
	}
}

// DeleteRange removes the text between (startAddr, startOff) and
// (endAddr, endOff). Boundary runs are truncated in place; whole runs
// strictly between them are removed. No addresses are created or
// reassigned.
func (d *Document) DeleteRange(startAddr string, startOff int, endAddr string, endOff int) *EditResult {
	startRun, ok := d.addresses.Resolve(startAddr)
	if !ok {
		return &EditResult{}
	}
	endRun, ok := d.addresses.Resolve(endAddr)
	if !ok {
		return &EditResult{}
	}

	if startRun == endRun {
		n := runeLen(startRun.Text)
		a := clamp(startOff, 0, n)
		b := clamp(endOff, 0, n)
		if a >= b {
			return &EditResult{}
		}
		startRun.Text = startRun.Text[:byteOff(startRun.Text, a)] + startRun.Text[byteOff(startRun.Text, b):]
		return &EditResult{
			Touched: []string{startAddr},
			Caret:   &Caret{Address: startAddr, Offset: a},
		}
	}

	spi, sri := d.location(startRun)
	epi, eri := d.location(endRun)
	if spi < 0 || epi < 0 || spi > epi || (spi == epi && sri > eri) {
		return &EditResult{}
	}

	a := clamp(startOff, 0, runeLen(startRun.Text))
	b := clamp(endOff, 0, runeLen(endRun.Text))

	for _, r := range d.runsBetween(startRun, endRun) {
		if addr, bound := d.addresses.AddressOf(r); bound {
			d.addresses.Unbind(addr)
		}
		rpi, rri := d.location(r)
		insertRuns(d.Paragraphs[rpi], rri, 1)
	}
	startRun.Text = startRun.Text[:byteOff(startRun.Text, a)]
	endRun.Text = endRun.Text[byteOff(endRun.Text, b):]

	return &EditResult{
		Touched: []string{startAddr, endAddr},
		Caret:   &Caret{Address: startAddr, Offset: a},
	}
}

// DeleteBackward deletes count characters before the caret, one step at a
// time. A step at a run boundary crosses into the previous run; a step at
// a paragraph boundary merges the caret's paragraph into its predecessor.
// Returns the caret after the last step.
func (d *Document) DeleteBackward(addr string, offset, count int) *EditResult {
	caret := Caret{Address: addr, Offset: offset}
	res := &EditResult{}
	if count < 1 {
		count = 1
	}
	for i := 0; i < count; i++ {
		run, ok := d.addresses.Resolve(caret.Address)
		if !ok {
			break
		}
		o := clamp(caret.Offset, 0, runeLen(run.Text))
		if o > 0 {
			i := byteOff(run.Text, o-1)
			_, size := utf8.DecodeRuneInString(run.Text[i:])
			run.Text = run.Text[:i] + run.Text[i+size:]
			caret.Offset = o - 1
			res.touch(caret.Address)
			continue
		}

		pi, ri := d.location(run)
		if pi < 0 {
			break
		}
		if ri > 0 {
			prev := d.Paragraphs[pi].Runs[ri-1]
			if len(prev.Text) == 0 {
				// Crossing an empty run repositions the caret only; the
				// step still owes a character.
				caret.Address = d.addressFor(prev)
				caret.Offset = 0
				i--
				continue
			}
			_, size := utf8.DecodeLastRuneInString(prev.Text)
			prev.Text = prev.Text[:len(prev.Text)-size]
			caret.Address = d.addressFor(prev)
			caret.Offset = runeLen(prev.Text)
			res.touch(caret.Address)
			continue
		}
		if pi == 0 {
			break // start of document
		}

		// Merge this paragraph into the previous one.
		prevPara := d.Paragraphs[pi-1]
		var landing *Run
		if len(prevPara.Runs) > 0 {
			landing = prevPara.Runs[len(prevPara.Runs)-1]
		}
		prevPara.Runs = append(prevPara.Runs, d.Paragraphs[pi].Runs...)
		d.removeParagraph(pi)
		res.FullRender = true
		if landing != nil {
			caret.Address = d.addressFor(landing)
			caret.Offset = runeLen(landing.Text)
		} else {
			caret.Address = d.addressFor(run)
			caret.Offset = 0
		}
		res.touch(caret.Address)
	}
	res.Caret = &caret
	return res
}

// DeleteForward deletes count characters after the caret, one step at a
// time, crossing run and paragraph boundaries symmetrically to
// DeleteBackward (the following paragraph merges into the caret's).
func (d *Document) DeleteForward(addr string, offset, count int) *EditResult {
	caret := Caret{Address: addr, Offset: offset}
	res := &EditResult{}
	if count < 1 {
		count = 1
	}
	for i := 0; i < count; i++ {
		run, ok := d.addresses.Resolve(caret.Address)
		if !ok {
			break
		}
		o := clamp(caret.Offset, 0, runeLen(run.Text))
		caret.Offset = o
		if o < runeLen(run.Text) {
			i := byteOff(run.Text, o)
			_, size := utf8.DecodeRuneInString(run.Text[i:])
			run.Text = run.Text[:i] + run.Text[i+size:]
			res.touch(caret.Address)
			continue
		}

		pi, ri := d.location(run)
		if pi < 0 {
			break
		}
		if ri < len(d.Paragraphs[pi].Runs)-1 {
			next := d.Paragraphs[pi].Runs[ri+1]
			caret.Address = d.addressFor(next)
			caret.Offset = 0
			if len(next.Text) == 0 {
				// Empty run: reposition without consuming the step.
				i--
				continue
			}
			_, size := utf8.DecodeRuneInString(next.Text)
			next.Text = next.Text[size:]
			res.touch(caret.Address)
			continue
		}
		if pi == len(d.Paragraphs)-1 {
			break // end of document
		}

		next := d.Paragraphs[pi+1]
		d.Paragraphs[pi].Runs = append(d.Paragraphs[pi].Runs, next.Runs...)
		d.removeParagraph(pi + 1)
		res.FullRender = true
		res.touch(caret.Address)
	}
	res.Caret = &caret
	return res
}

// InsertBreak splits the paragraph owning (addr, offset) in two. Text
// before the caret stays in the original paragraph under a fresh address;
// text from the caret onward moves into a new paragraph and keeps the
// original address, so the caret lands at offset 0 of the same address.
func (d *Document) InsertBreak(addr string, offset int) *EditResult {
	run, ok := d.addresses.Resolve(addr)
	if !ok {
		return &EditResult{}
	}
	pi, ri := d.location(run)
	if pi < 0 {
		return &EditResult{}
	}
	p := d.Paragraphs[pi]
	o := byteOff(run.Text, clamp(offset, 0, runeLen(run.Text)))
	preText := run.Text[:o]
	postText := run.Text[o:]

	d.addresses.Unbind(addr)
	post := cloneRun(run)
	post.Text = postText
	d.addresses.Bind(post, addr)

	q := &Paragraph{Format: p.Format}
	q.Runs = append(q.Runs, post)
	q.Runs = append(q.Runs, p.Runs[ri+1:]...)

	head := append([]*Run{}, p.Runs[:ri]...)
	if preText != "" {
		pre := cloneRun(run)
		pre.Text = preText
		d.addresses.Bind(pre, MintAddress())
		head = append(head, pre)
	}
	p.Runs = head
	d.insertParagraph(pi+1, q)

	return &EditResult{
		Touched:    []string{addr},
		Caret:      &Caret{Address: addr, Offset: 0},
		FullRender: true,
	}
}

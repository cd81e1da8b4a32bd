// Package chunker splits normalized document text into bounded, overlapping
// passages.
//
// Sizes are measured in chunk units (a word, a number, or one ideograph).
// Passages end at paragraph, sentence or section boundaries when one fits
// and fall back to a hard unit-count split otherwise. Dropping each
// passage's overlap prefix and concatenating the rest gives back the input
// text byte for byte.
package chunker

import (
	"iter"
	"regexp"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/policycite/internal/analysis"
)

// DefaultMaxTokens is the default maximum number of units per passage.
const DefaultMaxTokens = 256

// DefaultOverlap is the default number of units shared by consecutive passages.
const DefaultOverlap = 32

// sectionPattern matches article and chapter headings in policy documents.
var sectionPattern = regexp.MustCompile(
	`第[一二三四五六七八九十百千零〇0-9]+[章节条]|Chapter\s+\d+|Article\s+\d+|条款\s*\d+`)

// UnitSegmenter finds chunk units in text.
type UnitSegmenter interface {
	Units(text string) []analysis.Span
}

// Chunk is one passage of a document.
type Chunk struct {
	// Ordinal is the 0-based position of the chunk in the document.
	Ordinal int

	// Start is the byte offset where the chunk text begins, overlap included.
	Start int

	// CoreStart is the byte offset where the non-overlapping part begins.
	CoreStart int

	// End is the exclusive byte offset where the chunk ends.
	End int

	// Text is the chunk text, overlap included.
	Text string

	// Units is the number of chunk units in Text.
	Units int

	// Section is the nearest section heading at or before the core.
	Section string
}

// Overlap returns the byte length of the prefix shared with the previous chunk.
func (c Chunk) Overlap() int {
	return c.CoreStart - c.Start
}

// Core returns the chunk text without the overlap prefix.
func (c Chunk) Core() string {
	return c.Text[c.Overlap():]
}

// Cursor is a scan position. The zero Cursor starts at the beginning.
type Cursor struct {
	Ordinal      int
	CoreStart    int
	OverlapStart int
}

// Chunker creates passage scanners.
type Chunker struct {
	segmenter UnitSegmenter
	maxTokens int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxTokens sets the maximum units per chunk.
func WithMaxTokens(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithOverlap sets the number of units shared by consecutive chunks.
func WithOverlap(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

// New creates a chunker with the given options.
func New(segmenter UnitSegmenter, opts ...Option) *Chunker {
	c := &Chunker{
		segmenter: segmenter,
		maxTokens: DefaultMaxTokens,
		overlap:   DefaultOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room for at least one new unit per chunk
	if c.overlap >= c.maxTokens {
		c.overlap = c.maxTokens / 4
	}

	return c
}

// MaxTokens returns the configured unit limit.
func (c *Chunker) MaxTokens() int {
	return c.maxTokens
}

// Overlap returns the effective overlap.
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Split returns all chunks of text.
func (c *Chunker) Split(text string) []Chunk {
	var chunks []Chunk
	for chunk := range c.Scan(text).All() {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// Scan prepares a scanner over text.
func (c *Chunker) Scan(text string) *Scanner {
	return &Scanner{
		text:      text,
		units:     c.segmenter.Units(text),
		breaks:    findBreaks(text),
		sections:  findSections(text),
		maxTokens: c.maxTokens,
		overlap:   c.overlap,
	}
}

type section struct {
	start int
	label string
}

// Scanner walks a text chunk by chunk. Next depends only on its cursor
// argument, so a scan can be resumed from any cursor it returned.
type Scanner struct {
	text      string
	units     []analysis.Span
	breaks    []int
	sections  []section
	maxTokens int
	overlap   int
}

// All yields every chunk from the start of the text.
func (s *Scanner) All() iter.Seq[Chunk] {
	return s.From(Cursor{})
}

// From yields chunks starting at cur.
func (s *Scanner) From(cur Cursor) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		for {
			chunk, next, ok := s.Next(cur)
			if !ok || !yield(chunk) {
				return
			}
			cur = next
		}
	}
}

// Next returns the chunk at cur and the cursor of the following chunk.
// ok is false once the text is exhausted.
func (s *Scanner) Next(cur Cursor) (chunk Chunk, next Cursor, ok bool) {
	if cur.CoreStart >= len(s.text) {
		return Chunk{}, cur, false
	}
	if cur.OverlapStart > cur.CoreStart || cur.OverlapStart < 0 {
		cur.OverlapStart = cur.CoreStart
	}

	first := s.unitAt(cur.CoreStart)
	overlapUnits := first - s.unitAt(cur.OverlapStart)
	limit := first + s.maxTokens - overlapUnits

	end := len(s.text)
	if limit < len(s.units) {
		end = s.units[limit].Start
		if b, found := s.pickBreak(s.units[first].Start, end); found {
			end = b
		}
	}

	last := s.unitAt(end)
	chunk = Chunk{
		Ordinal:   cur.Ordinal,
		Start:     cur.OverlapStart,
		CoreStart: cur.CoreStart,
		End:       end,
		Text:      s.text[cur.OverlapStart:end],
		Units:     last - s.unitAt(cur.OverlapStart),
		Section:   s.sectionAt(s.coreAnchor(first, cur.CoreStart)),
	}

	next = Cursor{
		Ordinal:      cur.Ordinal + 1,
		CoreStart:    end,
		OverlapStart: end,
	}
	if n := min(s.overlap, last-first); n > 0 {
		next.OverlapStart = s.units[last-n].Start
	}

	return chunk, next, true
}

// unitAt returns the index of the first unit starting at or after offset.
func (s *Scanner) unitAt(offset int) int {
	return sort.Search(len(s.units), func(i int) bool {
		return s.units[i].Start >= offset
	})
}

func (s *Scanner) coreAnchor(first, coreStart int) int {
	if first < len(s.units) {
		return s.units[first].Start
	}
	return coreStart
}

// pickBreak chooses where a chunk whose first core unit starts at lo may end,
// given that it must end at or before hi. A section heading wins over other
// boundaries; otherwise the latest boundary is used.
func (s *Scanner) pickBreak(lo, hi int) (int, bool) {
	for _, sec := range s.sections {
		if sec.start > lo && sec.start <= hi {
			return sec.start, true
		}
		if sec.start > hi {
			break
		}
	}

	i := sort.SearchInts(s.breaks, hi+1) - 1
	if i >= 0 && s.breaks[i] > lo {
		return s.breaks[i], true
	}
	return 0, false
}

// sectionAt returns the label of the latest heading starting at or before offset.
func (s *Scanner) sectionAt(offset int) string {
	label := ""
	for _, sec := range s.sections {
		if sec.start > offset {
			break
		}
		label = sec.label
	}
	return label
}

func findSections(text string) []section {
	matches := sectionPattern.FindAllStringIndex(text, -1)
	sections := make([]section, 0, len(matches))
	for _, m := range matches {
		sections = append(sections, section{start: m[0], label: text[m[0]:m[1]]})
	}
	return sections
}

// findBreaks returns sorted offsets just after sentence terminators and line
// breaks, with trailing closers and whitespace attached to the sentence.
func findBreaks(text string) []int {
	var breaks []int
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if !isTerminator(r, text[i:]) {
			continue
		}
		for i < len(text) {
			next, n := utf8.DecodeRuneInString(text[i:])
			if !isCloser(next) && !unicode.IsSpace(next) {
				break
			}
			i += n
		}
		if n := len(breaks); n == 0 || breaks[n-1] != i {
			breaks = append(breaks, i)
		}
	}
	return breaks
}

func isTerminator(r rune, rest string) bool {
	switch r {
	case '。', '！', '？', '；', '!', '?', ';', '\n':
		return true
	case '.':
		if rest == "" {
			return true
		}
		next, _ := utf8.DecodeRuneInString(rest)
		return unicode.IsSpace(next)
	}
	return false
}

func isCloser(r rune) bool {
	switch r {
	case '”', '’', '」', '』', '）', ')', '"', '\'':
		return true
	}
	return false
}

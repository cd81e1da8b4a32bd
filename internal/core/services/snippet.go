package services

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/policycite/internal/analysis"
)

// Snippet returns a window of at most length runes of text around the first
// query match. Matched terms are wrapped in [ and ], and "..." marks text
// cut at either end. Whitespace is shown as single spaces.
func Snippet(analyzer *analysis.Analyzer, text string, terms []string, length int) string {
	if length <= 0 || text == "" {
		return ""
	}

	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	spans := analyzer.Highlights(text, set)

	start := 0
	if len(spans) > 0 {
		start = backRunes(text, spans[0].Start, length/4)
	}
	end := forwardRunes(text, start, length)

	var sb strings.Builder
	if start > 0 {
		sb.WriteString("...")
	}

	pos := start
	for _, span := range spans {
		if span.End <= start {
			continue
		}
		if span.Start >= end {
			break
		}
		from := max(span.Start, start)
		to := min(span.End, end)
		writeFolded(&sb, text[pos:from])
		sb.WriteByte('[')
		writeFolded(&sb, text[from:to])
		sb.WriteByte(']')
		pos = to
	}
	writeFolded(&sb, text[pos:end])

	if end < len(text) {
		sb.WriteString("...")
	}
	return sb.String()
}

// backRunes moves n runes back from offset.
func backRunes(text string, offset, n int) int {
	for ; n > 0 && offset > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(text[:offset])
		offset -= size
	}
	return offset
}

// forwardRunes moves n runes forward from offset.
func forwardRunes(text string, offset, n int) int {
	for ; n > 0 && offset < len(text); n-- {
		_, size := utf8.DecodeRuneInString(text[offset:])
		offset += size
	}
	return offset
}

func writeFolded(sb *strings.Builder, s string) {
	for _, r := range s {
		switch r {
		case '\n', '\t', '\r':
			sb.WriteByte(' ')
		default:
			sb.WriteRune(r)
		}
	}
}

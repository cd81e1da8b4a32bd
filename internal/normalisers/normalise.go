package normalisers

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/policycite/internal/core/domain"
)

// NormalizePage cleans the text of one page: NFKC folding, LF line endings,
// no control or format characters, single spaces, trimmed lines and at most
// one blank line between paragraphs.
func NormalizePage(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, text)

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

// Normalize joins normalized pages with a paragraph break and records where
// each page starts. Pages that normalize to nothing keep their number but
// add no text.
func Normalize(raw *domain.Extraction) *domain.NormalizedText {
	result := &domain.NormalizedText{
		Format: raw.Format,
		Title:  strings.TrimSpace(norm.NFKC.String(raw.Title)),
	}

	var sb strings.Builder
	for i, page := range raw.Pages {
		text := NormalizePage(page)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		if raw.Paginated {
			result.Pages = append(result.Pages, domain.PageSpan{Number: i + 1, Start: sb.Len()})
		}
		sb.WriteString(text)
	}
	result.Text = sb.String()

	return result
}

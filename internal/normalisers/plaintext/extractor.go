// Package plaintext extracts UTF-8 and UTF-16 text files such as policy
// notes kept as .txt or Markdown.
package plaintext

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.DocumentExtractor = (*Extractor)(nil)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Format returns domain.FormatPlainText.
func (e *Extractor) Format() domain.Format {
	return domain.FormatPlainText
}

// Detect accepts text with a Unicode byte order mark, or valid UTF-8
// without NUL bytes.
func (e *Extractor) Detect(content []byte) bool {
	if hasBOM(content) {
		return true
	}
	return len(content) > 0 && bytes.IndexByte(content, 0) < 0 && utf8.Valid(content)
}

// Extract decodes the text. Form feeds separate pages.
func (e *Extractor) Extract(_ context.Context, path string, content []byte) (*domain.Extraction, error) {
	text, err := decode(content)
	if err != nil {
		return nil, domain.NewExtractionError(path, domain.FormatPlainText, domain.ReasonEncoding, err)
	}

	pages := strings.Split(text, "\f")
	return &domain.Extraction{
		Format:    domain.FormatPlainText,
		Title:     markdownTitle(text),
		Pages:     pages,
		Paginated: len(pages) > 1,
	}, nil
}

func hasBOM(content []byte) bool {
	return bytes.HasPrefix(content, bomUTF8) ||
		bytes.HasPrefix(content, bomUTF16LE) ||
		bytes.HasPrefix(content, bomUTF16BE)
}

// decode strips a byte order mark and converts UTF-16 to UTF-8.
func decode(content []byte) (string, error) {
	if bytes.HasPrefix(content, bomUTF16LE) || bytes.HasPrefix(content, bomUTF16BE) {
		decoder := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, _, err := transform.Bytes(decoder, content)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}

	content = bytes.TrimPrefix(content, bomUTF8)
	if !utf8.Valid(content) {
		return "", errors.New("invalid UTF-8")
	}
	return string(content), nil
}

// markdownTitle returns the text of a leading "# " heading.
func markdownTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if title, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(title)
		}
		return ""
	}
	return ""
}

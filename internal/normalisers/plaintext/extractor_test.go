package plaintext

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/core/ports/driven"
)

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.DocumentExtractor = (*Extractor)(nil)
	assert.Equal(t, domain.FormatPlainText, New().Format())
}

func TestDetect(t *testing.T) {
	e := New()

	tests := []struct {
		name     string
		content  []byte
		expected bool
	}{
		{name: "ascii", content: []byte("Travel policy"), expected: true},
		{name: "chinese", content: []byte("差旅管理办法"), expected: true},
		{name: "utf8 bom", content: append([]byte{0xEF, 0xBB, 0xBF}, "x"...), expected: true},
		{name: "utf16 le bom", content: []byte{0xFF, 0xFE, 'a', 0}, expected: true},
		{name: "nul byte", content: []byte("a\x00b"), expected: false},
		{name: "invalid utf8", content: []byte{0xC3, 0x28}, expected: false},
		{name: "empty", content: nil, expected: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, e.Detect(tc.content))
		})
	}
}

func TestExtract_UTF8(t *testing.T) {
	result, err := New().Extract(context.Background(), "notes.txt", []byte("Gifts must be declared.\n礼品须申报。"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Gifts must be declared.\n礼品须申报。"}, result.Pages)
	assert.False(t, result.Paginated)
	assert.Empty(t, result.Title)
}

func TestExtract_StripsBOM(t *testing.T) {
	content := append([]byte{0xEF, 0xBB, 0xBF}, "hello"...)
	result, err := New().Extract(context.Background(), "bom.txt", content)
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Pages[0])
}

func TestExtract_UTF16(t *testing.T) {
	le := []byte{0xFF, 0xFE, 'h', 0, 'i', 0, 0x2E, 0x5E} // "hi帮"
	result, err := New().Extract(context.Background(), "le.txt", le)
	require.NoError(t, err)
	assert.Equal(t, "hi帮", result.Pages[0])

	be := []byte{0xFE, 0xFF, 0, 'o', 0, 'k'}
	result, err = New().Extract(context.Background(), "be.txt", be)
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Pages[0])
}

func TestExtract_InvalidAfterBOM(t *testing.T) {
	content := append([]byte{0xEF, 0xBB, 0xBF}, 0xC3, 0x28)
	_, err := New().Extract(context.Background(), "bad.txt", content)

	var extErr *domain.ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, domain.ReasonEncoding, extErr.Reason)
}

func TestExtract_FormFeedPages(t *testing.T) {
	result, err := New().Extract(context.Background(), "paged.txt", []byte("one\ftwo\fthree"))
	require.NoError(t, err)

	assert.True(t, result.Paginated)
	assert.Equal(t, []string{"one", "two", "three"}, result.Pages)
}

func TestMarkdownTitle(t *testing.T) {
	assert.Equal(t, "Expense Policy", markdownTitle("\n# Expense Policy\n\nBody"))
	assert.Equal(t, "", markdownTitle("Body first\n# Heading"))
	assert.Equal(t, "", markdownTitle("## Subheading"))
	assert.Equal(t, "", markdownTitle(""))
}

func BenchmarkExtract(b *testing.B) {
	content := []byte(strings.Repeat("差旅费用应当在出差前申请 and approved by a manager.\n", 2000))
	e := New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Extract(context.Background(), "bench.txt", content)
	}
}

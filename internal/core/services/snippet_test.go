package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/policycite/internal/analysis"
)

func TestSnippet(t *testing.T) {
	analyzer := analysis.New()

	tests := []struct {
		name   string
		text   string
		terms  []string
		length int
		want   string
	}{
		{
			name:   "short text highlighted",
			text:   "Travel expenses must be approved.",
			terms:  []string{"approved"},
			length: 120,
			want:   "Travel expenses must be [approved].",
		},
		{
			name:   "adjacent terms merge",
			text:   "第一条 预算审批流程",
			terms:  analyzer.QueryTerms("预算审批"),
			length: 120,
			want:   "第一条 [预算审批]流程",
		},
		{
			name:   "newlines folded",
			text:   "Budget\napproval",
			terms:  []string{"approval"},
			length: 120,
			want:   "Budget [approval]",
		},
		{
			name:   "no match starts at beginning",
			text:   "abcdefghij klmnop",
			terms:  []string{"zzz"},
			length: 5,
			want:   "abcde...",
		},
		{
			name:   "zero length",
			text:   "text",
			terms:  []string{"text"},
			length: 0,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Snippet(analyzer, tt.text, tt.terms, tt.length))
		})
	}
}

func TestSnippet_WindowAroundFirstMatch(t *testing.T) {
	analyzer := analysis.New()
	text := strings.Repeat("filler ", 40) + "reimbursement deadline" + strings.Repeat(" filler", 40)

	got := Snippet(analyzer, text, []string{"deadline"}, 40)

	assert.True(t, strings.HasPrefix(got, "..."))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Contains(t, got, "[deadline]")

	visible := strings.NewReplacer("...", "", "[", "", "]", "").Replace(got)
	assert.Equal(t, 40, len([]rune(visible)))
}

func TestSnippet_CountsRunes(t *testing.T) {
	analyzer := analysis.New()
	text := strings.Repeat("规", 30) + "预算审批" + strings.Repeat("定", 30)

	got := Snippet(analyzer, text, analyzer.QueryTerms("预算审批"), 20)

	assert.Contains(t, got, "[预算审批]")
	visible := strings.NewReplacer("...", "", "[", "", "]", "").Replace(got)
	assert.Equal(t, 20, len([]rune(visible)))
}

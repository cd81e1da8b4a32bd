// Package analysis turns text into index terms.
//
// The same Analyzer is used for passages at index time and for query
// sentences, so both sides always agree on what a term is. Words are found
// with Unicode word segmentation; scripts written without spaces (Chinese,
// Japanese) are indexed as overlapping character bigrams so multi-character
// terms such as 预算审批 stay matchable without a dictionary.
package analysis

import (
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	bleveunicode "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// Version identifies the analysis chain. Persisted postings built with a
// different version are discarded and rebuilt.
const Version = "unicode/cjk-width/lowercase/cjk-bigram/1"

// Token is an index term and the byte range it covers in the source text.
type Token struct {
	Term  string
	Start int
	End   int
}

// Span is a byte range in the source text.
type Span struct {
	Start int
	End   int
}

// Analyzer segments text into terms.
// It holds no per-call state and is safe for concurrent use.
type Analyzer struct {
	tokenizer analysis.Tokenizer
	filters   []analysis.TokenFilter
}

// New creates the default analyzer.
func New() *Analyzer {
	return &Analyzer{
		tokenizer: bleveunicode.NewUnicodeTokenizer(),
		filters: []analysis.TokenFilter{
			cjk.NewCJKWidthFilter(),
			lowercase.NewLowerCaseFilter(),
			cjk.NewCJKBigramFilter(false),
		},
	}
}

// Version returns the analysis chain version.
func (a *Analyzer) Version() string {
	return Version
}

// Tokens returns index terms with their source offsets, in text order.
func (a *Analyzer) Tokens(text string) []Token {
	if text == "" {
		return nil
	}

	stream := a.tokenizer.Tokenize([]byte(text))
	for _, filter := range a.filters {
		stream = filter.Filter(stream)
	}

	tokens := make([]Token, 0, len(stream))
	for _, tok := range stream {
		if len(tok.Term) == 0 {
			continue
		}
		tokens = append(tokens, Token{
			Term:  string(tok.Term),
			Start: tok.Start,
			End:   tok.End,
		})
	}
	return tokens
}

// Terms returns index terms in text order, duplicates included.
func (a *Analyzer) Terms(text string) []string {
	tokens := a.Tokens(text)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	return terms
}

// Frequencies returns the term frequencies of text and the total term count.
func (a *Analyzer) Frequencies(text string) (map[string]int, int) {
	tokens := a.Tokens(text)
	freqs := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freqs[tok.Term]++
	}
	return freqs, len(tokens)
}

// QueryTerms returns the distinct terms of a query in first-seen order.
func (a *Analyzer) QueryTerms(query string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, tok := range a.Tokens(query) {
		if _, ok := seen[tok.Term]; ok {
			continue
		}
		seen[tok.Term] = struct{}{}
		terms = append(terms, tok.Term)
	}
	return terms
}

// Units returns the chunking units of text: one span per word or number,
// and one span per ideograph. Punctuation and whitespace are not units.
func (a *Analyzer) Units(text string) []Span {
	if text == "" {
		return nil
	}

	stream := a.tokenizer.Tokenize([]byte(text))
	units := make([]Span, 0, len(stream))
	for _, tok := range stream {
		if tok.Type != analysis.Ideographic {
			units = append(units, Span{Start: tok.Start, End: tok.End})
			continue
		}
		for pos := tok.Start; pos < tok.End; {
			_, size := utf8.DecodeRuneInString(text[pos:])
			if size <= 0 {
				size = 1
			}
			units = append(units, Span{Start: pos, End: pos + size})
			pos += size
		}
	}
	return units
}

// Highlights returns the merged byte ranges of tokens whose term is in terms.
func (a *Analyzer) Highlights(text string, terms map[string]struct{}) []Span {
	var spans []Span
	for _, tok := range a.Tokens(text) {
		if _, ok := terms[tok.Term]; !ok {
			continue
		}
		if n := len(spans); n > 0 && tok.Start <= spans[n-1].End {
			if tok.End > spans[n-1].End {
				spans[n-1].End = tok.End
			}
			continue
		}
		spans = append(spans, Span{Start: tok.Start, End: tok.End})
	}
	return spans
}

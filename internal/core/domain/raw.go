package domain

// Extraction is the output of a format-specific extractor, before
// normalization.
type Extraction struct {
	// Format is the format the extractor handled.
	Format Format

	// Title is the document title if the format carries one.
	Title string

	// Pages holds the raw text of each page in order. Unpaginated formats
	// return a single element.
	Pages []string

	// Paginated reports whether Pages are real pages.
	Paginated bool
}

// PageSpan marks where a page begins in normalized text.
type PageSpan struct {
	// Number is the 1-based page number.
	Number int

	// Start is the byte offset of the page in the normalized text.
	Start int
}

// NormalizedText is the extractor output handed to the chunker.
type NormalizedText struct {
	Format Format
	Title  string
	Text   string

	// Pages is empty for unpaginated formats.
	Pages []PageSpan
}

// PageAt returns the page number containing the byte offset, or 0 when the
// text is unpaginated.
func (n *NormalizedText) PageAt(offset int) int {
	page := 0
	for _, span := range n.Pages {
		if span.Start > offset {
			break
		}
		page = span.Number
	}
	return page
}

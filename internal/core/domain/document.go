package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Format identifies the source format of a document, as detected from its
// file signature.
type Format string

// Supported source formats.
const (
	FormatPDF       Format = "pdf"
	FormatDOCX      Format = "docx"
	FormatPlainText Format = "text"
	FormatUnknown   Format = "unknown"
)

// String returns the string representation.
func (f Format) String() string {
	return string(f)
}

// FormatFromExtension returns the format declared by a file extension.
// The declared format is advisory; extractors are chosen by signature.
func FormatFromExtension(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".txt", ".md", ".markdown":
		return FormatPlainText
	default:
		return FormatUnknown
	}
}

// ExtractionStatus tracks whether a document's passages reflect its current bytes.
type ExtractionStatus string

// Document lifecycle states.
const (
	// StatusIndexed means the stored passages match the stored content hash.
	StatusIndexed ExtractionStatus = "indexed"

	// StatusStale means a later import of the same path saw different bytes
	// and the passages have not been replaced yet.
	StatusStale ExtractionStatus = "stale"
)

// Document represents an imported policy document.
// Identity is the content hash; the path is where it was last seen.
type Document struct {
	// ID is assigned by the corpus store in ascending order.
	ID int64

	// Path is the source file path.
	Path string

	// Hash is the hex SHA-256 of the file bytes.
	Hash string

	// Title is taken from document metadata, falling back to the file name.
	Title string

	// Format is the detected source format.
	Format Format

	// Status is the extraction status.
	Status ExtractionStatus

	// ImportedAt is when the current content was committed.
	ImportedAt time.Time
}

// Name returns a human-readable name for citations.
func (d *Document) Name() string {
	if d.Title != "" {
		return d.Title
	}
	return DocumentNameFromPath(d.Path)
}

// DocumentNameFromPath derives a display name from a file path.
func DocumentNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Position locates a passage within its document.
type Position struct {
	// Page is the 1-based page the passage starts on, 0 when unpaginated.
	Page int

	// Section is the nearest preceding section heading, if any.
	Section string

	// Offset is the byte offset of the passage core in the normalized text.
	Offset int

	// Overlap is the byte length of the leading region shared with the
	// previous passage.
	Overlap int
}

// Passage is a bounded, indexable unit of text derived from one document.
type Passage struct {
	// ID is stable for a given content hash and ordinal.
	ID string

	// DocumentID links to the owning Document.
	DocumentID int64

	// Ordinal is the 0-based order within the document.
	Ordinal int

	// Text is the passage text as it appears in the normalized document,
	// including the overlap prefix.
	Text string

	// NormalizedText is the lowercased, whitespace-folded form used for display matching.
	NormalizedText string

	// Position locates the passage.
	Position Position

	// TokenCount is the number of index terms in the passage.
	TokenCount int
}

// Core returns the passage text without its overlap prefix.
func (p *Passage) Core() string {
	if p.Position.Overlap <= 0 || p.Position.Overlap > len(p.Text) {
		return p.Text
	}
	return p.Text[p.Position.Overlap:]
}

// PassageStats is the text-free projection of a passage used by the index.
type PassageStats struct {
	ID         string
	DocumentID int64
	Offset     int
	TokenCount int
}

// Stats returns the index projection of the passage.
func (p *Passage) Stats() PassageStats {
	return PassageStats{
		ID:         p.ID,
		DocumentID: p.DocumentID,
		Offset:     p.Position.Offset,
		TokenCount: p.TokenCount,
	}
}

// Posting links a token to a passage that contains it.
type Posting struct {
	Token     string
	PassageID string
	Frequency int
}

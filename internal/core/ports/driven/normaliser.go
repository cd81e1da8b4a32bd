package driven

import (
	"context"

	"github.com/custodia-labs/policycite/internal/core/domain"
)

// DocumentExtractor turns the bytes of one source format into page text.
// Implementations must not mutate their input and must be safe for
// concurrent use.
type DocumentExtractor interface {
	// Format returns the format this extractor handles.
	Format() domain.Format

	// Detect reports whether content carries this format's signature.
	Detect(content []byte) bool

	// Extract returns the raw page text of the document. Failures are
	// reported as *domain.ExtractionError.
	Extract(ctx context.Context, path string, content []byte) (*domain.Extraction, error)
}

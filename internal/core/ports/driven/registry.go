package driven

import (
	"context"

	"github.com/custodia-labs/policycite/internal/core/domain"
)

// ExtractorRegistry selects an extractor by file signature and normalizes
// its output.
type ExtractorRegistry interface {
	// Extract detects the format of content and returns normalized text.
	// Unrecognized or empty content yields a *domain.ExtractionError.
	Extract(ctx context.Context, path string, content []byte) (*domain.NormalizedText, error)

	// Register adds an extractor. Later registrations are tried last.
	Register(extractor DocumentExtractor)

	// Formats returns the formats that can be extracted.
	Formats() []domain.Format
}

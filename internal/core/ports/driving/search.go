package driving

import (
	"context"

	"github.com/custodia-labs/policycite/internal/core/domain"
)

// SearchService answers citation queries against the corpus.
type SearchService interface {
	// Query returns up to k citations for a sentence, ranked by relevance.
	// k <= 0 uses the configured default. A blank sentence returns no
	// citations.
	Query(ctx context.Context, sentence string, k int) ([]domain.Citation, error)

	// Lookup extracts bullet points ("- " lines) from text, queries each and
	// merges the citations by passage, keeping the best score.
	Lookup(ctx context.Context, text string, k int) ([]domain.Citation, error)
}

package normalisers

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/core/ports/driven"
	"github.com/custodia-labs/policycite/internal/normalisers/docx"
	"github.com/custodia-labs/policycite/internal/normalisers/pdf"
	"github.com/custodia-labs/policycite/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry dispatches to extractors by file signature.
type Registry struct {
	mu         sync.RWMutex
	extractors []driven.DocumentExtractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry creates a registry with the PDF, DOCX and plain text
// extractors. Plain text is registered last because it is the loosest match.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(plaintext.New())
	return r
}

// Register adds an extractor. Extractors are tried in registration order.
func (r *Registry) Register(extractor driven.DocumentExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors = append(r.extractors, extractor)
}

// Formats returns the registered formats in order.
func (r *Registry) Formats() []domain.Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formats := make([]domain.Format, 0, len(r.extractors))
	for _, e := range r.extractors {
		formats = append(formats, e.Format())
	}
	return formats
}

// Extract detects the format of content, extracts it and normalizes the text.
func (r *Registry) Extract(ctx context.Context, path string, content []byte) (*domain.NormalizedText, error) {
	extractor := r.detect(content)
	if extractor == nil {
		return nil, domain.NewExtractionError(path, domain.FormatFromExtension(path),
			domain.ReasonUnsupported, domain.ErrUnsupportedType)
	}

	raw, err := extractor.Extract(ctx, path, content)
	if err != nil {
		var extErr *domain.ExtractionError
		if errors.As(err, &extErr) {
			return nil, extErr
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.NewExtractionError(path, extractor.Format(), domain.ReasonCorrupt, err)
	}

	normalized := Normalize(raw)
	if normalized.Text == "" {
		return nil, domain.NewExtractionError(path, extractor.Format(), domain.ReasonEmpty, domain.ErrEmptyContent)
	}
	return normalized, nil
}

func (r *Registry) detect(content []byte) driven.DocumentExtractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.extractors {
		if e.Detect(content) {
			return e
		}
	}
	return nil
}

package domain

import "time"

// Citation is a ranked query result identifying a source document and
// passage location. Citations are suggestions, never compliance findings.
type Citation struct {
	DocumentID   int64    `json:"document_id"`
	DocumentName string   `json:"document_name"`
	Path         string   `json:"path"`
	PassageID    string   `json:"passage_id"`
	Snippet      string   `json:"snippet"`
	Position     Position `json:"position"`
	Score        float64  `json:"score"`

	// Query is the sentence that produced the citation. Set by Lookup.
	Query string `json:"query,omitempty"`
}

// ImportOutcome describes what happened to one path in an import batch.
type ImportOutcome string

// Import outcomes.
const (
	OutcomeImported  ImportOutcome = "imported"
	OutcomeReplaced  ImportOutcome = "replaced"
	OutcomeUnchanged ImportOutcome = "unchanged"
	OutcomeDuplicate ImportOutcome = "duplicate"
	OutcomeFailed    ImportOutcome = "failed"
)

// ImportError pairs a path with the reason it was skipped.
type ImportError struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ImportedDocument records the result for a single path.
type ImportedDocument struct {
	Path       string        `json:"path"`
	DocumentID int64         `json:"document_id,omitempty"`
	Outcome    ImportOutcome `json:"outcome"`
	Passages   int           `json:"passages"`
}

// ImportReport summarises an import batch.
type ImportReport struct {
	// Imported counts documents whose passages were created or replaced.
	Imported int `json:"imported"`

	// Skipped counts documents whose content was already indexed.
	Skipped int `json:"skipped"`

	// Errors lists documents that could not be processed.
	Errors []ImportError `json:"errors"`

	// Documents lists per-path outcomes in input order.
	Documents []ImportedDocument `json:"documents"`

	// Cancelled is set when the batch stopped early.
	Cancelled bool `json:"cancelled,omitempty"`
}

// CorpusStatus describes the current corpus.
type CorpusStatus struct {
	DocumentCount  int       `json:"document_count"`
	PassageCount   int       `json:"passage_count"`
	StaleCount     int       `json:"stale_count"`
	LastImportTime time.Time `json:"last_import_time"`

	// IndexVersion increases with every committed index mutation.
	IndexVersion uint64 `json:"index_version"`

	// Terms is the number of distinct index terms.
	Terms int `json:"terms"`

	// Fingerprint identifies the indexed passage set.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// IsEmpty reports whether nothing has been imported.
func (s CorpusStatus) IsEmpty() bool {
	return s.DocumentCount == 0
}

package domain

// AppSettings holds all configurable behaviour.
type AppSettings struct {
	Paths     PathSettings
	Retrieval RetrievalSettings
	Chunking  ChunkingSettings
	Import    ImportSettings
}

// PathSettings locates the policy source directory and engine data.
type PathSettings struct {
	// SourceDir is where policy files are listed from by default.
	SourceDir string

	// DataDir holds the corpus database and writer lock.
	DataDir string
}

// RetrievalSettings controls query results.
type RetrievalSettings struct {
	// TopK is the default number of citations per query.
	TopK int

	// SnippetLength is the snippet window in characters.
	SnippetLength int

	// CacheSize is the number of query results kept per index version.
	CacheSize int
}

// ChunkingSettings bounds passages.
type ChunkingSettings struct {
	// MaxTokens is the maximum number of chunk units per passage.
	MaxTokens int

	// OverlapTokens is the number of units shared by consecutive passages.
	OverlapTokens int
}

// ImportSettings controls import batches.
type ImportSettings struct {
	// Workers is the number of files extracted concurrently.
	Workers int
}

// Default setting values.
const (
	DefaultTopK          = 5
	DefaultSnippetLength = 120
	DefaultCacheSize     = 256
	DefaultMaxTokens     = 256
	DefaultOverlapTokens = 32
	DefaultWorkers       = 4
)

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Retrieval: RetrievalSettings{
			TopK:          DefaultTopK,
			SnippetLength: DefaultSnippetLength,
			CacheSize:     DefaultCacheSize,
		},
		Chunking: ChunkingSettings{
			MaxTokens:     DefaultMaxTokens,
			OverlapTokens: DefaultOverlapTokens,
		},
		Import: ImportSettings{
			Workers: DefaultWorkers,
		},
	}
}

// Validate checks settings for values the engine cannot run with.
func (s *AppSettings) Validate() error {
	switch {
	case s.Retrieval.TopK <= 0:
		return ErrInvalidInput
	case s.Retrieval.SnippetLength <= 0:
		return ErrInvalidInput
	case s.Chunking.MaxTokens <= 0:
		return ErrInvalidInput
	case s.Chunking.OverlapTokens < 0:
		return ErrInvalidInput
	case s.Import.Workers <= 0:
		return ErrInvalidInput
	}
	return nil
}

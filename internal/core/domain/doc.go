// Package domain defines the core business entities for policycite.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An imported policy file, identified by content hash
//   - Passage: A bounded, indexable unit of a document's text
//   - Posting: A token occurrence in a passage (derived data)
//   - Citation: A ranked query result
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain

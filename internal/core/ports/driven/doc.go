// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentExtractor: Turns the bytes of one source format into page text
//   - ExtractorRegistry: Detects a file's format and normalizes its text
//   - CorpusStore: Documents and passages, the system of record
//   - IndexStore: Persisted postings derived from passages
//   - WriterLock: Cross-process exclusion for corpus writers
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven

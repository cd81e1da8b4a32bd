// Package normalisers turns policy files into normalized text.
//
// Each format has an extractor in its own subpackage (pdf, docx, plaintext).
// The Registry picks an extractor from the file signature rather than the
// file name, then applies the same text normalization to every format so
// the chunker and the analyzer see consistent input.
package normalisers

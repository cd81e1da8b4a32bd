// Package filesystem finds policy files on local disk and watches a source
// directory for changes.
package filesystem

// Package connectors holds the sources policy files are read from.
// The filesystem connector lists supported files under a directory and
// watches it for changes.
package connectors

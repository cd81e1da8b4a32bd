// Package lock provides the cross-process writer lock that serialises
// imports and index rebuilds against one data directory.
package lock

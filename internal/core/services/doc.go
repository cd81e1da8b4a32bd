// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// IndexService owns the in-memory index and the read/write gates; the
// import, search and corpus services share one IndexService.
package services

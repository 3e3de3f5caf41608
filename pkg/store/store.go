// Package store opens the document store backend selected by configuration
// and exposes it to the collection managers.
package store

import (
	"context"

	"github.com/nimburion/docmanager/pkg/repository/document"
)

// Adapter is the minimal lifecycle and health contract for storage adapters.
type Adapter interface {
	HealthCheck(ctx context.Context) error
	Close() error
}

// Backend is an opened store shared by every collection manager.
type Backend struct {
	// Type is the configured store type.
	Type string
	// Records serves schemaless documents for configured collections.
	Records document.Store[*document.Record]

	adapter Adapter
}

// HealthCheck reports whether the underlying adapter is reachable.
func (b *Backend) HealthCheck(ctx context.Context) error {
	return b.adapter.HealthCheck(ctx)
}

// Close releases the underlying adapter.
func (b *Backend) Close() error {
	return b.adapter.Close()
}

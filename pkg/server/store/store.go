// Package store defines the resource server's storage contract: named,
// versioned, opaque byte payloads with integrity and usage metadata.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a resource id has no stored payload.
	ErrNotFound = errors.New("store: resource not found")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store: closed")
)

// Info describes one stored resource.
type Info struct {
	ID           string    `json:"resource_id"`
	Type         string    `json:"type"`
	Size         int       `json:"size"`
	Hash         string    `json:"hash"` // sha256 hex digest of the payload
	Priority     uint8     `json:"priority"`
	Version      uint32    `json:"version"` // starts at 1, bumped on every Put
	Created      time.Time `json:"created"`
	LastAccessed time.Time `json:"last_accessed"`
	AccessCount  uint64    `json:"access_count"`
}

// Stats summarizes the store's contents.
type Stats struct {
	ResourceCount int            `json:"resource_count"`
	TotalBytes    int64          `json:"total_bytes"`
	ByType        map[string]int `json:"by_type"`
}

// Store persists versioned resources for the server.
//
// Implementations must be safe for concurrent use: handlers run on the HTTP
// server's goroutines.
type Store interface {
	// Put stores or replaces the payload for id, bumping its version.
	// Returns the resulting metadata.
	Put(ctx context.Context, id string, data []byte, resType string, priority uint8) (Info, error)

	// Get returns the payload and metadata for id, updating access
	// statistics. Returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) ([]byte, Info, error)

	// Info returns metadata for id without touching access statistics.
	Info(ctx context.Context, id string) (Info, error)

	// Version returns the current version of id.
	Version(ctx context.Context, id string) (uint32, error)

	// List returns metadata for all resources, optionally filtered by
	// type (empty string matches everything), ordered by id.
	List(ctx context.Context, resType string) ([]Info, error)

	// Delete removes id's payload and metadata.
	Delete(ctx context.Context, id string) error

	// Stats summarizes the store's contents.
	Stats(ctx context.Context) (Stats, error)

	// Close releases the store's resources.
	Close() error
}

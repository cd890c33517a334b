package cache

import (
	"context"
	"time"
)

// Entry is one eviction index record: an entry name and its last write time.
type Entry struct {
	Name      string
	Timestamp time.Time
}

// Store is a category-scoped byte store. The facade serializes values, takes
// the category lock and runs eviction; a Store only moves bytes and keeps its
// eviction index consistent with the stored values.
type Store interface {
	// Read returns the bytes stored under name, or a NotFoundError.
	Read(ctx context.Context, name string) ([]byte, error)

	// Write stores data under name, replacing any previous value, and records
	// ts as the entry's last write time.
	Write(ctx context.Context, name string, data []byte, ts time.Time) error

	// Remove deletes name together with its index record. A missing entry is
	// a NotFoundError.
	Remove(ctx context.Context, name string) error

	// Exists reports whether name is stored. Absence is not an error.
	Exists(ctx context.Context, name string) (bool, error)

	// Count returns the number of live entries according to the index.
	Count(ctx context.Context) (int, error)

	// Entries returns the eviction index in no particular order.
	Entries(ctx context.Context) ([]Entry, error)
}

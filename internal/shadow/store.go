package shadow

import "context"

// Store defines the shadow record persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing of callers without a database.
type Store interface {
	// Get retrieves a record by ID and module ID ("" for none).
	// Returns ErrNotFound if the record does not exist.
	Get(ctx context.Context, id, moduleID string) (*Record, error)

	// Update applies patch to an existing record and returns the new
	// concurrency token. An empty expectedToken skips the token check.
	// Returns ErrNotFound or ErrConcurrencyConflict.
	Update(ctx context.Context, id, moduleID string, patch *Patch, expectedToken string) (string, error)

	// Create inserts a new record built from patch and returns its token.
	// Returns ErrAlreadyExists if the ID is taken.
	Create(ctx context.Context, patch *Patch) (string, error)

	// Delete removes a record. An empty expectedToken skips the token check.
	// Returns ErrNotFound or ErrConcurrencyConflict.
	Delete(ctx context.Context, id, moduleID, expectedToken string) error

	// List returns the records matching q, ordered by ID.
	List(ctx context.Context, q Query) ([]*Record, error)

	// Report applies agent-reported state to a record (see MergeReported)
	// and optionally sets the connection state. It does not change the
	// concurrency token since operator patches never touch reported state.
	Report(ctx context.Context, id, moduleID string, reported Properties, connected *bool) error
}

// Query filters List results. Zero values match everything except
// disabled records.
type Query struct {
	DeviceType      string
	SiteID          string
	IncludeDisabled bool
}

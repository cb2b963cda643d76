package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session id has no stored state.
var ErrNotFound = errors.New("session not found")

// Store persists sessions. Implementations must round-trip state exactly:
// a loaded session carries the same messages, block structure, and grants
// that were saved.
type Store interface {
	// Save writes the full session state, replacing any prior version.
	Save(ctx context.Context, state *State) error

	// Load returns the session with the given id, or ErrNotFound.
	Load(ctx context.Context, id string) (*State, error)

	// List returns summaries of all sessions, most recently updated first.
	List(ctx context.Context) ([]Summary, error)

	// Delete removes a session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// PruneBefore deletes sessions last updated before the cutoff and
	// returns how many were removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases the store's resources.
	Close() error
}

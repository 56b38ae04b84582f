package progression

import (
	"context"
	"errors"
)

var (
	// ErrUnknownUser means the caller must create the user before rolling.
	ErrUnknownUser = errors.New("unknown user")
	// ErrNoCatalog means neither the active set, the fallback set nor any enabled set has entries.
	ErrNoCatalog = errors.New("no enabled gacha set has entries")
	// ErrUnknownSet is returned when switching to a set that does not exist or is disabled.
	ErrUnknownSet = errors.New("gacha set does not exist or is disabled")
	// ErrInvalidRequest rejects negative pull counts.
	ErrInvalidRequest = errors.New("invalid pull request")
)

// Store is the progression persistence the engine needs. Implementations must make each
// IncrementPullCount a single atomic update.
type Store interface {
	// GetUser returns ErrUnknownUser (wrapped or bare) when the user does not exist.
	GetUser(ctx context.Context, userID string) (User, error)
	SetCarryOver(ctx context.Context, userID string, units int) error
	SetActiveSet(ctx context.Context, userID, set string) error

	// EnabledSets lists sets with at least one enabled entry, in a stable order.
	EnabledSets(ctx context.Context) ([]string, error)
	// CatalogEntries returns every entry of set ordered by id, enabled or not.
	CatalogEntries(ctx context.Context, set string) ([]CatalogEntry, error)

	ProgressionState(ctx context.Context, userID, set string) (ProgressionState, error)
	// IncrementPullCount bumps the user's level on the entry and the entry's cumulative counter,
	// remembers a shiny pull, and returns the new level.
	IncrementPullCount(ctx context.Context, userID string, entryID int64, shiny bool) (int, error)
	MarkSetCompleted(ctx context.Context, userID, set string) error
}

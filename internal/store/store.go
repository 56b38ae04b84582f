// Package store holds the progression store implementations: an SQLite database for live
// use and an in-memory map for tests and dry runs.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/xtding233/gacha-stage/internal/progression"
)

var ErrNotFound = errors.New("not found")

// Store is a progression.Store plus the administrative writes the CLI needs.
type Store interface {
	progression.Store
	CreateUser(ctx context.Context, u progression.User) error
	AddEntry(ctx context.Context, e progression.CatalogEntry) (progression.CatalogEntry, error)
	SetEnabled(ctx context.Context, set string, enabled bool) error
	HasShiny(ctx context.Context, userID string, entryID int64) (bool, error)
	Close() error
}

func normalizeSet(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xtding233/gacha-stage/internal/progression"
)

// Memory is an in-process progression store for tests and dry runs.
type Memory struct {
	mu        sync.Mutex
	users     map[string]progression.User
	entries   map[int64]progression.CatalogEntry
	nextID    int64
	pulls     map[string]map[int64]int
	shiny     map[string]map[int64]bool
	completed map[string]map[string]bool
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		users:     make(map[string]progression.User),
		entries:   make(map[int64]progression.CatalogEntry),
		pulls:     make(map[string]map[int64]int),
		shiny:     make(map[string]map[int64]bool),
		completed: make(map[string]map[string]bool),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) CreateUser(_ context.Context, u progression.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ActiveSet = normalizeSet(u.ActiveSet)
	m.users[u.ID] = u
	return nil
}

func (m *Memory) AddEntry(_ context.Context, e progression.CatalogEntry) (progression.CatalogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.Set = normalizeSet(e.Set)
	if e.ID == 0 {
		m.nextID++
		e.ID = m.nextID
	} else if e.ID > m.nextID {
		m.nextID = e.ID
	}
	m.entries[e.ID] = e
	return e, nil
}

// SetEnabled flips every entry of set.
func (m *Memory) SetEnabled(_ context.Context, set string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set = normalizeSet(set)
	for id, e := range m.entries {
		if e.Set == set {
			e.Enabled = enabled
			m.entries[id] = e
		}
	}
	return nil
}

func (m *Memory) GetUser(_ context.Context, userID string) (progression.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return progression.User{}, fmt.Errorf("user %q: %w", userID, progression.ErrUnknownUser)
	}
	return u, nil
}

func (m *Memory) SetCarryOver(_ context.Context, userID string, units int) error {
	return m.updateUser(userID, func(u *progression.User) { u.CarryOver = units })
}

func (m *Memory) SetActiveSet(_ context.Context, userID, set string) error {
	return m.updateUser(userID, func(u *progression.User) { u.ActiveSet = normalizeSet(set) })
}

func (m *Memory) updateUser(userID string, fn func(*progression.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("user %q: %w", userID, progression.ErrUnknownUser)
	}
	fn(&u)
	m.users[userID] = u
	return nil
}

func (m *Memory) EnabledSets(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var sets []string
	for _, e := range m.entries {
		if e.Enabled && !seen[e.Set] {
			seen[e.Set] = true
			sets = append(sets, e.Set)
		}
	}
	sort.Strings(sets)
	return sets, nil
}

func (m *Memory) CatalogEntries(_ context.Context, set string) ([]progression.CatalogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set = normalizeSet(set)
	var out []progression.CatalogEntry
	for _, e := range m.entries {
		if e.Set == set {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ProgressionState(_ context.Context, userID, set string) (progression.ProgressionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set = normalizeSet(set)
	if _, ok := m.users[userID]; !ok {
		return progression.ProgressionState{}, fmt.Errorf("user %q: %w", userID, progression.ErrUnknownUser)
	}
	st := progression.ProgressionState{
		UserID:    userID,
		Set:       set,
		Levels:    make(map[int64]int),
		Completed: m.completed[userID][set],
	}
	for id, n := range m.pulls[userID] {
		if m.entries[id].Set == set {
			st.Levels[id] = n
		}
	}
	return st, nil
}

func (m *Memory) IncrementPullCount(_ context.Context, userID string, entryID int64, shiny bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return 0, fmt.Errorf("user %q: %w", userID, progression.ErrUnknownUser)
	}
	e, ok := m.entries[entryID]
	if !ok {
		return 0, fmt.Errorf("%w: entry %d", ErrNotFound, entryID)
	}
	e.Pulled++
	m.entries[entryID] = e

	if m.pulls[userID] == nil {
		m.pulls[userID] = make(map[int64]int)
		m.shiny[userID] = make(map[int64]bool)
	}
	m.pulls[userID][entryID]++
	if shiny {
		m.shiny[userID][entryID] = true
	}
	return m.pulls[userID][entryID], nil
}

func (m *Memory) MarkSetCompleted(_ context.Context, userID, set string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completed[userID] == nil {
		m.completed[userID] = make(map[string]bool)
	}
	m.completed[userID][normalizeSet(set)] = true
	return nil
}

// HasShiny reports whether the user ever pulled the shiny variant of entryID.
func (m *Memory) HasShiny(_ context.Context, userID string, entryID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shiny[userID][entryID], nil
}

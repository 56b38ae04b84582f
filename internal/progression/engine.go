package progression

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/xtding233/gacha-stage/internal/gacha"
	"github.com/xtding233/gacha-stage/internal/token"
)

// DefaultFallbackSet is rolled when a user's active set is empty or disabled.
const DefaultFallbackSet = "humble beginnings"

// Engine resolves pull batches against a Store. Rolls are serialized so a seeded
// RandomSource yields the same outcomes for the same store state.
type Engine struct {
	store Store
	log   logrus.FieldLogger

	mu       sync.Mutex // guards rng and serializes batches
	rng      gacha.RandomSource
	rules    gacha.Rules
	purse    token.Purse
	fallback string
}

type Option func(*Engine)

func WithRandom(rng gacha.RandomSource) Option { return func(e *Engine) { e.rng = rng } }
func WithLogger(l logrus.FieldLogger) Option { return func(e *Engine) { e.log = l } }
func WithRules(r gacha.Rules) Option { return func(e *Engine) { e.rules = r } }
func WithPurse(p token.Purse) Option { return func(e *Engine) { e.purse = p } }

// WithFallbackSet overrides DefaultFallbackSet.
func WithFallbackSet(set string) Option {
	return func(e *Engine) { e.fallback = normalizeSet(set) }
}

// NewEngine wires an engine with live defaults for everything not overridden.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		log:      logrus.StandardLogger(),
		rng:      gacha.DefaultRNG(),
		rules:    gacha.DefaultRules(),
		purse:    token.DefaultPurse(),
		fallback: DefaultFallbackSet,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconfigure swaps tuning between batches (hot reload).
func (e *Engine) Reconfigure(rules gacha.Rules, purse token.Purse, fallback string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = rules
	e.purse = purse
	if fallback = normalizeSet(fallback); fallback != "" {
		e.fallback = fallback
	}
}

// Purse returns the active currency tuning.
func (e *Engine) Purse() token.Purse {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.purse
}

// RollBatch resolves requested pulls, plus any bonus pulls bought by carryOver currency,
// for userID. An unknown user fails before anything is written. A drawn tier with no
// entries skips that pull only. If persisting a pull fails, the outcomes resolved so far
// are returned together with the error.
func (e *Engine) RollBatch(ctx context.Context, userID string, requested, carryOver int) (PullBatch, error) {
	if requested < 0 || carryOver < 0 {
		return PullBatch{}, fmt.Errorf("%w: pulls=%d carry=%d", ErrInvalidRequest, requested, carryOver)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.log.WithField("user", userID)
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUnknownUser) {
			return PullBatch{}, fmt.Errorf("roll for %q: %w", userID, ErrUnknownUser)
		}
		return PullBatch{}, fmt.Errorf("load user %q: %w", userID, err)
	}

	batch := PullBatch{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Requested:   requested,
		Granted:     requested,
		CarryOver:   user.CarryOver,
	}

	// currency only moves when this event contributed some
	if carryOver > 0 {
		bonus, leftover := e.purse.Convert(user.CarryOver + carryOver)
		if err := e.store.SetCarryOver(ctx, user.ID, leftover); err != nil {
			return PullBatch{}, fmt.Errorf("bank carry-over for %q: %w", userID, err)
		}
		batch.Granted += bonus
		batch.CarryOver = leftover
		if bonus > 0 {
			log.WithFields(logrus.Fields{"bonus": bonus, "leftover": leftover}).Debug("currency converted to bonus pulls")
		}
	}

	set, entries, err := e.resolveSet(ctx, user)
	if err != nil {
		return batch, err
	}
	batch.Set = set
	log = log.WithField("set", set)

	state, err := e.store.ProgressionState(ctx, user.ID, set)
	if err != nil {
		return batch, fmt.Errorf("load progression for %q in %q: %w", userID, set, err)
	}
	levels := make(map[int64]int, len(state.Levels))
	for id, lvl := range state.Levels {
		levels[id] = lvl
	}

	pool := make(gacha.Pool)
	byID := make(map[int64]CatalogEntry, len(entries))
	for _, entry := range entries {
		pool[entry.Rarity] = append(pool[entry.Rarity], entry.ID)
		byID[entry.ID] = entry
	}

	// set level drives the shiny trial count and is fixed for the whole batch
	setLevel := state.SetLevel()
	// recomputed from current levels: an entry added after completion reopens the set
	completed := allPulled(entries, levels)
	if state.Completed && !completed {
		log.Debug("set reopened by new entries")
	}
	levelOf := func(id int64) int { return levels[id] }

	for i := 0; i < batch.Granted; i++ {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		res, ok := e.rules.Resolve(pool, levelOf, setLevel, completed, e.rng)
		if !ok {
			log.WithFields(logrus.Fields{"tier": res.Tier, "pull": i + 1, "repulled": res.Repulled}).
				Warn("no enabled entries for drawn rarity, skipping pull")
			continue
		}
		entry := byID[res.EntryID]
		if res.Repulled {
			log.WithFields(logrus.Fields{"entry": entry.Name, "level": res.Level}).Debug("pity repull")
		}
		shiny := res.Shiny && entry.HasShiny()
		if res.Shiny && !shiny {
			log.WithField("entry", entry.Name).Debug("shiny rolled but entry has no shiny art")
		}

		level, err := e.store.IncrementPullCount(ctx, user.ID, entry.ID, shiny)
		if err != nil {
			return batch, fmt.Errorf("record pull of %q for %q: %w", entry.Name, userID, err)
		}
		levels[entry.ID] = level

		if !completed && allPulled(entries, levels) {
			completed = true
			if err := e.store.MarkSetCompleted(ctx, user.ID, set); err != nil {
				log.WithError(err).Error("could not record set completion")
			} else {
				log.Info("set completed")
			}
		}

		batch.Outcomes = append(batch.Outcomes, PullOutcome{
			Rarity:    entry.Rarity,
			EntryID:   entry.ID,
			Name:      entry.Name,
			Set:       set,
			Shiny:     shiny,
			Level:     level,
			AssetPath: entry.Asset(shiny),
			Repulled:  res.Repulled,
		})
	}

	log.WithFields(logrus.Fields{"granted": batch.Granted, "resolved": len(batch.Outcomes)}).Info("batch rolled")
	return batch, nil
}

// resolveSet walks preferred set -> fallback set -> every enabled set and returns the first
// one with enabled entries. A different pick is persisted as the user's active set.
func (e *Engine) resolveSet(ctx context.Context, user User) (string, []CatalogEntry, error) {
	preferred := normalizeSet(user.ActiveSet)
	if preferred == "" {
		preferred = e.fallback
	}
	candidates := []string{preferred, e.fallback}
	sets, err := e.store.EnabledSets(ctx)
	if err != nil {
		e.log.WithError(err).Warn("could not list enabled sets")
	}
	candidates = append(candidates, sets...)

	seen := make(map[string]bool, len(candidates))
	for _, raw := range candidates {
		set := normalizeSet(raw)
		if set == "" || seen[set] {
			continue
		}
		seen[set] = true

		entries, err := e.store.CatalogEntries(ctx, set)
		if err != nil {
			e.log.WithError(err).WithField("set", set).Warn("could not load catalog")
			continue
		}
		enabled := enabledOnly(entries)
		if len(enabled) == 0 {
			continue
		}
		if set != preferred || set != user.ActiveSet {
			e.log.WithFields(logrus.Fields{"user": user.ID, "from": user.ActiveSet, "to": set}).Warn("active set unavailable, falling back")
			if err := e.store.SetActiveSet(ctx, user.ID, set); err != nil {
				e.log.WithError(err).WithField("user", user.ID).Warn("could not persist fallback set")
			}
		}
		return set, enabled, nil
	}
	return "", nil, fmt.Errorf("roll for %q: %w", user.ID, ErrNoCatalog)
}

// ChangeActiveSet points the user at another enabled set.
func (e *Engine) ChangeActiveSet(ctx context.Context, userID, set string) error {
	set = normalizeSet(set)
	if _, err := e.store.GetUser(ctx, userID); err != nil {
		return fmt.Errorf("change set for %q: %w", userID, err)
	}
	entries, err := e.store.CatalogEntries(ctx, set)
	if err != nil {
		return fmt.Errorf("load catalog %q: %w", set, err)
	}
	if len(enabledOnly(entries)) == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownSet, set)
	}
	return e.store.SetActiveSet(ctx, userID, set)
}

func normalizeSet(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func enabledOnly(entries []CatalogEntry) []CatalogEntry {
	out := make([]CatalogEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Enabled {
			out = append(out, entry)
		}
	}
	return out
}

// allPulled reports set completion: every enabled entry pulled at least once.
func allPulled(entries []CatalogEntry, levels map[int64]int) bool {
	if len(entries) == 0 {
		return false
	}
	for _, entry := range entries {
		if levels[entry.ID] <= 0 {
			return false
		}
	}
	return true
}

package progression_test

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/xtding233/gacha-stage/internal/gacha"
	"github.com/xtding233/gacha-stage/internal/progression"
	"github.com/xtding233/gacha-stage/internal/store"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// seedStore builds a store with one entry per tier in "starter" and a fresh user.
func seedStore(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemory()
	for _, tier := range gacha.Tiers {
		if _, err := s.AddEntry(ctx, progression.CatalogEntry{
			Name:    "card-" + string(tier),
			Set:     "starter",
			Rarity:  tier,
			Enabled: true,
		}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.CreateUser(ctx, progression.User{ID: "u1", ActiveSet: "starter"}); err != nil {
		t.Fatal(err)
	}
	return s
}

func newEngine(s progression.Store, seed uint64, opts ...progression.Option) *progression.Engine {
	opts = append([]progression.Option{
		progression.WithRandom(gacha.NewSeededRNG(seed)),
		progression.WithLogger(quietLogger()),
	}, opts...)
	return progression.NewEngine(s, opts...)
}

func TestRollBatchUnknownUser(t *testing.T) {
	s := seedStore(t)
	eng := newEngine(s, 1)
	_, err := eng.RollBatch(context.Background(), "nobody", 3, 300)
	if !errors.Is(err, progression.ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
	entries, _ := s.CatalogEntries(context.Background(), "starter")
	for _, e := range entries {
		if e.Pulled != 0 {
			t.Fatalf("unknown user must not write pulls, %s pulled=%d", e.Name, e.Pulled)
		}
	}
}

func TestRollBatchRejectsNegative(t *testing.T) {
	eng := newEngine(seedStore(t), 1)
	if _, err := eng.RollBatch(context.Background(), "u1", -1, 0); !errors.Is(err, progression.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestRollBatchSinglePullNoCurrency(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		eng := newEngine(seedStore(t), seed)
		batch, err := eng.RollBatch(context.Background(), "u1", 1, 0)
		if err != nil {
			t.Fatal(err)
		}
		if batch.Granted != 1 || len(batch.Outcomes) != 1 {
			t.Fatalf("seed %d: granted=%d outcomes=%d, want 1/1", seed, batch.Granted, len(batch.Outcomes))
		}
	}
}

func TestRollBatchCurrencyBonus(t *testing.T) {
	s := seedStore(t)
	eng := newEngine(s, 5)
	batch, err := eng.RollBatch(context.Background(), "u1", 1, 500)
	if err != nil {
		t.Fatal(err)
	}
	if batch.Granted != 2 {
		t.Fatalf("500 units should buy exactly one bonus pull, granted=%d", batch.Granted)
	}
	if batch.CarryOver != 0 {
		t.Fatalf("expected 0 leftover, got %d", batch.CarryOver)
	}
	u, _ := s.GetUser(context.Background(), "u1")
	if u.CarryOver != 0 {
		t.Fatalf("stored carry-over should be 0, got %d", u.CarryOver)
	}

	// 300 banked + 300 more crosses the threshold once and banks 100
	if err := s.SetCarryOver(context.Background(), "u1", 300); err != nil {
		t.Fatal(err)
	}
	batch, err = eng.RollBatch(context.Background(), "u1", 0, 300)
	if err != nil {
		t.Fatal(err)
	}
	if batch.Granted != 1 || batch.CarryOver != 100 {
		t.Fatalf("granted=%d carry=%d, want 1/100", batch.Granted, batch.CarryOver)
	}
}

func TestRollBatchFreshUserThreePulls(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		eng := newEngine(seedStore(t), seed)
		batch, err := eng.RollBatch(context.Background(), "u1", 3, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(batch.Outcomes) != 3 {
			t.Fatalf("seed %d: expected 3 outcomes, got %d", seed, len(batch.Outcomes))
		}
		seen := make(map[int64]int)
		for _, o := range batch.Outcomes {
			seen[o.EntryID]++
			// the level is the running pull count of that entry inside this batch
			if o.Level != seen[o.EntryID] {
				t.Fatalf("seed %d: entry %d level=%d want %d", seed, o.EntryID, o.Level, seen[o.EntryID])
			}
		}
	}
}

func TestRollBatchDeterministic(t *testing.T) {
	run := func() []progression.PullOutcome {
		eng := newEngine(seedStore(t), 77)
		batch, err := eng.RollBatch(context.Background(), "u1", 25, 0)
		if err != nil {
			t.Fatal(err)
		}
		return batch.Outcomes
	}
	a, b := run(), run()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed and state must give the same outcomes")
	}
}

func TestRollBatchSkipsEmptyTier(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	if _, err := s.AddEntry(ctx, progression.CatalogEntry{Name: "slime", Set: "starter", Rarity: gacha.TierN, Enabled: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateUser(ctx, progression.User{ID: "u1", ActiveSet: "starter"}); err != nil {
		t.Fatal(err)
	}
	batch, err := newEngine(s, 9).RollBatch(ctx, "u1", 30, 0)
	if err != nil {
		t.Fatal(err)
	}
	if batch.Granted != 30 {
		t.Fatalf("granted=%d want 30", batch.Granted)
	}
	if batch.Skipped() == 0 {
		t.Fatalf("expected some pulls to land on empty tiers")
	}
	for _, o := range batch.Outcomes {
		if o.Rarity != gacha.TierN {
			t.Fatalf("unexpected rarity %s", o.Rarity)
		}
	}
}

func TestRollBatchFallsBackToDefaultSet(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	if _, err := s.AddEntry(ctx, progression.CatalogEntry{Name: "slime", Set: progression.DefaultFallbackSet, Rarity: gacha.TierN, Enabled: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddEntry(ctx, progression.CatalogEntry{Name: "ghost", Set: "retired", Rarity: gacha.TierN, Enabled: false}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateUser(ctx, progression.User{ID: "u1", ActiveSet: "retired"}); err != nil {
		t.Fatal(err)
	}
	batch, err := newEngine(s, 3).RollBatch(ctx, "u1", 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if batch.Set != progression.DefaultFallbackSet {
		t.Fatalf("expected fallback set, got %q", batch.Set)
	}
	u, _ := s.GetUser(ctx, "u1")
	if u.ActiveSet != progression.DefaultFallbackSet {
		t.Fatalf("fallback must be persisted, active set is %q", u.ActiveSet)
	}
}

func TestRollBatchNoCatalog(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	if err := s.CreateUser(ctx, progression.User{ID: "u1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := newEngine(s, 1).RollBatch(ctx, "u1", 1, 0); !errors.Is(err, progression.ErrNoCatalog) {
		t.Fatalf("expected ErrNoCatalog, got %v", err)
	}
}

func TestRollBatchShinyNeedsArt(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	plain, _ := s.AddEntry(ctx, progression.CatalogEntry{Name: "plain", Set: "starter", Rarity: gacha.TierN, ImagePath: "plain.png", Enabled: true})
	sparkly, _ := s.AddEntry(ctx, progression.CatalogEntry{Name: "sparkly", Set: "starter", Rarity: gacha.TierN, ImagePath: "s.png", ShinyImagePath: "s_shiny.png", Enabled: true})
	if err := s.CreateUser(ctx, progression.User{ID: "u1", ActiveSet: "starter"}); err != nil {
		t.Fatal(err)
	}
	rules := gacha.DefaultRules()
	rules.Shiny.Odds = 1 // every trial succeeds
	rules.Rarity, _ = gacha.NewRarityTable(gacha.Weights{})
	batch, err := newEngine(s, 4, progression.WithRules(rules)).RollBatch(ctx, "u1", 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range batch.Outcomes {
		switch o.EntryID {
		case plain.ID:
			if o.Shiny || o.AssetPath != "plain.png" {
				t.Fatalf("entry without shiny art came out shiny: %+v", o)
			}
		case sparkly.ID:
			if !o.Shiny || o.AssetPath != "s_shiny.png" {
				t.Fatalf("expected shiny art: %+v", o)
			}
		}
	}
}

func TestRollBatchMarksCompletion(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	s.AddEntry(ctx, progression.CatalogEntry{Name: "only", Set: "tiny", Rarity: gacha.TierN, Enabled: true})
	s.CreateUser(ctx, progression.User{ID: "u1", ActiveSet: "tiny"})
	rules := gacha.DefaultRules()
	rules.Rarity, _ = gacha.NewRarityTable(gacha.Weights{})
	if _, err := newEngine(s, 1, progression.WithRules(rules)).RollBatch(ctx, "u1", 1, 0); err != nil {
		t.Fatal(err)
	}
	st, _ := s.ProgressionState(ctx, "u1", "tiny")
	if !st.Completed {
		t.Fatalf("pulling the only entry completes the set")
	}
}

func TestRollBatchNewEntryReopensCompletedSet(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	s.AddEntry(ctx, progression.CatalogEntry{Name: "first", Set: "tiny", Rarity: gacha.TierN, Enabled: true})
	s.CreateUser(ctx, progression.User{ID: "u1", ActiveSet: "tiny"})
	rules := gacha.DefaultRules()
	rules.Rarity, _ = gacha.NewRarityTable(gacha.Weights{})
	// only the completion bonus can trigger a repull, and it always does
	rules.Pity = gacha.PityRule{Ceiling: 0, MaxLevel: 99, CompletionBonus: 1}
	rules.Shiny.Odds = 0
	eng := newEngine(s, 1, progression.WithRules(rules))

	if _, err := eng.RollBatch(ctx, "u1", 1, 0); err != nil {
		t.Fatal(err)
	}
	batch, err := eng.RollBatch(ctx, "u1", 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !batch.Outcomes[0].Repulled {
		t.Fatalf("completed set should get the completion bonus")
	}

	second, _ := s.AddEntry(ctx, progression.CatalogEntry{Name: "second", Set: "tiny", Rarity: gacha.TierN, Enabled: true})
	for seed := uint64(0); seed < 10; seed++ {
		eng := newEngine(s, seed, progression.WithRules(rules))
		st, _ := s.ProgressionState(ctx, "u1", "tiny")
		if st.Level(second.ID) > 0 {
			break
		}
		batch, err := eng.RollBatch(ctx, "u1", 1, 0)
		if err != nil {
			t.Fatal(err)
		}
		if batch.Outcomes[0].Repulled {
			t.Fatalf("seed %d: set with an unpulled entry must not get the completion bonus", seed)
		}
	}
}

func TestChangeActiveSet(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)
	s.AddEntry(ctx, progression.CatalogEntry{Name: "off", Set: "disabled", Rarity: gacha.TierN})
	eng := newEngine(s, 1)
	if err := eng.ChangeActiveSet(ctx, "u1", "Disabled"); !errors.Is(err, progression.ErrUnknownSet) {
		t.Fatalf("expected ErrUnknownSet, got %v", err)
	}
	if err := eng.ChangeActiveSet(ctx, "u1", "nope"); !errors.Is(err, progression.ErrUnknownSet) {
		t.Fatalf("expected ErrUnknownSet, got %v", err)
	}
	if err := eng.ChangeActiveSet(ctx, "ghost", "starter"); !errors.Is(err, progression.ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
	if err := eng.ChangeActiveSet(ctx, "u1", " STARTER "); err != nil {
		t.Fatal(err)
	}
}

func TestBatchGroups(t *testing.T) {
	b := progression.PullBatch{Outcomes: make([]progression.PullOutcome, 7)}
	groups := b.Groups(5)
	if len(groups) != 2 || len(groups[0]) != 5 || len(groups[1]) != 2 {
		t.Fatalf("unexpected grouping: %d groups", len(groups))
	}
}

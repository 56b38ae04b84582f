package tuning

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/gacha-stage/internal/gacha"
	"github.com/xtding233/gacha-stage/internal/progression"
	"github.com/xtding233/gacha-stage/internal/stage"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestMissingDirGivesDefaults(t *testing.T) {
	_, p, err := NewLoader(filepath.Join(t.TempDir(), "nope")).Resolve("")
	require.NoError(t, err)
	assert.Equal(t, gacha.DefaultRules(), p.Rules)
	assert.Equal(t, progression.DefaultFallbackSet, p.Fallback)
	assert.Equal(t, 500, p.Purse.UnitsPerPull)
	assert.Equal(t, "Gacha", p.Stage.Scene)
	assert.Equal(t, 99, p.Stage.MaxLevel)
}

func TestProfileOverlaysDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "default.yaml"), `
version: "1"
rarity: {ur: 1.0, ssr: 2.0}
pity: {ceiling: 0.5}
sets: {fallback: starter}
stage:
  scene: Main
  stagger: 200ms
`)
	writeFile(t, filepath.Join(dir, "profiles", "event.yaml"), `
version: "1-event"
rarity: {ur: 2.5}
shiny: {odds: 4096}
stage:
  batch_hold: 1s
`)
	l := NewLoader(dir)

	raw, p, err := l.Resolve("event")
	require.NoError(t, err)
	assert.Equal(t, "1-event", raw.Version)
	assert.Equal(t, 2.5, p.Rules.Rarity.Weight(gacha.TierUR))
	assert.Equal(t, 2.0, p.Rules.Rarity.Weight(gacha.TierSSR), "inherited from default")
	assert.Equal(t, 0.5, p.Rules.Pity.Ceiling)
	assert.Equal(t, 4096, p.Rules.Shiny.Odds)
	assert.Equal(t, "starter", p.Fallback)
	assert.Equal(t, "Main", p.Stage.Scene)
	assert.Equal(t, 200*time.Millisecond, p.Stage.Stagger)
	assert.Equal(t, time.Second, p.Stage.BatchHold)

	_, base, err := l.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, 1.0, base.Rules.Rarity.Weight(gacha.TierUR))
	assert.Equal(t, stage.DefaultConfig().BatchHold, base.Stage.BatchHold)
}

func TestValidationCollectsEveryError(t *testing.T) {
	neg, big, zero := -1.0, 2.0, 0
	bad := "wobble"
	err := ValidateRaw(RawConfig{
		Rarity:   RarityCfg{UR: &neg},
		Pity:     PityCfg{Ceiling: &big},
		Currency: CurrencyCfg{UnitsPerPull: &zero},
		Stage:    &StageCfg{RiseEasing: &bad, FadeSteps: &zero},
	})
	require.Error(t, err)
	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "config validation failed: "))
	for _, want := range []string{"rarity.ur", "pity.ceiling", "currency.units_per_pull", "stage.rise_easing", "stage.fade_steps"} {
		assert.Contains(t, msg, want)
	}
}

func TestWeightsOverHundredRejected(t *testing.T) {
	a, b := 60.0, 50.0
	_, err := Resolve(RawConfig{Rarity: RarityCfg{SR: &a, R: &b}})
	assert.ErrorContains(t, err, "sum to at most 100")
}

func TestInvalidateRereads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "default.yaml")
	writeFile(t, path, "pity: {ceiling: 0.3}\n")
	l := NewLoader(dir)
	_, p, err := l.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, 0.3, p.Rules.Pity.Ceiling)

	writeFile(t, path, "pity: {ceiling: 0.6}\n")
	_, p, _ = l.Resolve("")
	assert.Equal(t, 0.3, p.Rules.Pity.Ceiling, "cached until invalidated")
	l.Invalidate()
	_, p, _ = l.Resolve("")
	assert.Equal(t, 0.6, p.Rules.Pity.Ceiling)
}

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "default.yaml")
	writeFile(t, path, "version: a\n")

	var mu sync.Mutex
	var changed []string
	w := NewFileWatcher([]string{path}, 10*time.Millisecond, func(p string) {
		mu.Lock()
		changed = append(changed, p)
		mu.Unlock()
	})
	w.scanAll(true)
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	w.scanAll(false)
	w.scanAll(false)

	// Run primes without firing and returns once ctx is done
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{path}, changed)
}

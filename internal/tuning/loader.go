package tuning

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Paths locates the tuning files under a base directory.
type Paths struct {
	BaseDir string
}

func (p Paths) DefaultPath() string {
	return filepath.Join(p.BaseDir, "default.yaml")
}

func (p Paths) ProfilePath(profile string) string {
	return filepath.Join(p.BaseDir, "profiles", profile+".yaml")
}

// Watched lists every file that feeds the given profile.
func (p Paths) Watched(profile string) []string {
	out := []string{p.DefaultPath()}
	if profile != "" {
		out = append(out, p.ProfilePath(profile))
	}
	return out
}

// Loader reads tuning files and overlays default -> profile. Results are cached per
// profile until Invalidate.
type Loader struct {
	paths Paths

	mu    sync.RWMutex
	cache map[string]RawConfig
}

func NewLoader(baseDir string) *Loader {
	return &Loader{
		paths: Paths{BaseDir: baseDir},
		cache: make(map[string]RawConfig),
	}
}

func (l *Loader) Paths() Paths { return l.paths }

// LoadMerged returns the merged config for profile ("" for default only). Missing files
// count as empty, so an absent directory yields built-in defaults.
func (l *Loader) LoadMerged(profile string) (RawConfig, error) {
	l.mu.RLock()
	cfg, ok := l.cache[profile]
	l.mu.RUnlock()
	if ok {
		return cfg, nil
	}

	def, err := readYAML(l.paths.DefaultPath())
	if err != nil {
		return RawConfig{}, fmt.Errorf("read default: %w", err)
	}
	merged := def
	if profile != "" {
		over, err := readYAML(l.paths.ProfilePath(profile))
		if err != nil {
			return RawConfig{}, fmt.Errorf("read profile %q: %w", profile, err)
		}
		merged = mergeRaw(def, over)
	}

	l.mu.Lock()
	l.cache[profile] = merged
	l.mu.Unlock()
	return merged, nil
}

// Resolve loads, validates and resolves profile into runtime parameters.
func (l *Loader) Resolve(profile string) (RawConfig, Params, error) {
	raw, err := l.LoadMerged(profile)
	if err != nil {
		return RawConfig{}, Params{}, err
	}
	p, err := Resolve(raw)
	if err != nil {
		return raw, Params{}, err
	}
	return raw, p, nil
}

// Invalidate clears the cache. Call after the watcher reports a change.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]RawConfig)
}

func readYAML(path string) (RawConfig, error) {
	var cfg RawConfig
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawConfig{}, nil
		}
		return RawConfig{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RawConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func pick[T any](a, b *T) *T {
	if b != nil {
		return b
	}
	return a
}

// mergeRaw overlays b onto a; any field b sets wins.
func mergeRaw(a, b RawConfig) RawConfig {
	out := a
	if b.Version != "" {
		out.Version = b.Version
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}

	out.Rarity = RarityCfg{
		UR:  pick(a.Rarity.UR, b.Rarity.UR),
		SSR: pick(a.Rarity.SSR, b.Rarity.SSR),
		SR:  pick(a.Rarity.SR, b.Rarity.SR),
		R:   pick(a.Rarity.R, b.Rarity.R),
	}
	out.Pity = PityCfg{
		Ceiling:         pick(a.Pity.Ceiling, b.Pity.Ceiling),
		MaxLevel:        pick(a.Pity.MaxLevel, b.Pity.MaxLevel),
		CompletionBonus: pick(a.Pity.CompletionBonus, b.Pity.CompletionBonus),
	}
	out.Shiny = ShinyCfg{
		Odds:            pick(a.Shiny.Odds, b.Shiny.Odds),
		LevelsPerTrial:  pick(a.Shiny.LevelsPerTrial, b.Shiny.LevelsPerTrial),
		MaxLevelBonus:   pick(a.Shiny.MaxLevelBonus, b.Shiny.MaxLevelBonus),
		CompletionBonus: pick(a.Shiny.CompletionBonus, b.Shiny.CompletionBonus),
	}
	out.Currency = CurrencyCfg{
		Name:         pick(a.Currency.Name, b.Currency.Name),
		UnitsPerPull: pick(a.Currency.UnitsPerPull, b.Currency.UnitsPerPull),
		CarryCap:     pick(a.Currency.CarryCap, b.Currency.CarryCap),
	}
	out.Sets.Fallback = pick(a.Sets.Fallback, b.Sets.Fallback)

	switch {
	case a.Stage == nil && b.Stage != nil:
		c := *b.Stage
		out.Stage = &c
	case a.Stage != nil && b.Stage != nil:
		out.Stage = mergeStage(*a.Stage, *b.Stage)
	}
	return out
}

func mergeStage(a, b StageCfg) *StageCfg {
	return &StageCfg{
		Scene:          pick(a.Scene, b.Scene),
		Anchor:         pick(a.Anchor, b.Anchor),
		Filter:         pick(a.Filter, b.Filter),
		RiseEasing:     pick(a.RiseEasing, b.RiseEasing),
		FadeEasing:     pick(a.FadeEasing, b.FadeEasing),
		Stagger:        pick(a.Stagger, b.Stagger),
		RiseSteps:      pick(a.RiseSteps, b.RiseSteps),
		RiseFrame:      pick(a.RiseFrame, b.RiseFrame),
		SilhouetteHold: pick(a.SilhouetteHold, b.SilhouetteHold),
		LevelHold:      pick(a.LevelHold, b.LevelHold),
		PopScale:       pick(a.PopScale, b.PopScale),
		PopSteps:       pick(a.PopSteps, b.PopSteps),
		PopFrame:       pick(a.PopFrame, b.PopFrame),
		BatchHold:      pick(a.BatchHold, b.BatchHold),
		FadeSteps:      pick(a.FadeSteps, b.FadeSteps),
		FadeFrame:      pick(a.FadeFrame, b.FadeFrame),
		CardSize:       pick(a.CardSize, b.CardSize),
		Spacing:        pick(a.Spacing, b.Spacing),
		MinScale:       pick(a.MinScale, b.MinScale),
		MaxScale:       pick(a.MaxScale, b.MaxScale),
		Font:           pick(a.Font, b.Font),
		NameSize:       pick(a.NameSize, b.NameSize),
		BadgeSize:      pick(a.BadgeSize, b.BadgeSize),
		LegacyGroup:    pick(a.LegacyGroup, b.LegacyGroup),
		LegacyDelay:    pick(a.LegacyDelay, b.LegacyDelay),
	}
}

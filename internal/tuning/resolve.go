package tuning

import (
	"github.com/xtding233/gacha-stage/internal/gacha"
	"github.com/xtding233/gacha-stage/internal/progression"
	"github.com/xtding233/gacha-stage/internal/stage"
	"github.com/xtding233/gacha-stage/internal/token"
)

// Params is a resolved tuning profile, ready to hand to the engine and the stage.
type Params struct {
	Rules    gacha.Rules
	Purse    token.Purse
	Fallback string
	Stage    stage.Config
	Version  string // effective config version for tracing
}

// Resolver yields merged and resolved tuning for a profile.
type Resolver interface {
	Resolve(profile string) (RawConfig, Params, error)
}

var _ Resolver = (*Loader)(nil)

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Resolve validates raw and lays it over the built-in defaults.
func Resolve(raw RawConfig) (Params, error) {
	if err := ValidateRaw(raw); err != nil {
		return Params{}, err
	}

	w := gacha.DefaultWeights()
	set(&w.UR, raw.Rarity.UR)
	set(&w.SSR, raw.Rarity.SSR)
	set(&w.SR, raw.Rarity.SR)
	set(&w.R, raw.Rarity.R)
	table, err := gacha.NewRarityTable(w)
	if err != nil {
		return Params{}, err
	}

	rules := gacha.DefaultRules()
	rules.Rarity = table
	set(&rules.Pity.Ceiling, raw.Pity.Ceiling)
	set(&rules.Pity.MaxLevel, raw.Pity.MaxLevel)
	set(&rules.Pity.CompletionBonus, raw.Pity.CompletionBonus)
	set(&rules.Shiny.Odds, raw.Shiny.Odds)
	set(&rules.Shiny.LevelsPerTrial, raw.Shiny.LevelsPerTrial)
	set(&rules.Shiny.MaxLevelBonus, raw.Shiny.MaxLevelBonus)
	set(&rules.Shiny.CompletionBonus, raw.Shiny.CompletionBonus)
	// both rules saturate at the same level ceiling
	rules.Shiny.MaxLevel = rules.Pity.MaxLevel

	purse := token.DefaultPurse()
	set(&purse.Name, raw.Currency.Name)
	set(&purse.UnitsPerPull, raw.Currency.UnitsPerPull)
	set(&purse.CarryCap, raw.Currency.CarryCap)

	fallback := progression.DefaultFallbackSet
	set(&fallback, raw.Sets.Fallback)

	sc := stage.DefaultConfig()
	sc.MaxLevel = rules.Pity.MaxLevel
	if s := raw.Stage; s != nil {
		set(&sc.Scene, s.Scene)
		set(&sc.Anchor, s.Anchor)
		set(&sc.Filter, s.Filter)
		if s.RiseEasing != nil {
			sc.RiseEasing, _ = stage.ParseEasing(*s.RiseEasing)
		}
		if s.FadeEasing != nil {
			sc.FadeEasing, _ = stage.ParseEasing(*s.FadeEasing)
		}
		set(&sc.Stagger, s.Stagger)
		set(&sc.RiseSteps, s.RiseSteps)
		set(&sc.RiseFrame, s.RiseFrame)
		set(&sc.SilhouetteHold, s.SilhouetteHold)
		set(&sc.LevelHold, s.LevelHold)
		set(&sc.PopScale, s.PopScale)
		set(&sc.PopSteps, s.PopSteps)
		set(&sc.PopFrame, s.PopFrame)
		set(&sc.BatchHold, s.BatchHold)
		set(&sc.FadeSteps, s.FadeSteps)
		set(&sc.FadeFrame, s.FadeFrame)
		set(&sc.Layout.CardSize, s.CardSize)
		set(&sc.Layout.Spacing, s.Spacing)
		set(&sc.Layout.MinScale, s.MinScale)
		set(&sc.Layout.MaxScale, s.MaxScale)
		set(&sc.Font, s.Font)
		set(&sc.NameSize, s.NameSize)
		set(&sc.BadgeSize, s.BadgeSize)
		set(&sc.LegacyGroup, s.LegacyGroup)
		set(&sc.LegacyDelay, s.LegacyDelay)
	}
	if sc.Layout.MaxScale < sc.Layout.MinScale {
		sc.Layout.MaxScale = sc.Layout.MinScale
	}

	return Params{
		Rules:    rules,
		Purse:    purse,
		Fallback: fallback,
		Stage:    sc,
		Version:  raw.Version,
	}, nil
}

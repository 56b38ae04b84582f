package tuning

import (
	"fmt"
	"strings"
	"time"

	"github.com/xtding233/gacha-stage/internal/stage"
)

// ValidateRaw checks every semantic constraint and reports all violations at once.
func ValidateRaw(cfg RawConfig) error {
	var errs []string

	// rarity
	sum := 0.0
	for name, w := range map[string]*float64{"ur": cfg.Rarity.UR, "ssr": cfg.Rarity.SSR, "sr": cfg.Rarity.SR, "r": cfg.Rarity.R} {
		if w == nil {
			continue
		}
		if *w < 0 || *w > 100 {
			errs = append(errs, fmt.Sprintf("rarity.%s must be in [0,100]", name))
		}
		sum += *w
	}
	if sum > 100 {
		errs = append(errs, "rarity weights must sum to at most 100")
	}

	// pity
	if c := cfg.Pity.Ceiling; c != nil && (*c < 0 || *c > 1) {
		errs = append(errs, "pity.ceiling must be in [0,1]")
	}
	if m := cfg.Pity.MaxLevel; m != nil && *m < 2 {
		errs = append(errs, "pity.max_level must be >= 2")
	}
	if b := cfg.Pity.CompletionBonus; b != nil && (*b < 0 || *b > 1) {
		errs = append(errs, "pity.completion_bonus must be in [0,1]")
	}

	// shiny
	if o := cfg.Shiny.Odds; o != nil && *o < 0 {
		errs = append(errs, "shiny.odds must be >= 0 (0 disables shinies)")
	}
	if l := cfg.Shiny.LevelsPerTrial; l != nil && *l < 1 {
		errs = append(errs, "shiny.levels_per_trial must be >= 1")
	}
	if b := cfg.Shiny.MaxLevelBonus; b != nil && *b < 0 {
		errs = append(errs, "shiny.max_level_bonus must be >= 0")
	}
	if b := cfg.Shiny.CompletionBonus; b != nil && *b < 0 {
		errs = append(errs, "shiny.completion_bonus must be >= 0")
	}

	// currency
	if u := cfg.Currency.UnitsPerPull; u != nil && *u <= 0 {
		errs = append(errs, "currency.units_per_pull must be > 0")
	}
	if c := cfg.Currency.CarryCap; c != nil && *c < 0 {
		errs = append(errs, "currency.carry_cap must be >= 0 (0 means uncapped)")
	}

	if f := cfg.Sets.Fallback; f != nil && strings.TrimSpace(*f) == "" {
		errs = append(errs, "sets.fallback must not be empty")
	}

	if cfg.Stage != nil {
		errs = append(errs, validateStage(*cfg.Stage)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateStage(s StageCfg) []string {
	var errs []string
	for name, v := range map[string]*string{"scene": s.Scene, "anchor": s.Anchor, "filter": s.Filter} {
		if v != nil && strings.TrimSpace(*v) == "" {
			errs = append(errs, fmt.Sprintf("stage.%s must not be empty", name))
		}
	}
	for name, v := range map[string]*string{"rise_easing": s.RiseEasing, "fade_easing": s.FadeEasing} {
		if v == nil {
			continue
		}
		if _, err := stage.ParseEasing(*v); err != nil {
			errs = append(errs, fmt.Sprintf("stage.%s: %v", name, err))
		}
	}
	for name, v := range map[string]*int{"rise_steps": s.RiseSteps, "pop_steps": s.PopSteps, "fade_steps": s.FadeSteps} {
		if v != nil && *v < 1 {
			errs = append(errs, fmt.Sprintf("stage.%s must be >= 1", name))
		}
	}
	for name, v := range map[string]*time.Duration{
		"stagger": s.Stagger, "rise_frame": s.RiseFrame, "level_hold": s.LevelHold, "pop_frame": s.PopFrame,
		"batch_hold": s.BatchHold, "fade_frame": s.FadeFrame, "legacy_delay": s.LegacyDelay,
	} {
		if v != nil && *v < 0 {
			errs = append(errs, fmt.Sprintf("stage.%s must be >= 0", name))
		}
	}
	if h := s.SilhouetteHold; h != nil && (*h < 0 || *h >= 1) {
		errs = append(errs, "stage.silhouette_hold must be in [0,1)")
	}
	if p := s.PopScale; p != nil && *p < 1 {
		errs = append(errs, "stage.pop_scale must be >= 1")
	}
	if c := s.CardSize; c != nil && *c <= 0 {
		errs = append(errs, "stage.card_size must be > 0")
	}
	if sp := s.Spacing; sp != nil && *sp < 0 {
		errs = append(errs, "stage.spacing must be >= 0")
	}
	if s.MinScale != nil && *s.MinScale <= 0 {
		errs = append(errs, "stage.min_scale must be > 0")
	}
	if s.MinScale != nil && s.MaxScale != nil && *s.MaxScale < *s.MinScale {
		errs = append(errs, "stage.max_scale must be >= min_scale")
	}
	if g := s.LegacyGroup; g != nil && *g < 1 {
		errs = append(errs, "stage.legacy_group must be >= 1")
	}
	for name, v := range map[string]*int{"name_size": s.NameSize, "badge_size": s.BadgeSize} {
		if v != nil && *v <= 0 {
			errs = append(errs, fmt.Sprintf("stage.%s must be > 0", name))
		}
	}
	return errs
}

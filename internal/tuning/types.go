package tuning

import "time"

// RawConfig is one tuning file as written. Every field is a pointer so an overlay only
// replaces what it sets.
type RawConfig struct {
	Version  string      `yaml:"version"`
	Notes    string      `yaml:"notes,omitempty"`
	Rarity   RarityCfg   `yaml:"rarity"`
	Pity     PityCfg     `yaml:"pity"`
	Shiny    ShinyCfg    `yaml:"shiny"`
	Currency CurrencyCfg `yaml:"currency"`
	Sets     SetsCfg     `yaml:"sets"`
	Stage    *StageCfg   `yaml:"stage,omitempty"`
}

// RarityCfg holds percentage weights; N takes the remainder.
type RarityCfg struct {
	UR  *float64 `yaml:"ur"`
	SSR *float64 `yaml:"ssr"`
	SR  *float64 `yaml:"sr"`
	R   *float64 `yaml:"r"`
}

type PityCfg struct {
	Ceiling         *float64 `yaml:"ceiling"`
	MaxLevel        *int     `yaml:"max_level"`
	CompletionBonus *float64 `yaml:"completion_bonus"`
}

type ShinyCfg struct {
	Odds            *int `yaml:"odds"` // 1 in odds per trial
	LevelsPerTrial  *int `yaml:"levels_per_trial"`
	MaxLevelBonus   *int `yaml:"max_level_bonus"`
	CompletionBonus *int `yaml:"completion_bonus"`
}

type CurrencyCfg struct {
	Name         *string `yaml:"name"`
	UnitsPerPull *int    `yaml:"units_per_pull"`
	CarryCap     *int    `yaml:"carry_cap"`
}

type SetsCfg struct {
	Fallback *string `yaml:"fallback"`
}

type StageCfg struct {
	Scene      *string `yaml:"scene"`
	Anchor     *string `yaml:"anchor"`
	Filter     *string `yaml:"filter"`
	RiseEasing *string `yaml:"rise_easing"`
	FadeEasing *string `yaml:"fade_easing"`

	Stagger        *time.Duration `yaml:"stagger"`
	RiseSteps      *int           `yaml:"rise_steps"`
	RiseFrame      *time.Duration `yaml:"rise_frame"`
	SilhouetteHold *float64       `yaml:"silhouette_hold"`
	LevelHold      *time.Duration `yaml:"level_hold"`
	PopScale       *float64       `yaml:"pop_scale"`
	PopSteps       *int           `yaml:"pop_steps"`
	PopFrame       *time.Duration `yaml:"pop_frame"`
	BatchHold      *time.Duration `yaml:"batch_hold"`
	FadeSteps      *int           `yaml:"fade_steps"`
	FadeFrame      *time.Duration `yaml:"fade_frame"`

	CardSize *float64 `yaml:"card_size"`
	Spacing  *float64 `yaml:"spacing"`
	MinScale *float64 `yaml:"min_scale"`
	MaxScale *float64 `yaml:"max_scale"`

	Font      *string `yaml:"font"`
	NameSize  *int    `yaml:"name_size"`
	BadgeSize *int    `yaml:"badge_size"`

	LegacyGroup *int           `yaml:"legacy_group"`
	LegacyDelay *time.Duration `yaml:"legacy_delay"`
}

package stage

import (
	"time"

	"github.com/xtding233/gacha-stage/internal/gacha"
	"github.com/xtding233/gacha-stage/internal/layout"
)

// Config drives one group's animation. Zero delays are valid and make the stage run
// as fast as the scene client answers.
type Config struct {
	Scene      string
	Anchor     string
	Filter     string // silhouette filter name attached to every card
	GroupSize  int
	MaxLevel   int // levels at or above this display as MAX
	Layout     layout.Config
	RiseEasing Easing
	FadeEasing Easing

	Stagger        time.Duration // per roll-order position
	RiseSteps      int
	RiseFrame      time.Duration
	SilhouetteHold float64 // fraction of the rise a lone card stays fully tinted
	LevelHold      time.Duration
	PopScale       float64
	PopSteps       int // each way
	PopFrame       time.Duration
	BatchHold      time.Duration
	FadeSteps      int
	FadeFrame      time.Duration

	Font         string
	NameSize     int
	BadgeSize    int
	TierColors   map[gacha.Tier]uint32 // 0xAARRGGBB
	ShinyColor   uint32
	LevelColor   uint32
	LevelUpColor uint32
	MaxColor     uint32

	LegacyGroup int
	LegacyDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		Scene:      "Gacha",
		Anchor:     "GachaAnchor",
		Filter:     "gacha-silhouette",
		GroupSize:  5,
		MaxLevel:   99,
		Layout:     layout.DefaultConfig(),
		RiseEasing: EaseOutBack,
		FadeEasing: EaseInOutCubic,

		Stagger:        350 * time.Millisecond,
		RiseSteps:      45,
		RiseFrame:      16 * time.Millisecond,
		SilhouetteHold: 0.4,
		LevelHold:      600 * time.Millisecond,
		PopScale:       1.35,
		PopSteps:       8,
		PopFrame:       16 * time.Millisecond,
		BatchHold:      4 * time.Second,
		FadeSteps:      20,
		FadeFrame:      20 * time.Millisecond,

		Font:      "Arial",
		NameSize:  36,
		BadgeSize: 28,
		TierColors: map[gacha.Tier]uint32{
			gacha.TierUR:  0xFFFF4FD8,
			gacha.TierSSR: 0xFFFFC83D,
			gacha.TierSR:  0xFFB26BFF,
			gacha.TierR:   0xFF4FA8FF,
			gacha.TierN:   0xFFFFFFFF,
		},
		ShinyColor:   0xFFFFF6A0,
		LevelColor:   0xFFFFFFFF,
		LevelUpColor: 0xFF7CFF6B,
		MaxColor:     0xFFFF5A5A,

		LegacyGroup: 5,
		LegacyDelay: 1500 * time.Millisecond,
	}
}

// Instant returns c with every delay zeroed, for dry runs and tests.
func (c Config) Instant() Config {
	c.Stagger, c.RiseFrame, c.LevelHold, c.PopFrame = 0, 0, 0, 0
	c.BatchHold, c.FadeFrame, c.LegacyDelay = 0, 0, 0
	return c
}

func (c Config) tierColor(t gacha.Tier) uint32 {
	if col, ok := c.TierColors[t]; ok {
		return col
	}
	return c.LevelColor
}

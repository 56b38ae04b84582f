package gacha

import (
	"fmt"
	"strings"
)

// Tier is one of the five ordered rarity tiers, rarest first.
type Tier string

const (
	TierUR  Tier = "UR"
	TierSSR Tier = "SSR"
	TierSR  Tier = "SR"
	TierR   Tier = "R"
	TierN   Tier = "N"
)

// Tiers lists every tier in band order (rarest first).
var Tiers = [...]Tier{TierUR, TierSSR, TierSR, TierR, TierN}

var tierFolders = map[Tier]string{
	TierUR:  "legendary",
	TierSSR: "epic",
	TierSR:  "rare",
	TierR:   "uncommon",
	TierN:   "common",
}

// ParseTier accepts either the short code ("SSR") or the folder name ("epic").
func ParseTier(s string) (Tier, error) {
	s = strings.TrimSpace(s)
	for _, t := range Tiers {
		if strings.EqualFold(s, string(t)) || strings.EqualFold(s, tierFolders[t]) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown rarity tier %q", s)
}

// Folder returns the long name used by asset folders.
func (t Tier) Folder() string { return tierFolders[t] }

// Rank is 0 for UR up to 4 for N; unknown tiers rank after N.
func (t Tier) Rank() int {
	for i, x := range Tiers {
		if x == t {
			return i
		}
	}
	return len(Tiers)
}

// Weights are percentages on a [0,100) scale. N takes whatever the others leave.
type Weights struct {
	UR  float64
	SSR float64
	SR  float64
	R   float64
}

// DefaultWeights are the live rates: UR 0.35%, SSR 1.75%, SR 7.9%, R 25%, N the remaining 64.99%.
func DefaultWeights() Weights {
	return Weights{UR: 0.35, SSR: 1.75, SR: 7.9, R: 25.0}
}

// Band is a half-open interval [Lo, Hi) of the roll space owned by one tier.
type Band struct {
	Tier Tier
	Lo   float64
	Hi   float64
}

// Width is the band's share of the roll space in percent.
func (b Band) Width() float64 { return b.Hi - b.Lo }

// RarityTable is a cumulative probability table over [0,100).
type RarityTable struct {
	bands [len(Tiers)]Band
}

// NewRarityTable builds contiguous bands from w. The weights of UR..R must each lie in
// [0,100] and sum to at most 100; N receives the remainder.
func NewRarityTable(w Weights) (RarityTable, error) {
	explicit := [...]float64{w.UR, w.SSR, w.SR, w.R}
	var t RarityTable
	lo := 0.0
	for i, weight := range explicit {
		if !validPercent(weight) {
			return RarityTable{}, fmt.Errorf("%w: %s=%v", ErrInvalidWeights, Tiers[i], weight)
		}
		hi := lo + weight
		if hi > 100 {
			return RarityTable{}, fmt.Errorf("%w: weights sum past 100 at %s", ErrInvalidWeights, Tiers[i])
		}
		t.bands[i] = Band{Tier: Tiers[i], Lo: lo, Hi: hi}
		lo = hi
	}
	t.bands[len(Tiers)-1] = Band{Tier: TierN, Lo: lo, Hi: 100}
	return t, nil
}

// DefaultRarityTable panics only if DefaultWeights were edited into an invalid state.
func DefaultRarityTable() RarityTable {
	t, err := NewRarityTable(DefaultWeights())
	if err != nil {
		panic(err)
	}
	return t
}

// Bands returns a copy of the bands in order.
func (t RarityTable) Bands() []Band {
	out := make([]Band, len(t.bands))
	copy(out, t.bands[:])
	return out
}

// Weight returns the configured percentage for tier.
func (t RarityTable) Weight(tier Tier) float64 {
	for _, b := range t.bands {
		if b.Tier == tier {
			return b.Width()
		}
	}
	return 0
}

// TierAt maps a roll in [0,100) to its tier. Out of range rolls clamp to the nearest band.
func (t RarityTable) TierAt(roll float64) Tier {
	for _, b := range t.bands {
		if roll < b.Hi && b.Hi > b.Lo {
			return b.Tier
		}
	}
	// roll >= 100 or trailing zero-width bands; fall back to the last non-empty tier
	for i := len(t.bands) - 1; i >= 0; i-- {
		if t.bands[i].Width() > 0 {
			return t.bands[i].Tier
		}
	}
	return TierN
}

// Draw samples one tier.
func (t RarityTable) Draw(rng RandomSource) Tier {
	if rng == nil {
		rng = DefaultRNG()
	}
	return t.TierAt(rng.Float64() * 100.0)
}

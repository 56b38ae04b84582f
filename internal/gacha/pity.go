package gacha

// PityRule decides whether a freshly sampled entry is thrown back and drawn again.
// The repull chance grows quadratically with the user's level on the sampled entry,
// from 0 at level 1 up to Ceiling at MaxLevel. A completed set adds CompletionBonus on top.
// Pity fires at most once per pull: the redraw is kept whatever it lands on.
type PityRule struct {
	Ceiling         float64 // repull chance at MaxLevel, e.g. 0.70
	MaxLevel        int     // level at which the curve saturates, e.g. 99
	CompletionBonus float64 // flat addition once the set is complete
}

// DefaultPityRule is the live tuning: 70% at level 99, +10% for a completed set.
func DefaultPityRule() PityRule {
	return PityRule{Ceiling: 0.70, MaxLevel: 99, CompletionBonus: 0.10}
}

// RepullChance returns the probability in [0,1] that a draw at level gets repulled.
// - level <= 1: no level contribution (a first or unseen pull is never punished)
// - level >= MaxLevel: Ceiling
// - otherwise: Ceiling * t^2 where t = (level-1)/(MaxLevel-1)
func (r PityRule) RepullChance(level int, completed bool) float64 {
	p := 0.0
	if r.MaxLevel > 1 && level > 1 {
		if level > r.MaxLevel {
			level = r.MaxLevel
		}
		t := float64(level-1) / float64(r.MaxLevel-1)
		p = r.Ceiling * t * t
	}
	if completed {
		p += r.CompletionBonus
	}
	// keep within a valid probability so Draw never rejects it
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}

// ShouldRepull runs the single pity check for one sampled entry.
func (r PityRule) ShouldRepull(level int, completed bool, rng RandomSource) bool {
	hit, err := Draw(r.RepullChance(level, completed), rng)
	return err == nil && hit
}

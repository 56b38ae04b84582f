package gacha

// ShinyRule runs independent 1-in-Odds trials per pull. The number of trials grows with the
// user's set level: one base trial, one more per LevelsPerTrial levels, MaxLevelBonus extra at
// MaxLevel and CompletionBonus extra once the set is complete.
type ShinyRule struct {
	Odds            int // 1 in Odds per trial, e.g. 8192
	LevelsPerTrial  int // e.g. 2
	MaxLevel        int // e.g. 99
	MaxLevelBonus   int // e.g. 5
	CompletionBonus int // e.g. 10
}

func DefaultShinyRule() ShinyRule {
	return ShinyRule{Odds: 8192, LevelsPerTrial: 2, MaxLevel: 99, MaxLevelBonus: 5, CompletionBonus: 10}
}

// Trials returns how many independent trials a pull at setLevel gets.
func (r ShinyRule) Trials(setLevel int, completed bool) int {
	if setLevel < 0 {
		setLevel = 0
	}
	if r.MaxLevel > 0 && setLevel > r.MaxLevel {
		setLevel = r.MaxLevel
	}
	n := 1
	if r.LevelsPerTrial > 0 {
		n += setLevel / r.LevelsPerTrial
	}
	if r.MaxLevel > 0 && setLevel >= r.MaxLevel {
		n += r.MaxLevelBonus
	}
	if completed {
		n += r.CompletionBonus
	}
	return n
}

// Roll reports whether any of the pull's trials succeeded. It always consumes exactly
// Trials() values from rng so the stream stays aligned for replays. Odds <= 0 disables shinies.
func (r ShinyRule) Roll(setLevel int, completed bool, rng RandomSource) bool {
	if r.Odds <= 0 {
		return false
	}
	if rng == nil {
		rng = DefaultRNG()
	}
	shiny := false
	for i := r.Trials(setLevel, completed); i > 0; i-- {
		if OneIn(rng, r.Odds) {
			shiny = true
		}
	}
	return shiny
}

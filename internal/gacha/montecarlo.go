package gacha

import (
	"errors"
	"math"
	"sort"
)

// TrialGoal selects what the simulation measures per trial.
type TrialGoal string

const (
	// Pulls until every entry of the set has been pulled at least once.
	GoalCompletion TrialGoal = "completion"
	// Pulls until the first shiny, starting from a fresh set.
	GoalFirstShiny TrialGoal = "first_shiny"
)

var (
	ErrUnknownGoal = errors.New("unknown simulation goal")
	ErrEmptySet    = errors.New("simulated set has no entries")
)

// defaultMaxPulls bounds a single trial so a pathological config cannot spin forever.
const defaultMaxPulls = 1_000_000

// SimParams describes the mechanics for one simulation run.
type SimParams struct {
	Rules    Rules
	SetSize  map[Tier]int // number of enabled entries per tier
	MaxPulls int          // per-trial cap; <= 0 means defaultMaxPulls
}

// Stats summarizes simulation results.
type Stats struct {
	Mean   float64
	Var    float64
	StdDev float64
	P50    float64
	P90    float64
	P99    float64
	// trials that hit MaxPulls before reaching the goal
	Capped int
	// Optional: raw samples if caller needs histograms/exports
	Samples []int `json:"-"`
}

// calcStats computes mean/variance/percentiles for integer samples.
func calcStats(xs []int) Stats {
	n := len(xs)
	if n == 0 {
		return Stats{}
	}
	var sum float64
	for _, v := range xs {
		sum += float64(v)
	}
	mean := sum / float64(n)

	// population variance
	var acc float64
	for _, v := range xs {
		d := float64(v) - mean
		acc += d * d
	}
	variance := acc / float64(n)

	sorted := append([]int(nil), xs...)
	sort.Ints(sorted)
	percentile := func(p float64) float64 {
		if n == 1 || p <= 0 {
			return float64(sorted[0])
		}
		if p >= 1 {
			return float64(sorted[n-1])
		}
		pos := p * float64(n-1)
		i := int(math.Floor(pos))
		if i+1 >= n {
			return float64(sorted[i])
		}
		f := pos - float64(i)
		return float64(sorted[i])*(1-f) + float64(sorted[i+1])*f
	}

	return Stats{
		Mean:    mean,
		Var:     variance,
		StdDev:  math.Sqrt(variance),
		P50:     percentile(0.50),
		P90:     percentile(0.90),
		P99:     percentile(0.99),
		Samples: xs,
	}
}

// buildPool numbers entries 1..N tier by tier.
func buildPool(sizes map[Tier]int) Pool {
	pool := make(Pool)
	var next int64 = 1
	for _, t := range Tiers {
		for i := 0; i < sizes[t]; i++ {
			pool[t] = append(pool[t], next)
			next++
		}
	}
	return pool
}

// simulateOne returns the number of pulls it took to reach goal, and whether the cap was hit.
func simulateOne(p SimParams, pool Pool, goal TrialGoal, rng RandomSource) (int, bool) {
	maxPulls := p.MaxPulls
	if maxPulls <= 0 {
		maxPulls = defaultMaxPulls
	}
	levels := make(map[int64]int)
	levelOf := func(id int64) int { return levels[id] }
	total := pool.Size()
	seen := 0
	completed := false

	for pulls := 1; pulls <= maxPulls; pulls++ {
		setLevel := pulls - 1
		if p.Rules.Pity.MaxLevel > 0 && setLevel > p.Rules.Pity.MaxLevel {
			setLevel = p.Rules.Pity.MaxLevel
		}
		res, ok := p.Rules.Resolve(pool, levelOf, setLevel, completed, rng)
		if !ok {
			continue
		}
		if levels[res.EntryID] == 0 {
			seen++
		}
		levels[res.EntryID]++
		completed = seen == total

		switch goal {
		case GoalCompletion:
			if completed {
				return pulls, false
			}
		case GoalFirstShiny:
			if res.Shiny {
				return pulls, false
			}
		}
	}
	return maxPulls, true
}

// RunMonteCarlo repeats trials and returns summary stats.
func RunMonteCarlo(p SimParams, goal TrialGoal, trials int, rng RandomSource) (Stats, error) {
	if goal != GoalCompletion && goal != GoalFirstShiny {
		return Stats{}, ErrUnknownGoal
	}
	if trials <= 0 {
		return Stats{}, nil
	}
	if rng == nil {
		rng = DefaultRNG()
	}
	pool := buildPool(p.SetSize)
	if pool.Size() == 0 {
		return Stats{}, ErrEmptySet
	}
	samples := make([]int, trials)
	capped := 0
	for i := range samples {
		v, hitCap := simulateOne(p, pool, goal, rng)
		if hitCap {
			capped++
		}
		samples[i] = v
	}
	st := calcStats(samples)
	st.Capped = capped
	return st, nil
}

// TallyTiers draws n tiers and counts them. Used to check configured weights empirically.
func TallyTiers(t RarityTable, n int, rng RandomSource) map[Tier]int {
	out := make(map[Tier]int, len(Tiers))
	for i := 0; i < n; i++ {
		out[t.Draw(rng)]++
	}
	return out
}

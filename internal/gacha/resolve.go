package gacha

// Rules bundles every tunable of a pull.
type Rules struct {
	Rarity RarityTable
	Pity   PityRule
	Shiny  ShinyRule
}

func DefaultRules() Rules {
	return Rules{
		Rarity: DefaultRarityTable(),
		Pity:   DefaultPityRule(),
		Shiny:  DefaultShinyRule(),
	}
}

// Pool groups candidate entry ids by tier. Order inside a tier is the sampling order.
type Pool map[Tier][]int64

// Size counts every entry in the pool.
func (p Pool) Size() int {
	n := 0
	for _, ids := range p {
		n += len(ids)
	}
	return n
}

// Resolution is the outcome of one pull before it is persisted.
type Resolution struct {
	Tier     Tier
	EntryID  int64
	Level    int // level on EntryID before this pull
	Shiny    bool
	Repulled bool
}

// Resolve performs one pull against pool. levelOf reports the user's current level on an entry.
// Random values are consumed in a fixed order: shiny trials, tier, entry, pity check and,
// if pity fired, a second tier and entry. ok is false when a drawn tier has no entries; the
// returned Resolution then carries the empty tier.
func (r Rules) Resolve(pool Pool, levelOf func(int64) int, setLevel int, completed bool, rng RandomSource) (res Resolution, ok bool) {
	if rng == nil {
		rng = DefaultRNG()
	}
	res.Shiny = r.Shiny.Roll(setLevel, completed, rng)

	if !r.sample(pool, levelOf, rng, &res) {
		return res, false
	}
	if !r.Pity.ShouldRepull(res.Level, completed, rng) {
		return res, true
	}
	// single-shot: the redraw stands even if it lands on another high level entry
	res.Repulled = true
	return res, r.sample(pool, levelOf, rng, &res)
}

func (r Rules) sample(pool Pool, levelOf func(int64) int, rng RandomSource, res *Resolution) bool {
	res.Tier = r.Rarity.Draw(rng)
	ids := pool[res.Tier]
	if len(ids) == 0 {
		res.EntryID, res.Level = 0, 0
		return false
	}
	res.EntryID = ids[Pick(rng, len(ids))]
	res.Level = 0
	if levelOf != nil {
		res.Level = levelOf(res.EntryID)
	}
	return true
}

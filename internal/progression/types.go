package progression

import (
	"github.com/xtding233/gacha-stage/internal/gacha"
)

// CatalogEntry is one collectible card. Entries are created by catalog ingestion and are
// read-only to the roll engine, apart from the cumulative Pulled counter the store bumps.
type CatalogEntry struct {
	ID             int64
	Name           string
	Set            string
	Rarity         gacha.Tier
	Pulled         int // cumulative pulls across every user
	ImagePath      string
	ShinyImagePath string
	Enabled        bool
}

// HasShiny reports whether a shiny asset exists for the entry.
func (e CatalogEntry) HasShiny() bool { return e.ShinyImagePath != "" }

// Asset returns the image for the requested variant, falling back to the normal art.
func (e CatalogEntry) Asset(shiny bool) string {
	if shiny && e.HasShiny() {
		return e.ShinyImagePath
	}
	return e.ImagePath
}

// User is the subset of a user record the engine reads.
type User struct {
	ID          string
	DisplayName string
	ActiveSet   string
	CarryOver   int // banked currency toward the next bonus pull
}

// Name prefers the display name.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.ID
}

// ProgressionState is a user's standing in one set.
type ProgressionState struct {
	UserID    string
	Set       string
	Levels    map[int64]int // entry id -> personal pull count
	Completed bool          // the store has recorded completion for this set
}

// Level returns the pull count on one entry.
func (s ProgressionState) Level(entryID int64) int { return s.Levels[entryID] }

// SetLevel is the total pull count across the set.
func (s ProgressionState) SetLevel() int {
	n := 0
	for _, lvl := range s.Levels {
		n += lvl
	}
	return n
}

// PullOutcome is one resolved pull. It is never mutated after the engine appends it.
type PullOutcome struct {
	Rarity    gacha.Tier `json:"rarity"`
	EntryID   int64      `json:"entry_id"`
	Name      string     `json:"name"`
	Set       string     `json:"set"`
	Shiny     bool       `json:"shiny"`
	Level     int        `json:"level"` // level after this pull
	AssetPath string     `json:"asset_path"`
	Repulled  bool       `json:"repulled,omitempty"`
}

// PreviousLevel is the level shown before the level-up pop.
func (o PullOutcome) PreviousLevel() int {
	if o.Level <= 0 {
		return 0
	}
	return o.Level - 1
}

// PullBatch is the result of one RollBatch call, outcomes in roll order.
type PullBatch struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	DisplayName string        `json:"display_name,omitempty"`
	Set         string        `json:"set"`
	Requested   int           `json:"requested"`
	Granted     int           `json:"granted"`    // requested + currency bonus
	CarryOver   int           `json:"carry_over"` // banked currency after this batch
	Outcomes    []PullOutcome `json:"outcomes"`
}

// Skipped is the number of granted pulls that did not produce an outcome.
func (b PullBatch) Skipped() int { return b.Granted - len(b.Outcomes) }

// Groups splits the outcomes into consecutive chunks of at most size, preserving order.
func (b PullBatch) Groups(size int) [][]PullOutcome {
	if size <= 0 {
		size = len(b.Outcomes)
	}
	var out [][]PullOutcome
	for start := 0; start < len(b.Outcomes); start += size {
		end := min(start+size, len(b.Outcomes))
		out = append(out, b.Outcomes[start:end])
	}
	return out
}

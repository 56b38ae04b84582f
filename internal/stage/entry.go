package stage

import (
	"github.com/xtding233/gacha-stage/internal/layout"
	"github.com/xtding233/gacha-stage/internal/progression"
	"github.com/xtding233/gacha-stage/internal/scene"
)

// Phase is how far a card got.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseStaged
	PhaseRisen
	PhasePopped
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseStaged:
		return "staged"
	case PhaseRisen:
		return "risen"
	case PhasePopped:
		return "popped"
	case PhaseFailed:
		return "failed"
	default:
		return "none"
	}
}

// AnimationEntry is one card on stage: the outcome it shows, where it goes, and the
// elements created for it. Each card fails independently of its siblings.
type AnimationEntry struct {
	Order     int // position in roll order within the group
	Outcome   progression.PullOutcome
	Placement layout.CardPlacement

	Card   scene.Element
	Name   scene.Element
	Prefix scene.Element
	Number scene.Element

	Phase Phase
	Err   error

	current scene.Transform
}

// elements lists the names of everything created for the card so far.
func (e *AnimationEntry) elements() []string {
	var out []string
	for _, el := range []scene.Element{e.Card, e.Name, e.Prefix, e.Number} {
		if el.Name != "" {
			out = append(out, el.Name)
		}
	}
	return out
}

func (e *AnimationEntry) fail(err error) {
	e.Phase = PhaseFailed
	e.Err = err
}

// visible reports whether the card should take part in the fade.
func (e *AnimationEntry) visible() bool {
	return e.Phase == PhaseRisen || e.Phase == PhasePopped
}

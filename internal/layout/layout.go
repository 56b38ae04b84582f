// Package layout computes where cards and their labels go relative to the stage anchor.
// Coordinates follow the scene graph: x grows right, y grows down. No I/O.
package layout

import (
	"errors"
	"fmt"
	"math"

	"github.com/xtding233/gacha-stage/internal/scene"
)

// MaxSlots is the largest group laid out at once.
const MaxSlots = 5

var ErrSlotCount = errors.New("slot count out of range")

// Config holds the layout tunables, in pixels unless noted.
type Config struct {
	Spacing    float64 // horizontal distance between neighbouring slots
	CardSize   float64 // the larger source dimension maps to this
	MinScale   float64
	MaxScale   float64
	SpawnScale float64 // card scale while hidden behind the anchor
	Clearance  float64 // gap between anchor top and card bottom
	Padding    float64 // extra gap on top of Clearance
	NameGap    float64 // gap between card top and name label, at full scale
	BadgeInset float64
	BadgeLine  float64 // line height of the "Lvl." prefix at label scale 1
	LabelScale float64 // label scale when the card is at its target scale
}

func DefaultConfig() Config {
	return Config{
		Spacing:    230,
		CardSize:   320,
		MinScale:   0.05,
		MaxScale:   3.0,
		SpawnScale: 0.01,
		Clearance:  16,
		Padding:    8,
		NameGap:    10,
		BadgeInset: 6,
		BadgeLine:  30,
		LabelScale: 1.0,
	}
}

// Anchor is the reference rectangle, reduced to its visual center and half extents.
type Anchor struct {
	X, Y         float64
	HalfW, HalfH float64
	Alignment    scene.Alignment
}

// AnchorFrom derives the anchor from a queried element geometry.
func AnchorFrom(g scene.Geometry) Anchor {
	x, y := g.Center()
	return Anchor{
		X:         x,
		Y:         y,
		HalfW:     math.Abs(g.Width*g.ScaleX) / 2,
		HalfH:     math.Abs(g.Height*g.ScaleY) / 2,
		Alignment: g.Alignment,
	}
}

// Point is a position in scene coordinates.
type Point struct{ X, Y float64 }

// Slot is one card position in a group.
type Slot struct {
	Index  int
	Offset float64 // horizontal offset from the anchor center
	Spawn  Point
	Target Point // assumes a card of CardSize height; Place refines it
	base   float64
}

// Offsets returns the symmetric horizontal offsets for count cards.
func (c Config) Offsets(count int) ([]float64, error) {
	if count < 1 || count > MaxSlots {
		return nil, fmt.Errorf("%w: %d", ErrSlotCount, count)
	}
	out := make([]float64, count)
	mid := float64(count-1) / 2
	for i := range out {
		out[i] = (float64(i) - mid) * c.Spacing
	}
	return out, nil
}

// ComputeSlots lays out count cards in roll order, left to right.
func (c Config) ComputeSlots(a Anchor, count int) ([]Slot, error) {
	offsets, err := c.Offsets(count)
	if err != nil {
		return nil, err
	}
	// card bottoms rest on this line, clear of the anchor's top edge
	base := a.Y - a.HalfH - c.Clearance - c.Padding
	slots := make([]Slot, count)
	for i, off := range offsets {
		x := a.X + off
		slots[i] = Slot{
			Index:  i,
			Offset: off,
			Spawn:  Point{X: x, Y: a.Y},
			Target: Point{X: x, Y: base - c.CardSize/2},
			base:   base,
		}
	}
	return slots, nil
}

// Scale maps the larger of w and h to CardSize, clamped to [MinScale, MaxScale].
func (c Config) Scale(w, h float64) float64 {
	big := math.Max(w, h)
	s := 1.0
	if big > 0 {
		s = c.CardSize / big
	}
	return math.Min(math.Max(s, c.MinScale), c.MaxScale)
}

// CardPlacement is the resolved spawn and target transform for one card.
type CardPlacement struct {
	Slot          Slot
	Width, Height float64 // unscaled source size
	Scale         float64
	Spawn         scene.Transform
	Target        scene.Transform
}

// Place fits a card of source size w x h into slot.
func (c Config) Place(slot Slot, w, h float64) CardPlacement {
	s := c.Scale(w, h)
	p := CardPlacement{Slot: slot, Width: w, Height: h, Scale: s}
	p.Spawn = scene.Transform{X: slot.Spawn.X, Y: slot.Spawn.Y, Alignment: scene.AlignCenter}.Scaled(c.SpawnScale)
	p.Target = scene.Transform{X: slot.Target.X, Y: slot.base - h*s/2, Alignment: scene.AlignCenter}.Scaled(s)
	return p
}

// Labels are the transforms of the three text elements riding on a card.
type Labels struct {
	Name   scene.Transform
	Prefix scene.Transform
	Number scene.Transform
}

// Labels derives label transforms from the card's current transform. Labels shrink and
// grow with the card so they track it through the rise and the fade.
func (c Config) Labels(p CardPlacement, card scene.Transform) Labels {
	r := 0.0
	if p.Scale > 0 {
		r = card.ScaleX / p.Scale
	}
	halfW := p.Width * card.ScaleX / 2
	halfH := p.Height * card.ScaleY / 2
	top := card.Y - halfH
	right := card.X + halfW
	ls := c.LabelScale * r

	left := right + c.BadgeInset*r
	badgeTop := top + c.BadgeInset*r
	return Labels{
		Name: scene.Transform{
			X: card.X, Y: top - c.NameGap*r,
			Alignment: scene.AlignBottom,
		}.Scaled(ls),
		Prefix: scene.Transform{
			X: left, Y: badgeTop,
			Alignment: scene.AlignLeft | scene.AlignTop,
		}.Scaled(ls),
		// left-middle so a pop grows the number away from the prefix
		Number: scene.Transform{
			X: left, Y: badgeTop + c.BadgeLine*1.5*r,
			Alignment: scene.AlignLeft,
		}.Scaled(ls),
	}
}

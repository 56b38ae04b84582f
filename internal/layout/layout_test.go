package layout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/gacha-stage/internal/layout"
	"github.com/xtding233/gacha-stage/internal/scene"
)

func anchor(h float64) layout.Anchor {
	return layout.Anchor{X: 960, Y: 900, HalfW: 200, HalfH: h / 2}
}

func TestSingleSlotCentered(t *testing.T) {
	slots, err := layout.DefaultConfig().ComputeSlots(anchor(100), 1)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 0.0, slots[0].Offset)
	assert.Equal(t, 960.0, slots[0].Target.X)
}

func TestSlotsSymmetric(t *testing.T) {
	cfg := layout.DefaultConfig()
	for n := 1; n <= layout.MaxSlots; n++ {
		slots, err := cfg.ComputeSlots(anchor(100), n)
		require.NoError(t, err)
		require.Len(t, slots, n)
		for i := range slots {
			mirror := slots[n-1-i]
			assert.InDelta(t, -slots[i].Offset, mirror.Offset, 1e-9, "n=%d i=%d", n, i)
			assert.Equal(t, 900.0, slots[i].Spawn.Y, "cards spawn at the anchor's vertical center")
			if i > 0 {
				assert.InDelta(t, cfg.Spacing, slots[i].Offset-slots[i-1].Offset, 1e-9)
			}
		}
	}
}

func TestSlotCountOutOfRange(t *testing.T) {
	cfg := layout.DefaultConfig()
	for _, n := range []int{0, -1, 6} {
		_, err := cfg.ComputeSlots(anchor(100), n)
		assert.ErrorIs(t, err, layout.ErrSlotCount)
	}
}

func TestTallerAnchorLiftsCards(t *testing.T) {
	cfg := layout.DefaultConfig()
	prev := -1.0
	for _, h := range []float64{0, 50, 100, 400} {
		slots, err := cfg.ComputeSlots(anchor(h), 3)
		require.NoError(t, err)
		sep := 900 - slots[1].Target.Y
		assert.Greater(t, sep, prev, "anchor height %v", h)
		prev = sep

		p := cfg.Place(slots[1], 400, 560)
		// card bottom clears the anchor top by both clearances
		bottom := p.Target.Y + 560*p.Scale/2
		assert.InDelta(t, 900-h/2-cfg.Clearance-cfg.Padding, bottom, 1e-9)
	}
}

func TestScaleClamped(t *testing.T) {
	cfg := layout.DefaultConfig()
	assert.InDelta(t, 0.5, cfg.Scale(640, 320), 1e-9)
	assert.InDelta(t, 0.5, cfg.Scale(320, 640), 1e-9)
	assert.Equal(t, cfg.MinScale, cfg.Scale(100000, 10))
	assert.Equal(t, cfg.MaxScale, cfg.Scale(2, 3))
	assert.Equal(t, 1.0, cfg.Scale(0, 0))
}

func TestPlaceSpawnsHidden(t *testing.T) {
	cfg := layout.DefaultConfig()
	slots, _ := cfg.ComputeSlots(anchor(100), 2)
	p := cfg.Place(slots[0], 320, 320)
	assert.Equal(t, cfg.SpawnScale, p.Spawn.ScaleX)
	assert.Equal(t, slots[0].Spawn.X, p.Spawn.X)
	assert.Equal(t, 1.0, p.Target.ScaleX)
	assert.Equal(t, scene.AlignCenter, p.Target.Alignment)
}

func TestLabelsTrackCard(t *testing.T) {
	cfg := layout.DefaultConfig()
	slots, _ := cfg.ComputeSlots(anchor(100), 1)
	p := cfg.Place(slots[0], 320, 320)

	full := cfg.Labels(p, p.Target)
	assert.Equal(t, p.Target.X, full.Name.X)
	assert.InDelta(t, p.Target.Y-160-cfg.NameGap, full.Name.Y, 1e-9)
	assert.Equal(t, cfg.LabelScale, full.Name.ScaleX)
	assert.Equal(t, full.Prefix.X, full.Number.X, "badge lines share a left edge")
	assert.Greater(t, full.Prefix.X, p.Target.X+160-1e-9)
	assert.True(t, full.Number.Alignment.Has(scene.AlignLeft))

	half := p.Target.Scaled(p.Scale / 2)
	h := cfg.Labels(p, half)
	assert.InDelta(t, cfg.LabelScale/2, h.Name.ScaleX, 1e-9)
	assert.Greater(t, h.Name.Y, full.Name.Y, "smaller card keeps its name closer to center")
}

func TestAnchorFromGeometry(t *testing.T) {
	g := scene.Geometry{
		Transform: scene.Transform{X: 100, Y: 200, ScaleX: 2, ScaleY: 2, Alignment: scene.AlignLeft | scene.AlignTop},
		Width:     50, Height: 20,
	}
	a := layout.AnchorFrom(g)
	assert.Equal(t, 150.0, a.X)
	assert.Equal(t, 220.0, a.Y)
	assert.Equal(t, 50.0, a.HalfW)
	assert.Equal(t, 20.0, a.HalfH)
}

package stage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEasingEndpoints(t *testing.T) {
	for _, e := range []Easing{EaseLinear, EaseOutQuad, EaseInOutCubic, EaseOutBack} {
		assert.InDelta(t, 0, e.Apply(0), 1e-12, string(e))
		assert.InDelta(t, 1, e.Apply(1), 1e-12, string(e))
		assert.InDelta(t, 1, e.Apply(7), 1e-12, "clamped %s", e)
	}
}

func TestEaseOutBackOvershoots(t *testing.T) {
	peak := 0.0
	for i := 0; i <= 100; i++ {
		peak = math.Max(peak, EaseOutBack.Apply(float64(i)/100))
	}
	assert.Greater(t, peak, 1.0)
	assert.Less(t, peak, 1.2)
}

func TestParseEasing(t *testing.T) {
	e, err := ParseEasing("")
	require.NoError(t, err)
	assert.Equal(t, EaseLinear, e)
	e, err = ParseEasing("easeOutBack")
	require.NoError(t, err)
	assert.Equal(t, EaseOutBack, e)
	_, err = ParseEasing("bouncy")
	assert.ErrorIs(t, err, ErrUnknownEasing)
}

func TestSilhouetteHold(t *testing.T) {
	assert.Equal(t, 1.0, silhouette(0.2, 0.4))
	assert.Equal(t, 1.0, silhouette(0.4, 0.4))
	assert.InDelta(t, 0.5, silhouette(0.7, 0.4), 1e-9)
	assert.Equal(t, 0.0, silhouette(1, 0.4))
	assert.InDelta(t, 0.75, silhouette(0.25, 0), 1e-9)
}

func TestLevelText(t *testing.T) {
	assert.Equal(t, "0", levelText(0, 99))
	assert.Equal(t, "98", levelText(98, 99))
	assert.Equal(t, "MAX", levelText(99, 99))
	assert.Equal(t, "MAX", levelText(140, 99))
}

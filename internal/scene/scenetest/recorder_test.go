package scenetest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/gacha-stage/internal/scene"
	"github.com/xtding233/gacha-stage/internal/scene/scenetest"
)

func TestRecorderLifecycle(t *testing.T) {
	ctx := context.Background()
	rec := scenetest.NewRecorder()
	rec.ImageSize = func(string) (float64, float64) { return 100, 200 }

	el, err := rec.CreateElement(ctx, "S", "card", scene.ImageSettings{Path: "a.png"}, false)
	require.NoError(t, err)
	_, err = rec.CreateElement(ctx, "S", "card", scene.ImageSettings{Path: "a.png"}, false)
	assert.Error(t, err, "names are unique")

	require.NoError(t, rec.SetElementTransform(ctx, "S", el.ID, scene.Transform{X: 5, ScaleX: 2, ScaleY: 2}))
	g, err := rec.GetElementGeometry(ctx, "S", "card")
	require.NoError(t, err)
	assert.Equal(t, 5.0, g.X)
	assert.Equal(t, 200.0, g.Height)

	require.NoError(t, rec.SetFilterStrength(ctx, "card", "tint", 0.25))
	s, ok := rec.Filter("card", "tint")
	assert.True(t, ok)
	assert.Equal(t, 0.25, s)

	require.NoError(t, rec.RemoveElement(ctx, "card"))
	assert.ErrorIs(t, rec.RemoveElement(ctx, "card"), scene.ErrNotFound)
	assert.Empty(t, rec.Live())
	assert.Equal(t, 1, rec.Count(scenetest.OpCreate))
}

func TestRecorderFailureInjection(t *testing.T) {
	ctx := context.Background()
	rec := scenetest.NewRecorder()
	boom := errors.New("boom")
	rec.FailOn(scenetest.OpCreate, "bad", boom)
	rec.FailNth(scenetest.OpCreate, 3, boom)

	_, err := rec.CreateElement(ctx, "S", "bad", scene.TextSettings{Text: "x"}, true)
	assert.ErrorIs(t, err, boom)
	_, err = rec.CreateElement(ctx, "S", "ok1", scene.TextSettings{Text: "x"}, true)
	assert.NoError(t, err)
	_, err = rec.CreateElement(ctx, "S", "ok2", scene.TextSettings{Text: "x"}, true)
	assert.ErrorIs(t, err, boom, "third create fails")
	assert.Equal(t, []string{"ok1"}, rec.Live())

	_, err = rec.GetElementGeometry(ctx, "S", "missing")
	assert.ErrorIs(t, err, scene.ErrNotFound)
}

func TestRecorderSettingsHistorySurvivesRemoval(t *testing.T) {
	ctx := context.Background()
	rec := scenetest.NewRecorder()
	_, err := rec.CreateElement(ctx, "S", "num", scene.TextSettings{Text: "4"}, false)
	require.NoError(t, err)
	require.NoError(t, rec.SetElementSettings(ctx, "num", scene.TextSettings{Text: "5"}))
	require.NoError(t, rec.RemoveElement(ctx, "num"))

	_, live := rec.Settings("num")
	assert.False(t, live)
	assert.Equal(t, []scene.Settings{scene.TextSettings{Text: "4"}, scene.TextSettings{Text: "5"}}, rec.SettingsHistory("num"))
	assert.Empty(t, rec.SettingsHistory("never"))
}

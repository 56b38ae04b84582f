package obsws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/gacha-stage/internal/scene"
)

func TestRedialerStartsWithoutOBS(t *testing.T) {
	cfg := serveFake(t, newFakeOBS(""), "")
	r := NewRedialer(cfg, time.Hour, quietLog())
	dials := 0
	r.dial = func(context.Context, Config, logrus.FieldLogger) (*Client, error) {
		dials++
		return nil, errors.New("connection refused")
	}
	ctx := context.Background()

	assert.ErrorIs(t, r.Connect(ctx), ErrUnavailable)
	_, err := r.GetElementGeometry(ctx, "Gacha", "GachaAnchor")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, dials, "no second dial inside the backoff")
	assert.NoError(t, r.Close())
}

func TestRedialerRecoversAfterDrop(t *testing.T) {
	cfg := serveFake(t, newFakeOBS(""), "")
	r := NewRedialer(cfg, 0, quietLog())
	t.Cleanup(func() { _ = r.Close() })
	dials := 0
	r.dial = func(ctx context.Context, cfg Config, log logrus.FieldLogger) (*Client, error) {
		dials++
		if dials == 1 {
			return nil, errors.New("obs not started yet")
		}
		return Dial(ctx, cfg, log)
	}
	ctx := context.Background()

	require.ErrorIs(t, r.Connect(ctx), ErrUnavailable)
	g, err := r.GetElementGeometry(ctx, "Gacha", "GachaAnchor")
	require.NoError(t, err)
	assert.Equal(t, 960.0, g.X)

	r.mu.Lock()
	first := r.client
	r.mu.Unlock()
	require.NoError(t, first.Close())
	<-first.Done()

	_, err = r.CreateElement(ctx, "Gacha", "card", scene.ImageSettings{Path: "/a.png"}, false)
	require.NoError(t, err)
	assert.Equal(t, 3, dials)
}

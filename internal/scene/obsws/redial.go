package obsws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xtding233/gacha-stage/internal/scene"
)

// ErrUnavailable is returned while OBS cannot be reached.
var ErrUnavailable = errors.New("obs unavailable")

// Redialer is a scene.Client that connects on first use and again whenever the connection
// drops. Dial attempts are at least backoff apart; calls in between fail fast with
// ErrUnavailable, which sends batches down the text path until OBS is back.
type Redialer struct {
	cfg     Config
	log     logrus.FieldLogger
	backoff time.Duration
	dial    func(ctx context.Context, cfg Config, log logrus.FieldLogger) (*Client, error)

	mu      sync.Mutex
	client  *Client
	lastTry time.Time
	lastErr error
}

var _ scene.Client = (*Redialer)(nil)

func NewRedialer(cfg Config, backoff time.Duration, log logrus.FieldLogger) *Redialer {
	return &Redialer{cfg: cfg, log: log, backoff: backoff, dial: Dial}
}

// Connect tries to connect now. The Redialer stays usable when it fails.
func (r *Redialer) Connect(ctx context.Context) error {
	_, err := r.conn(ctx)
	return err
}

func (r *Redialer) conn(ctx context.Context) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		select {
		case <-r.client.Done():
			r.log.Warn("obs connection lost")
			r.client = nil
		default:
			return r.client, nil
		}
	}
	if !r.lastTry.IsZero() && time.Since(r.lastTry) < r.backoff {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, r.lastErr)
	}
	r.lastTry = time.Now()

	dctx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}
	c, err := r.dial(dctx, r.cfg, r.log)
	if err != nil {
		r.lastErr = err
		r.log.WithError(err).Warn("obs unreachable")
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	r.client, r.lastErr = c, nil
	return c, nil
}

// Close drops the current connection, if any.
func (r *Redialer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}

func (r *Redialer) GetElementGeometry(ctx context.Context, sceneName, name string) (scene.Geometry, error) {
	c, err := r.conn(ctx)
	if err != nil {
		return scene.Geometry{}, err
	}
	return c.GetElementGeometry(ctx, sceneName, name)
}

func (r *Redialer) CreateElement(ctx context.Context, sceneName, name string, settings scene.Settings, enabled bool) (scene.Element, error) {
	c, err := r.conn(ctx)
	if err != nil {
		return scene.Element{}, err
	}
	return c.CreateElement(ctx, sceneName, name, settings, enabled)
}

func (r *Redialer) SetElementTransform(ctx context.Context, sceneName string, id int64, t scene.Transform) error {
	c, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return c.SetElementTransform(ctx, sceneName, id, t)
}

func (r *Redialer) SetElementEnabled(ctx context.Context, sceneName string, id int64, enabled bool) error {
	c, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return c.SetElementEnabled(ctx, sceneName, id, enabled)
}

func (r *Redialer) SetElementSettings(ctx context.Context, name string, settings scene.Settings) error {
	c, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return c.SetElementSettings(ctx, name, settings)
}

func (r *Redialer) SetFilterStrength(ctx context.Context, element, filter string, strength float64) error {
	c, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return c.SetFilterStrength(ctx, element, filter, strength)
}

func (r *Redialer) RemoveElement(ctx context.Context, name string) error {
	c, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return c.RemoveElement(ctx, name)
}

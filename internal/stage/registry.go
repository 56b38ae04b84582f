package stage

import (
	"context"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/xtding233/gacha-stage/internal/scene"
)

// Registry tracks every element one group created so teardown can remove all of them,
// whichever phase each card reached.
type Registry struct {
	client scene.Client
	log    logrus.FieldLogger

	mu      sync.Mutex
	live    []string // creation order
	created int
	removed int
}

func NewRegistry(client scene.Client, log logrus.FieldLogger) *Registry {
	return &Registry{client: client, log: log}
}

// Create creates an element and tracks it if the remote side accepted it.
func (r *Registry) Create(ctx context.Context, sceneName, name string, settings scene.Settings, enabled bool) (scene.Element, error) {
	el, err := r.client.CreateElement(ctx, sceneName, name, settings, enabled)
	if err != nil {
		return scene.Element{}, err
	}
	r.mu.Lock()
	r.live = append(r.live, el.Name)
	r.created++
	r.mu.Unlock()
	return el, nil
}

// Remove deletes the named tracked elements now. Names the registry does not know are ignored.
func (r *Registry) Remove(ctx context.Context, names ...string) {
	for _, name := range names {
		r.mu.Lock()
		i := slices.Index(r.live, name)
		if i >= 0 {
			r.live = slices.Delete(r.live, i, i+1)
		}
		r.mu.Unlock()
		if i >= 0 {
			r.remove(ctx, name)
		}
	}
}

// Teardown removes every element still tracked, newest first. It ignores cancellation of
// ctx so an aborted batch still cleans up. Failures are logged and not retried.
func (r *Registry) Teardown(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	r.mu.Lock()
	live := r.live
	r.live = nil
	r.mu.Unlock()
	for i := len(live) - 1; i >= 0; i-- {
		r.remove(ctx, live[i])
	}
}

func (r *Registry) remove(ctx context.Context, name string) {
	// every remove is counted as attempted; the element is gone from our books either way
	r.mu.Lock()
	r.removed++
	r.mu.Unlock()
	if err := r.client.RemoveElement(ctx, name); err != nil {
		r.log.WithError(err).WithField("element", name).Error("teardown: remove failed")
	}
}

// Counts reports elements created and removals attempted so far.
func (r *Registry) Counts() (created, removed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created, r.removed
}

// Len is the number of elements still tracked.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

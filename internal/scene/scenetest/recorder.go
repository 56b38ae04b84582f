// Package scenetest provides an in-memory scene.Client that records every call.
package scenetest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xtding233/gacha-stage/internal/scene"
)

type Op string

const (
	OpGeometry  Op = "geometry"
	OpCreate    Op = "create"
	OpTransform Op = "transform"
	OpEnable    Op = "enable"
	OpSettings  Op = "settings"
	OpFilter    Op = "filter"
	OpRemove    Op = "remove"
)

// Call is one recorded request. Err is what the recorder answered.
type Call struct {
	Op   Op
	Name string
	Err  error
}

type element struct {
	id        int64
	scene     string
	settings  scene.Settings
	enabled   bool
	transform scene.Transform
	filters   map[string]float64
}

// Recorder is safe for concurrent use.
type Recorder struct {
	// Hook runs before every call; a non-nil error fails that call.
	Hook func(op Op, name string) error
	// ImageSize reports the source size of an image path. Nil means 400x560.
	ImageSize func(path string) (w, h float64)

	mu       sync.Mutex
	nextID   int64
	elements map[string]*element
	fixed    map[string]scene.Geometry
	calls    []Call
	history  map[string][]scene.Settings
}

func NewRecorder() *Recorder {
	return &Recorder{
		elements: make(map[string]*element),
		fixed:    make(map[string]scene.Geometry),
		history:  make(map[string][]scene.Settings),
	}
}

// Place registers a pre-existing element, such as an anchor.
func (r *Recorder) Place(name string, g scene.Geometry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fixed[name] = g
}

// FailOn fails every call of op on name with err.
func (r *Recorder) FailOn(op Op, name string, err error) {
	prev := r.Hook
	r.Hook = func(o Op, n string) error {
		if o == op && n == name {
			return err
		}
		if prev != nil {
			return prev(o, n)
		}
		return nil
	}
}

// FailNth fails the nth (1-based) call of op with err.
func (r *Recorder) FailNth(op Op, n int, err error) {
	prev := r.Hook
	seen := 0
	r.Hook = func(o Op, name string) error {
		if o == op {
			seen++
			if seen == n {
				return err
			}
		}
		if prev != nil {
			return prev(o, name)
		}
		return nil
	}
}

// record must be called with r.mu held.
func (r *Recorder) record(op Op, name string) error {
	var err error
	if r.Hook != nil {
		err = r.Hook(op, name)
	}
	r.calls = append(r.calls, Call{Op: op, Name: name, Err: err})
	return err
}

func (r *Recorder) GetElementGeometry(_ context.Context, _, name string) (scene.Geometry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(OpGeometry, name); err != nil {
		return scene.Geometry{}, err
	}
	if g, ok := r.fixed[name]; ok {
		return g, nil
	}
	el, ok := r.elements[name]
	if !ok {
		return scene.Geometry{}, fmt.Errorf("%w: %s", scene.ErrNotFound, name)
	}
	g := scene.Geometry{Transform: el.transform}
	switch s := el.settings.(type) {
	case scene.ImageSettings:
		g.Width, g.Height = 400, 560
		if r.ImageSize != nil {
			g.Width, g.Height = r.ImageSize(s.Path)
		}
	case scene.TextSettings:
		g.Width, g.Height = float64(len(s.Text)*s.Size)/2, float64(s.Size)
	}
	return g, nil
}

func (r *Recorder) CreateElement(_ context.Context, sceneName, name string, settings scene.Settings, enabled bool) (scene.Element, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(OpCreate, name); err != nil {
		return scene.Element{}, err
	}
	if _, dup := r.elements[name]; dup {
		return scene.Element{}, fmt.Errorf("element %q already exists", name)
	}
	r.nextID++
	r.elements[name] = &element{
		id:        r.nextID,
		scene:     sceneName,
		settings:  settings,
		enabled:   enabled,
		transform: scene.Transform{ScaleX: 1, ScaleY: 1},
		filters:   make(map[string]float64),
	}
	r.history[name] = append(r.history[name], settings)
	return scene.Element{ID: r.nextID, Name: name}, nil
}

func (r *Recorder) byID(id int64) (string, *element) {
	for name, el := range r.elements {
		if el.id == id {
			return name, el
		}
	}
	return "", nil
}

func (r *Recorder) SetElementTransform(_ context.Context, _ string, id int64, t scene.Transform) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, el := r.byID(id)
	if err := r.record(OpTransform, name); err != nil {
		return err
	}
	if el == nil {
		return fmt.Errorf("%w: id %d", scene.ErrNotFound, id)
	}
	el.transform = t
	return nil
}

func (r *Recorder) SetElementEnabled(_ context.Context, _ string, id int64, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, el := r.byID(id)
	if err := r.record(OpEnable, name); err != nil {
		return err
	}
	if el == nil {
		return fmt.Errorf("%w: id %d", scene.ErrNotFound, id)
	}
	el.enabled = enabled
	return nil
}

func (r *Recorder) SetElementSettings(_ context.Context, name string, settings scene.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(OpSettings, name); err != nil {
		return err
	}
	el, ok := r.elements[name]
	if !ok {
		return fmt.Errorf("%w: %s", scene.ErrNotFound, name)
	}
	el.settings = settings
	r.history[name] = append(r.history[name], settings)
	return nil
}

func (r *Recorder) SetFilterStrength(_ context.Context, name, filter string, strength float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(OpFilter, name); err != nil {
		return err
	}
	el, ok := r.elements[name]
	if !ok {
		return fmt.Errorf("%w: %s", scene.ErrNotFound, name)
	}
	el.filters[filter] = strength
	return nil
}

func (r *Recorder) RemoveElement(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(OpRemove, name); err != nil {
		return err
	}
	if _, ok := r.elements[name]; !ok {
		return fmt.Errorf("%w: %s", scene.ErrNotFound, name)
	}
	delete(r.elements, name)
	return nil
}

// Calls returns a copy of the call log.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Count returns how many calls of op succeeded.
func (r *Recorder) Count(op Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Op == op && c.Err == nil {
			n++
		}
	}
	return n
}

// Live lists the names of created elements that were never removed.
func (r *Recorder) Live() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.elements))
	for name := range r.elements {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Settings returns the current payload of a live element.
func (r *Recorder) Settings(name string) (scene.Settings, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	el, ok := r.elements[name]
	if !ok {
		return nil, false
	}
	return el.settings, true
}

// SettingsHistory lists every payload an element was created or updated with, oldest
// first. It survives removal.
func (r *Recorder) SettingsHistory(name string) []scene.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]scene.Settings(nil), r.history[name]...)
}

// Filter returns the last strength set on a live element's filter.
func (r *Recorder) Filter(name, filter string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	el, ok := r.elements[name]
	if !ok {
		return 0, false
	}
	s, ok := el.filters[filter]
	return s, ok
}

var _ scene.Client = (*Recorder)(nil)

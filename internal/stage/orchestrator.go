// Package stage animates pull batches on the remote scene: cards are staged behind an
// anchor element, rise into place, reveal their level, then fade and are removed.
package stage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/xtding233/gacha-stage/internal/layout"
	"github.com/xtding233/gacha-stage/internal/progression"
	"github.com/xtding233/gacha-stage/internal/scene"
)

var (
	ErrStaging       = errors.New("card staging failed")
	ErrNoAnchor      = errors.New("stage anchor unavailable")
	ErrNothingStaged = errors.New("no card could be staged")
)

// State is the terminal state of one group.
type State string

const (
	StateCompleted     State = "completed"
	StateFailedCleanly State = "failed_cleanly"
)

// GroupReport describes one group of at most GroupSize cards.
type GroupReport struct {
	Index   int
	Cards   int
	Staged  int
	Failed  int // staged cards that failed later
	State   State
	Legacy  bool // results went out as text instead
	Created int
	Removed int
	Err     error
}

// Report is what AnimateBatch hands back. It never carries a hard failure; the batch's
// results are always shown on stage or reported through the legacy path.
type Report struct {
	BatchID string
	UserID  string
	Groups  []GroupReport
}

// Orchestrator drives the stage. Groups run strictly one after another.
type Orchestrator struct {
	client scene.Client
	legacy *Legacy
	log    logrus.FieldLogger

	mu  sync.RWMutex
	cfg Config
}

func NewOrchestrator(client scene.Client, announcer Announcer, cfg Config, log logrus.FieldLogger) *Orchestrator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{
		client: client,
		legacy: NewLegacy(announcer, log),
		log:    log,
		cfg:    cfg,
	}
}

// Reconfigure applies to the next group.
func (o *Orchestrator) Reconfigure(cfg Config) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cfg = cfg
}

func (o *Orchestrator) config() Config {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cfg
}

// AnimateBatch splits the batch into groups and runs each group's full lifecycle before
// starting the next.
func (o *Orchestrator) AnimateBatch(ctx context.Context, userID string, batch progression.PullBatch) Report {
	rep := Report{BatchID: batch.ID, UserID: userID}
	log := o.log.WithFields(logrus.Fields{"user": userID, "batch": batch.ID})
	if len(batch.Outcomes) == 0 {
		log.Info("nothing to animate")
		return rep
	}
	who := speaker(userID, batch)

	size := o.config().GroupSize
	if size <= 0 || size > layout.MaxSlots {
		size = layout.MaxSlots
	}
	offset := 0
	for i, group := range batch.Groups(size) {
		cfg := o.config()
		gl := log.WithField("group", i)
		gr := o.animateGroup(ctx, cfg, gl, group)
		gr.Index = i
		if gr.State == StateFailedCleanly {
			gl.WithError(gr.Err).Warn("stage unavailable, reporting pulls as text")
			if err := o.legacy.Report(ctx, cfg, who, group, offset); err != nil {
				gl.WithError(err).Error("legacy report failed")
			}
			gr.Legacy = true
		}
		rep.Groups = append(rep.Groups, gr)
		offset += len(group)
	}
	return rep
}

// ReportText sends the whole batch through the legacy text path without touching the scene.
func (o *Orchestrator) ReportText(ctx context.Context, userID string, batch progression.PullBatch) error {
	return o.legacy.Report(ctx, o.config(), speaker(userID, batch), batch.Outcomes, 0)
}

func speaker(userID string, batch progression.PullBatch) string {
	if batch.DisplayName != "" {
		return batch.DisplayName
	}
	return userID
}

func (o *Orchestrator) animateGroup(ctx context.Context, cfg Config, log logrus.FieldLogger, group []progression.PullOutcome) (gr GroupReport) {
	gr.Cards = len(group)
	reg := NewRegistry(o.client, log)
	defer func() {
		reg.Teardown(ctx)
		gr.Created, gr.Removed = reg.Counts()
	}()

	geo, err := o.client.GetElementGeometry(ctx, cfg.Scene, cfg.Anchor)
	if err != nil {
		gr.State, gr.Err = StateFailedCleanly, fmt.Errorf("%w: %q: %w", ErrNoAnchor, cfg.Anchor, err)
		return gr
	}
	slots, err := cfg.Layout.ComputeSlots(layout.AnchorFrom(geo), len(group))
	if err != nil {
		gr.State, gr.Err = StateFailedCleanly, err
		return gr
	}

	// staging is sequential so element names never race on the remote side
	tag := uuid.NewString()[:8]
	var entries []*AnimationEntry
	for i, outcome := range group {
		if ctx.Err() != nil {
			break
		}
		e := &AnimationEntry{Order: i, Outcome: outcome}
		if err := o.stage(ctx, cfg, reg, tag, slots[i], e); err != nil {
			log.WithError(err).WithFields(logrus.Fields{"card": i, "phase": "stage"}).Warn("card dropped")
			reg.Remove(ctx, e.elements()...)
			continue
		}
		entries = append(entries, e)
	}
	gr.Staged = len(entries)
	if len(entries) == 0 {
		gr.State, gr.Err = StateFailedCleanly, ErrNothingStaged
		if ctx.Err() != nil {
			gr.Err = fmt.Errorf("%w: %w", ErrNothingStaged, ctx.Err())
		}
		return gr
	}
	gr.State = StateCompleted

	single := len(group) == 1
	// card tasks only return cancellation, so one broken card never stops its siblings
	g, gctx := errgroup.WithContext(ctx)
	for _, e := range entries {
		g.Go(func() error {
			if err := sleep(gctx, time.Duration(e.Order)*cfg.Stagger); err != nil {
				e.fail(err)
				return err
			}
			if err := o.rise(gctx, cfg, e, single); err != nil {
				e.fail(err)
				log.WithError(err).WithFields(logrus.Fields{"card": e.Order, "phase": "rise"}).Warn("card failed")
				return gctx.Err()
			}
			e.Phase = PhaseRisen
			if err := o.pop(gctx, cfg, e); err != nil {
				// the card stays up; only the level reveal is lost
				log.WithError(err).WithFields(logrus.Fields{"card": e.Order, "phase": "pop"}).Warn("level pop failed")
				return gctx.Err()
			}
			e.Phase = PhasePopped
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.WithError(err).Warn("animation interrupted")
	}
	for _, e := range entries {
		if e.Phase == PhaseFailed {
			gr.Failed++
		}
	}

	if err := sleep(ctx, cfg.BatchHold); err != nil {
		return gr
	}
	o.fade(ctx, cfg, log, entries)
	return gr
}

func (o *Orchestrator) stage(ctx context.Context, cfg Config, reg *Registry, tag string, slot layout.Slot, e *AnimationEntry) error {
	base := fmt.Sprintf("gacha_%s_%d", tag, e.Order)
	wrap := func(step string, err error) error {
		return fmt.Errorf("%w: card %d %s: %w", ErrStaging, e.Order, step, err)
	}

	var err error
	if e.Card, err = reg.Create(ctx, cfg.Scene, base+"_card", scene.ImageSettings{Path: e.Outcome.AssetPath}, false); err != nil {
		return wrap("create image", err)
	}
	geo, err := o.client.GetElementGeometry(ctx, cfg.Scene, e.Card.Name)
	if err != nil {
		return wrap("measure image", err)
	}
	e.Placement = cfg.Layout.Place(slot, geo.Width, geo.Height)
	e.current = e.Placement.Spawn
	if err := o.client.SetElementTransform(ctx, cfg.Scene, e.Card.ID, e.current); err != nil {
		return wrap("position image", err)
	}
	if err := o.client.SetFilterStrength(ctx, e.Card.Name, cfg.Filter, 1); err != nil {
		return wrap("silhouette", err)
	}
	if err := o.client.SetElementEnabled(ctx, cfg.Scene, e.Card.ID, true); err != nil {
		return wrap("show image", err)
	}

	nameColor := cfg.tierColor(e.Outcome.Rarity)
	if e.Outcome.Shiny {
		nameColor = cfg.ShinyColor
	}
	labels := []struct {
		el   *scene.Element
		name string
		text scene.TextSettings
	}{
		{&e.Name, base + "_name", scene.TextSettings{Text: cardTitle(e.Outcome), Font: cfg.Font, Size: cfg.NameSize, Color: nameColor}},
		{&e.Prefix, base + "_lvl", scene.TextSettings{Text: "Lvl.", Font: cfg.Font, Size: cfg.BadgeSize, Color: cfg.LevelColor}},
		{&e.Number, base + "_num", scene.TextSettings{Text: levelText(e.Outcome.PreviousLevel(), cfg.MaxLevel), Font: cfg.Font, Size: cfg.BadgeSize, Color: cfg.LevelColor}},
	}
	for _, l := range labels {
		if *l.el, err = reg.Create(ctx, cfg.Scene, l.name, l.text, false); err != nil {
			return wrap("create "+l.name, err)
		}
	}
	if err := o.placeLabels(ctx, cfg, e, e.current); err != nil {
		return wrap("position labels", err)
	}
	e.Phase = PhaseStaged
	return nil
}

func (o *Orchestrator) placeLabels(ctx context.Context, cfg Config, e *AnimationEntry, card scene.Transform) error {
	l := cfg.Layout.Labels(e.Placement, card)
	for _, p := range []struct {
		el scene.Element
		t  scene.Transform
	}{{e.Name, l.Name}, {e.Prefix, l.Prefix}, {e.Number, l.Number}} {
		if err := o.client.SetElementTransform(ctx, cfg.Scene, p.el.ID, p.t); err != nil {
			return fmt.Errorf("label %s: %w", p.el.Name, err)
		}
	}
	return nil
}

func (o *Orchestrator) rise(ctx context.Context, cfg Config, e *AnimationEntry, single bool) error {
	for _, el := range []scene.Element{e.Name, e.Prefix, e.Number} {
		if err := o.client.SetElementEnabled(ctx, cfg.Scene, el.ID, true); err != nil {
			return fmt.Errorf("show %s: %w", el.Name, err)
		}
	}
	hold := 0.0
	if single {
		hold = cfg.SilhouetteHold
	}
	from, to := e.Placement.Spawn, e.Placement.Target
	steps := max(cfg.RiseSteps, 1)
	for step := 1; step <= steps; step++ {
		t := float64(step) / float64(steps)
		k := cfg.RiseEasing.Apply(t)
		cur := to
		cur.X = lerp(from.X, to.X, k)
		cur.Y = lerp(from.Y, to.Y, k)
		cur.ScaleX = max(lerp(from.ScaleX, to.ScaleX, k), 0)
		cur.ScaleY = max(lerp(from.ScaleY, to.ScaleY, k), 0)
		if step == steps {
			cur = to
		}
		if err := o.client.SetElementTransform(ctx, cfg.Scene, e.Card.ID, cur); err != nil {
			return fmt.Errorf("move card: %w", err)
		}
		e.current = cur
		if err := o.client.SetFilterStrength(ctx, e.Card.Name, cfg.Filter, silhouette(t, hold)); err != nil {
			return fmt.Errorf("reveal card: %w", err)
		}
		if err := o.placeLabels(ctx, cfg, e, cur); err != nil {
			return err
		}
		if err := sleep(ctx, cfg.RiseFrame); err != nil {
			return err
		}
	}
	return nil
}

// silhouette is the tint strength at rise progress t, held at 1 until hold.
func silhouette(t, hold float64) float64 {
	if t <= hold {
		return 1
	}
	if hold >= 1 {
		return 0
	}
	return 1 - min((t-hold)/(1-hold), 1)
}

func (o *Orchestrator) pop(ctx context.Context, cfg Config, e *AnimationEntry) error {
	if err := sleep(ctx, cfg.LevelHold); err != nil {
		return err
	}
	color := cfg.LevelUpColor
	if e.Outcome.Level >= cfg.MaxLevel {
		color = cfg.MaxColor
	}
	text := scene.TextSettings{Text: levelText(e.Outcome.Level, cfg.MaxLevel), Font: cfg.Font, Size: cfg.BadgeSize, Color: color}
	if err := o.client.SetElementSettings(ctx, e.Number.Name, text); err != nil {
		return fmt.Errorf("level text: %w", err)
	}

	rest := cfg.Layout.Labels(e.Placement, e.current).Number
	steps := max(cfg.PopSteps, 1)
	// up then back down; the number is left-middle aligned so the prefix never moves
	for i := 1; i <= 2*steps; i++ {
		k := float64(i) / float64(steps)
		if i > steps {
			k = float64(2*steps-i) / float64(steps)
		}
		t := rest.Scaled(rest.ScaleX * lerp(1, cfg.PopScale, k))
		if err := o.client.SetElementTransform(ctx, cfg.Scene, e.Number.ID, t); err != nil {
			return fmt.Errorf("pop level: %w", err)
		}
		if err := sleep(ctx, cfg.PopFrame); err != nil {
			return err
		}
	}
	return nil
}

// fade shrinks every visible card and its labels to nothing in lockstep.
func (o *Orchestrator) fade(ctx context.Context, cfg Config, log logrus.FieldLogger, entries []*AnimationEntry) {
	type fading struct {
		e    *AnimationEntry
		from scene.Transform
	}
	var cards []fading
	for _, e := range entries {
		if e.visible() {
			cards = append(cards, fading{e: e, from: e.current})
		}
	}
	steps := max(cfg.FadeSteps, 1)
	for step := 1; step <= steps && len(cards) > 0; step++ {
		f := 1 - cfg.FadeEasing.Apply(float64(step)/float64(steps))
		keep := cards[:0]
		for _, c := range cards {
			t := c.from.Scaled(max(c.from.ScaleX*f, 0))
			err := o.client.SetElementTransform(ctx, cfg.Scene, c.e.Card.ID, t)
			if err == nil {
				c.e.current = t
				err = o.placeLabels(ctx, cfg, c.e, t)
			}
			if err != nil {
				log.WithError(err).WithFields(logrus.Fields{"card": c.e.Order, "phase": "fade"}).Debug("fade step failed")
				continue
			}
			keep = append(keep, c)
		}
		cards = keep
		if err := sleep(ctx, cfg.FadeFrame); err != nil {
			return
		}
	}
}

func cardTitle(o progression.PullOutcome) string {
	if o.Shiny {
		return "★ " + o.Name
	}
	return o.Name
}

func levelText(level, maxLevel int) string {
	if maxLevel > 0 && level >= maxLevel {
		return "MAX"
	}
	return strconv.Itoa(level)
}

// sleep waits d or until ctx is done. It is the frame boundary where cancellation is observed.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Package scene is the client-side contract for the remote scene graph the stage drives.
// Wire formats live in the adapters (see obsws); everything here is plain values.
package scene

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a named element does not exist on the remote side.
var ErrNotFound = errors.New("scene element not found")

// Alignment is the bounding-point flag set used by the remote scene graph.
type Alignment int

const (
	AlignCenter Alignment = 0
	AlignLeft   Alignment = 1 << 0
	AlignRight  Alignment = 1 << 1
	AlignTop    Alignment = 1 << 2
	AlignBottom Alignment = 1 << 3
)

// Has reports whether every bit of flag is set.
func (a Alignment) Has(flag Alignment) bool { return flag != 0 && a&flag == flag }

// Transform positions one element. X/Y is the point named by Alignment.
type Transform struct {
	X, Y           float64
	ScaleX, ScaleY float64
	Rotation       float64
	Alignment      Alignment
}

// Scaled returns t with a uniform scale.
func (t Transform) Scaled(s float64) Transform {
	t.ScaleX, t.ScaleY = s, s
	return t
}

// Geometry is an element's current transform plus its unscaled source size.
type Geometry struct {
	Transform
	Width, Height float64
}

// Center returns the visual center of the element, whatever its alignment point.
func (g Geometry) Center() (x, y float64) {
	w, h := g.Width*g.ScaleX, g.Height*g.ScaleY
	x, y = g.X, g.Y
	switch {
	case g.Alignment.Has(AlignLeft):
		x += w / 2
	case g.Alignment.Has(AlignRight):
		x -= w / 2
	}
	switch {
	case g.Alignment.Has(AlignTop):
		y += h / 2
	case g.Alignment.Has(AlignBottom):
		y -= h / 2
	}
	return x, y
}

// Kind is the type of element to create.
type Kind string

const (
	KindImage Kind = "image_source"
	KindText  Kind = "text_gdiplus_v3"
)

// Settings is the closed set of payloads an element accepts.
type Settings interface {
	Kind() Kind
}

// ImageSettings points an image element at a file.
type ImageSettings struct {
	Path string
}

func (ImageSettings) Kind() Kind { return KindImage }

// TextSettings renders a text label. Color is 0xAARRGGBB.
type TextSettings struct {
	Text  string
	Font  string
	Size  int
	Color uint32
}

func (TextSettings) Kind() Kind { return KindText }

// Element identifies a created element. Name is unique scene-wide.
type Element struct {
	ID   int64
	Name string
}

// Client is what the stage needs from the remote scene graph. Calls block until the
// remote side acknowledges them or ctx is done.
type Client interface {
	GetElementGeometry(ctx context.Context, scene, name string) (Geometry, error)
	CreateElement(ctx context.Context, scene, name string, settings Settings, enabled bool) (Element, error)
	SetElementTransform(ctx context.Context, scene string, id int64, t Transform) error
	SetElementEnabled(ctx context.Context, scene string, id int64, enabled bool) error
	SetElementSettings(ctx context.Context, name string, settings Settings) error
	// SetFilterStrength creates the named silhouette filter if missing and sets its strength in [0,1].
	SetFilterStrength(ctx context.Context, element, filter string, strength float64) error
	RemoveElement(ctx context.Context, name string) error
}

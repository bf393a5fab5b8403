// Package highlight reacts to pointer events over measures and paints every
// measure that shares the hovered measure's fingerprint.
package highlight

import (
	"fmt"
	"slices"

	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/fingerprint"
)

const (
	DefaultHighlightColor = "#E74C3C"
	DefaultRestoreColor   = "#000000"
)

// Element is one paintable glyph (notehead, stem, flag, ...).
type Element interface {
	SetColor(color string)
}

// Renderer is the drawing side. NoteElements returns the glyphs of one
// measure; Redraw commits pending colour changes.
type Renderer interface {
	NoteElements(measure int) []Element
	Redraw() error
}

// Lookup is the part of an index the controller reads.
type Lookup interface {
	Fingerprint(measure int) (fingerprint.Fingerprint, bool)
	Group(fp fingerprint.Fingerprint) []int
}

// State is either Idle or Active.
type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

type Option func(*Controller)

func WithHighlightColor(color string) Option {
	return func(c *Controller) {
		c.highlightColor = color
	}
}

func WithDefaultColor(color string) Option {
	return func(c *Controller) {
		c.defaultColor = color
	}
}

// Controller is the hover state machine. It is not safe for concurrent use;
// callers deliver events one at a time.
type Controller struct {
	lookup         Lookup
	renderer       Renderer
	highlightColor string
	defaultColor   string

	state State
	// hovered is the measure under the pointer, 0 when none. A unique measure
	// is hovered while the controller stays Idle.
	hovered     int
	highlighted []int
	detached    bool
}

func New(lookup Lookup, renderer Renderer, opts ...Option) *Controller {
	c := &Controller{
		lookup:         lookup,
		renderer:       renderer,
		highlightColor: DefaultHighlightColor,
		defaultColor:   DefaultRestoreColor,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PointerEnter handles the pointer moving onto measure m.
func (c *Controller) PointerEnter(m int) error {
	if c.detached || m == c.hovered {
		return nil
	}

	if c.state == Active {
		if err := c.restore(); err != nil {
			return err
		}
	}
	c.hovered = 0

	fp, ok := c.lookup.Fingerprint(m)
	if !ok {
		return nil
	}
	c.hovered = m

	group := c.lookup.Group(fp)
	if len(group) <= 1 {
		return nil
	}
	// The group counts as painted even if the redraw fails, so the next
	// leave still restores it.
	c.state = Active
	c.highlighted = group
	if err := c.paint(group, c.highlightColor); err != nil {
		return fmt.Errorf("highlighting measure %d: %w", m, err)
	}
	return nil
}

// PointerLeave handles the pointer leaving measure m. Leaving any measure
// other than the hovered one is ignored.
func (c *Controller) PointerLeave(m int) error {
	if c.detached || m != c.hovered {
		return nil
	}
	c.hovered = 0
	if c.state != Active {
		return nil
	}
	return c.restore()
}

// Detach restores any active highlight and makes later events no-ops. It is
// called when the score behind the controller is replaced.
func (c *Controller) Detach() error {
	if c.detached {
		return nil
	}
	c.detached = true
	c.hovered = 0
	if c.state != Active {
		return nil
	}
	return c.restore()
}

// restore repaints the active group with the default colour. The group is
// recomputed from the index rather than taken from the last paint.
func (c *Controller) restore() error {
	group := c.highlighted
	if fp, ok := c.lookup.Fingerprint(c.highlighted[0]); ok {
		group = c.lookup.Group(fp)
	}
	if err := c.paint(group, c.defaultColor); err != nil {
		return fmt.Errorf("restoring measure %d: %w", c.highlighted[0], err)
	}
	c.state = Idle
	c.highlighted = nil
	return nil
}

func (c *Controller) paint(measures []int, color string) error {
	for _, m := range measures {
		for _, el := range c.renderer.NoteElements(m) {
			el.SetColor(color)
		}
	}
	return c.renderer.Redraw()
}

func (c *Controller) State() State { return c.state }

// Current returns the hovered measure, if any.
func (c *Controller) Current() (int, bool) {
	return c.hovered, c.hovered != 0
}

// Highlighted returns the measures currently painted with the highlight colour.
func (c *Controller) Highlighted() []int {
	return slices.Clone(c.highlighted)
}

// Detached reports whether Detach has been called.
func (c *Controller) Detached() bool { return c.detached }

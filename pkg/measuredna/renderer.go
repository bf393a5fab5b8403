package measuredna

import (
	"fmt"

	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/highlight"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/score"
)

// PaintBatch is every colour change of one redraw that used one colour.
type PaintBatch struct {
	Color    string   `json:"color"`
	Measures []int    `json:"measures"`
	Elements []string `json:"elements"`
}

// PaintSink receives the batches of one redraw, in the order colours were
// first applied.
type PaintSink func(batches []PaintBatch) error

// CommandRenderer is a headless highlight.Renderer. Each note of the score is
// one element named m<measure>.s<slice>.v<voice>.n<note>; colour changes are
// buffered until Redraw hands them to the sink.
type CommandRenderer struct {
	elements map[int][]highlight.Element
	colors   map[string]string
	sink     PaintSink

	pending map[string]*PaintBatch
	order   []string
}

type commandElement struct {
	id       string
	measure  int
	renderer *CommandRenderer
}

func (e *commandElement) SetColor(color string) {
	e.renderer.record(e, color)
}

func NewCommandRenderer(s *score.Score, sink PaintSink) *CommandRenderer {
	r := &CommandRenderer{
		elements: make(map[int][]highlight.Element),
		colors:   make(map[string]string),
		sink:     sink,
		pending:  make(map[string]*PaintBatch),
	}
	if s == nil {
		return r
	}
	for _, m := range s.Measures {
		if m == nil {
			continue
		}
		for si, sl := range m.Slices {
			if sl == nil {
				continue
			}
			for vi, v := range sl.Voices {
				if v == nil {
					continue
				}
				for ni := range v.Notes {
					r.elements[m.Number] = append(r.elements[m.Number], &commandElement{
						id:       ElementID(m.Number, si, vi, ni),
						measure:  m.Number,
						renderer: r,
					})
				}
			}
		}
	}
	return r
}

// CommandRendererFactory builds a CommandRenderer per load, all feeding sink.
func CommandRendererFactory(sink PaintSink) RendererFactory {
	return func(s *score.Score) (highlight.Renderer, error) {
		return NewCommandRenderer(s, sink), nil
	}
}

// ElementID names the note at the given position.
func ElementID(measure, slice, voice, note int) string {
	return fmt.Sprintf("m%d.s%d.v%d.n%d", measure, slice, voice, note)
}

func (r *CommandRenderer) NoteElements(measure int) []highlight.Element {
	return r.elements[measure]
}

func (r *CommandRenderer) record(e *commandElement, color string) {
	r.colors[e.id] = color
	b, ok := r.pending[color]
	if !ok {
		b = &PaintBatch{Color: color}
		r.pending[color] = b
		r.order = append(r.order, color)
	}
	if n := len(b.Measures); n == 0 || b.Measures[n-1] != e.measure {
		b.Measures = append(b.Measures, e.measure)
	}
	b.Elements = append(b.Elements, e.id)
}

// Redraw flushes buffered colour changes. A redraw with nothing pending still
// calls the sink with an empty slice.
func (r *CommandRenderer) Redraw() error {
	batches := make([]PaintBatch, 0, len(r.order))
	for _, color := range r.order {
		batches = append(batches, *r.pending[color])
	}
	r.pending = make(map[string]*PaintBatch)
	r.order = nil

	if r.sink == nil {
		return nil
	}
	return r.sink(batches)
}

// Color returns the last colour applied to an element, "" if never painted.
func (r *CommandRenderer) Color(elementID string) string {
	return r.colors[elementID]
}

// ElementCount is the number of elements of measure.
func (r *CommandRenderer) ElementCount(measure int) int {
	return len(r.elements[measure])
}

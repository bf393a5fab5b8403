// Package musicxml loads score-partwise MusicXML into the measure model.
//
// It is a thin adapter: it reads notes, rests, durations and voice layout and
// ignores everything about engraving.
package musicxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sort"
	"strconv"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/score"
)

var (
	ErrNotPartwise = errors.New("not a score-partwise document")
	ErrNoMeasures  = errors.New("score has no measures")
)

// Parse reads a score-partwise document. Measures are numbered 1..N in
// document order; the printed number is kept as the label.
func Parse(r io.Reader) (*score.Score, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var doc xmlScore
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding musicxml: %w", err)
	}
	if doc.XMLName.Local != "score-partwise" {
		return nil, fmt.Errorf("root element <%s>: %w", doc.XMLName.Local, ErrNotPartwise)
	}

	b := newBuilder()
	for _, part := range doc.Parts {
		b.addPart(part)
	}
	if len(b.measures) == 0 {
		return nil, ErrNoMeasures
	}

	return &score.Score{
		Title:    doc.title(),
		Composer: doc.composer(),
		Measures: b.build(),
	}, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("charset %q is not supported", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// onset is a time position inside a measure in whole notes.
type onset = score.Duration

func onsetLess(a, b onset) bool {
	return a.Num*b.Den < b.Num*a.Den
}

type sliceBuilder struct {
	at     onset
	voices []*score.Voice
	byKey  map[string]*score.Voice
}

type measureBuilder struct {
	label  string
	slices map[onset]*sliceBuilder
}

type builder struct {
	measures []*measureBuilder
}

func newBuilder() *builder {
	return &builder{}
}

func (b *builder) measure(i int, label string) *measureBuilder {
	for len(b.measures) <= i {
		b.measures = append(b.measures, &measureBuilder{slices: make(map[onset]*sliceBuilder)})
	}
	mb := b.measures[i]
	if mb.label == "" {
		mb.label = label
	}
	return mb
}

func (b *builder) addPart(part xmlPart) {
	var divisions *big.Rat
	for i, m := range part.Measures {
		mb := b.measure(i, m.Number)

		// pos and last are in divisions, exact even for decimal lengths.
		pos, last := new(big.Rat), new(big.Rat)
		for _, ev := range m.Events {
			switch ev.Kind {
			case eventAttributes:
				divisions = ev.Divisions
			case eventBackup:
				pos.Sub(pos, ev.Duration)
				if pos.Sign() < 0 {
					pos.SetInt64(0)
				}
			case eventForward:
				pos.Add(pos, ev.Duration)
			case eventNote:
				n := ev.Note
				start := new(big.Rat).Set(pos)
				if n.Chord != nil {
					start.Set(last)
				}
				note := convertNote(n, divisions)
				mb.add(wholeNotes(start, divisions), voiceKey(part.ID, n), note)
				last.Set(start)
				if n.Chord == nil && n.Grace == nil && n.Duration != nil {
					pos.Add(pos, n.Duration.rat())
				}
			}
		}
	}
}

func (mb *measureBuilder) add(at onset, key string, note *score.Note) {
	at = at.Canonical()
	sb, ok := mb.slices[at]
	if !ok {
		sb = &sliceBuilder{at: at, byKey: make(map[string]*score.Voice)}
		mb.slices[at] = sb
	}
	v, ok := sb.byKey[key]
	if !ok {
		v = &score.Voice{ID: key}
		sb.byKey[key] = v
		sb.voices = append(sb.voices, v)
	}
	v.Notes = append(v.Notes, note)
}

func (b *builder) build() []*score.Measure {
	out := make([]*score.Measure, 0, len(b.measures))
	for i, mb := range b.measures {
		ordered := make([]*sliceBuilder, 0, len(mb.slices))
		for _, sb := range mb.slices {
			ordered = append(ordered, sb)
		}
		sort.Slice(ordered, func(a, c int) bool { return onsetLess(ordered[a].at, ordered[c].at) })

		label := mb.label
		if label == "" {
			label = measureLabel(i)
		}
		m := &score.Measure{Number: i + 1, Label: label}
		for _, sb := range ordered {
			m.Slices = append(m.Slices, &score.Slice{Voices: sb.voices})
		}
		out = append(out, m)
	}
	return out
}

func convertNote(n *xmlNote, divisions *big.Rat) *score.Note {
	note := &score.Note{}
	if n.Grace == nil && n.Duration != nil {
		note.Duration = wholeNotes(n.Duration.rat(), divisions)
	}
	switch {
	case n.Rest != nil:
		note.Rest = true
	case n.Pitch != nil:
		note.Pitch = &score.Pitch{Step: n.Pitch.Step, Alter: n.Pitch.alter(), Octave: n.Pitch.Octave}
	}
	return note
}

// wholeNotes converts a length in divisions (ticks per quarter) to whole
// notes. The result is undefined when divisions is unset or the fraction
// does not fit in int64.
func wholeNotes(ticks, divisions *big.Rat) score.Duration {
	if divisions == nil || divisions.Sign() <= 0 {
		return score.Duration{}
	}
	w := new(big.Rat).Mul(divisions, big.NewRat(4, 1))
	w.Quo(ticks, w)
	if !w.Num().IsInt64() || !w.Denom().IsInt64() {
		return score.Duration{}
	}
	return score.NewDuration(w.Num().Int64(), w.Denom().Int64())
}

func voiceKey(partID string, n *xmlNote) string {
	voice := n.Voice
	if voice == "" {
		voice = "1"
	}
	staff := n.Staff
	if staff == "" {
		staff = "1"
	}
	return partID + "/" + staff + "/" + voice
}

// measureLabel is used when a document omits the number attribute.
func measureLabel(i int) string {
	return strconv.Itoa(i + 1)
}

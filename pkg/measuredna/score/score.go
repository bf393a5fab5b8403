// Package score holds the read-only musical structure that fingerprinting
// walks: a score is a list of measures, a measure a list of vertical slices,
// a slice a list of voices and a voice a list of notes.
package score

// Score is a loaded piece of music.
type Score struct {
	Title    string
	Composer string
	Measures []*Measure
}

// Measure is one bar. Number is 1-based and unique within its score; Label is
// the number printed in the source document, which may repeat or be empty.
type Measure struct {
	Number int
	Label  string
	Slices []*Slice
}

// Slice is everything sounding at one time position of a measure.
type Slice struct {
	Voices []*Voice
}

// Voice is one performer's line within a slice.
type Voice struct {
	ID    string
	Notes []*Note
}

// Note is a rest, a pitched note or an unpitched (percussion) note.
type Note struct {
	Rest     bool
	Pitch    *Pitch
	Duration Duration
}

// Pitch is a spelled pitch. Alter counts semitones (+1 sharp, -1 flat).
type Pitch struct {
	Step   string
	Alter  int
	Octave int
}

// IsRest reports whether n is a rest.
func (n *Note) IsRest() bool { return n != nil && n.Rest }

// IsPitched reports whether n carries a pitch.
func (n *Note) IsPitched() bool { return n != nil && !n.Rest && n.Pitch != nil }

// IsUnpitched reports whether n is a sounding note without pitch.
func (n *Note) IsUnpitched() bool { return n != nil && !n.Rest && n.Pitch == nil }

// NoteCount counts the notes in m, rests included.
func (m *Measure) NoteCount() int {
	if m == nil {
		return 0
	}
	count := 0
	for _, s := range m.Slices {
		if s == nil {
			continue
		}
		for _, v := range s.Voices {
			if v == nil {
				continue
			}
			count += len(v.Notes)
		}
	}
	return count
}

// NoteCount counts every note in the score.
func (s *Score) NoteCount() int {
	if s == nil {
		return 0
	}
	count := 0
	for _, m := range s.Measures {
		count += m.NoteCount()
	}
	return count
}

// Package fingerprint turns a measure into a string that is equal for two
// measures exactly when they hold the same notes in the same slice and voice
// layout.
package fingerprint

import (
	"strconv"
	"strings"

	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/score"
)

// Fingerprint is the signature of one measure.
type Fingerprint string

const (
	TokenSeparator = ';'
	VoiceSeparator = ','
	SliceSeparator = '|'

	// MalformedPrefix starts every sentinel fingerprint. It can not collide
	// with a real signature because note tokens never start with '!'.
	MalformedPrefix = "!malformed:"
)

// Malformed returns the sentinel fingerprint of an unreadable measure. The
// measure number is embedded so two broken measures never group together.
func Malformed(number int) Fingerprint {
	return Fingerprint(MalformedPrefix + strconv.Itoa(number))
}

// IsMalformed reports whether fp is a sentinel.
func (fp Fingerprint) IsMalformed() bool {
	return strings.HasPrefix(string(fp), MalformedPrefix)
}

// Measure builds the fingerprint of m. Slices, voices and notes are visited
// in stored order; every note token is followed by ';', every voice is closed
// by ',' and every slice by '|'. A measure without slices fingerprints to "".
func Measure(m *score.Measure) Fingerprint {
	if m == nil {
		return Malformed(0)
	}

	var b strings.Builder
	for _, slice := range m.Slices {
		if slice == nil {
			return Malformed(m.Number)
		}
		for _, voice := range slice.Voices {
			if voice == nil {
				return Malformed(m.Number)
			}
			for _, note := range voice.Notes {
				if note == nil {
					return Malformed(m.Number)
				}
				b.WriteString(NoteToken(note))
				b.WriteByte(TokenSeparator)
			}
			b.WriteByte(VoiceSeparator)
		}
		b.WriteByte(SliceSeparator)
	}
	return Fingerprint(b.String())
}

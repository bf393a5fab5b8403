package fingerprint

import (
	"fmt"
	"strings"

	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/score"
)

const (
	RestPrefix      = "r:"
	PitchedPrefix   = "n:"
	UnpitchedPrefix = "u:"
)

var accidentals = map[int]string{
	-2: "bb",
	-1: "b",
	0:  "",
	1:  "#",
	2:  "##",
}

// NoteToken renders a single note as its canonical token. A nil note has no
// token.
func NoteToken(n *score.Note) string {
	switch {
	case n.IsRest():
		return RestPrefix + DurationToken(n.Duration)
	case n.IsPitched():
		return PitchedPrefix + PitchToken(n.Pitch) + ":" + DurationToken(n.Duration)
	case n.IsUnpitched():
		return UnpitchedPrefix + DurationToken(n.Duration)
	default:
		return ""
	}
}

// DurationToken is the reduced num/den form of d, or "" when d is undefined.
func DurationToken(d score.Duration) string {
	return d.String()
}

// PitchToken spells a pitch as step, accidental and octave (C4, F#3, Bb5).
// Spelling is kept, so C#4 and Db4 are different tokens.
func PitchToken(p *score.Pitch) string {
	if p == nil {
		return ""
	}
	step := strings.ToUpper(strings.TrimSpace(p.Step))
	if len(step) != 1 || step[0] < 'A' || step[0] > 'G' {
		return ""
	}

	acc, ok := accidentals[p.Alter]
	if !ok {
		acc = fmt.Sprintf("(%+d)", p.Alter)
	}
	return fmt.Sprintf("%s%s%d", step, acc, p.Octave)
}

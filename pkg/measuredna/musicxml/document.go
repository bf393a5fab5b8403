package musicxml

import (
	"encoding/xml"
	"fmt"
	"math"
	"math/big"
	"strings"
)

// maxDecimalLen caps the digits accepted in a duration or divisions value.
const maxDecimalLen = 32

// The types below mirror only the parts of score-partwise that the measure
// model needs. Everything else is skipped by the decoder.

type xmlScore struct {
	XMLName        xml.Name
	Work           xmlWork           `xml:"work"`
	MovementTitle  string            `xml:"movement-title"`
	Identification xmlIdentification `xml:"identification"`
	Parts          []xmlPart         `xml:"part"`
}

type xmlWork struct {
	Title string `xml:"work-title"`
}

type xmlIdentification struct {
	Creators []xmlCreator `xml:"creator"`
}

type xmlCreator struct {
	Type string `xml:"type,attr"`
	Name string `xml:",chardata"`
}

type xmlPart struct {
	ID       string       `xml:"id,attr"`
	Measures []xmlMeasure `xml:"measure"`
}

// xmlMeasure keeps its children in document order because <backup> and
// <forward> move the time cursor between notes.
type xmlMeasure struct {
	Number string
	Events []xmlEvent
}

type eventKind int

const (
	eventNote eventKind = iota
	eventBackup
	eventForward
	eventAttributes
)

type xmlEvent struct {
	Kind      eventKind
	Note      *xmlNote
	Duration  *big.Rat
	Divisions *big.Rat
}

type xmlNote struct {
	Chord     *struct{} `xml:"chord"`
	Grace     *struct{} `xml:"grace"`
	Rest      *struct{} `xml:"rest"`
	Pitch     *xmlPitch `xml:"pitch"`
	Unpitched *struct{} `xml:"unpitched"`
	Duration  *decimal  `xml:"duration"`
	Voice     string    `xml:"voice"`
	Staff     string    `xml:"staff"`
}

type xmlPitch struct {
	Step   string  `xml:"step"`
	Alter  float64 `xml:"alter"`
	Octave int     `xml:"octave"`
}

type xmlDuration struct {
	Duration decimal `xml:"duration"`
}

type xmlAttributes struct {
	Divisions *decimal `xml:"divisions"`
}

// decimal is an exact xs:decimal. Durations and divisions may be fractional,
// so they are kept as rationals rather than rounded.
type decimal big.Rat

func (d *decimal) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	bad := func(r rune) bool { return (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' }
	if s == "" || len(s) > maxDecimalLen || strings.ContainsFunc(s, bad) {
		return fmt.Errorf("invalid decimal %q", s)
	}
	if _, ok := d.rat().SetString(s); !ok {
		return fmt.Errorf("invalid decimal %q", s)
	}
	return nil
}

func (d *decimal) rat() *big.Rat { return (*big.Rat)(d) }

func (m *xmlMeasure) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "number" {
			m.Number = strings.TrimSpace(attr.Value)
		}
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "note":
				var n xmlNote
				if err := d.DecodeElement(&n, &t); err != nil {
					return err
				}
				m.Events = append(m.Events, xmlEvent{Kind: eventNote, Note: &n})
			case "backup", "forward":
				var dur xmlDuration
				if err := d.DecodeElement(&dur, &t); err != nil {
					return err
				}
				kind := eventBackup
				if t.Name.Local == "forward" {
					kind = eventForward
				}
				m.Events = append(m.Events, xmlEvent{Kind: kind, Duration: dur.Duration.rat()})
			case "attributes":
				var attrs xmlAttributes
				if err := d.DecodeElement(&attrs, &t); err != nil {
					return err
				}
				if attrs.Divisions != nil {
					m.Events = append(m.Events, xmlEvent{Kind: eventAttributes, Divisions: attrs.Divisions.rat()})
				}
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (s *xmlScore) title() string {
	if t := strings.TrimSpace(s.Work.Title); t != "" {
		return t
	}
	return strings.TrimSpace(s.MovementTitle)
}

func (s *xmlScore) composer() string {
	for _, c := range s.Identification.Creators {
		if c.Type == "composer" {
			return strings.TrimSpace(c.Name)
		}
	}
	return ""
}

// alter rounds microtonal alterations to the nearest semitone.
func (p *xmlPitch) alter() int {
	return int(math.Round(p.Alter))
}

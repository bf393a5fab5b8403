package musicxml

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/fingerprint"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/index"
)

const header = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE score-partwise PUBLIC "-//Recordare//DTD MusicXML 4.0 Partwise//EN" "http://www.musicxml.org/dtds/partwise.dtd">
`

func quarter(step, octave string) string {
	return `<note><pitch><step>` + step + `</step><octave>` + octave + `</octave></pitch><duration>1</duration><voice>1</voice><type>quarter</type></note>`
}

const quarterRest = `<note><rest/><duration>1</duration><voice>1</voice><type>quarter</type></note>`

// exampleDoc: measures 1 and 3 are C4 + rest, 2 and 4 differ.
func exampleDoc() string {
	return header + `<score-partwise version="4.0">
  <work><work-title>Example</work-title></work>
  <identification><creator type="composer">Anon</creator></identification>
  <part-list><score-part id="P1"><part-name>Piano</part-name></score-part></part-list>
  <part id="P1">
    <measure number="1">
      <attributes><divisions>1</divisions><time><beats>2</beats><beat-type>4</beat-type></time></attributes>
      ` + quarter("C", "4") + quarterRest + `
    </measure>
    <measure number="2">` + quarter("D", "4") + quarter("E", "4") + `</measure>
    <measure number="3">` + quarter("C", "4") + quarterRest + `</measure>
    <measure number="4">` + quarter("G", "4") + quarterRest + `</measure>
  </part>
</score-partwise>`
}

func TestParseExample(t *testing.T) {
	s, err := Parse(strings.NewReader(exampleDoc()))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if s.Title != "Example" {
		t.Errorf("Expected title 'Example', got '%s'", s.Title)
	}
	if s.Composer != "Anon" {
		t.Errorf("Expected composer 'Anon', got '%s'", s.Composer)
	}
	if len(s.Measures) != 4 {
		t.Fatalf("Expected 4 measures, got %d", len(s.Measures))
	}
	for i, m := range s.Measures {
		if m.Number != i+1 {
			t.Errorf("Measure %d has number %d", i, m.Number)
		}
	}

	want := fingerprint.Fingerprint("n:C4:1/4;,|r:1/4;,|")
	if got := fingerprint.Measure(s.Measures[0]); got != want {
		t.Errorf("Measure 1 fingerprint = %q, want %q", got, want)
	}

	idx, err := index.Analyze(s)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(idx.Repeated()) != 1 {
		t.Fatalf("Expected one repeated group, got %d", len(idx.Repeated()))
	}
	if got := idx.Repeated()[0].Measures; len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("Expected group {1,3}, got %v", got)
	}
}

func TestParseChordsBackupAndParts(t *testing.T) {
	doc := header + `<score-partwise version="4.0">
  <part id="P1">
    <measure number="1">
      <attributes><divisions>2</divisions></attributes>
      <note><pitch><step>C</step><octave>4</octave></pitch><duration>2</duration><voice>1</voice></note>
      <note><chord/><pitch><step>E</step><octave>4</octave></pitch><duration>2</duration><voice>1</voice></note>
      <note><pitch><step>G</step><alter>1</alter><octave>4</octave></pitch><duration>2</duration><voice>1</voice></note>
      <backup><duration>4</duration></backup>
      <note><pitch><step>C</step><octave>3</octave></pitch><duration>4</duration><voice>2</voice></note>
    </measure>
  </part>
  <part id="P2">
    <measure number="1">
      <attributes><divisions>1</divisions></attributes>
      <forward><duration>1</duration></forward>
      <note><unpitched><display-step>E</display-step><display-octave>4</display-octave></unpitched><duration>1</duration><voice>1</voice></note>
    </measure>
  </part>
</score-partwise>`

	s, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(s.Measures) != 1 {
		t.Fatalf("Parts should merge into one measure, got %d", len(s.Measures))
	}

	m := s.Measures[0]
	if len(m.Slices) != 2 {
		t.Fatalf("Expected 2 slices (onsets 0 and 1/4), got %d", len(m.Slices))
	}

	first := m.Slices[0]
	if len(first.Voices) != 2 {
		t.Fatalf("Expected 2 voices at onset 0, got %d", len(first.Voices))
	}
	if len(first.Voices[0].Notes) != 2 {
		t.Errorf("Chord should put 2 notes in voice 1, got %d", len(first.Voices[0].Notes))
	}
	if first.Voices[1].Notes[0].Duration.String() != "1/2" {
		t.Errorf("Bass note should last 1/2, got %s", first.Voices[1].Notes[0].Duration)
	}

	second := m.Slices[1]
	if len(second.Voices) != 2 {
		t.Fatalf("Expected 2 voices at onset 1/4, got %d", len(second.Voices))
	}
	if p := second.Voices[0].Notes[0].Pitch; p == nil || p.Alter != 1 {
		t.Errorf("Expected G#4 in first voice of second slice, got %+v", p)
	}
	if !second.Voices[1].Notes[0].IsUnpitched() {
		t.Error("Expected an unpitched note from P2")
	}

	want := fingerprint.Fingerprint("n:C4:1/4;n:E4:1/4;,n:C3:1/2;,|n:G#4:1/4;,u:1/4;,|")
	if got := fingerprint.Measure(m); got != want {
		t.Errorf("Fingerprint = %q, want %q", got, want)
	}
}

func TestParseGraceNoteHasNoDuration(t *testing.T) {
	doc := header + `<score-partwise><part id="P1"><measure number="1">
    <attributes><divisions>1</divisions></attributes>
    <note><grace/><pitch><step>D</step><octave>5</octave></pitch><voice>1</voice></note>
    ` + quarter("C", "5") + `
  </measure></part></score-partwise>`

	s, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	notes := s.Measures[0].Slices[0].Voices[0].Notes
	if len(notes) != 2 {
		t.Fatalf("Expected grace and main note in one slice, got %d", len(notes))
	}
	if notes[0].Duration.Valid() {
		t.Errorf("Grace note should have no duration, got %s", notes[0].Duration)
	}
}

func TestParseDecimalDurations(t *testing.T) {
	doc := header + `<score-partwise><part id="P1"><measure number="1">
    <attributes><divisions>1</divisions></attributes>
    <note><pitch><step>C</step><octave>4</octave></pitch><duration>0.75</duration><voice>1</voice></note>
    <note><pitch><step>D</step><octave>4</octave></pitch><duration> 0.25 </duration><voice>1</voice></note>
    <note><rest/><duration>1</duration><voice>1</voice></note>
    <backup><duration>1.5</duration></backup>
    <note><pitch><step>G</step><octave>3</octave></pitch><duration>1.5</duration><voice>2</voice></note>
  </measure></part></score-partwise>`

	s, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := fingerprint.Fingerprint("n:C4:3/16;,|n:G3:3/8;,|n:D4:1/16;,|r:1/4;,|")
	if got := fingerprint.Measure(s.Measures[0]); got != want {
		t.Errorf("Fingerprint = %q, want %q", got, want)
	}

	for _, bad := range []string{"1e3", "0x10", "3/4", "abc"} {
		in := header + `<score-partwise><part id="P1"><measure number="1">
    <attributes><divisions>1</divisions></attributes>
    <note><rest/><duration>` + bad + `</duration><voice>1</voice></note>
  </measure></part></score-partwise>`
		if _, err := Parse(strings.NewReader(in)); err == nil {
			t.Errorf("Expected error for duration %q", bad)
		}
	}
}

func TestParseDecimalDivisions(t *testing.T) {
	doc := header + `<score-partwise><part id="P1"><measure number="1">
    <attributes><divisions>0.5</divisions></attributes>
    <note><rest/><duration>0.5</duration><voice>1</voice></note>
    <note><rest/><duration>1</duration><voice>1</voice></note>
  </measure></part></score-partwise>`

	s, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := fingerprint.Fingerprint("r:1/4;,|r:1/2;,|")
	if got := fingerprint.Measure(s.Measures[0]); got != want {
		t.Errorf("Fingerprint = %q, want %q", got, want)
	}
}

func TestParseKeepsLabels(t *testing.T) {
	doc := header + `<score-partwise><part id="P1">
    <measure number="0"><attributes><divisions>1</divisions></attributes>` + quarterRest + `</measure>
    <measure number="X1">` + quarterRest + `</measure>
    <measure>` + quarterRest + `</measure>
  </part></score-partwise>`

	s, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	labels := []string{"0", "X1", "3"}
	for i, m := range s.Measures {
		if m.Number != i+1 {
			t.Errorf("Expected number %d, got %d", i+1, m.Number)
		}
		if m.Label != labels[i] {
			t.Errorf("Expected label %q, got %q", labels[i], m.Label)
		}
	}
}

func TestParseErrors(t *testing.T) {
	timewise := `<?xml version="1.0"?><score-timewise><measure number="1"/></score-timewise>`
	if _, err := Parse(strings.NewReader(timewise)); !errors.Is(err, ErrNotPartwise) {
		t.Errorf("Expected ErrNotPartwise, got %v", err)
	}

	empty := `<?xml version="1.0"?><score-partwise><part id="P1"/></score-partwise>`
	if _, err := Parse(strings.NewReader(empty)); !errors.Is(err, ErrNoMeasures) {
		t.Errorf("Expected ErrNoMeasures, got %v", err)
	}

	if _, err := Parse(strings.NewReader("<score-partwise><part>")); err == nil {
		t.Error("Expected error for truncated document")
	}
}

func TestParseLatin1(t *testing.T) {
	doc := []byte(`<?xml version="1.0" encoding="ISO-8859-1"?><score-partwise><work><work-title>F`)
	doc = append(doc, 0xFC) // ü
	doc = append(doc, []byte(`r Elise</work-title></work><part id="P1"><measure number="1"><attributes><divisions>1</divisions></attributes>`+quarterRest+`</measure></part></score-partwise>`)...)

	s, err := Parse(bytes.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.Title != "Für Elise" {
		t.Errorf("Expected 'Für Elise', got %q", s.Title)
	}
}

func writeMXL(t *testing.T, withContainer bool) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if withContainer {
		w, err := zw.Create(containerPath)
		if err != nil {
			t.Fatalf("Failed to create container entry: %v", err)
		}
		w.Write([]byte(`<?xml version="1.0"?><container><rootfiles><rootfile full-path="score/example.musicxml" media-type="application/vnd.recordare.musicxml+xml"/></rootfiles></container>`))
	}
	w, err := zw.Create("score/example.musicxml")
	if err != nil {
		t.Fatalf("Failed to create score entry: %v", err)
	}
	w.Write([]byte(exampleDoc()))
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func TestParseFileCompressed(t *testing.T) {
	for _, withContainer := range []bool{true, false} {
		path := filepath.Join(t.TempDir(), "example.mxl")
		if err := os.WriteFile(path, writeMXL(t, withContainer), 0o644); err != nil {
			t.Fatalf("Failed to write archive: %v", err)
		}

		s, err := ParseFile(path)
		if err != nil {
			t.Fatalf("ParseFile failed (container=%v): %v", withContainer, err)
		}
		if len(s.Measures) != 4 {
			t.Errorf("Expected 4 measures, got %d", len(s.Measures))
		}
	}
}

func TestParseFilePlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.musicxml")
	if err := os.WriteFile(path, []byte(exampleDoc()), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	s, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if s.Title != "Example" {
		t.Errorf("Expected title 'Example', got '%s'", s.Title)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.xml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestIsCompressed(t *testing.T) {
	if !IsCompressed("song.MXL", nil) {
		t.Error("Extension .MXL should be detected")
	}
	if !IsCompressed("upload", []byte("PK\x03\x04rest")) {
		t.Error("Zip header should be detected")
	}
	if IsCompressed("song.musicxml", []byte("<?xml")) {
		t.Error("Plain xml should not be detected as compressed")
	}
}

package models

import "time"

// Score is a stored score's metadata.
type Score struct {
	ID           string    // Database ID (UUID)
	Title        string    // Work or movement title
	Composer     string    // Composer, if the document names one
	FileName     string    // Original file name
	MeasureCount int       // Number of measures found when the score was added
	SizeBytes    int64     // Uncompressed document size
	CreatedAt    time.Time // When the score was added
}

// RepeatGroup is a set of measures sharing one fingerprint.
type RepeatGroup struct {
	Fingerprint string `json:"fingerprint"`
	Measures    []int  `json:"measures"`
}

// Analysis summarises one analysis pass over a score.
type Analysis struct {
	ScoreID      string        `json:"score_id,omitempty"`
	Title        string        `json:"title"`
	MeasureCount int           `json:"measure_count"`
	NoteCount    int           `json:"note_count"`
	GroupCount   int           `json:"group_count"`
	Repeated     []RepeatGroup `json:"repeated"`
	Malformed    []int         `json:"malformed,omitempty"`
	// Fingerprints maps measure number to fingerprint.
	Fingerprints map[int]string `json:"fingerprints,omitempty"`
}

package measuredna

import (
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/index"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/score"
	"github.com/himanishpuri/MeasureDNA/pkg/models"
)

// Summarize reports the groups of idx for display or transport.
func Summarize(s *score.Score, idx *index.Index, withFingerprints bool) *models.Analysis {
	a := &models.Analysis{
		MeasureCount: idx.MeasureCount(),
		GroupCount:   idx.GroupCount(),
		Repeated:     []models.RepeatGroup{},
	}
	if s != nil {
		a.Title = s.Title
		a.NoteCount = s.NoteCount()
	}

	for _, g := range idx.Groups() {
		if g.Fingerprint.IsMalformed() {
			a.Malformed = append(a.Malformed, g.Measures...)
			continue
		}
		if g.Size() > 1 {
			a.Repeated = append(a.Repeated, models.RepeatGroup{
				Fingerprint: string(g.Fingerprint),
				Measures:    g.Measures,
			})
		}
	}

	if withFingerprints {
		a.Fingerprints = make(map[int]string, idx.MeasureCount())
		for _, m := range idx.Measures() {
			fp, _ := idx.Fingerprint(m)
			a.Fingerprints[m] = string(fp)
		}
	}
	return a
}

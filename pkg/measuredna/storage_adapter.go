//go:build !js && !wasm
// +build !js,!wasm

package measuredna

import (
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/storage"
	"github.com/himanishpuri/MeasureDNA/pkg/models"
)

// storageAdapter adapts the storage.DBClient to implement the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage creates a new SQLite storage backend.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) SaveScore(title, composer, fileName string, measureCount int, content []byte) (string, error) {
	return s.db.SaveScore(title, composer, fileName, measureCount, content)
}

func (s *storageAdapter) GetScore(scoreID string) (*models.Score, error) {
	rec, err := s.db.GetScore(scoreID)
	if err != nil {
		return nil, err
	}
	score := toModel(*rec)
	return &score, nil
}

func (s *storageAdapter) GetScoreContent(scoreID string) ([]byte, string, error) {
	return s.db.GetScoreContent(scoreID)
}

func (s *storageAdapter) ListScores() ([]models.Score, error) {
	recs, err := s.db.ListScores()
	if err != nil {
		return nil, err
	}
	scores := make([]models.Score, len(recs))
	for i, rec := range recs {
		scores[i] = toModel(rec)
	}
	return scores, nil
}

func (s *storageAdapter) CountScores() (int64, error) {
	return s.db.CountScores()
}

func (s *storageAdapter) DeleteScoreByID(scoreID string) error {
	return s.db.DeleteScoreByID(scoreID)
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}

func toModel(rec storage.ScoreRecord) models.Score {
	return models.Score{
		ID:           rec.ID,
		Title:        rec.Title,
		Composer:     rec.Composer,
		FileName:     rec.FileName,
		MeasureCount: rec.MeasureCount,
		SizeBytes:    rec.SizeBytes,
		CreatedAt:    rec.CreatedAt,
	}
}

package measuredna

import (
	"context"

	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/score"
	"github.com/himanishpuri/MeasureDNA/pkg/models"
)

type Service interface {
	AddScore(ctx context.Context, path, title string) (string, error)
	AddScoreContent(ctx context.Context, fileName, title string, content []byte) (string, error)
	AnalyzeScore(ctx context.Context, scoreID string) (*models.Analysis, error)
	AnalyzeFile(ctx context.Context, path string) (*models.Analysis, error)
	Provider(scoreID string) ScoreProvider
	GetScoreByID(scoreID string) (*models.Score, error)
	ListScores() ([]models.Score, error)
	CountScores() (int64, error)
	DeleteScore(scoreID string) error
	Close() error
}

type Storage interface {
	SaveScore(title, composer, fileName string, measureCount int, content []byte) (string, error)
	GetScore(scoreID string) (*models.Score, error)
	GetScoreContent(scoreID string) ([]byte, string, error)
	ListScores() ([]models.Score, error)
	CountScores() (int64, error)
	DeleteScoreByID(scoreID string) error
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// ScoreProvider produces the score model for one load.
type ScoreProvider interface {
	LoadScore(ctx context.Context) (*score.Score, error)
}

// ScoreProviderFunc adapts a function to ScoreProvider.
type ScoreProviderFunc func(ctx context.Context) (*score.Score, error)

func (f ScoreProviderFunc) LoadScore(ctx context.Context) (*score.Score, error) {
	return f(ctx)
}

//go:build !js && !wasm
// +build !js,!wasm

package measuredna

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/himanishpuri/MeasureDNA/pkg/logger"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/index"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/musicxml"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/score"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/storage"
	"github.com/himanishpuri/MeasureDNA/pkg/models"
)

// ErrScoreNotFound is returned for unknown score IDs.
var ErrScoreNotFound = storage.ErrScoreNotFound

// measureService is the default implementation of the Service interface.
type measureService struct {
	storage Storage
	log     Logger
	config  *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	// Set default logger if none provided
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	// Create or use provided storage
	var stor Storage
	var err error
	if cfg.Storage != nil {
		stor = cfg.Storage
	} else {
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &measureService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
	}, nil
}

// AddScore reads a MusicXML or .mxl file and stores it.
func (s *measureService) AddScore(ctx context.Context, path, title string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading score file: %w", err)
	}
	return s.AddScoreContent(ctx, filepath.Base(path), title, content)
}

// AddScoreContent parses and analyses content before storing it, so a
// document that cannot be loaded is never stored.
func (s *measureService) AddScoreContent(ctx context.Context, fileName, title string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.log.Infof("Processing score: %s", fileName)

	sc, idx, err := s.load(fileName, content)
	if err != nil {
		return "", err
	}

	if title == "" {
		title = sc.Title
	}
	if title == "" {
		title = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}

	scoreID, err := s.storage.SaveScore(title, sc.Composer, fileName, idx.MeasureCount(), content)
	if err != nil {
		return "", fmt.Errorf("failed to store score: %w", err)
	}

	s.log.Infof("Stored score ID=%s (%d measures, %d distinct)", scoreID, idx.MeasureCount(), idx.GroupCount())
	return scoreID, nil
}

// AnalyzeScore runs a fresh analysis over a stored score.
func (s *measureService) AnalyzeScore(ctx context.Context, scoreID string) (*models.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, fileName, err := s.storage.GetScoreContent(scoreID)
	if err != nil {
		return nil, err
	}
	sc, idx, err := s.load(fileName, content)
	if err != nil {
		return nil, err
	}

	analysis := Summarize(sc, idx, true)
	analysis.ScoreID = scoreID
	s.reportGroups(analysis)
	return analysis, nil
}

// AnalyzeFile analyses a file without storing it.
func (s *measureService) AnalyzeFile(ctx context.Context, path string) (*models.Analysis, error) {
	sc, err := FileProvider(path).LoadScore(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := index.Analyze(sc)
	if err != nil {
		return nil, fmt.Errorf("analyzing score: %w", err)
	}

	analysis := Summarize(sc, idx, true)
	s.reportGroups(analysis)
	return analysis, nil
}

// Provider loads a stored score for a Session.
func (s *measureService) Provider(scoreID string) ScoreProvider {
	return ScoreProviderFunc(func(ctx context.Context) (*score.Score, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, fileName, err := s.storage.GetScoreContent(scoreID)
		if err != nil {
			return nil, err
		}
		sc, err := musicxml.ParseBytes(fileName, content)
		if err != nil {
			return nil, fmt.Errorf("parsing score %s: %w", scoreID, err)
		}
		return sc, nil
	})
}

func (s *measureService) load(fileName string, content []byte) (*score.Score, *index.Index, error) {
	sc, err := musicxml.ParseBytes(fileName, content)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing score: %w", err)
	}
	idx, err := index.Analyze(sc)
	if err != nil {
		return nil, nil, fmt.Errorf("analyzing score: %w", err)
	}
	return sc, idx, nil
}

func (s *measureService) reportGroups(a *models.Analysis) {
	s.log.Infof("Analyzed '%s': %d measures, %d distinct, %d repeated groups",
		a.Title, a.MeasureCount, a.GroupCount, len(a.Repeated))
	for _, g := range a.Repeated {
		s.log.Debugf("  measures %v share %s", g.Measures, g.Fingerprint)
	}
	if len(a.Malformed) > 0 {
		s.log.Warnf("Measures %v could not be read and were kept apart", a.Malformed)
	}
}

// GetScoreByID retrieves a score's metadata by its ID.
func (s *measureService) GetScoreByID(scoreID string) (*models.Score, error) {
	return s.storage.GetScore(scoreID)
}

// ListScores returns all stored scores.
func (s *measureService) ListScores() ([]models.Score, error) {
	return s.storage.ListScores()
}

// CountScores returns the number of stored scores without loading them.
func (s *measureService) CountScores() (int64, error) {
	return s.storage.CountScores()
}

// DeleteScore removes a stored score.
func (s *measureService) DeleteScore(scoreID string) error {
	return s.storage.DeleteScoreByID(scoreID)
}

// Close releases all resources held by the service.
func (s *measureService) Close() error {
	return s.storage.Close()
}

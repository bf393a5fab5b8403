package measuredna

import (
	"context"
	"fmt"

	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/musicxml"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/score"
)

// FileProvider loads a MusicXML or .mxl file on every call, so a reload sees
// the file's current content.
func FileProvider(path string) ScoreProvider {
	return ScoreProviderFunc(func(ctx context.Context) (*score.Score, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := musicxml.ParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return s, nil
	})
}

// BytesProvider parses an in-memory document.
func BytesProvider(name string, data []byte) ScoreProvider {
	return ScoreProviderFunc(func(ctx context.Context) (*score.Score, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := musicxml.ParseBytes(name, data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		return s, nil
	})
}

// StaticProvider hands out an already built score.
func StaticProvider(s *score.Score) ScoreProvider {
	return ScoreProviderFunc(func(ctx context.Context) (*score.Score, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return s, nil
	})
}

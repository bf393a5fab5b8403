package measuredna

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/himanishpuri/MeasureDNA/pkg/logger"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/highlight"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/index"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/score"
)

var ErrNilProvider = errors.New("score provider is nil")

// RendererFactory creates the renderer for a freshly loaded score.
type RendererFactory func(s *score.Score) (highlight.Renderer, error)

// Loaded is one published score with its index.
type Loaded struct {
	Score      *score.Score
	Index      *index.Index
	Generation uint64

	controller *highlight.Controller
}

// Session owns the lifecycle of the score being viewed. A load is analysed
// completely before it is published, and publishing detaches the previous
// controller and installs the new one under one lock. A failed load leaves
// the previous score in place.
type Session struct {
	mu         sync.Mutex
	current    *Loaded
	generation uint64

	log    Logger
	config *Config
}

func NewSession(opts ...Option) *Session {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	return &Session{log: cfg.Logger, config: cfg}
}

// Load fetches a score, analyses it and publishes it.
func (s *Session) Load(ctx context.Context, provider ScoreProvider, newRenderer RendererFactory) (*Loaded, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}

	sc, err := provider.LoadScore(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading score: %w", err)
	}

	idx, err := index.Analyze(sc)
	if err != nil {
		return nil, fmt.Errorf("analyzing score: %w", err)
	}
	s.log.Debugf("Analyzed %d measures into %d groups (%d repeated)",
		idx.MeasureCount(), idx.GroupCount(), len(idx.Repeated()))

	var renderer highlight.Renderer
	if newRenderer != nil {
		renderer, err = newRenderer(sc)
		if err != nil {
			return nil, fmt.Errorf("creating renderer: %w", err)
		}
	}
	if renderer == nil {
		renderer = NewCommandRenderer(sc, nil)
	}
	ctrl := highlight.New(idx, renderer, s.config.highlightOptions()...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		if err := s.current.controller.Detach(); err != nil {
			s.log.Warnf("Failed to restore highlight of previous score: %v", err)
		}
	}
	s.generation++
	loaded := &Loaded{Score: sc, Index: idx, Generation: s.generation, controller: ctrl}
	s.current = loaded
	return loaded, nil
}

// Current returns the published score, or nil before the first load.
func (s *Session) Current() *Loaded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// PointerEnter forwards to the current controller. Without a score it does
// nothing.
func (s *Session) PointerEnter(measure int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current.controller.PointerEnter(measure)
}

// PointerLeave forwards to the current controller.
func (s *Session) PointerLeave(measure int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current.controller.PointerLeave(measure)
}

// Highlighted lists the measures painted right now.
func (s *Session) Highlighted() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current.controller.Highlighted()
}

// Close detaches the current controller.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	err := s.current.controller.Detach()
	s.current = nil
	return err
}

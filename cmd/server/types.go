//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/himanishpuri/MeasureDNA/pkg/measuredna"
	"github.com/himanishpuri/MeasureDNA/pkg/models"
)

// MaxUploadBytes bounds a score upload. Compressed .mxl files are far smaller.
const MaxUploadBytes = 32 << 20

var validate = validator.New()

// AddScoreForm holds the form fields of POST /api/scores
type AddScoreForm struct {
	Title string `validate:"max=256"`
}

// Validate checks if the form is valid
func (f *AddScoreForm) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("invalid form: %w", err)
	}
	return nil
}

// HoverMessage is one pointer event sent over the hover websocket.
type HoverMessage struct {
	Action  string `json:"action" validate:"required,oneof=enter leave"`
	Measure int    `json:"measure" validate:"min=1"`
}

// Validate checks if the message is valid
func (m *HoverMessage) Validate() error {
	return validate.Struct(m)
}

// validateScoreID checks that id is a score UUID.
func validateScoreID(id string) error {
	if err := validate.Var(id, "required,uuid"); err != nil {
		return fmt.Errorf("invalid score ID %q", id)
	}
	return nil
}

// HoverEvent is sent from the server over the hover websocket.
type HoverEvent struct {
	Action    string                  `json:"action"`
	SessionID string                  `json:"session_id,omitempty"`
	ScoreID   string                  `json:"score_id,omitempty"`
	Measures  int                     `json:"measures,omitempty"`
	Groups    []models.RepeatGroup    `json:"groups,omitempty"`
	Batches   []measuredna.PaintBatch `json:"batches,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

// AddScoreResponse is the response for successful score addition
type AddScoreResponse struct {
	Message      string `json:"message"`
	ID           string `json:"id"`
	Title        string `json:"title"`
	MeasureCount int    `json:"measure_count"`
}

// ScoreDTO represents a score in API responses
type ScoreDTO struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Composer     string    `json:"composer,omitempty"`
	FileName     string    `json:"file_name"`
	MeasureCount int       `json:"measure_count"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
}

func newScoreDTO(s *models.Score) ScoreDTO {
	return ScoreDTO{
		ID:           s.ID,
		Title:        s.Title,
		Composer:     s.Composer,
		FileName:     s.FileName,
		MeasureCount: s.MeasureCount,
		SizeBytes:    s.SizeBytes,
		CreatedAt:    s.CreatedAt,
	}
}

// ListScoresResponse is the response for GET /api/scores
type ListScoresResponse struct {
	Scores []ScoreDTO `json:"scores"`
	Count  int        `json:"count"`
}

// DeleteScoreResponse is the response for DELETE /api/scores/{id}
type DeleteScoreResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// MetricsResponse provides server health and database metrics
type MetricsResponse struct {
	Status       string `json:"status"`
	DatabasePath string `json:"database_path"`
	ScoreCount   int64  `json:"score_count"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

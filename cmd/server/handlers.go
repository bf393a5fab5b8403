//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/himanishpuri/MeasureDNA/pkg/logger"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service  measuredna.Service
	config   *ServerConfig
	log      measuredna.Logger
	upgrader websocket.Upgrader
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	AllowedOrigins []string
	// SessionOptions configure the highlight colours of hover sessions.
	SessionOptions []measuredna.Option
}

// NewServer creates a new server instance
func NewServer(service measuredna.Service, config *ServerConfig) *Server {
	s := &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger(),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(s.config.AllowedOrigins, r.Header.Get("Origin"))
		},
	}
	return s
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "MeasureDNA API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":       "GET /health",
			"metrics":      "GET /api/health/metrics",
			"prometheus":   "GET /metrics",
			"scores":       "GET /api/scores",
			"addScore":     "POST /api/scores",
			"getScore":     "GET /api/scores/{id}",
			"deleteScore":  "DELETE /api/scores/{id}",
			"analyzeScore": "GET /api/scores/{id}/analysis",
			"hoverSession": "GET /api/scores/{id}/hover (websocket)",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	count, err := s.service.CountScores()
	if err != nil {
		s.log.Errorf("Failed to get score count: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:       "healthy",
		DatabasePath: s.config.DBPath,
		ScoreCount:   count,
	})
}

// handleListScores handles GET /api/scores
func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	scores, err := s.service.ListScores()
	if err != nil {
		s.log.Errorf("Failed to list scores: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve scores")
		return
	}

	dtos := make([]ScoreDTO, len(scores))
	for i := range scores {
		dtos[i] = newScoreDTO(&scores[i])
	}

	s.respondJSON(w, http.StatusOK, ListScoresResponse{
		Scores: dtos,
		Count:  len(dtos),
	})
}

// handleGetScore handles GET /api/scores/{id}
func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request, scoreID string) {
	sc, err := s.service.GetScoreByID(scoreID)
	if err != nil {
		s.respondLookupError(w, scoreID, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newScoreDTO(sc))
}

// handleDeleteScore handles DELETE /api/scores/{id}
func (s *Server) handleDeleteScore(w http.ResponseWriter, r *http.Request, scoreID string) {
	if err := s.service.DeleteScore(scoreID); err != nil {
		s.respondLookupError(w, scoreID, err)
		return
	}

	s.log.Infof("Deleted score ID=%s", scoreID)
	s.respondJSON(w, http.StatusOK, DeleteScoreResponse{
		Message: "Score deleted successfully",
		ID:      scoreID,
	})
}

// handleAnalyzeScore handles GET /api/scores/{id}/analysis
func (s *Server) handleAnalyzeScore(w http.ResponseWriter, r *http.Request, scoreID string) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	start := time.Now()
	analysis, err := s.service.AnalyzeScore(ctx, scoreID)
	analysisDuration.Observe(time.Since(start).Seconds())
	analysesTotal.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		s.respondLookupError(w, scoreID, err)
		return
	}

	if r.URL.Query().Get("fingerprints") != "true" {
		analysis.Fingerprints = nil
	}
	s.respondJSON(w, http.StatusOK, analysis)
}

// handleAddScore handles POST /api/scores (multipart file upload)
func (s *Server) handleAddScore(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	form := AddScoreForm{Title: r.FormValue("title")}
	if err := form.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, header, err := r.FormFile("score")
	if err != nil {
		s.log.Errorf("Failed to get score file: %v", err)
		s.respondError(w, http.StatusBadRequest, "score file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.log.Errorf("Failed to read upload: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}

	s.log.Infof("Adding score from upload: %s", header.Filename)
	start := time.Now()
	scoreID, err := s.service.AddScoreContent(ctx, header.Filename, form.Title, content)
	analysisDuration.Observe(time.Since(start).Seconds())
	analysesTotal.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		s.log.Errorf("Failed to add score: %v", err)
		s.respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Failed to add score: %v", err))
		return
	}

	sc, err := s.service.GetScoreByID(scoreID)
	if err != nil {
		s.log.Errorf("Failed to read back score %s: %v", scoreID, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to read stored score")
		return
	}

	s.log.Infof("Successfully added score: %s (ID: %s)", sc.Title, scoreID)
	s.respondJSON(w, http.StatusCreated, AddScoreResponse{
		Message:      "Score added successfully",
		ID:           scoreID,
		Title:        sc.Title,
		MeasureCount: sc.MeasureCount,
	})
}

func (s *Server) respondLookupError(w http.ResponseWriter, scoreID string, err error) {
	if errors.Is(err, measuredna.ErrScoreNotFound) {
		s.log.Warnf("Score not found: %s", scoreID)
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Score with ID %s not found", scoreID))
		return
	}
	s.log.Errorf("Score %s: %v", scoreID, err)
	s.respondError(w, http.StatusInternalServerError, "Failed to process score")
}

// handleScores routes requests to /api/scores
func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListScores(w, r)
	case http.MethodPost:
		s.handleAddScore(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleScore routes requests to /api/scores/{id}[/analysis|/hover]
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/scores/")
	scoreID, sub, _ := strings.Cut(rest, "/")
	if scoreID == "" {
		s.respondError(w, http.StatusBadRequest, "Score ID required")
		return
	}
	if err := validateScoreID(scoreID); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		s.handleGetScore(w, r, scoreID)
	case sub == "" && r.Method == http.MethodDelete:
		s.handleDeleteScore(w, r, scoreID)
	case sub == "analysis" && r.Method == http.MethodGet:
		s.handleAnalyzeScore(w, r, scoreID)
	case sub == "hover" && r.Method == http.MethodGet:
		s.handleHover(w, r, scoreID)
	case sub == "" || sub == "analysis" || sub == "hover":
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		http.NotFound(w, r)
	}
}

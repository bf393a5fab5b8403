//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/himanishpuri/MeasureDNA/pkg/measuredna"
)

const hoverWriteTimeout = 5 * time.Second

// handleHover handles GET /api/scores/{id}/hover. The connection owns one
// session: the score is analysed before the first event is read, every
// enter/leave message is applied in arrival order, and each redraw is sent
// back as a "paint" event.
func (s *Server) handleHover(w http.ResponseWriter, r *http.Request, scoreID string) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("Failed to upgrade hover websocket: %v", err)
		return
	}
	defer ws.Close()

	hoverSessions.Inc()
	defer hoverSessions.Dec()

	sessionID := uuid.New().String()
	s.log.Infof("Hover session %s started for score %s", sessionID, scoreID)

	send := func(ev HoverEvent) error {
		ws.SetWriteDeadline(time.Now().Add(hoverWriteTimeout))
		if err := ws.WriteJSON(ev); err != nil {
			s.log.Warnf("Failed to write hover event: %v", err)
			return err
		}
		return nil
	}
	sink := func(batches []measuredna.PaintBatch) error {
		return send(HoverEvent{Action: "paint", Batches: batches})
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	session := measuredna.NewSession(s.config.SessionOptions...)
	start := time.Now()
	loaded, err := session.Load(ctx, s.service.Provider(scoreID), measuredna.CommandRendererFactory(sink))
	cancel()
	analysisDuration.Observe(time.Since(start).Seconds())
	analysesTotal.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		msg := "failed to load score"
		if errors.Is(err, measuredna.ErrScoreNotFound) {
			msg = "score not found"
		}
		s.log.Warnf("Hover session %s: %v", sessionID, err)
		send(HoverEvent{Action: "error", SessionID: sessionID, Error: msg})
		return
	}
	// Restores any active highlight while the socket can still carry it.
	defer session.Close()

	summary := measuredna.Summarize(loaded.Score, loaded.Index, false)
	if err := send(HoverEvent{
		Action:    "session_created",
		SessionID: sessionID,
		ScoreID:   scoreID,
		Measures:  summary.MeasureCount,
		Groups:    summary.Repeated,
	}); err != nil {
		return
	}

	for {
		var msg HoverMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warnf("Hover session %s closed: %v", sessionID, err)
			} else {
				s.log.Infof("Hover session %s ended", sessionID)
			}
			return
		}
		if err := msg.Validate(); err != nil {
			if send(HoverEvent{Action: "error", Error: err.Error()}) != nil {
				return
			}
			continue
		}
		hoverEventsTotal.WithLabelValues(msg.Action).Inc()

		if msg.Action == "enter" {
			err = session.PointerEnter(msg.Measure)
		} else {
			err = session.PointerLeave(msg.Measure)
		}
		if err != nil {
			s.log.Warnf("Hover session %s: %v", sessionID, err)
			return
		}
	}
}

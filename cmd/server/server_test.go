//go:build !js && !wasm

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/himanishpuri/MeasureDNA/pkg/measuredna"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/highlight"
	"github.com/himanishpuri/MeasureDNA/pkg/models"
)

const testScore = `<?xml version="1.0" encoding="UTF-8"?>
<score-partwise version="4.0">
  <work><work-title>Minuet</work-title></work>
  <part-list><score-part id="P1"><part-name>Piano</part-name></score-part></part-list>
  <part id="P1">
    <measure number="1">
      <attributes><divisions>1</divisions></attributes>
      <note><pitch><step>C</step><octave>4</octave></pitch><duration>2</duration><voice>1</voice></note>
    </measure>
    <measure number="2">
      <note><pitch><step>E</step><octave>4</octave></pitch><duration>2</duration><voice>1</voice></note>
    </measure>
    <measure number="3">
      <note><pitch><step>C</step><octave>4</octave></pitch><duration>2</duration><voice>1</voice></note>
    </measure>
  </part>
</score-partwise>`

// setupTestServer creates a server backed by a temporary database
func setupTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test_server.sqlite3")
	svc, err := measuredna.NewService(measuredna.WithDBPath(dbPath))
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	s := NewServer(svc, &ServerConfig{Port: 0, DBPath: dbPath, AllowedOrigins: []string{"*"}})
	ts := httptest.NewServer(s.setupRoutes())
	t.Cleanup(ts.Close)
	return s, ts
}

func uploadScore(t *testing.T, ts *httptest.Server, title, content string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if title != "" {
		mw.WriteField("title", title)
	}
	fw, err := mw.CreateFormFile("score", "minuet.musicxml")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	io.WriteString(fw, content)
	mw.Close()

	resp, err := http.Post(ts.URL+"/api/scores", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	return resp
}

func addTestScore(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp := uploadScore(t, ts, "", testScore)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	var out AddScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return out.ID
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	_, ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	var out map[string]string
	decodeJSON(t, resp, &out)
	if out["status"] != "healthy" {
		t.Errorf("Unexpected health response %v", out)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header")
	}
}

func TestAddGetAnalyzeDelete(t *testing.T) {
	_, ts := setupTestServer(t)
	id := addTestScore(t, ts)

	resp, err := http.Get(ts.URL + "/api/scores/" + id)
	if err != nil {
		t.Fatalf("GET score failed: %v", err)
	}
	var dto ScoreDTO
	decodeJSON(t, resp, &dto)
	if dto.Title != "Minuet" || dto.MeasureCount != 3 {
		t.Errorf("Unexpected score %+v", dto)
	}

	resp, err = http.Get(ts.URL + "/api/scores")
	if err != nil {
		t.Fatalf("GET scores failed: %v", err)
	}
	var list ListScoresResponse
	decodeJSON(t, resp, &list)
	if list.Count != 1 || list.Scores[0].ID != id {
		t.Errorf("Unexpected list %+v", list)
	}

	resp, err = http.Get(ts.URL + "/api/scores/" + id + "/analysis?fingerprints=true")
	if err != nil {
		t.Fatalf("GET analysis failed: %v", err)
	}
	var analysis models.Analysis
	decodeJSON(t, resp, &analysis)
	if analysis.GroupCount != 2 || len(analysis.Repeated) != 1 {
		t.Fatalf("Unexpected analysis %+v", analysis)
	}
	if !slices.Equal(analysis.Repeated[0].Measures, []int{1, 3}) {
		t.Errorf("Expected group {1,3}, got %v", analysis.Repeated[0].Measures)
	}
	if analysis.Fingerprints[2] != "n:E4:1/2;,|" {
		t.Errorf("Unexpected fingerprint %q", analysis.Fingerprints[2])
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/scores/"+id, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 on delete, got %d", resp.StatusCode)
	}

	resp, _ = http.Get(ts.URL + "/api/scores/" + id)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestAddScoreRejectsBadInput(t *testing.T) {
	_, ts := setupTestServer(t)

	resp := uploadScore(t, ts, "", "<not-a-score/>")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for invalid score, got %d", resp.StatusCode)
	}

	resp = uploadScore(t, ts, strings.Repeat("x", 300), testScore)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for long title, got %d", resp.StatusCode)
	}

	resp, err := http.Post(ts.URL+"/api/scores", "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-multipart body, got %d", resp.StatusCode)
	}
}

func TestScoreRouting(t *testing.T) {
	_, ts := setupTestServer(t)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/scores/not-a-uuid", http.StatusBadRequest},
		{http.MethodGet, "/api/scores/6f1c2d9e-0b7a-4a8e-9a57-3f0d1c2b4e6a", http.StatusNotFound},
		{http.MethodGet, "/api/scores/6f1c2d9e-0b7a-4a8e-9a57-3f0d1c2b4e6a/analysis", http.StatusNotFound},
		{http.MethodPost, "/api/scores/6f1c2d9e-0b7a-4a8e-9a57-3f0d1c2b4e6a", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/scores/6f1c2d9e-0b7a-4a8e-9a57-3f0d1c2b4e6a/other", http.StatusNotFound},
		{http.MethodPut, "/api/scores", http.StatusMethodNotAllowed},
		{http.MethodOptions, "/api/scores", http.StatusNoContent},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		req, _ := http.NewRequest(tc.method, ts.URL+tc.path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s failed: %v", tc.method, tc.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, resp.StatusCode)
		}
	}
}

func TestHealthMetricsCountsScores(t *testing.T) {
	_, ts := setupTestServer(t)
	first := addTestScore(t, ts)
	if again := addTestScore(t, ts); again != first {
		t.Fatalf("Re-uploading the same content returned %s, want %s", again, first)
	}

	resp, err := http.Get(ts.URL + "/api/health/metrics")
	if err != nil {
		t.Fatalf("GET /api/health/metrics failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var out MetricsResponse
	decodeJSON(t, resp, &out)
	if out.ScoreCount != 1 {
		t.Errorf("Expected score_count 1, got %d", out.ScoreCount)
	}
	if out.Status != "healthy" {
		t.Errorf("Unexpected status %q", out.Status)
	}
}

func TestPrometheusEndpoint(t *testing.T) {
	_, ts := setupTestServer(t)
	addTestScore(t, ts)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "measuredna_analyses_total") {
		t.Error("Expected analyses counter in metrics output")
	}
}

func dialHover(t *testing.T, ts *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/scores/" + id + "/hover"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) HoverEvent {
	t.Helper()
	var ev HoverEvent
	if err := ws.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	return ev
}

func TestHoverWebsocket(t *testing.T) {
	_, ts := setupTestServer(t)
	id := addTestScore(t, ts)
	ws := dialHover(t, ts, id)

	ev := readEvent(t, ws)
	if ev.Action != "session_created" || ev.SessionID == "" || ev.Measures != 3 {
		t.Fatalf("Unexpected first event %+v", ev)
	}
	if len(ev.Groups) != 1 || !slices.Equal(ev.Groups[0].Measures, []int{1, 3}) {
		t.Errorf("Unexpected groups %+v", ev.Groups)
	}

	ws.WriteJSON(HoverMessage{Action: "enter", Measure: 3})
	ev = readEvent(t, ws)
	if ev.Action != "paint" || len(ev.Batches) != 1 {
		t.Fatalf("Expected one paint batch, got %+v", ev)
	}
	if ev.Batches[0].Color != highlight.DefaultHighlightColor || !slices.Equal(ev.Batches[0].Measures, []int{1, 3}) {
		t.Errorf("Unexpected batch %+v", ev.Batches[0])
	}

	// A unique measure restores the group and paints nothing new.
	ws.WriteJSON(HoverMessage{Action: "enter", Measure: 2})
	ev = readEvent(t, ws)
	if ev.Batches[0].Color != highlight.DefaultRestoreColor {
		t.Errorf("Expected restore batch, got %+v", ev.Batches[0])
	}

	ws.WriteJSON(HoverMessage{Action: "jump", Measure: 1})
	ev = readEvent(t, ws)
	if ev.Action != "error" {
		t.Errorf("Expected validation error, got %+v", ev)
	}
}

func TestHoverWebsocketUnknownScore(t *testing.T) {
	_, ts := setupTestServer(t)
	ws := dialHover(t, ts, "6f1c2d9e-0b7a-4a8e-9a57-3f0d1c2b4e6a")

	ev := readEvent(t, ws)
	if ev.Action != "error" || ev.Error != "score not found" {
		t.Errorf("Expected not found error, got %+v", ev)
	}
}

func TestParseOrigins(t *testing.T) {
	if got := parseOrigins("*"); !slices.Equal(got, []string{"*"}) {
		t.Errorf("Unexpected origins %v", got)
	}
	if got := parseOrigins("http://a, http://b"); !slices.Equal(got, []string{"http://a", "http://b"}) {
		t.Errorf("Unexpected origins %v", got)
	}
	if !originAllowed([]string{"http://a"}, "http://a") || originAllowed([]string{"http://a"}, "http://c") {
		t.Error("originAllowed mismatch")
	}
}

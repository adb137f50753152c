package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/irad15/wildfire-detection/internal/detection"
	"github.com/irad15/wildfire-detection/internal/protocol"
	"github.com/irad15/wildfire-detection/pkg/config"
)

func testServer() *HTTPServer {
	cfg := &config.HTTPServerConfig{
		Port:         8080,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	detectionCfg := config.DetectionConfig{
		SmoothingWindow: 13,
		PolyOrder:       2,
		TempPivot:       4.0,
		TempSteepness:   3.0,
		SmokePivot:      0.02,
		SmokeSteepness:  20.0,
		WindPivot:       6.0,
		WindSteepness:   0.8,
		TempWeight:      60,
		SmokeWeight:     60,
		WindWeight:      15,
		AlertThreshold:  70,
		ResetThreshold:  65,
	}
	service := detection.NewService(detectionCfg)
	return NewHTTPServer(cfg, service, nil, nil, nil)
}

func postJSON(t *testing.T, s *HTTPServer, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func calmBatch(n int) []protocol.Reading {
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	readings := make([]protocol.Reading, n)
	for i := range readings {
		readings[i] = protocol.Reading{
			Timestamp:   base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
			Temperature: 20.0,
			Smoke:       0.01,
			Wind:        3.0,
		}
	}
	return readings
}

func TestHandleDetect_OK(t *testing.T) {
	s := testServer()

	body, _ := json.Marshal(detectRequest{Readings: calmBatch(24)})
	rec := postJSON(t, s, "/api/v1/detect", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var summary protocol.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("Failed to decode summary: %v", err)
	}
	if summary.EventCount != 0 {
		t.Errorf("Expected 0 events for calm batch, got %d", summary.EventCount)
	}
	if summary.Events == nil {
		t.Error("Expected events to serialize as an empty array, got null")
	}
}

func TestHandleDetect_EmptyBatch(t *testing.T) {
	s := testServer()

	body, _ := json.Marshal(detectRequest{Readings: []protocol.Reading{}})
	rec := postJSON(t, s, "/api/v1/detect", body)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d", rec.Code)
	}

	var errBody map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &errBody); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if errBody["detail"] == "" {
		t.Error("Expected non-empty detail in error body")
	}
}

func TestHandleDetect_InvalidReading(t *testing.T) {
	s := testServer()

	readings := calmBatch(3)
	readings[1].Smoke = 1.5
	body, _ := json.Marshal(detectRequest{Readings: readings})
	rec := postJSON(t, s, "/api/v1/detect", body)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d", rec.Code)
	}
}

func TestHandleDetect_MalformedJSON(t *testing.T) {
	s := testServer()

	rec := postJSON(t, s, "/api/v1/detect", []byte("{not json"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

func TestHandleDetect_EventResponse(t *testing.T) {
	s := testServer()

	readings := calmBatch(11)
	for i := range readings {
		readings[i].Wind = 0.0
	}
	readings[5].Temperature = 80.0
	readings[5].Smoke = 0.5

	body, _ := json.Marshal(detectRequest{Readings: readings})
	rec := postJSON(t, s, "/api/v1/detect", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var summary protocol.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("Failed to decode summary: %v", err)
	}
	if summary.EventCount != 1 {
		t.Fatalf("Expected 1 event, got %d", summary.EventCount)
	}
	if summary.MaxScore != 100.0 {
		t.Errorf("Expected max score 100.0, got %.1f", summary.MaxScore)
	}
}

func TestHandleEnqueueBatch_NoProducer(t *testing.T) {
	s := testServer()

	body, _ := json.Marshal(enqueueRequest{SiteID: "site-1", Readings: calmBatch(3)})
	rec := postJSON(t, s, "/api/v1/batches", body)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 without a producer, got %d", rec.Code)
	}
}

func TestCanonicalDigest_EncodingVariants(t *testing.T) {
	compact := []byte(`{"readings":[{"timestamp":"2025-08-01T10:00:00Z","temperature":20,"smoke":0.01,"wind":5}]}`)
	reordered := []byte(`{
		"readings": [
			{ "wind": 5, "smoke": 0.01, "timestamp": "2025-08-01T10:00:00Z", "temperature": 20 }
		]
	}`)

	digest := func(body []byte) string {
		var req detectRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		d, err := canonicalDigest(&req)
		if err != nil {
			t.Fatalf("canonicalDigest failed: %v", err)
		}
		return d
	}

	if digest(compact) != digest(reordered) {
		t.Error("Encoding variants of the same batch produced different cache keys")
	}
}

func TestHandleRecentEvents_NoStore(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sites/site-1/events", nil)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 without a database, got %d", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var status map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("Failed to decode health body: %v", err)
	}
	if status["status"] != "ok" {
		t.Errorf("Expected status ok, got %q", status["status"])
	}
}

func TestHandleDetect_IdenticalBatchesSameResponse(t *testing.T) {
	s := testServer()

	readings := calmBatch(20)
	readings[10].Temperature = 60.0
	readings[10].Smoke = 0.4
	body, _ := json.Marshal(detectRequest{Readings: readings})

	first := postJSON(t, s, "/api/v1/detect", body)
	second := postJSON(t, s, "/api/v1/detect", body)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("Expected 200s, got %d and %d", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("Responses differ:\n%s\n%s", first.Body.String(), second.Body.String())
	}
}

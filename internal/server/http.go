package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/irad15/wildfire-detection/internal/cache"
	"github.com/irad15/wildfire-detection/internal/database"
	"github.com/irad15/wildfire-detection/internal/detection"
	"github.com/irad15/wildfire-detection/internal/metrics"
	"github.com/irad15/wildfire-detection/internal/protocol"
	"github.com/irad15/wildfire-detection/internal/queue"
	"github.com/irad15/wildfire-detection/pkg/config"
)

// HTTPServer exposes the detection pipeline over HTTP. The synchronous
// endpoint scores a batch in-request; the async endpoint enqueues it to
// Kafka for the detector service.
type HTTPServer struct {
	config   *config.HTTPServerConfig
	service  *detection.Service
	cache    *cache.ResultCache
	producer *queue.Producer
	db       *database.DB
	srv      *http.Server
}

// NewHTTPServer creates a new HTTP server. Cache, producer, and db are
// optional; the matching features are disabled when nil.
func NewHTTPServer(cfg *config.HTTPServerConfig, service *detection.Service, resultCache *cache.ResultCache, producer *queue.Producer, db *database.DB) *HTTPServer {
	s := &HTTPServer{
		config:   cfg,
		service:  service,
		cache:    resultCache,
		producer: producer,
		db:       db,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Post("/api/v1/detect", s.handleDetect)
	r.Post("/api/v1/batches", s.handleEnqueueBatch)
	r.Get("/api/v1/sites/{siteID}/events", s.handleRecentEvents)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// Start begins serving HTTP requests (blocks until shutdown)
func (s *HTTPServer) Start() error {
	fmt.Printf("HTTP server listening on %s\n", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *HTTPServer) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		metrics.RequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(ww.Status())).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// detectRequest is the synchronous scoring payload
type detectRequest struct {
	Readings []protocol.Reading `json:"readings"`
}

func (s *HTTPServer) handleDetect(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req detectRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	// Identical batches always score identically, so serve repeats from
	// Redis. Digesting the re-marshaled request keys whitespace and
	// field-order variants of the same batch to the same entry.
	digest, err := canonicalDigest(&req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode batch")
		return
	}
	if s.cache != nil {
		cached, err := s.cache.GetSummary(r.Context(), digest)
		if err != nil {
			fmt.Printf("Cache lookup failed: %v\n", err)
		}
		if cached != nil {
			metrics.CacheRequests.WithLabelValues("hit").Inc()
			writeJSON(w, http.StatusOK, cached)
			return
		}
		metrics.CacheRequests.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	summary, err := s.service.Detect(req.Readings)
	if err != nil {
		var verr *protocol.ValidationError
		if errors.As(err, &verr) {
			metrics.BatchesRejected.WithLabelValues(database.RunSourceHTTP).Inc()
			writeError(w, http.StatusUnprocessableEntity, verr.Reason)
			return
		}
		writeError(w, http.StatusInternalServerError, "detection failed")
		return
	}
	metrics.PipelineLatency.Observe(time.Since(start).Seconds())
	metrics.BatchesScored.WithLabelValues(database.RunSourceHTTP).Inc()
	metrics.EventsDetected.Add(float64(summary.EventCount))

	if s.cache != nil {
		if err := s.cache.SetSummary(r.Context(), digest, summary); err != nil {
			fmt.Printf("Failed to cache summary: %v\n", err)
		}
	}

	if s.db != nil {
		if err := s.persistRun(req.Readings, summary); err != nil {
			fmt.Printf("Failed to persist run: %v\n", err)
		}
	}

	writeJSON(w, http.StatusOK, summary)
}

// enqueueRequest is the async scoring payload
type enqueueRequest struct {
	SiteID   string             `json:"site_id"`
	Region   string             `json:"region,omitempty"`
	Readings []protocol.Reading `json:"readings"`
}

func (s *HTTPServer) handleEnqueueBatch(w http.ResponseWriter, r *http.Request) {
	if s.producer == nil {
		writeError(w, http.StatusServiceUnavailable, "batch queue not configured")
		return
	}

	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.SiteID == "" {
		writeError(w, http.StatusBadRequest, "site_id is required")
		return
	}

	// Validate up front so bad batches never reach the queue
	if _, err := protocol.ValidateBatch(req.Readings); err != nil {
		var verr *protocol.ValidationError
		if errors.As(err, &verr) {
			metrics.BatchesRejected.WithLabelValues(database.RunSourceHTTP).Inc()
			writeError(w, http.StatusUnprocessableEntity, verr.Reason)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid batch")
		return
	}

	msg := &protocol.BatchMessage{
		BatchID:    uuid.New().String(),
		SiteID:     req.SiteID,
		Region:     req.Region,
		ReceivedAt: time.Now().UTC(),
		Readings:   req.Readings,
	}

	data, err := protocol.EncodeBatchMessage(msg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode batch")
		return
	}

	if err := s.producer.Publish(r.Context(), msg.SiteID, data); err != nil {
		fmt.Printf("Failed to publish batch: %v\n", err)
		writeError(w, http.StatusServiceUnavailable, "failed to enqueue batch")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"batch_id": msg.BatchID,
		"status":   "queued",
	})
}

func (s *HTTPServer) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "event store not configured")
		return
	}

	siteID := chi.URLParam(r, "siteID")

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 1000")
			return
		}
		limit = parsed
	}

	stored, err := s.db.GetRecentEvents(siteID, limit)
	if err != nil {
		fmt.Printf("Failed to query events: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to query events")
		return
	}

	events := make([]protocol.Event, 0, len(stored))
	for _, e := range stored {
		events = append(events, protocol.Event{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Score:     e.Score,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"site_id": siteID,
		"events":  events,
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK

	if !s.service.Health() {
		status["status"] = "degraded"
		status["detection"] = "unavailable"
		code = http.StatusServiceUnavailable
	}

	if s.cache != nil {
		if err := s.cache.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["cache"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, status)
}

func (s *HTTPServer) persistRun(readings []protocol.Reading, summary *protocol.Summary) error {
	run := &database.DetectionRun{
		RunID:        uuid.New().String(),
		SiteID:       "http",
		BatchID:      uuid.New().String(),
		Source:       database.RunSourceHTTP,
		ReadingCount: len(readings),
		EventCount:   summary.EventCount,
		MaxScore:     summary.MaxScore,
	}

	events := make([]database.DetectionEvent, 0, len(summary.Events))
	for _, e := range summary.Events {
		ts, err := time.Parse(time.RFC3339, e.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to parse event timestamp: %w", err)
		}
		events = append(events, database.DetectionEvent{
			SiteID:    run.SiteID,
			Timestamp: ts,
			Score:     e.Score,
		})
	}

	return s.db.InsertDetectionRun(run, events)
}

// canonicalDigest keys a decoded request: two encodings of the same batch
// share one cache entry.
func canonicalDigest(req *detectRequest) (string, error) {
	canonical, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	return cache.BatchDigest(canonical), nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Printf("Failed to encode response: %v\n", err)
	}
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

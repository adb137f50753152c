package database

import (
	"time"
)

// DetectionRun represents one scored batch
type DetectionRun struct {
	RunID        string
	SiteID       string
	BatchID      string
	Source       string
	ReadingCount int
	EventCount   int
	MaxScore     float64
	CreatedAt    time.Time
}

// Run sources
const (
	RunSourceHTTP  = "http"
	RunSourceKafka = "kafka"
)

// DetectionEvent represents one flagged point within a run
type DetectionEvent struct {
	ID        int64
	RunID     string
	SiteID    string
	Timestamp time.Time
	Score     float64
	CreatedAt time.Time
}

// Incident represents a continuous alert condition at one site
type Incident struct {
	IncidentID string
	SiteID     string
	Region     string
	OpenedAt   time.Time
	ClearedAt  *time.Time
	PeakScore  float64
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const (
	IncidentStatusOpen    = "OPEN"
	IncidentStatusCleared = "CLEARED"
)

// DailyEventSummary represents per-site daily rollups of detection events
type DailyEventSummary struct {
	ID         int64
	SiteID     string
	Date       time.Time
	EventCount int
	RunCount   int
	PeakScore  float64
	CreatedAt  time.Time
}

package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// Connect establishes a connection to the database
func Connect(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &DB{db}, nil
}

// RunMigrations executes all SQL migration files in order
func (db *DB) RunMigrations(migrationsDir string) error {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, filename := range sqlFiles {
		fmt.Printf("Running migration: %s\n", filename)

		filePath := filepath.Join(migrationsDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	fmt.Println("All migrations completed successfully")
	return nil
}

// InsertDetectionRun inserts a run and its events in one transaction.
func (db *DB) InsertDetectionRun(run *DetectionRun, events []DetectionEvent) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	runQuery := `
		INSERT INTO detection_runs (
			run_id, site_id, batch_id, source, reading_count, event_count, max_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.Exec(
		runQuery,
		run.RunID,
		run.SiteID,
		run.BatchID,
		run.Source,
		run.ReadingCount,
		run.EventCount,
		run.MaxScore,
	); err != nil {
		return fmt.Errorf("failed to insert detection run: %w", err)
	}

	eventQuery := `
		INSERT INTO detection_events (run_id, site_id, timestamp, score)
		VALUES ($1, $2, $3, $4)
	`
	for _, event := range events {
		if _, err := tx.Exec(eventQuery, run.RunID, run.SiteID, event.Timestamp, event.Score); err != nil {
			return fmt.Errorf("failed to insert detection event: %w", err)
		}
	}

	return tx.Commit()
}

// GetRecentEvents retrieves the latest events for a site
func (db *DB) GetRecentEvents(siteID string, limit int) ([]*DetectionEvent, error) {
	query := `
		SELECT id, run_id, site_id, timestamp, score, created_at
		FROM detection_events
		WHERE site_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := db.Query(query, siteID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*DetectionEvent
	for rows.Next() {
		var e DetectionEvent
		if err := rows.Scan(
			&e.ID,
			&e.RunID,
			&e.SiteID,
			&e.Timestamp,
			&e.Score,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}

	return events, rows.Err()
}

// InsertIncident inserts a new incident record
func (db *DB) InsertIncident(incident *Incident) error {
	query := `
		INSERT INTO incidents (incident_id, site_id, region, opened_at, peak_score, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := db.Exec(
		query,
		incident.IncidentID,
		incident.SiteID,
		incident.Region,
		incident.OpenedAt,
		incident.PeakScore,
		incident.Status,
	)
	return err
}

// UpdateIncidentPeak raises the recorded peak score of an open incident
func (db *DB) UpdateIncidentPeak(incidentID string, peakScore float64) error {
	query := `
		UPDATE incidents
		SET peak_score = GREATEST(peak_score, $1), updated_at = CURRENT_TIMESTAMP
		WHERE incident_id = $2
	`

	_, err := db.Exec(query, peakScore, incidentID)
	return err
}

// UpdateIncidentCleared updates an incident to cleared status
func (db *DB) UpdateIncidentCleared(incidentID string, clearedAt time.Time) error {
	query := `
		UPDATE incidents
		SET status = $1, cleared_at = $2, updated_at = CURRENT_TIMESTAMP
		WHERE incident_id = $3
	`

	_, err := db.Exec(query, IncidentStatusCleared, clearedAt, incidentID)
	return err
}

package aggregation

import (
	"fmt"
	"time"

	"github.com/irad15/wildfire-detection/internal/database"
)

// DailyAggregator rolls detection events up into per-site daily summaries
type DailyAggregator struct {
	db *database.DB
}

// NewDailyAggregator creates a new daily aggregator
func NewDailyAggregator(db *database.DB) *DailyAggregator {
	return &DailyAggregator{db: db}
}

// Aggregate builds the daily event summary for the specified date. The
// upsert makes it safe to re-run for a day that already has a row.
func (d *DailyAggregator) Aggregate(targetDate time.Time) error {
	date := targetDate.Truncate(24 * time.Hour)

	fmt.Printf("Running daily event aggregation for %s\n", date.Format("2006-01-02"))

	query := `
		INSERT INTO daily_event_summaries (
			site_id, date, event_count, run_count, peak_score
		)
		SELECT
			site_id,
			$1::date AS date,
			COUNT(*) AS event_count,
			COUNT(DISTINCT run_id) AS run_count,
			MAX(score) AS peak_score
		FROM
			detection_events
		WHERE
			DATE(timestamp) = $1::date
		GROUP BY
			site_id
		ON CONFLICT (site_id, date) DO UPDATE
		SET
			event_count = EXCLUDED.event_count,
			run_count = EXCLUDED.run_count,
			peak_score = EXCLUDED.peak_score
	`

	result, err := d.db.Exec(query, date)
	if err != nil {
		return fmt.Errorf("failed to aggregate daily events: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	fmt.Printf("Daily aggregation completed: %d sites summarized\n", rowsAffected)

	return nil
}

// AggregatePreviousDay aggregates yesterday's events
func (d *DailyAggregator) AggregatePreviousDay() error {
	yesterday := time.Now().AddDate(0, 0, -1)
	return d.Aggregate(yesterday)
}

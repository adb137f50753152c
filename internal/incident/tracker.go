package incident

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/irad15/wildfire-detection/internal/database"
	"github.com/irad15/wildfire-detection/internal/protocol"
	"github.com/irad15/wildfire-detection/internal/queue"
)

// Tracker drives the per-site incident lifecycle from batch summaries: a
// batch with events opens (or refreshes) an incident, an event-free batch
// closes an open one. Batch-internal hysteresis lives in the scorer; this is
// the cross-batch analogue.
type Tracker struct {
	db            *database.DB
	stateManager  *StateManager
	alertProducer *queue.Producer
}

// NewTracker creates a new incident tracker
func NewTracker(db *database.DB, stateManager *StateManager, alertProducer *queue.Producer) *Tracker {
	return &Tracker{
		db:            db,
		stateManager:  stateManager,
		alertProducer: alertProducer,
	}
}

// ProcessSummary updates the site's incident state from one batch summary
func (t *Tracker) ProcessSummary(ctx context.Context, msg *protocol.BatchMessage, summary *protocol.Summary) error {
	state, err := t.stateManager.GetState(ctx, msg.SiteID)
	if err != nil {
		return err
	}

	now := time.Now()

	if summary.EventCount > 0 {
		if state == nil {
			return t.openIncident(ctx, msg, summary, now)
		}
		return t.refreshIncident(ctx, msg, summary, state, now)
	}

	if state != nil {
		return t.clearIncident(ctx, msg, state, now)
	}

	return nil
}

func (t *Tracker) openIncident(ctx context.Context, msg *protocol.BatchMessage, summary *protocol.Summary, now time.Time) error {
	fmt.Printf("🔥 INCIDENT OPENED: site=%s events=%d max_score=%.1f\n",
		msg.SiteID, summary.EventCount, summary.MaxScore)

	incident := &database.Incident{
		IncidentID: uuid.New().String(),
		SiteID:     msg.SiteID,
		Region:     msg.Region,
		OpenedAt:   now,
		PeakScore:  summary.MaxScore,
		Status:     database.IncidentStatusOpen,
	}

	if err := t.db.InsertIncident(incident); err != nil {
		return fmt.Errorf("failed to insert incident: %w", err)
	}

	state := &State{
		IncidentID:  incident.IncidentID,
		OpenedAt:    now,
		LastBatchID: msg.BatchID,
		LastChecked: now,
		PeakScore:   summary.MaxScore,
	}
	if err := t.stateManager.SetState(ctx, msg.SiteID, state); err != nil {
		return err
	}

	notification := &protocol.AlertNotification{
		Type:       protocol.AlertTypeOpened,
		SiteID:     msg.SiteID,
		Region:     msg.Region,
		BatchID:    msg.BatchID,
		IncidentID: incident.IncidentID,
		EventCount: summary.EventCount,
		MaxScore:   summary.MaxScore,
		OpenedAt:   now,
	}
	if len(summary.Events) > 0 {
		notification.FirstEvent = summary.Events[0].Timestamp
	}

	return t.sendNotification(ctx, notification)
}

// refreshIncident keeps an already open incident current without
// re-notifying: one continuous fire is one alert, not one per batch.
func (t *Tracker) refreshIncident(ctx context.Context, msg *protocol.BatchMessage, summary *protocol.Summary, state *State, now time.Time) error {
	state.LastBatchID = msg.BatchID
	state.LastChecked = now

	if summary.MaxScore > state.PeakScore {
		state.PeakScore = summary.MaxScore
		if err := t.db.UpdateIncidentPeak(state.IncidentID, summary.MaxScore); err != nil {
			return fmt.Errorf("failed to update incident peak: %w", err)
		}
	}

	return t.stateManager.SetState(ctx, msg.SiteID, state)
}

func (t *Tracker) clearIncident(ctx context.Context, msg *protocol.BatchMessage, state *State, now time.Time) error {
	fmt.Printf("✅ INCIDENT CLEARED: site=%s incident=%s\n", msg.SiteID, state.IncidentID)

	if err := t.db.UpdateIncidentCleared(state.IncidentID, now); err != nil {
		return fmt.Errorf("failed to update incident: %w", err)
	}

	if err := t.stateManager.DeleteState(ctx, msg.SiteID); err != nil {
		return err
	}

	notification := &protocol.AlertNotification{
		Type:       protocol.AlertTypeCleared,
		SiteID:     msg.SiteID,
		Region:     msg.Region,
		BatchID:    msg.BatchID,
		IncidentID: state.IncidentID,
		MaxScore:   state.PeakScore,
		OpenedAt:   state.OpenedAt,
		ClearedAt:  now,
	}

	return t.sendNotification(ctx, notification)
}

func (t *Tracker) sendNotification(ctx context.Context, notification *protocol.AlertNotification) error {
	data, err := protocol.EncodeAlertNotification(notification)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	return t.alertProducer.Publish(ctx, notification.SiteID, data)
}

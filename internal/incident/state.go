package incident

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// State represents the open incident for a site, if any. Absence of state
// means the site is clear.
type State struct {
	IncidentID  string    `json:"incident_id"`
	OpenedAt    time.Time `json:"opened_at"`
	LastBatchID string    `json:"last_batch_id"`
	LastChecked time.Time `json:"last_checked"`
	PeakScore   float64   `json:"peak_score"`
}

// StateManager manages incident states in Redis
type StateManager struct {
	redis *redis.Client
}

// NewStateManager creates a new state manager
func NewStateManager(redisClient *redis.Client) *StateManager {
	return &StateManager{redis: redisClient}
}

func stateKey(siteID string) string {
	return fmt.Sprintf("incident_state:%s", siteID)
}

// GetState retrieves the incident state for a site; nil means clear.
func (sm *StateManager) GetState(ctx context.Context, siteID string) (*State, error) {
	data, err := sm.redis.Get(ctx, stateKey(siteID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state from Redis: %w", err)
	}

	var state State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return &state, nil
}

// SetState saves the incident state for a site
func (sm *StateManager) SetState(ctx context.Context, siteID string, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Expire stale states after 7 days so a dead site cannot pin an
	// incident open forever
	if err := sm.redis.Set(ctx, stateKey(siteID), data, 7*24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to set state in Redis: %w", err)
	}

	return nil
}

// DeleteState removes the incident state (site returns to clear)
func (sm *StateManager) DeleteState(ctx context.Context, siteID string) error {
	return sm.redis.Del(ctx, stateKey(siteID)).Err()
}

// CountOpen returns the number of sites with an open incident
func (sm *StateManager) CountOpen(ctx context.Context) (int, error) {
	keys, err := sm.redis.Keys(ctx, "incident_state:*").Result()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

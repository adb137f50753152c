package protocol

import (
	"encoding/json"
	"time"
)

// BatchMessage is the internal message format for reading batches on Kafka.
// One message carries the complete batch for one site; the detector scores
// it as a unit.
type BatchMessage struct {
	BatchID    string    `json:"batch_id"`
	SiteID     string    `json:"site_id"`
	Region     string    `json:"region,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	Readings   []Reading `json:"readings"`
}

// AlertNotification is the message format for incident notifications.
type AlertNotification struct {
	Type       string    `json:"type"` // INCIDENT_OPENED, INCIDENT_CLEARED
	SiteID     string    `json:"site_id"`
	Region     string    `json:"region,omitempty"`
	BatchID    string    `json:"batch_id"`
	IncidentID string    `json:"incident_id,omitempty"`
	EventCount int       `json:"event_count"`
	MaxScore   float64   `json:"max_score"`
	FirstEvent string    `json:"first_event,omitempty"`
	OpenedAt   time.Time `json:"opened_at,omitempty"`
	ClearedAt  time.Time `json:"cleared_at,omitempty"`
}

const (
	AlertTypeOpened  = "INCIDENT_OPENED"
	AlertTypeCleared = "INCIDENT_CLEARED"
)

// EncodeBatchMessage encodes a BatchMessage to JSON
func EncodeBatchMessage(msg *BatchMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeBatchMessage decodes JSON to BatchMessage
func DecodeBatchMessage(data []byte) (*BatchMessage, error) {
	var msg BatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EncodeAlertNotification encodes an AlertNotification to JSON
func EncodeAlertNotification(alert *AlertNotification) ([]byte, error) {
	return json.Marshal(alert)
}

// DecodeAlertNotification decodes JSON to AlertNotification
func DecodeAlertNotification(data []byte) (*AlertNotification, error) {
	var alert AlertNotification
	if err := json.Unmarshal(data, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

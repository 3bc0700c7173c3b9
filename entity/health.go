package entity

import "time"

// HealthState classifies a session receiver at probe time.
type HealthState string

const (
	HealthHealthy  HealthState = "healthy"
	HealthDegraded HealthState = "degraded"
	HealthFailed   HealthState = "failed"
)

// AccountHealth is a read-only probe snapshot for one active account.
type AccountHealth struct {
	AccountId    string      `json:"account_id"`
	Connected    bool        `json:"connected"`
	LastEventAge float64     `json:"last_event_age_seconds"`
	Reconnects   int         `json:"reconnects_in_window"`
	QueueDepth   int         `json:"queue_depth"`
	State        HealthState `json:"state"`
	ProbedAt     time.Time   `json:"probed_at"`
}

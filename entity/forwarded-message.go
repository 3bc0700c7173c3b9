package entity

import "time"

// ForwardOutcome is the terminal result of one delivery attempt chain.
type ForwardOutcome string

const (
	ForwardDelivered ForwardOutcome = "delivered"
	ForwardFailed    ForwardOutcome = "failed"
)

// Failure reasons recorded at emit time, before a delivery attempt is made.
const (
	ReasonDestinationInactive    = "destination_inactive"
	ReasonDestinationUnavailable = "destination_unavailable"
)

// ForwardedMessage is an append-only ledger row, exactly one per forward
// request, written after the delivery resolves.
type ForwardedMessage struct {
	Id            string         `json:"id" bson:"id"`
	TenantId      string         `json:"tenant_id" bson:"tenant_id"`
	SourceRef     string         `json:"source_message_ref" bson:"source_message_ref"`
	Username      string         `json:"username" bson:"username"`
	GroupName     string         `json:"group_name" bson:"group_name"`
	DestinationId string         `json:"destination_id" bson:"destination_id"`
	ForwardedAt   time.Time      `json:"forwarded_at" bson:"forwarded_at"`
	Outcome       ForwardOutcome `json:"outcome" bson:"outcome"`
	FailureReason string         `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
}

// ForwardRequest is one unit of work for the forwarding engine: a single
// archived message headed to a single destination.
type ForwardRequest struct {
	TenantId      string
	SourceRef     string
	Username      string
	GroupName     string
	DestinationId string
	ChatId        string
	Text          string
	MessageType   MessageType
	Timestamp     time.Time
}

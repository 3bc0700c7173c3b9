package entity

import (
	"net/http"
	"strings"
	"tgmon/lib/validate"
	"time"
)

// DestinationType is the kind of chat matched messages are re-delivered to.
type DestinationType string

const (
	DestinationTypeChannel DestinationType = "channel"
	DestinationTypeGroup   DestinationType = "group"
	DestinationTypeUser    DestinationType = "user"
)

func ParseDestinationType(s string) (DestinationType, bool) {
	switch DestinationType(s) {
	case DestinationTypeChannel, DestinationTypeGroup, DestinationTypeUser:
		return DestinationType(s), true
	}
	return "", false
}

// Destination is a forwarding target. DestinationId is the external chat id,
// unique within the tenant. MessageCount is the number of delivered ledger
// rows and must stay recomputable from them.
type Destination struct {
	Id              string          `json:"id" bson:"id"`
	TenantId        string          `json:"tenant_id" bson:"tenant_id"`
	DestinationId   string          `json:"destination_id" bson:"destination_id" validate:"required"`
	DestinationName string          `json:"destination_name" bson:"destination_name" validate:"required"`
	DestinationType DestinationType `json:"destination_type" bson:"destination_type"`
	Description     string          `json:"description,omitempty" bson:"description,omitempty"`
	MessageCount    int64           `json:"message_count" bson:"message_count"`
	LastForwarded   *time.Time      `json:"last_forwarded,omitempty" bson:"last_forwarded,omitempty"`
	LastError       string          `json:"last_error,omitempty" bson:"last_error,omitempty"`
	IsActive        bool            `json:"is_active" bson:"is_active"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at"`
}

// DestinationCreate is the closed input shape for destination create and update.
type DestinationCreate struct {
	DestinationId   string `json:"destination_id" validate:"required"`
	DestinationName string `json:"destination_name" validate:"required"`
	DestinationType string `json:"destination_type" validate:"required"`
	Description     string `json:"description" validate:"omitempty"`
}

func (d *DestinationCreate) Bind(_ *http.Request) error {
	if err := validate.Struct(d); err != nil {
		return err
	}
	if _, ok := ParseDestinationType(d.DestinationType); !ok {
		return ErrValidation
	}
	d.DestinationId = strings.TrimSpace(d.DestinationId)
	return nil
}

package entity

import (
	"net/http"
	"strings"
	"tgmon/lib/validate"
	"time"
)

// GroupType is the kind of chat being monitored.
type GroupType string

const (
	GroupTypeGroup      GroupType = "group"
	GroupTypeSupergroup GroupType = "supergroup"
	GroupTypeChannel    GroupType = "channel"
)

func ParseGroupType(s string) (GroupType, bool) {
	switch GroupType(s) {
	case GroupTypeGroup, GroupTypeSupergroup, GroupTypeChannel:
		return GroupType(s), true
	}
	return "", false
}

// Group is a monitored chat. GroupId is the external Telegram chat identifier,
// unique within the tenant. Soft-deleted via IsActive.
type Group struct {
	Id          string    `json:"id" bson:"id"`
	TenantId    string    `json:"tenant_id" bson:"tenant_id"`
	GroupId     string    `json:"group_id" bson:"group_id" validate:"required"`
	GroupName   string    `json:"group_name" bson:"group_name" validate:"required"`
	GroupType   GroupType `json:"group_type" bson:"group_type"`
	InviteLink  string    `json:"invite_link,omitempty" bson:"invite_link,omitempty"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	IsActive    bool      `json:"is_active" bson:"is_active"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// GroupCreate is the closed input shape for group create and update.
type GroupCreate struct {
	GroupId     string `json:"group_id" validate:"required"`
	GroupName   string `json:"group_name" validate:"required"`
	GroupType   string `json:"group_type" validate:"required"`
	InviteLink  string `json:"invite_link" validate:"omitempty"`
	Description string `json:"description" validate:"omitempty"`
}

func (g *GroupCreate) Bind(_ *http.Request) error {
	if err := validate.Struct(g); err != nil {
		return err
	}
	if _, ok := ParseGroupType(g.GroupType); !ok {
		return ErrValidation
	}
	g.GroupId = strings.TrimSpace(g.GroupId)
	return nil
}

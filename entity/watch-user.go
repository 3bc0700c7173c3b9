package entity

import (
	"net/http"
	"strings"
	"tgmon/lib/validate"
	"time"
)

// WatchUser is a Telegram username the tenant monitors. Username is stored
// normalized lowercase and is unique within the tenant. Empty GroupIds means
// match in every monitored group; empty Keywords means match any text.
type WatchUser struct {
	Id             string    `json:"id" bson:"id"`
	TenantId       string    `json:"tenant_id" bson:"tenant_id"`
	Username       string    `json:"username" bson:"username" validate:"required"`
	UserId         string    `json:"user_id,omitempty" bson:"user_id,omitempty"`
	FullName       string    `json:"full_name,omitempty" bson:"full_name,omitempty"`
	GroupIds       []string  `json:"group_ids" bson:"group_ids"`
	Keywords       []string  `json:"keywords" bson:"keywords"`
	DestinationIds []string  `json:"forwarding_destination_ids" bson:"forwarding_destination_ids"`
	IsActive       bool      `json:"is_active" bson:"is_active"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}

// WatchUserCreate is the closed input shape for watchlist create and update.
type WatchUserCreate struct {
	Username       string   `json:"username" validate:"required"`
	UserId         string   `json:"user_id" validate:"omitempty"`
	FullName       string   `json:"full_name" validate:"omitempty"`
	GroupIds       []string `json:"group_ids" validate:"omitempty"`
	Keywords       []string `json:"keywords" validate:"omitempty"`
	DestinationIds []string `json:"forwarding_destination_ids" validate:"omitempty"`
}

func (w *WatchUserCreate) Bind(_ *http.Request) error {
	if err := validate.Struct(w); err != nil {
		return err
	}
	w.Username = NormalizeUsername(w.Username)
	if w.Username == "" {
		return ErrValidation
	}
	return nil
}

// NormalizeUsername lowercases and strips a leading @.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

package entity

import (
	"net/http"
	"tgmon/lib/validate"
	"time"
)

// Role controls what a tenant user may do through the control surface.
// viewer is read-only, admin can mutate resources, owner can additionally
// change roles. Exactly one owner exists per tenant at creation.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleOwner, RoleAdmin, RoleViewer:
		return Role(s), true
	}
	return "", false
}

// User is a dashboard identity. The Telegram id is the sole identity key,
// unique across all tenants; there is no password material anywhere.
type User struct {
	Id         string     `json:"id" bson:"id"`
	TenantId   string     `json:"tenant_id" bson:"tenant_id"`
	TelegramId int64      `json:"telegram_id" bson:"telegram_id" validate:"required"`
	Username   string     `json:"username,omitempty" bson:"username,omitempty"`
	FirstName  string     `json:"first_name,omitempty" bson:"first_name,omitempty"`
	LastName   string     `json:"last_name,omitempty" bson:"last_name,omitempty"`
	PhotoUrl   string     `json:"photo_url,omitempty" bson:"photo_url,omitempty"`
	Role       Role       `json:"role" bson:"role"`
	IsActive   bool       `json:"is_active" bson:"is_active"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
	LastLogin  *time.Time `json:"last_login,omitempty" bson:"last_login,omitempty"`
}

func (u *User) IsOwner() bool {
	return u.Role == RoleOwner
}

// CanMutate reports whether the user may change tenant resources.
func (u *User) CanMutate() bool {
	return u.Role == RoleOwner || u.Role == RoleAdmin
}

// UserInvite is the closed input shape for POST /users/invite.
// Owners cannot be invited; the role must be admin or viewer.
type UserInvite struct {
	TelegramId int64  `json:"telegram_id" validate:"required"`
	Username   string `json:"username" validate:"omitempty"`
	FirstName  string `json:"first_name" validate:"omitempty"`
	LastName   string `json:"last_name" validate:"omitempty"`
	Role       string `json:"role" validate:"required"`
}

func (i *UserInvite) Bind(_ *http.Request) error {
	if err := validate.Struct(i); err != nil {
		return err
	}
	role, ok := ParseRole(i.Role)
	if !ok || role == RoleOwner {
		return ErrValidation
	}
	return nil
}

// RoleUpdate is the closed input shape for PUT /users/{id}/role.
type RoleUpdate struct {
	Role string `json:"role" validate:"required"`
}

func (r *RoleUpdate) Bind(_ *http.Request) error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if _, ok := ParseRole(r.Role); !ok {
		return ErrValidation
	}
	return nil
}

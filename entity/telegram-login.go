package entity

import (
	"net/http"
	"strings"
	"tgmon/lib/validate"
)

// TelegramLogin is the widget payload Telegram posts after a successful login.
// Hash is the HMAC the auth service recomputes and compares.
type TelegramLogin struct {
	Id        int64  `json:"id" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"omitempty"`
	Username  string `json:"username" validate:"omitempty"`
	PhotoUrl  string `json:"photo_url" validate:"omitempty"`
	AuthDate  int64  `json:"auth_date" validate:"required"`
	Hash      string `json:"hash" validate:"required"`
}

func (t *TelegramLogin) Bind(_ *http.Request) error {
	return validate.Struct(t)
}

// RegisterRequest creates an organization together with its owner user.
type RegisterRequest struct {
	TelegramLogin
	OrganizationName string `json:"organization_name" validate:"required"`
}

func (r *RegisterRequest) Bind(_ *http.Request) error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	r.OrganizationName = strings.TrimSpace(r.OrganizationName)
	if r.OrganizationName == "" {
		return ErrValidation
	}
	return nil
}

// AuthToken is the login response body.
type AuthToken struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

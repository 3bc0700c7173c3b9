package entity

import (
	"net/http"

	"tgmon/lib/validate"
)

// CheckoutRequest asks for a hosted checkout session upgrading the
// organization to a paid plan.
type CheckoutRequest struct {
	Plan string `json:"plan" validate:"required,oneof=pro enterprise"`
}

func (c *CheckoutRequest) Bind(_ *http.Request) error {
	return validate.Struct(c)
}

// CheckoutLink is the hosted payment page handed back to the dashboard.
type CheckoutLink struct {
	SessionId string `json:"session_id"`
	Url       string `json:"url"`
	Plan      string `json:"plan"`
}

package entity

import (
	"net/http"
	"strings"
	"tgmon/lib/validate"
	"time"
)

// Plan is the subscription tier of an organization.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// ParsePlan accepts only the exact lowercase plan names.
func ParsePlan(s string) (Plan, bool) {
	switch Plan(s) {
	case PlanFree, PlanPro, PlanEnterprise:
		return Plan(s), true
	}
	return "", false
}

// Organization is the tenant boundary. Every other record except User identity
// fields carries the organization id as tenant_id.
type Organization struct {
	Id          string           `json:"id" bson:"id"`
	Name        string           `json:"name" bson:"name" validate:"required"`
	Description string           `json:"description,omitempty" bson:"description,omitempty"`
	Plan        Plan             `json:"plan" bson:"plan"`
	UsageStats  map[string]int64 `json:"usage_stats,omitempty" bson:"usage_stats,omitempty"`
	CreatedAt   time.Time        `json:"created_at" bson:"created_at"`
}

// OrganizationUpdate is the closed input shape for PUT /organizations/current.
type OrganizationUpdate struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"omitempty"`
	Plan        string `json:"plan" validate:"required"`
}

func (o *OrganizationUpdate) Bind(_ *http.Request) error {
	if err := validate.Struct(o); err != nil {
		return err
	}
	if _, ok := ParsePlan(o.Plan); !ok {
		return ErrValidation
	}
	o.Name = strings.TrimSpace(o.Name)
	return nil
}

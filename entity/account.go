package entity

import "time"

// AccountStatus is the lifecycle state of a user-account session.
// pending → active on operator activate, active → inactive on deactivate,
// any transition may divert to error with LastError set.
type AccountStatus string

const (
	AccountPending  AccountStatus = "pending"
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
	AccountError    AccountStatus = "error"
)

// Account is a Telegram user-account session owned by a tenant. The session
// and metadata artifacts live on disk under a tenant-partitioned path.
// AssignedGroupIds is a cache written by the load balancer.
type Account struct {
	Id               string        `json:"id" bson:"id"`
	TenantId         string        `json:"tenant_id" bson:"tenant_id"`
	Name             string        `json:"name" bson:"name"`
	SessionPath      string        `json:"session_artifact_path" bson:"session_artifact_path"`
	MetadataPath     string        `json:"metadata_artifact_path" bson:"metadata_artifact_path"`
	PhoneNumber      string        `json:"phone_number,omitempty" bson:"phone_number,omitempty"`
	Username         string        `json:"username,omitempty" bson:"username,omitempty"`
	FirstName        string        `json:"first_name,omitempty" bson:"first_name,omitempty"`
	LastName         string        `json:"last_name,omitempty" bson:"last_name,omitempty"`
	Status           AccountStatus `json:"status" bson:"status"`
	LastError        string        `json:"last_error,omitempty" bson:"last_error,omitempty"`
	AssignedGroupIds []string      `json:"assigned_group_ids" bson:"assigned_group_ids"`
	CreatedAt        time.Time     `json:"created_at" bson:"created_at"`
	LastActivity     *time.Time    `json:"last_activity,omitempty" bson:"last_activity,omitempty"`
}

// AccountMetadata is the recognized shape of the uploaded .json artifact.
// Unknown fields are ignored, the file only has to parse as JSON.
type AccountMetadata struct {
	PhoneNumber string `json:"phone_number"`
	Username    string `json:"username"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
}

package cont

import (
	"context"
	"tgmon/entity"
)

type ctxKey string

const UserDataKey ctxKey = "userData"

// PutUser stores the authenticated tenant user in the request context.
func PutUser(c context.Context, user *entity.User) context.Context {
	return context.WithValue(c, UserDataKey, *user)
}

// GetUser returns the authenticated user, or an empty user when the
// request passed no authentication middleware.
func GetUser(c context.Context) *entity.User {
	user, ok := c.Value(UserDataKey).(entity.User)
	if !ok {
		return &entity.User{}
	}
	return &user
}

// TenantId is a shortcut for the tenant of the authenticated user.
func TenantId(c context.Context) string {
	return GetUser(c).TenantId
}

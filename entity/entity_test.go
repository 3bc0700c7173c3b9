package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan(t *testing.T) {
	plan, ok := ParsePlan("pro")
	require.True(t, ok)
	assert.Equal(t, PlanPro, plan)

	for _, s := range []string{"Pro", "PRO", "basic", ""} {
		_, ok := ParsePlan(s)
		assert.False(t, ok, s)
	}
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole("viewer")
	require.True(t, ok)
	assert.Equal(t, RoleViewer, role)

	_, ok = ParseRole("superuser")
	assert.False(t, ok)
}

func TestParseGroupType(t *testing.T) {
	gt, ok := ParseGroupType("supergroup")
	require.True(t, ok)
	assert.Equal(t, GroupTypeSupergroup, gt)

	_, ok = ParseGroupType("chat")
	assert.False(t, ok)
}

func TestParseDestinationType(t *testing.T) {
	dt, ok := ParseDestinationType("channel")
	require.True(t, ok)
	assert.Equal(t, DestinationTypeChannel, dt)

	_, ok = ParseDestinationType("dm")
	assert.False(t, ok)
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUsername(" @Alice "))
	assert.Equal(t, "bob", NormalizeUsername("bob"))
	assert.Equal(t, "", NormalizeUsername("@"))
}

func TestGroupCreateBind(t *testing.T) {
	g := &GroupCreate{GroupId: " -100500 ", GroupName: "trading", GroupType: "group"}
	require.NoError(t, g.Bind(nil))
	assert.Equal(t, "-100500", g.GroupId)

	assert.Error(t, (&GroupCreate{GroupName: "x", GroupType: "group"}).Bind(nil))
	assert.ErrorIs(t, (&GroupCreate{GroupId: "1", GroupName: "x", GroupType: "broadcast"}).Bind(nil), ErrValidation)
}

func TestWatchUserCreateBind(t *testing.T) {
	w := &WatchUserCreate{Username: "@Trader_Joe"}
	require.NoError(t, w.Bind(nil))
	assert.Equal(t, "trader_joe", w.Username)

	assert.Error(t, (&WatchUserCreate{}).Bind(nil))
	// bare @ normalizes to empty
	assert.ErrorIs(t, (&WatchUserCreate{Username: "@"}).Bind(nil), ErrValidation)
}

func TestDestinationCreateBind(t *testing.T) {
	d := &DestinationCreate{DestinationId: "-200600", DestinationName: "alerts", DestinationType: "channel"}
	require.NoError(t, d.Bind(nil))

	assert.ErrorIs(t, (&DestinationCreate{
		DestinationId: "1", DestinationName: "x", DestinationType: "webhook",
	}).Bind(nil), ErrValidation)
}

func TestUserInviteBind(t *testing.T) {
	require.NoError(t, (&UserInvite{TelegramId: 42, Role: "admin"}).Bind(nil))
	require.NoError(t, (&UserInvite{TelegramId: 42, Role: "viewer"}).Bind(nil))

	// owner role cannot be granted through invites
	assert.ErrorIs(t, (&UserInvite{TelegramId: 42, Role: "owner"}).Bind(nil), ErrValidation)
	assert.Error(t, (&UserInvite{Role: "admin"}).Bind(nil))
}

func TestRoleUpdateBind(t *testing.T) {
	require.NoError(t, (&RoleUpdate{Role: "admin"}).Bind(nil))
	assert.ErrorIs(t, (&RoleUpdate{Role: "root"}).Bind(nil), ErrValidation)
	assert.Error(t, (&RoleUpdate{}).Bind(nil))
}

func TestCheckoutRequestBind(t *testing.T) {
	require.NoError(t, (&CheckoutRequest{Plan: "pro"}).Bind(nil))
	require.NoError(t, (&CheckoutRequest{Plan: "enterprise"}).Bind(nil))
	assert.Error(t, (&CheckoutRequest{Plan: "free"}).Bind(nil))
	assert.Error(t, (&CheckoutRequest{}).Bind(nil))
}

func TestUserRolePredicates(t *testing.T) {
	assert.True(t, (&User{Role: RoleOwner}).IsOwner())
	assert.True(t, (&User{Role: RoleOwner}).CanMutate())
	assert.True(t, (&User{Role: RoleAdmin}).CanMutate())
	assert.False(t, (&User{Role: RoleViewer}).CanMutate())
	assert.False(t, (&User{Role: RoleViewer}).IsOwner())
}

func TestRecentForwardOmitsInternalFields(t *testing.T) {
	raw, err := json.Marshal(RecentForward{Username: "alice", Outcome: ForwardDelivered})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.NotContains(t, fields, "id")
	assert.NotContains(t, fields, "tenant_id")
	assert.NotContains(t, fields, "source_message_ref")
	assert.Equal(t, "alice", fields["username"])
}

package core

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tgmon/entity"
	"tgmon/internal/database"
)

// Organization returns the tenant record.
func (c *Core) Organization(tenantId string) (*entity.Organization, error) {
	return c.db.GetOrganization(tenantId)
}

func (c *Core) UpdateOrganization(tenantId string, upd *entity.OrganizationUpdate) (*entity.Organization, error) {
	if err := c.db.UpdateOrganization(tenantId, upd); err != nil {
		return nil, err
	}
	return c.db.GetOrganization(tenantId)
}

func (c *Core) Users(tenantId string) ([]*entity.User, error) {
	return c.db.ListUsers(tenantId)
}

// InviteUser adds a dashboard user to the tenant. The invite carries the
// Telegram id the person will log in with; owner role cannot be granted.
func (c *Core) InviteUser(tenantId string, invite *entity.UserInvite) (*entity.User, error) {
	role, ok := entity.ParseRole(invite.Role)
	if !ok || role == entity.RoleOwner {
		return nil, entity.ErrValidation
	}
	user := &entity.User{
		Id:         uuid.New().String(),
		TenantId:   tenantId,
		TelegramId: invite.TelegramId,
		Username:   invite.Username,
		FirstName:  invite.FirstName,
		LastName:   invite.LastName,
		Role:       role,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := c.db.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetUserRole changes a member role. The owner role is fixed at registration
// and can neither be granted nor taken away here.
func (c *Core) SetUserRole(tenantId, id string, upd *entity.RoleUpdate) (*entity.User, error) {
	role, ok := entity.ParseRole(upd.Role)
	if !ok || role == entity.RoleOwner {
		return nil, entity.ErrValidation
	}
	target, err := c.db.GetUserById(tenantId, id)
	if err != nil {
		return nil, err
	}
	if target.IsOwner() {
		return nil, fmt.Errorf("%w: owner role cannot be changed", entity.ErrForbidden)
	}
	if err = c.db.SetUserRole(tenantId, id, role); err != nil {
		return nil, err
	}
	return c.db.GetUserById(tenantId, id)
}

// RemoveUser deactivates a member. The owner cannot be removed.
func (c *Core) RemoveUser(tenantId, id string) error {
	target, err := c.db.GetUserById(tenantId, id)
	if err != nil {
		return err
	}
	if target.IsOwner() {
		return fmt.Errorf("%w: owner cannot be removed", entity.ErrForbidden)
	}
	return c.db.DeactivateUser(tenantId, id)
}

func (c *Core) CreateGroup(tenantId string, gc *entity.GroupCreate) (*entity.Group, error) {
	groupType, ok := entity.ParseGroupType(gc.GroupType)
	if !ok {
		return nil, entity.ErrValidation
	}
	group := &entity.Group{
		Id:          uuid.New().String(),
		TenantId:    tenantId,
		GroupId:     gc.GroupId,
		GroupName:   gc.GroupName,
		GroupType:   groupType,
		InviteLink:  gc.InviteLink,
		Description: gc.Description,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := c.db.CreateGroup(group); err != nil {
		return nil, err
	}
	c.rebalance(tenantId)
	return group, nil
}

func (c *Core) Groups(tenantId string, includeInactive bool) ([]*entity.Group, error) {
	return c.db.ListGroups(tenantId, includeInactive)
}

func (c *Core) Group(tenantId, id string) (*entity.Group, error) {
	return c.db.GetGroup(tenantId, id)
}

func (c *Core) UpdateGroup(tenantId, id string, gc *entity.GroupCreate) (*entity.Group, error) {
	if err := c.db.UpdateGroup(tenantId, id, gc); err != nil {
		return nil, err
	}
	c.rebalance(tenantId)
	return c.db.GetGroup(tenantId, id)
}

func (c *Core) DeleteGroup(tenantId, id string) error {
	if err := c.db.SoftDeleteGroup(tenantId, id); err != nil {
		return err
	}
	c.rebalance(tenantId)
	return nil
}

// validateWatchRefs rejects group or destination references that do not
// resolve to an active record of the tenant. Soft-deleted records do not
// count; a watch entry must never point at them.
func validateWatchRefs(wc *entity.WatchUserCreate, groups []*entity.Group, destinations []*entity.Destination) error {
	known := make(map[string]bool, len(groups))
	for _, g := range groups {
		known[g.Id] = true
	}
	for _, id := range wc.GroupIds {
		if !known[id] {
			return fmt.Errorf("%w: unknown group id %s", entity.ErrValidation, id)
		}
	}
	known = make(map[string]bool, len(destinations))
	for _, d := range destinations {
		known[d.Id] = true
	}
	for _, id := range wc.DestinationIds {
		if !known[id] {
			return fmt.Errorf("%w: unknown destination id %s", entity.ErrValidation, id)
		}
	}
	return nil
}

func (c *Core) checkWatchRefs(tenantId string, wc *entity.WatchUserCreate) error {
	groups, err := c.db.ListGroups(tenantId, false)
	if err != nil {
		return err
	}
	destinations, err := c.db.ListDestinations(tenantId, false)
	if err != nil {
		return err
	}
	return validateWatchRefs(wc, groups, destinations)
}

func (c *Core) CreateWatchUser(tenantId string, wc *entity.WatchUserCreate) (*entity.WatchUser, error) {
	if err := c.checkWatchRefs(tenantId, wc); err != nil {
		return nil, err
	}
	watch := &entity.WatchUser{
		Id:             uuid.New().String(),
		TenantId:       tenantId,
		Username:       entity.NormalizeUsername(wc.Username),
		UserId:         wc.UserId,
		FullName:       wc.FullName,
		GroupIds:       wc.GroupIds,
		Keywords:       wc.Keywords,
		DestinationIds: wc.DestinationIds,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}
	if err := c.db.CreateWatchUser(watch); err != nil {
		return nil, err
	}
	return watch, nil
}

func (c *Core) WatchUsers(tenantId string, includeInactive bool) ([]*entity.WatchUser, error) {
	return c.db.ListWatchUsers(tenantId, includeInactive)
}

func (c *Core) WatchUser(tenantId, id string) (*entity.WatchUser, error) {
	return c.db.GetWatchUser(tenantId, id)
}

func (c *Core) UpdateWatchUser(tenantId, id string, wc *entity.WatchUserCreate) (*entity.WatchUser, error) {
	if err := c.checkWatchRefs(tenantId, wc); err != nil {
		return nil, err
	}
	if err := c.db.UpdateWatchUser(tenantId, id, wc); err != nil {
		return nil, err
	}
	return c.db.GetWatchUser(tenantId, id)
}

func (c *Core) DeleteWatchUser(tenantId, id string) error {
	return c.db.SoftDeleteWatchUser(tenantId, id)
}

func (c *Core) CreateDestination(tenantId string, dc *entity.DestinationCreate) (*entity.Destination, error) {
	destType, ok := entity.ParseDestinationType(dc.DestinationType)
	if !ok {
		return nil, entity.ErrValidation
	}
	dest := &entity.Destination{
		Id:              uuid.New().String(),
		TenantId:        tenantId,
		DestinationId:   dc.DestinationId,
		DestinationName: dc.DestinationName,
		DestinationType: destType,
		Description:     dc.Description,
		IsActive:        true,
		CreatedAt:       time.Now().UTC(),
	}
	if err := c.db.CreateDestination(dest); err != nil {
		return nil, err
	}
	return dest, nil
}

func (c *Core) Destinations(tenantId string, includeInactive bool) ([]*entity.Destination, error) {
	return c.db.ListDestinations(tenantId, includeInactive)
}

func (c *Core) Destination(tenantId, id string) (*entity.Destination, error) {
	return c.db.GetDestination(tenantId, id)
}

func (c *Core) UpdateDestination(tenantId, id string, dc *entity.DestinationCreate) (*entity.Destination, error) {
	if err := c.db.UpdateDestination(tenantId, id, dc); err != nil {
		return nil, err
	}
	return c.db.GetDestination(tenantId, id)
}

func (c *Core) DeleteDestination(tenantId, id string) error {
	return c.db.SoftDeleteDestination(tenantId, id)
}

// TestDestination sends a connectivity probe through the bot. Probe sends do
// not touch the delivery counter, that stays derived from the ledger.
func (c *Core) TestDestination(tenantId, id string) error {
	if c.bot == nil {
		return fmt.Errorf("bot not connected")
	}
	dest, err := c.db.GetDestination(tenantId, id)
	if err != nil {
		return err
	}
	chatId, err := strconv.ParseInt(dest.DestinationId, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: destination id is not a chat id", entity.ErrValidation)
	}
	_, err = c.bot.Api().SendMessage(chatId, "Connectivity test: this destination is reachable.", nil)
	if err != nil {
		_ = c.db.SetDestinationError(tenantId, id, err.Error())
		return fmt.Errorf("send probe: %w", err)
	}
	return nil
}

func (c *Core) Messages(tenantId string, f database.MessageFilter) ([]*entity.MessageLog, error) {
	return c.db.ListMessages(tenantId, f)
}

func (c *Core) SearchMessages(tenantId, q string, limit, skip int64) ([]*entity.MessageLog, int64, error) {
	return c.db.SearchMessages(tenantId, q, limit, skip)
}

func (c *Core) Forwarded(tenantId string, f database.ForwardedFilter) ([]*entity.ForwardedMessage, error) {
	return c.db.ListForwarded(tenantId, f)
}

func (c *Core) Stats(tenantId string) (*entity.Stats, error) {
	return c.db.GetStats(tenantId)
}

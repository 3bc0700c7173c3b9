package supervisor

import (
	"fmt"
	"log/slog"
	"sort"

	"tgmon/entity"
)

// Assign distributes group ids across account ids so that every group lands
// on exactly one account and counts stay within one of each other. Both
// inputs are sorted first, so ties always resolve to the lower id and the
// assignment is deterministic.
func Assign(groupIds, accountIds []string) map[string][]string {
	assignment := make(map[string][]string, len(accountIds))
	if len(accountIds) == 0 {
		return assignment
	}

	groups := append([]string(nil), groupIds...)
	accounts := append([]string(nil), accountIds...)
	sort.Strings(groups)
	sort.Strings(accounts)

	for _, id := range accounts {
		assignment[id] = nil
	}
	for i, groupId := range groups {
		account := accounts[i%len(accounts)]
		assignment[account] = append(assignment[account], groupId)
	}
	return assignment
}

// Rebalance recomputes the tenant's group assignments over its connected
// receivers, persists the cache, and repoints each receiver's filter set.
// Called whenever the tenant's group or account set changes.
func (s *Supervisor) Rebalance(tenantId string) error {
	groups, err := s.db.ListGroups(tenantId, false)
	if err != nil {
		return fmt.Errorf("listing groups: %w", err)
	}
	chatIdByGroup := make(map[string]string, len(groups))
	groupIds := make([]string, 0, len(groups))
	for _, g := range groups {
		groupIds = append(groupIds, g.Id)
		chatIdByGroup[g.Id] = g.GroupId
	}

	runners := s.tenantRunners(tenantId)
	byAccount := make(map[string]*runner, len(runners))
	accountIds := make([]string, 0, len(runners))
	for _, r := range runners {
		connected, _, _, _ := r.stats()
		if !connected {
			continue
		}
		byAccount[r.account.Id] = r
		accountIds = append(accountIds, r.account.Id)
	}
	// With nothing connected yet, assign across all active runners so a
	// fresh start still converges.
	if len(accountIds) == 0 {
		for _, r := range runners {
			byAccount[r.account.Id] = r
			accountIds = append(accountIds, r.account.Id)
		}
	}

	assignment := Assign(groupIds, accountIds)
	for accountId, assigned := range assignment {
		r := byAccount[accountId]
		chatIds := make([]string, 0, len(assigned))
		for _, groupId := range assigned {
			chatIds = append(chatIds, chatIdByGroup[groupId])
		}
		r.setAssigned(chatIds)
		if err = s.db.SetAccountAssignments(tenantId, accountId, assigned); err != nil {
			return fmt.Errorf("persisting assignments: %w", err)
		}
		s.log.With(
			slog.String("tenant", tenantId),
			slog.String("account", accountId),
			slog.Int("groups", len(assigned)),
		).Debug("assignment updated")
	}
	return nil
}

// Assignments returns the persisted-side view used by the control surface.
func (s *Supervisor) Assignments(tenantId string) (map[string][]string, error) {
	accounts, err := s.db.ListAccounts(tenantId)
	if err != nil {
		return nil, err
	}
	view := make(map[string][]string, len(accounts))
	for _, account := range accounts {
		if account.Status == entity.AccountActive {
			view[account.Id] = account.AssignedGroupIds
		}
	}
	return view, nil
}

package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"tgmon/entity"
	"tgmon/lib/sl"
)

func (c *Core) Accounts(tenantId string) ([]*entity.Account, error) {
	return c.db.ListAccounts(tenantId)
}

func (c *Core) Account(tenantId, id string) (*entity.Account, error) {
	return c.db.GetAccount(tenantId, id)
}

// AccountHealth returns the last probe snapshot for the tenant's receivers.
func (c *Core) AccountHealth(tenantId string) []entity.AccountHealth {
	if c.mon == nil {
		return nil
	}
	return c.mon.Snapshot(tenantId)
}

// UploadAccount stores the session and metadata artifacts and records the
// account in pending state. Nothing connects until the operator activates it.
func (c *Core) UploadAccount(tenantId, name, sessionName string, session []byte, metadataName string, metadata []byte) (*entity.Account, error) {
	if c.store == nil {
		return nil, fmt.Errorf("artifact store not connected")
	}
	saved, err := c.store.Save(tenantId, sessionName, session, metadataName, metadata)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = saved.Metadata.Username
	}
	if name == "" {
		name = saved.Metadata.PhoneNumber
	}
	account := &entity.Account{
		Id:           uuid.New().String(),
		TenantId:     tenantId,
		Name:         name,
		SessionPath:  saved.SessionPath,
		MetadataPath: saved.MetadataPath,
		PhoneNumber:  saved.Metadata.PhoneNumber,
		Username:     saved.Metadata.Username,
		FirstName:    saved.Metadata.FirstName,
		LastName:     saved.Metadata.LastName,
		Status:       entity.AccountPending,
		CreatedAt:    time.Now().UTC(),
	}
	if err = c.db.CreateAccount(account); err != nil {
		// keep disk and store consistent when the record was rejected
		_ = c.store.Remove(saved.SessionPath, saved.MetadataPath)
		return nil, err
	}
	return account, nil
}

// ActivateAccount moves a pending or inactive account to active, starts its
// receiver and rebalances group assignments across the tenant's receivers.
func (c *Core) ActivateAccount(tenantId, id string) (*entity.Account, error) {
	account, err := c.db.GetAccount(tenantId, id)
	if err != nil {
		return nil, err
	}
	if account.Status == entity.AccountActive {
		return nil, fmt.Errorf("%w: account already active", entity.ErrConflict)
	}
	if err = c.db.SetAccountStatus(tenantId, id, entity.AccountActive, ""); err != nil {
		return nil, err
	}
	account.Status = entity.AccountActive
	account.LastError = ""
	if c.sup != nil {
		c.sup.StartAccount(account)
	}
	c.rebalance(tenantId)
	return c.db.GetAccount(tenantId, id)
}

// DeactivateAccount stops the receiver and marks the account inactive.
func (c *Core) DeactivateAccount(tenantId, id string) (*entity.Account, error) {
	account, err := c.db.GetAccount(tenantId, id)
	if err != nil {
		return nil, err
	}
	if account.Status != entity.AccountActive && account.Status != entity.AccountError {
		return nil, fmt.Errorf("%w: account is not active", entity.ErrConflict)
	}
	if c.sup != nil {
		c.sup.StopAccount(id)
	}
	if err = c.db.SetAccountStatus(tenantId, id, entity.AccountInactive, ""); err != nil {
		return nil, err
	}
	c.rebalance(tenantId)
	return c.db.GetAccount(tenantId, id)
}

// DeleteAccount stops the receiver, removes the artifacts from disk and
// deletes the record. Archive and ledger rows produced by the account stay.
func (c *Core) DeleteAccount(tenantId, id string) error {
	account, err := c.db.GetAccount(tenantId, id)
	if err != nil {
		return err
	}
	if c.sup != nil {
		c.sup.StopAccount(id)
	}
	if c.store != nil {
		if err = c.store.Remove(account.SessionPath, account.MetadataPath); err != nil {
			c.log.Warn("removing account artifacts", sl.Err(err))
		}
	}
	if err = c.db.DeleteAccount(tenantId, id); err != nil {
		return err
	}
	c.rebalance(tenantId)
	return nil
}

func (c *Core) rebalance(tenantId string) {
	if c.sup == nil {
		return
	}
	if err := c.sup.Rebalance(tenantId); err != nil {
		c.log.Warn("rebalancing group assignments", sl.Err(err))
	}
}

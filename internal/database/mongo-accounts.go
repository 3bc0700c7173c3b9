package database

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"tgmon/entity"
)

func (m *MongoDB) CreateAccount(account *entity.Account) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAccounts)
	_, err = collection.InsertOne(m.ctx, account)
	return decodeError(err)
}

func (m *MongoDB) ListAccounts(tenantId string) ([]*entity.Account, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAccounts)
	cursor, err := collection.Find(m.ctx, bson.D{{Key: "tenant_id", Value: tenantId}})
	if err != nil {
		return nil, decodeError(err)
	}
	defer cursor.Close(m.ctx)

	var accounts []*entity.Account
	if err = cursor.All(m.ctx, &accounts); err != nil {
		return nil, decodeError(err)
	}
	return accounts, nil
}

func (m *MongoDB) GetAccount(tenantId, id string) (*entity.Account, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAccounts)
	var account entity.Account
	err = collection.FindOne(m.ctx, bson.D{{Key: "tenant_id", Value: tenantId}, {Key: "id", Value: id}}).Decode(&account)
	if err != nil {
		return nil, decodeError(err)
	}
	return &account, nil
}

// SetAccountStatus moves the account through its state machine. A non-empty
// lastError is stored with the transition; an empty one clears it.
func (m *MongoDB) SetAccountStatus(tenantId, id string, status entity.AccountStatus, lastError string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAccounts)
	res, err := collection.UpdateOne(m.ctx,
		bson.D{{Key: "tenant_id", Value: tenantId}, {Key: "id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: status}, {Key: "last_error", Value: lastError}}}})
	if err != nil {
		return decodeError(err)
	}
	if res.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

// SetAccountAssignments persists the balancer's group assignment cache.
func (m *MongoDB) SetAccountAssignments(tenantId, id string, groupIds []string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAccounts)
	_, err = collection.UpdateOne(m.ctx,
		bson.D{{Key: "tenant_id", Value: tenantId}, {Key: "id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "assigned_group_ids", Value: groupIds}}}})
	return decodeError(err)
}

func (m *MongoDB) SetAccountActivity(tenantId, id string, at time.Time) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAccounts)
	_, err = collection.UpdateOne(m.ctx,
		bson.D{{Key: "tenant_id", Value: tenantId}, {Key: "id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "last_activity", Value: at}}}})
	return decodeError(err)
}

func (m *MongoDB) DeleteAccount(tenantId, id string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAccounts)
	res, err := collection.DeleteOne(m.ctx, bson.D{{Key: "tenant_id", Value: tenantId}, {Key: "id", Value: id}})
	if err != nil {
		return decodeError(err)
	}
	if res.DeletedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

// ListAccountsByStatus spans tenants; the supervisor uses it on startup to
// rebuild the active receiver set.
func (m *MongoDB) ListAccountsByStatus(status entity.AccountStatus) ([]*entity.Account, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAccounts)
	cursor, err := collection.Find(m.ctx, bson.D{{Key: "status", Value: status}})
	if err != nil {
		return nil, decodeError(err)
	}
	defer cursor.Close(m.ctx)

	var accounts []*entity.Account
	if err = cursor.All(m.ctx, &accounts); err != nil {
		return nil, decodeError(err)
	}
	return accounts, nil
}

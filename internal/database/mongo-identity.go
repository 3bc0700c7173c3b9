package database

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"tgmon/entity"
)

// CreateOrganization inserts the tenant together with its owner user.
// Registration is idempotent by telegram id: the unique index on telegram_id
// rejects a second registration with ErrConflict regardless of the
// organization name. The owner goes in first so the index arbitrates
// concurrent registrations; a failed organization insert rolls the owner
// back, leaving no half-created tenant behind.
func (m *MongoDB) CreateOrganization(org *entity.Organization, owner *entity.User) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	users := connection.Database(m.database).Collection(collectionUsers)
	if _, err = users.InsertOne(m.ctx, owner); err != nil {
		return decodeError(err)
	}

	orgs := connection.Database(m.database).Collection(collectionOrganizations)
	if _, err = orgs.InsertOne(m.ctx, org); err != nil {
		_, _ = users.DeleteOne(m.ctx, bson.D{{Key: "id", Value: owner.Id}})
		return decodeError(err)
	}
	return nil
}

func (m *MongoDB) GetOrganization(id string) (*entity.Organization, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionOrganizations)
	var org entity.Organization
	err = collection.FindOne(m.ctx, bson.D{{Key: "id", Value: id}}).Decode(&org)
	if err != nil {
		return nil, decodeError(err)
	}
	return &org, nil
}

func (m *MongoDB) UpdateOrganization(id string, upd *entity.OrganizationUpdate) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionOrganizations)
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: upd.Name},
		{Key: "description", Value: upd.Description},
		{Key: "plan", Value: upd.Plan},
	}}}
	res, err := collection.UpdateOne(m.ctx, bson.D{{Key: "id", Value: id}}, update)
	if err != nil {
		return decodeError(err)
	}
	if res.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (m *MongoDB) SetOrganizationPlan(id string, plan entity.Plan) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionOrganizations)
	res, err := collection.UpdateOne(m.ctx, bson.D{{Key: "id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "plan", Value: plan}}}})
	if err != nil {
		return decodeError(err)
	}
	if res.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (m *MongoDB) GetUserByTelegramId(telegramId int64) (*entity.User, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	var user entity.User
	err = collection.FindOne(m.ctx, bson.D{{Key: "telegram_id", Value: telegramId}}).Decode(&user)
	if err != nil {
		return nil, decodeError(err)
	}
	return &user, nil
}

func (m *MongoDB) GetUserById(tenantId, id string) (*entity.User, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	var user entity.User
	err = collection.FindOne(m.ctx, bson.D{{Key: "tenant_id", Value: tenantId}, {Key: "id", Value: id}}).Decode(&user)
	if err != nil {
		return nil, decodeError(err)
	}
	return &user, nil
}

func (m *MongoDB) ListUsers(tenantId string) ([]*entity.User, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	cursor, err := collection.Find(m.ctx, bson.D{{Key: "tenant_id", Value: tenantId}})
	if err != nil {
		return nil, decodeError(err)
	}
	defer cursor.Close(m.ctx)

	var users []*entity.User
	if err = cursor.All(m.ctx, &users); err != nil {
		return nil, decodeError(err)
	}
	return users, nil
}

// CreateUser adds a non-owner user to the tenant. The telegram id must be
// unused globally; the unique index reports a taken id as ErrConflict.
func (m *MongoDB) CreateUser(user *entity.User) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	_, err = collection.InsertOne(m.ctx, user)
	return decodeError(err)
}

// TouchUserLogin refreshes the photo and last-login timestamp after a
// verified Telegram login.
func (m *MongoDB) TouchUserLogin(telegramId int64, photoUrl string, at time.Time) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "photo_url", Value: photoUrl},
		{Key: "last_login", Value: at},
	}}}
	_, err = collection.UpdateOne(m.ctx, bson.D{{Key: "telegram_id", Value: telegramId}}, update)
	return decodeError(err)
}

func (m *MongoDB) SetUserRole(tenantId, id string, role entity.Role) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	res, err := collection.UpdateOne(m.ctx,
		bson.D{{Key: "tenant_id", Value: tenantId}, {Key: "id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "role", Value: role}}}})
	if err != nil {
		return decodeError(err)
	}
	if res.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (m *MongoDB) DeactivateUser(tenantId, id string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	res, err := collection.UpdateOne(m.ctx,
		bson.D{{Key: "tenant_id", Value: tenantId}, {Key: "id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "is_active", Value: false}}}})
	if err != nil {
		return decodeError(err)
	}
	if res.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

package database

import (
	"go.mongodb.org/mongo-driver/bson"
	"tgmon/entity"
)

func (m *MongoDB) CreateWatchUser(user *entity.WatchUser) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionWatchlist)
	filter := bson.D{
		{Key: "tenant_id", Value: user.TenantId},
		{Key: "username", Value: user.Username},
		{Key: "is_active", Value: true},
	}
	count, err := collection.CountDocuments(m.ctx, filter)
	if err != nil {
		return decodeError(err)
	}
	if count > 0 {
		return entity.ErrConflict
	}
	_, err = collection.InsertOne(m.ctx, user)
	return decodeError(err)
}

func (m *MongoDB) ListWatchUsers(tenantId string, includeInactive bool) ([]*entity.WatchUser, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "tenant_id", Value: tenantId}}
	if !includeInactive {
		filter = append(filter, bson.E{Key: "is_active", Value: true})
	}
	collection := connection.Database(m.database).Collection(collectionWatchlist)
	cursor, err := collection.Find(m.ctx, filter)
	if err != nil {
		return nil, decodeError(err)
	}
	defer cursor.Close(m.ctx)

	var users []*entity.WatchUser
	if err = cursor.All(m.ctx, &users); err != nil {
		return nil, decodeError(err)
	}
	return users, nil
}

func (m *MongoDB) GetWatchUser(tenantId, id string) (*entity.WatchUser, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionWatchlist)
	var user entity.WatchUser
	err = collection.FindOne(m.ctx, bson.D{{Key: "tenant_id", Value: tenantId}, {Key: "id", Value: id}}).Decode(&user)
	if err != nil {
		return nil, decodeError(err)
	}
	return &user, nil
}

func (m *MongoDB) UpdateWatchUser(tenantId, id string, upd *entity.WatchUserCreate) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionWatchlist)
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "username", Value: upd.Username},
		{Key: "user_id", Value: upd.UserId},
		{Key: "full_name", Value: upd.FullName},
		{Key: "group_ids", Value: upd.GroupIds},
		{Key: "keywords", Value: upd.Keywords},
		{Key: "forwarding_destination_ids", Value: upd.DestinationIds},
	}}}
	res, err := collection.UpdateOne(m.ctx, bson.D{{Key: "tenant_id", Value: tenantId}, {Key: "id", Value: id}}, update)
	if err != nil {
		return decodeError(err)
	}
	if res.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (m *MongoDB) SoftDeleteWatchUser(tenantId, id string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionWatchlist)
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

// FindActiveWatchUsers returns the tenant's watch entries matching the sender
// by normalized username or external user id.
func (m *MongoDB) FindActiveWatchUsers(tenantId, username, userId string) ([]*entity.WatchUser, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	match := bson.A{bson.D{{Key: "username", Value: entity.NormalizeUsername(username)}}}
	if userId != "" {
		match = append(match, bson.D{{Key: "user_id", Value: userId}})
	}
	filter := bson.D{
		{Key: "tenant_id", Value: tenantId},
		{Key: "is_active", Value: true},
		{Key: "$or", Value: match},
	}
	collection := connection.Database(m.database).Collection(collectionWatchlist)
	cursor, err := collection.Find(m.ctx, filter)
	if err != nil {
		return nil, decodeError(err)
	}
	defer cursor.Close(m.ctx)

	var users []*entity.WatchUser
	if err = cursor.All(m.ctx, &users); err != nil {
		return nil, decodeError(err)
	}
	return users, nil
}

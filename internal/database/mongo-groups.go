package database

import (
	"go.mongodb.org/mongo-driver/bson"
	"tgmon/entity"
)

func (m *MongoDB) CreateGroup(group *entity.Group) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionGroups)
	filter := bson.D{
		{Key: "tenant_id", Value: group.TenantId},
		{Key: "group_id", Value: group.GroupId},
		{Key: "is_active", Value: true},
	}
	count, err := collection.CountDocuments(m.ctx, filter)
	if err != nil {
		return decodeError(err)
	}
	if count > 0 {
		return entity.ErrConflict
	}
	_, err = collection.InsertOne(m.ctx, group)
	return decodeError(err)
}

func (m *MongoDB) ListGroups(tenantId string, includeInactive bool) ([]*entity.Group, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "tenant_id", Value: tenantId}}
	if !includeInactive {
		filter = append(filter, bson.E{Key: "is_active", Value: true})
	}
	collection := connection.Database(m.database).Collection(collectionGroups)
	cursor, err := collection.Find(m.ctx, filter)
	if err != nil {
		return nil, decodeError(err)
	}
	defer cursor.Close(m.ctx)

	var groups []*entity.Group
	if err = cursor.All(m.ctx, &groups); err != nil {
		return nil, decodeError(err)
	}
	return groups, nil
}

func (m *MongoDB) GetGroup(tenantId, id string) (*entity.Group, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionGroups)
	var group entity.Group
	err = collection.FindOne(m.ctx, bson.D{{Key: "tenant_id", Value: tenantId}, {Key: "id", Value: id}}).Decode(&group)
	if err != nil {
		return nil, decodeError(err)
	}
	return &group, nil
}

func (m *MongoDB) UpdateGroup(tenantId, id string, upd *entity.GroupCreate) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionGroups)
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "group_id", Value: upd.GroupId},
		{Key: "group_name", Value: upd.GroupName},
		{Key: "group_type", Value: upd.GroupType},
		{Key: "invite_link", Value: upd.InviteLink},
		{Key: "description", Value: upd.Description},
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

// SoftDeleteGroup keeps the record so archive and ledger rows stay readable.
func (m *MongoDB) SoftDeleteGroup(tenantId, id string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionGroups)
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

// GetActiveGroupByChatId resolves a tenant's monitored group by the external
// chat identifier.
func (m *MongoDB) GetActiveGroupByChatId(tenantId, chatId string) (*entity.Group, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionGroups)
	var group entity.Group
	filter := bson.D{{Key: "tenant_id", Value: tenantId}, {Key: "group_id", Value: chatId}, {Key: "is_active", Value: true}}
	err = collection.FindOne(m.ctx, filter).Decode(&group)
	if err != nil {
		return nil, decodeError(err)
	}
	return &group, nil
}

// ListActiveGroupsByChatId finds every tenant monitoring the given chat.
// Used only by the webhook intake to route bot-ingested messages; results
// never leave the pipeline.
func (m *MongoDB) ListActiveGroupsByChatId(chatId string) ([]*entity.Group, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionGroups)
	cursor, err := collection.Find(m.ctx, bson.D{{Key: "group_id", Value: chatId}, {Key: "is_active", Value: true}})
	if err != nil {
		return nil, decodeError(err)
	}
	defer cursor.Close(m.ctx)

	var groups []*entity.Group
	if err = cursor.All(m.ctx, &groups); err != nil {
		return nil, decodeError(err)
	}
	return groups, nil
}

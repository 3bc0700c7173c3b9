package database

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"tgmon/entity"
)

func (m *MongoDB) CreateDestination(dest *entity.Destination) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionDestinations)
	filter := bson.D{
		{Key: "tenant_id", Value: dest.TenantId},
		{Key: "destination_id", Value: dest.DestinationId},
		{Key: "is_active", Value: true},
	}
	count, err := collection.CountDocuments(m.ctx, filter)
	if err != nil {
		return decodeError(err)
	}
	if count > 0 {
		return entity.ErrConflict
	}
	_, err = collection.InsertOne(m.ctx, dest)
	return decodeError(err)
}

func (m *MongoDB) ListDestinations(tenantId string, includeInactive bool) ([]*entity.Destination, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "tenant_id", Value: tenantId}}
	if !includeInactive {
		filter = append(filter, bson.E{Key: "is_active", Value: true})
	}
	collection := connection.Database(m.database).Collection(collectionDestinations)
	cursor, err := collection.Find(m.ctx, filter)
	if err != nil {
		return nil, decodeError(err)
	}
	defer cursor.Close(m.ctx)

	var destinations []*entity.Destination
	if err = cursor.All(m.ctx, &destinations); err != nil {
		return nil, decodeError(err)
	}
	return destinations, nil
}

func (m *MongoDB) GetDestination(tenantId, id string) (*entity.Destination, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionDestinations)
	var dest entity.Destination
	err = collection.FindOne(m.ctx, bson.D{{Key: "tenant_id", Value: tenantId}, {Key: "id", Value: id}}).Decode(&dest)
	if err != nil {
		return nil, decodeError(err)
	}
	return &dest, nil
}

func (m *MongoDB) UpdateDestination(tenantId, id string, upd *entity.DestinationCreate) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionDestinations)
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "destination_id", Value: upd.DestinationId},
		{Key: "destination_name", Value: upd.DestinationName},
		{Key: "destination_type", Value: upd.DestinationType},
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

func (m *MongoDB) SoftDeleteDestination(tenantId, id string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionDestinations)
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

// MarkDestinationDelivered bumps the delivered counter and clears any
// previous delivery error.
func (m *MongoDB) MarkDestinationDelivered(tenantId, id string, at time.Time) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionDestinations)
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "message_count", Value: 1}}},
		{Key: "$set", Value: bson.D{{Key: "last_forwarded", Value: at}, {Key: "last_error", Value: ""}}},
	}
	_, err = collection.UpdateOne(m.ctx, bson.D{{Key: "tenant_id", Value: tenantId}, {Key: "id", Value: id}}, update)
	return decodeError(err)
}

// SetDestinationError records a permanent delivery failure without
// deactivating the destination; that stays an operator decision.
func (m *MongoDB) SetDestinationError(tenantId, id, message string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionDestinations)
	_, err = collection.UpdateOne(m.ctx,
		bson.D{{Key: "tenant_id", Value: tenantId}, {Key: "id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "last_error", Value: message}}}})
	return decodeError(err)
}

package database

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"tgmon/entity"
)

// ForwardedFilter narrows the ledger list query.
type ForwardedFilter struct {
	Username      string
	DestinationId string
	Limit         int64
	Skip          int64
}

// InsertForwarded appends one terminal ledger row. The ledger is append-only,
// rows are never updated or removed.
func (m *MongoDB) InsertForwarded(row *entity.ForwardedMessage) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionForwarded)
	_, err = collection.InsertOne(m.ctx, row)
	return decodeError(err)
}

func (m *MongoDB) ListForwarded(tenantId string, f ForwardedFilter) ([]*entity.ForwardedMessage, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "tenant_id", Value: tenantId}}
	if f.Username != "" {
		filter = append(filter, bson.E{Key: "username", Value: entity.NormalizeUsername(f.Username)})
	}
	if f.DestinationId != "" {
		filter = append(filter, bson.E{Key: "destination_id", Value: f.DestinationId})
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "forwarded_at", Value: -1}}).
		SetSkip(f.Skip).
		SetLimit(f.Limit)

	collection := connection.Database(m.database).Collection(collectionForwarded)
	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, decodeError(err)
	}
	defer cursor.Close(m.ctx)

	var rows []*entity.ForwardedMessage
	if err = cursor.All(m.ctx, &rows); err != nil {
		return nil, decodeError(err)
	}
	return rows, nil
}

func (m *MongoDB) InsertBotCommand(cmd *entity.BotCommand) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionBotCommands)
	_, err = collection.InsertOne(m.ctx, cmd)
	return decodeError(err)
}

package database

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"tgmon/entity"
)

// MessageFilter narrows a message list query. Username is matched as a
// case-insensitive regex, like the dashboard search.
type MessageFilter struct {
	GroupId     string
	Username    string
	MessageType string
	Limit       int64
	Skip        int64
}

// InsertMessageIfAbsent appends an archive row unless one already exists for
// the same (tenant, group, external message id). The unique index on that
// triple makes the insert race-free when session and webhook ingestion see
// the same message. Returns whether a row was written; callers must not emit
// forwards when it was not.
func (m *MongoDB) InsertMessageIfAbsent(msg *entity.MessageLog) (bool, error) {
	connection, err := m.connect()
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionMessages)
	if _, err = collection.InsertOne(m.ctx, msg); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, decodeError(err)
	}
	return true, nil
}

func (m *MongoDB) ListMessages(tenantId string, f MessageFilter) ([]*entity.MessageLog, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "tenant_id", Value: tenantId}}
	if f.GroupId != "" {
		filter = append(filter, bson.E{Key: "group_id", Value: f.GroupId})
	}
	if f.Username != "" {
		filter = append(filter, bson.E{Key: "username",
			Value: primitive.Regex{Pattern: f.Username, Options: "i"}})
	}
	if f.MessageType != "" {
		filter = append(filter, bson.E{Key: "message_type", Value: f.MessageType})
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(f.Skip).
		SetLimit(f.Limit)

	collection := connection.Database(m.database).Collection(collectionMessages)
	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, decodeError(err)
	}
	defer cursor.Close(m.ctx)

	var messages []*entity.MessageLog
	if err = cursor.All(m.ctx, &messages); err != nil {
		return nil, decodeError(err)
	}
	return messages, nil
}

// SearchMessages scans text, username and group name with a case-insensitive
// regex and reports the total match count alongside the page.
func (m *MongoDB) SearchMessages(tenantId, q string, limit, skip int64) ([]*entity.MessageLog, int64, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, 0, err
	}
	defer m.disconnect(connection)

	pattern := primitive.Regex{Pattern: q, Options: "i"}
	filter := bson.D{
		{Key: "tenant_id", Value: tenantId},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "message_text", Value: pattern}},
			bson.D{{Key: "username", Value: pattern}},
			bson.D{{Key: "group_name", Value: pattern}},
		}},
	}

	collection := connection.Database(m.database).Collection(collectionMessages)
	total, err := collection.CountDocuments(m.ctx, filter)
	if err != nil {
		return nil, 0, decodeError(err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, 0, decodeError(err)
	}
	defer cursor.Close(m.ctx)

	var messages []*entity.MessageLog
	if err = cursor.All(m.ctx, &messages); err != nil {
		return nil, 0, decodeError(err)
	}
	return messages, total, nil
}

package database

import (
	"context"
	"errors"
	"fmt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"tgmon/entity"
	"tgmon/internal/config"
)

const (
	collectionOrganizations = "organizations"
	collectionUsers         = "users"
	collectionGroups        = "groups"
	collectionWatchlist     = "watchlist_users"
	collectionDestinations  = "forwarding_destinations"
	collectionAccounts      = "telegram_accounts"
	collectionMessages      = "message_logs"
	collectionForwarded     = "forwarded_messages"
	collectionBotCommands   = "bot_commands"
)

type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
	return client
}

// EnsureIndexes creates the unique indexes the write paths rely on. The
// archive and identity inserts use insert-then-classify instead of
// count-then-insert, so uniqueness holds under concurrent writers. The
// tenant-scoped resource indexes are partial over active rows, which keeps
// soft-deleted records from blocking re-creation.
func (m *MongoDB) EnsureIndexes() error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	db := connection.Database(m.database)
	unique := func(collection string, keys bson.D, partial bool) error {
		opts := options.Index().SetUnique(true)
		if partial {
			opts.SetPartialFilterExpression(bson.D{{Key: "is_active", Value: true}})
		}
		_, err := db.Collection(collection).Indexes().CreateOne(m.ctx, mongo.IndexModel{
			Keys:    keys,
			Options: opts,
		})
		return decodeError(err)
	}

	if err = unique(collectionUsers, bson.D{{Key: "telegram_id", Value: 1}}, false); err != nil {
		return err
	}
	if err = unique(collectionMessages,
		bson.D{{Key: "tenant_id", Value: 1}, {Key: "group_id", Value: 1}, {Key: "message_id", Value: 1}}, false); err != nil {
		return err
	}
	if err = unique(collectionGroups, bson.D{{Key: "tenant_id", Value: 1}, {Key: "group_id", Value: 1}}, true); err != nil {
		return err
	}
	if err = unique(collectionWatchlist, bson.D{{Key: "tenant_id", Value: 1}, {Key: "username", Value: 1}}, true); err != nil {
		return err
	}
	return unique(collectionDestinations, bson.D{{Key: "tenant_id", Value: 1}, {Key: "destination_id", Value: 1}}, true)
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", entity.ErrStoreUnavailable)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	_ = connection.Disconnect(m.ctx)
}

// decodeError translates driver errors to the service taxonomy.
func decodeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return entity.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return entity.ErrConflict
	}
	return fmt.Errorf("mongodb: %w", err)
}

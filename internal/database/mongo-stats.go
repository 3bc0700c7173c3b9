package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
	"tgmon/entity"
)

// GetStats computes the tenant's analytics rollup on demand. The independent
// aggregations run concurrently on one connection; each one writes its own
// field of the result. Every query is tenant-scoped and no internal document
// ids leave this method.
func (m *MongoDB) GetStats(tenantId string) (*entity.Stats, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	db := connection.Database(m.database)
	tenant := bson.E{Key: "tenant_id", Value: tenantId}
	active := bson.D{tenant, {Key: "is_active", Value: true}}
	today := time.Now().UTC().Truncate(24 * time.Hour)

	messages := db.Collection(collectionMessages)
	forwarded := db.Collection(collectionForwarded)

	stats := &entity.Stats{LastUpdated: time.Now().UTC()}
	g, ctx := errgroup.WithContext(m.ctx)

	count := func(target *int64, collection *mongo.Collection, filter bson.D) {
		g.Go(func() error {
			n, err := collection.CountDocuments(ctx, filter)
			if err != nil {
				return decodeError(err)
			}
			*target = n
			return nil
		})
	}

	count(&stats.TotalGroups, db.Collection(collectionGroups), active)
	count(&stats.TotalWatchlistUsers, db.Collection(collectionWatchlist), active)
	count(&stats.TotalDestinations, db.Collection(collectionDestinations), active)
	count(&stats.TotalMessages, messages, bson.D{tenant})
	count(&stats.MessagesToday, messages,
		bson.D{tenant, {Key: "timestamp", Value: bson.D{{Key: "$gte", Value: today}}}})
	count(&stats.ForwardedToday, forwarded,
		bson.D{tenant, {Key: "forwarded_at", Value: bson.D{{Key: "$gte", Value: today}}}})

	g.Go(func() error {
		total, err := forwarded.CountDocuments(ctx, bson.D{tenant})
		if err != nil {
			return decodeError(err)
		}
		delivered, err := forwarded.CountDocuments(ctx,
			bson.D{tenant, {Key: "outcome", Value: entity.ForwardDelivered}})
		if err != nil {
			return decodeError(err)
		}
		stats.TotalForwarded = total
		if total > 0 {
			stats.ForwardingSuccess = float64(delivered) / float64(total)
		}
		return nil
	})

	rollup := func(target *[]entity.NameCount, collection *mongo.Collection, field string) {
		g.Go(func() error {
			buckets, err := m.groupCount(ctx, collection, tenantId, field, 10)
			if err != nil {
				return err
			}
			*target = buckets
			return nil
		})
	}

	rollup(&stats.TopUsers, messages, "$username")
	rollup(&stats.MessageTypes, messages, "$message_type")
	rollup(&stats.TopDestinations, forwarded, "$destination_id")

	g.Go(func() error {
		opts := options.Find().SetSort(bson.D{{Key: "forwarded_at", Value: -1}}).SetLimit(10)
		cursor, err := forwarded.Find(ctx, bson.D{tenant}, opts)
		if err != nil {
			return decodeError(err)
		}
		defer cursor.Close(ctx)
		var recent []entity.RecentForward
		if err = cursor.All(ctx, &recent); err != nil {
			return decodeError(err)
		}
		stats.RecentForwards = recent
		return nil
	})

	if err = g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (m *MongoDB) groupCount(ctx context.Context, collection *mongo.Collection, tenantId, field string, limit int) ([]entity.NameCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "tenant_id", Value: tenantId}}}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: field}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}
	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, decodeError(err)
	}
	defer cursor.Close(ctx)

	var buckets []entity.NameCount
	if err = cursor.All(ctx, &buckets); err != nil {
		return nil, decodeError(err)
	}
	return buckets, nil
}

package repository

import (
	"context"
	"time"

	"github.com/meshconf/meshconf/internal/domain"
	"github.com/meshconf/meshconf/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type presenceAuditLogRepository struct {
	db *mongo.Database
}

func NewPresenceAuditLogRepository(db *mongo.Database) domain.PresenceAuditRepository {
	return &presenceAuditLogRepository{
		db: db,
	}
}

func (r *presenceAuditLogRepository) Log(ctx context.Context, log *domain.PresenceAuditLog) error {
	collection := r.db.Collection(db.PresenceAuditLogsCollection)

	_, err := collection.InsertOne(ctx, log)
	return err
}

func (r *presenceAuditLogRepository) GetByRoomID(ctx context.Context, roomID string, limit int) ([]domain.PresenceAuditLog, error) {
	collection := r.db.Collection(db.PresenceAuditLogsCollection)

	filter := bson.M{"room_id": roomID}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []domain.PresenceAuditLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}

func (r *presenceAuditLogRepository) GetByEventType(ctx context.Context, eventType domain.PresenceEventType, from time.Time, to time.Time) ([]domain.PresenceAuditLog, error) {
	collection := r.db.Collection(db.PresenceAuditLogsCollection)

	filter := bson.M{
		"event_type": eventType,
		"timestamp": bson.M{
			"$gte": from,
			"$lte": to,
		},
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []domain.PresenceAuditLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}

func (r *presenceAuditLogRepository) DeleteOlderThan(ctx context.Context, before time.Time) error {
	collection := r.db.Collection(db.PresenceAuditLogsCollection)

	filter := bson.M{
		"timestamp": bson.M{
			"$lt": before,
		},
	}

	_, err := collection.DeleteMany(ctx, filter)
	return err
}

func (r *presenceAuditLogRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.PresenceAuditLogsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "room_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(2592000), // 30 days TTL
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

package repository

import (
	"context"

	"eventtrail/internal/domain"
	"eventtrail/internal/persistence/db"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type eventLogRepository struct {
	db *mongo.Database
}

func NewEventLogRepository(db *mongo.Database) domain.EventLogRepository {
	return &eventLogRepository{
		db: db,
	}
}

func (r *eventLogRepository) Insert(ctx context.Context, log *domain.EventLog) error {
	collection := r.db.Collection(db.EventLogsCollection)

	_, err := collection.InsertOne(ctx, log)
	return err
}

func (r *eventLogRepository) ListByEventID(ctx context.Context, eventID string) ([]domain.EventLog, error) {
	collection := r.db.Collection(db.EventLogsCollection)

	filter := bson.M{"event_id": eventID}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := []domain.EventLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}

func (r *eventLogRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.EventLogsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "event_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

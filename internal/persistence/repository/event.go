package repository

import (
	"context"
	"errors"

	"eventtrail/internal/domain"
	"eventtrail/internal/persistence/db"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type eventRepository struct {
	db *mongo.Database
}

func NewEventRepository(db *mongo.Database) domain.EventRepository {
	return &eventRepository{
		db: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	// Last-resort guard: the ordering invariant holds even if a caller
	// bypasses the validation layer.
	if err := event.Validate(); err != nil {
		return err
	}

	collection := r.db.Collection(db.EventsCollection)

	_, err := collection.InsertOne(ctx, event)
	return err
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	collection := r.db.Collection(db.EventsCollection)

	var event domain.Event
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}

	return &event, nil
}

func (r *eventRepository) Update(ctx context.Context, event *domain.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	collection := r.db.Collection(db.EventsCollection)

	result, err := collection.ReplaceOne(ctx, bson.M{"_id": event.ID}, event)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrEventNotFound
	}

	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	collection := r.db.Collection(db.EventsCollection)

	result, err := collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return domain.ErrEventNotFound
	}

	// Log entries are intentionally left behind; audit history outlives
	// the event it documents.
	return nil
}

func (r *eventRepository) List(ctx context.Context, profileID string) ([]domain.Event, error) {
	collection := r.db.Collection(db.EventsCollection)

	filter := bson.M{}
	if profileID != "" {
		filter["profiles"] = profileID
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	events := []domain.Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}

	return events, nil
}

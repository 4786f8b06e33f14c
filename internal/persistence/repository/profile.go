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

type profileRepository struct {
	db *mongo.Database
}

func NewProfileRepository(db *mongo.Database) domain.ProfileRepository {
	return &profileRepository{
		db: db,
	}
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	collection := r.db.Collection(db.ProfilesCollection)

	_, err := collection.InsertOne(ctx, profile)
	return err
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	collection := r.db.Collection(db.ProfilesCollection)

	var profile domain.Profile
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}

	return &profile, nil
}

func (r *profileRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Profile, error) {
	if len(ids) == 0 {
		return []domain.Profile{}, nil
	}

	collection := r.db.Collection(db.ProfilesCollection)

	cursor, err := collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var found []domain.Profile
	if err := cursor.All(ctx, &found); err != nil {
		return nil, err
	}

	// Preserve the caller's ordering; $in gives no ordering guarantee.
	byID := make(map[string]domain.Profile, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	ordered := make([]domain.Profile, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
			delete(byID, id)
		}
	}

	return ordered, nil
}

func (r *profileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	collection := r.db.Collection(db.ProfilesCollection)

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	profiles := []domain.Profile{}
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, err
	}

	return profiles, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	collection := r.db.Collection(db.ProfilesCollection)

	result, err := collection.ReplaceOne(ctx, bson.M{"_id": profile.ID}, profile)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrProfileNotFound
	}

	return nil
}

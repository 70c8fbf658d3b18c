package profileRepo

import (
	"context"
	"fmt"

	"consultline/database/repository"
	"consultline/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoProfileRepo implements ProfileRepository using MongoDB.
type MongoProfileRepo struct {
	coll *mongo.Collection
}

// NewMongoProfileRepo creates a new ProfileRepository backed by the "profiles" collection.
func NewMongoProfileRepo(db *mongo.Database) ProfileRepository {
	repo := &MongoProfileRepo{coll: db.Collection("profiles")}
	ctx, cancel := repository.WithTimeout(context.Background())
	defer cancel()
	if _, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		fmt.Printf("failed to create profile indexes: %v\n", err)
	}
	return repo
}

func (r *MongoProfileRepo) Create(ctx context.Context, profile *models.Profile) error {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, profile)
	return repository.Translate(err, "insert profile "+profile.ID)
}

func (r *MongoProfileRepo) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	var p models.Profile
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&p); err != nil {
		return nil, repository.Translate(err, "fetch profile with id "+id)
	}
	return &p, nil
}

func (r *MongoProfileRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Profile, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	out := make(map[string]*models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := r.coll.Find(ctx, bson.M{"id": bson.M{"$in": ids}})
	if err != nil {
		return nil, repository.Translate(err, "fetch profiles")
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var p models.Profile
		if err := cursor.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to decode profile: %w", err)
		}
		out[p.ID] = &p
	}
	return out, cursor.Err()
}

// Update never touches id, role or createdAt.
func (r *MongoProfileRepo) Update(ctx context.Context, profile *models.Profile) error {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"displayName": profile.DisplayName,
		"country":     profile.Country,
		"bio":         profile.Bio,
		"avatarUrl":   profile.AvatarURL,
		"galleryUrls": profile.GalleryURLs,
		"videoUrl":    profile.VideoURL,
		"specialties": profile.Specialties,
		"updatedAt":   profile.UpdatedAt,
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": profile.ID}, update)
	if err != nil {
		return repository.Translate(err, "update profile "+profile.ID)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update profile %s: %w", profile.ID, repository.ErrNotFound)
	}
	return nil
}

package reviewRepo

import (
	"context"
	"fmt"

	"consultline/database/repository"
	"consultline/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoReviewRepo implements ReviewRepository using MongoDB.
type MongoReviewRepo struct {
	coll *mongo.Collection
}

// NewMongoReviewRepo creates a new ReviewRepository. The unique sessionId
// index enforces one review per session.
func NewMongoReviewRepo(db *mongo.Database) ReviewRepository {
	repo := &MongoReviewRepo{coll: db.Collection("reviews")}
	ctx, cancel := repository.WithTimeout(context.Background())
	defer cancel()
	if _, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "sessionId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "practitionerId", Value: 1}}},
	}); err != nil {
		fmt.Printf("failed to create review indexes: %v\n", err)
	}
	return repo
}

func (r *MongoReviewRepo) Create(ctx context.Context, review *models.Review) error {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, review)
	return repository.Translate(err, "insert review for session "+review.SessionID)
}

func (r *MongoReviewRepo) GetBySession(ctx context.Context, sessionID string) (*models.Review, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	var rev models.Review
	if err := r.coll.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&rev); err != nil {
		return nil, repository.Translate(err, "fetch review for session "+sessionID)
	}
	return &rev, nil
}

func (r *MongoReviewRepo) ListByPractitioner(ctx context.Context, practitionerID string) ([]models.Review, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"practitionerId": practitionerID})
	if err != nil {
		return nil, repository.Translate(err, "list reviews of "+practitionerID)
	}
	defer cursor.Close(ctx)

	var out []models.Review
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}
	return out, nil
}

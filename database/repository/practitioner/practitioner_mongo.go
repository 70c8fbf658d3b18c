package practitionerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"consultline/database/repository"
	"consultline/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is shared with the session repository, which reserves
// practitioners inside its start transaction.
const CollectionName = "practitioners"

// MongoPractitionerRepo implements PractitionerRepository using MongoDB.
type MongoPractitionerRepo struct {
	coll *mongo.Collection
}

// NewMongoPractitionerRepo creates a new PractitionerRepository.
func NewMongoPractitionerRepo(db *mongo.Database) PractitionerRepository {
	repo := &MongoPractitionerRepo{coll: db.Collection(CollectionName)}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create practitioner indexes: %v\n", err)
	}
	return repo
}

func (r *MongoPractitionerRepo) ensureIndexes() error {
	ctx, cancel := repository.WithTimeout(context.Background())
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "isOnline", Value: 1}, {Key: "rating", Value: -1}}},
	})
	return err
}

func (r *MongoPractitionerRepo) Create(ctx context.Context, p *models.Practitioner) error {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, p)
	return repository.Translate(err, "insert practitioner "+p.UserID)
}

func (r *MongoPractitionerRepo) GetByID(ctx context.Context, userID string) (*models.Practitioner, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	var p models.Practitioner
	if err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&p); err != nil {
		return nil, repository.Translate(err, "fetch practitioner "+userID)
	}
	return &p, nil
}

func (r *MongoPractitionerRepo) List(ctx context.Context, onlineOnly bool) ([]models.Practitioner, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	filter := bson.M{}
	if onlineOnly {
		filter["isOnline"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "reviewCount", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, repository.Translate(err, "list practitioners")
	}
	defer cursor.Close(ctx)

	var out []models.Practitioner
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode practitioners: %w", err)
	}
	return out, nil
}

func (r *MongoPractitionerRepo) SetOnline(ctx context.Context, userID string, isOnline bool, now time.Time) (*models.Practitioner, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	filter := bson.M{"userId": userID}
	if !isOnline {
		filter["inService"] = false
	}
	update := bson.M{"$set": bson.M{"isOnline": isOnline, "updatedAt": now}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.Practitioner
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Distinguish a missing record from one held in service.
		if _, getErr := r.GetByID(ctx, userID); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("set practitioner %s offline: %w", userID, repository.ErrConflict)
	}
	if err != nil {
		return nil, repository.Translate(err, "update presence of "+userID)
	}
	return &p, nil
}

func (r *MongoPractitionerRepo) Release(ctx context.Context, userID, sessionID string, now time.Time) (bool, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	filter := bson.M{"userId": userID, "inService": true, "activeSessionId": sessionID}
	update := bson.M{
		"$set":   bson.M{"inService": false, "updatedAt": now},
		"$unset": bson.M{"activeSessionId": ""},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, repository.Translate(err, "release practitioner "+userID)
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoPractitionerRepo) UpdateRating(ctx context.Context, userID string, rating float64, count int, now time.Time) error {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{"rating": rating, "reviewCount": count, "updatedAt": now}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"userId": userID}, update)
	if err != nil {
		return repository.Translate(err, "update rating of "+userID)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update rating of %s: %w", userID, repository.ErrNotFound)
	}
	return nil
}

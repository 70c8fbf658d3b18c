package sessionRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"consultline/database/repository"
	practitionerRepo "consultline/database/repository/practitioner"
	"consultline/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSessionRepo implements SessionRepository using MongoDB. It needs the
// practitioners collection for the start transaction.
type MongoSessionRepo struct {
	sessionColl      *mongo.Collection
	practitionerColl *mongo.Collection
}

// NewMongoSessionRepo creates a new SessionRepository.
func NewMongoSessionRepo(db *mongo.Database) SessionRepository {
	repo := &MongoSessionRepo{
		sessionColl:      db.Collection("sessions"),
		practitionerColl: db.Collection(practitionerRepo.CollectionName),
	}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create session indexes: %v\n", err)
	}
	return repo
}

func (r *MongoSessionRepo) ensureIndexes() error {
	ctx, cancel := repository.WithTimeout(context.Background())
	defer cancel()

	_, err := r.sessionColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "agoraChannel", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "practitionerId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "phase", Value: 1}, {Key: "expiresAt", Value: 1}}},
	})
	return err
}

// CreateReserving runs the presence flip and the insert in one transaction.
// Requires a replica set or sharded deployment.
func (r *MongoSessionRepo) CreateReserving(ctx context.Context, s *models.Session, now time.Time) error {
	client := r.sessionColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		filter := bson.M{"userId": s.PractitionerID, "isOnline": true, "inService": false}
		update := bson.M{"$set": bson.M{"inService": true, "activeSessionId": s.ID, "updatedAt": now}}
		res, err := r.practitionerColl.UpdateOne(sc, filter, update)
		if err != nil {
			return fmt.Errorf("reserve practitioner failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("reserve practitioner %s: %w", s.PractitionerID, repository.ErrConflict)
		}

		if _, err := r.sessionColl.InsertOne(sc, s); err != nil {
			return repository.Translate(err, "insert session "+s.ID)
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return fmt.Errorf("start session transaction failed: %w", err)
	}
	return nil
}

func (r *MongoSessionRepo) GetByID(ctx context.Context, id string) (*models.Session, error) {
	return r.findOne(ctx, bson.M{"id": id}, "fetch session "+id)
}

func (r *MongoSessionRepo) GetByChannel(ctx context.Context, channel string) (*models.Session, error) {
	return r.findOne(ctx, bson.M{"agoraChannel": channel}, "fetch session on channel "+channel)
}

func (r *MongoSessionRepo) findOne(ctx context.Context, filter bson.M, op string) (*models.Session, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	var s models.Session
	if err := r.sessionColl.FindOne(ctx, filter).Decode(&s); err != nil {
		return nil, repository.Translate(err, op)
	}
	return &s, nil
}

func (r *MongoSessionRepo) ListByPractitioner(ctx context.Context, practitionerID string) ([]models.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, bson.M{"practitionerId": practitionerID}, opts, "list sessions of "+practitionerID)
}

func (r *MongoSessionRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Session, error) {
	filter := bson.M{
		"phase":     bson.M{"$ne": models.PhaseEnded},
		"expiresAt": bson.M{"$lte": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "expiresAt", Value: 1}}).SetLimit(int64(limit))
	return r.find(ctx, filter, opts, "list due sessions")
}

func (r *MongoSessionRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions, op string) ([]models.Session, error) {
	ctx, cancel := repository.WithTimeout(ctx)
	defer cancel()

	cursor, err := r.sessionColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, repository.Translate(err, op)
	}
	defer cursor.Close(ctx)

	var out []models.Session
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return out, nil
}

// Update reads the session, applies mutate and writes it back only if the
// version is unchanged.
func (r *MongoSessionRepo) Update(ctx context.Context, id string, mutate MutateFunc) (*models.Session, error) {
	for attempt := 0; attempt < repository.MaxUpdateAttempts; attempt++ {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		prev := current.Version
		if err := mutate(current); err != nil {
			if errors.Is(err, repository.ErrSkip) {
				return current, nil
			}
			return nil, err
		}
		current.Version = prev + 1

		wctx, cancel := repository.WithTimeout(ctx)
		res, err := r.sessionColl.ReplaceOne(wctx, bson.M{"id": id, "version": prev}, current)
		cancel()
		if err != nil {
			return nil, repository.Translate(err, "update session "+id)
		}
		if res.MatchedCount == 1 {
			return current, nil
		}
	}
	return nil, fmt.Errorf("update session %s: %w", id, repository.ErrConflict)
}

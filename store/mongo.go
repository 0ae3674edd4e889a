package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/talentops/interview-api/models"
)

// MongoStore keeps invites in a document collection, one document per
// invite keyed by token.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection("invites"),
	}
}

func (s *MongoStore) Create(ctx context.Context, inv *models.Invite) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if _, err := s.coll.InsertOne(ctx, inv); err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

func (s *MongoStore) GetByToken(ctx context.Context, token string) (*models.Invite, error) {
	var inv models.Invite
	err := s.coll.FindOne(ctx, bson.M{"token": token}).Decode(&inv)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invite: %w", err)
	}
	return &inv, nil
}

func (s *MongoStore) SaveForm(ctx context.Context, token string, formData map[string]any, expiresAt time.Time) error {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"token": token},
		bson.M{"$set": bson.M{"form_data": formData, "expires_at": expiresAt}},
	)
	if err != nil {
		return fmt.Errorf("failed to save form: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Consume(ctx context.Context, token string) error {
	now := time.Now().UTC()
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"token": token, "is_used": false, "expires_at": bson.M{"$gt": now}},
		bson.M{"$set": bson.M{"is_used": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to consume invite: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	inv, err := s.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if inv.IsUsed {
		return ErrConsumed
	}
	return ErrExpired
}

func (s *MongoStore) Complete(ctx context.Context, token, results string, completedAt time.Time) error {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"token": token},
		bson.M{"$set": bson.M{
			"interview_completed": true,
			"interview_results":   results,
			"completed_at":        completedAt,
			"is_used":             true,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SuggestionDbName  = "secretspace"
	SuggestionColName = "ai_suggestions"
	SuggestionTTL     = 30 * 24 * time.Hour
)

// SuggestionRecord is one suggestion request kept for the caller's history.
type SuggestionRecord struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID      string              `bson:"user_id" json:"user_id" validate:"required"`
	Requested   LocationCoordinates `bson:"requested" json:"requested"`
	Effective   LocationCoordinates `bson:"effective" json:"effective"`
	Substituted bool                `bson:"substituted" json:"substituted"`
	Preferences string              `bson:"preferences,omitempty" json:"preferences,omitempty"`
	Candidates  []string            `bson:"candidates" json:"candidates"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	ExpiresAt   time.Time           `bson:"expires_at" json:"expires_at"` // TTL index field
}

type SuggestionHistoryRepo interface {
	RecordSuggestion(ctx context.Context, record *SuggestionRecord) error
	ListSuggestions(ctx context.Context, userID string, skip, limit int) ([]*SuggestionRecord, int64, error)
	EnsureIndexes(ctx context.Context) error
}

func (mdb *MongodbRepo) GetCollection(ctx context.Context, dbName, colName string) (*mongo.Collection, error) {
	if mdb.mongodbClient == nil {
		return nil, fmt.Errorf("mongodb client is not initialized")
	}
	return mdb.mongodbClient.Database(dbName).Collection(colName), nil
}

// EnsureIndexes creates the TTL and lookup indexes
func (mdb *MongodbRepo) EnsureIndexes(ctx context.Context) error {
	col, err := mdb.GetCollection(ctx, SuggestionDbName, SuggestionColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetExpireAfterSeconds(0).
				SetName("expires_at_ttl"),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("user_created_at_idx"),
		},
	}

	if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("error creating indexes: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) RecordSuggestion(ctx context.Context, record *SuggestionRecord) error {
	if err := Validate.Struct(record); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	col, err := mdb.GetCollection(ctx, SuggestionDbName, SuggestionColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	now := time.Now()
	record.CreatedAt = now
	record.ExpiresAt = now.Add(SuggestionTTL)
	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}
	if record.Candidates == nil {
		record.Candidates = []string{}
	}

	if _, err := col.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("error inserting suggestion record: %w", err)
	}
	return nil
}

// ListSuggestions returns one page of the caller's records, newest first,
// and how many records the caller has in total.
func (mdb *MongodbRepo) ListSuggestions(ctx context.Context, userID string, skip, limit int) ([]*SuggestionRecord, int64, error) {
	col, err := mdb.GetCollection(ctx, SuggestionDbName, SuggestionColName)
	if err != nil {
		return nil, 0, fmt.Errorf("error getting collection: %w", err)
	}

	filter := bson.M{"user_id": userID}
	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting suggestion records: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("error finding suggestion records: %w", err)
	}
	defer cursor.Close(ctx)

	records := []*SuggestionRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, 0, fmt.Errorf("error decoding suggestion records: %w", err)
	}
	return records, total, nil
}

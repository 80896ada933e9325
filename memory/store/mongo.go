package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	cfgpkg "github.com/sweetpotato0/deepresearch/config"
	errorspkg "github.com/sweetpotato0/deepresearch/errors"
	"github.com/sweetpotato0/deepresearch/research"
)

// MongoStore persists research contexts in MongoDB.
type MongoStore struct {
	client     *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
}

// MongoConfig holds MongoDB connection configuration.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// DefaultMongoConfig returns default MongoDB configuration.
func DefaultMongoConfig() *MongoConfig {
	return &MongoConfig{
		URI:        "mongodb://localhost:27017",
		Database:   "deepresearch",
		Collection: "contexts",
	}
}

// mongoContext is the internal document representation.
type mongoContext struct {
	ID        string                   `bson:"_id"`
	Query     string                   `bson:"query"`
	Context   research.ResearchContext `bson:"context"`
	CreatedAt time.Time                `bson:"created_at"`
	UpdatedAt time.Time                `bson:"updated_at"`
}

// NewMongoStore creates a MongoDB-backed context store.
func NewMongoStore(config *MongoConfig) (*MongoStore, error) {
	if config == nil {
		config = DefaultMongoConfig()
	}
	if err := cfgpkg.ValidateMongoDBConfig(config.URI, config.Database, config.Collection); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(config.Database)
	store := &MongoStore{
		client:     client,
		db:         db,
		collection: db.Collection(config.Collection),
	}

	if err := store.createIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return store, nil
}

// createIndexes supports the latest-by-query lookup.
func (s *MongoStore) createIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "query", Value: 1}, {Key: "updated_at", Value: -1}},
	}
	_, err := s.collection.Indexes().CreateOne(ctx, indexModel)
	return err
}

// Save stores a new context and returns its id.
func (s *MongoStore) Save(ctx context.Context, rc *research.ResearchContext) (string, error) {
	if rc == nil {
		return "", fmt.Errorf("context cannot be nil: %w", errorspkg.ErrInvalidInput)
	}

	id := newContextID()
	now := time.Now().UTC()
	if rc.CreatedAt.IsZero() {
		rc.CreatedAt = now
	}
	rc.UpdatedAt = now

	doc := mongoContext{
		ID:        id,
		Query:     rc.Query,
		Context:   *rc,
		CreatedAt: rc.CreatedAt,
		UpdatedAt: rc.UpdatedAt,
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to store context in MongoDB: %w", err)
	}
	return id, nil
}

// Get retrieves a context by id.
func (s *MongoStore) Get(ctx context.Context, id string) (*research.ResearchContext, error) {
	var doc mongoContext
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("context %s: %w", id, errorspkg.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get context: %w", err)
	}
	return &doc.Context, nil
}

// FindLatestByQuery returns the most recently updated context for the query,
// or nil when none matches.
func (s *MongoStore) FindLatestByQuery(ctx context.Context, query string) (*research.ResearchContext, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})

	var doc mongoContext
	err := s.collection.FindOne(ctx, bson.M{"query": query}, opts).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find context: %w", err)
	}
	return &doc.Context, nil
}

// Update replaces the context stored under id. Returns false when the id is
// unknown.
func (s *MongoStore) Update(ctx context.Context, id string, rc *research.ResearchContext) (bool, error) {
	if rc == nil {
		return false, fmt.Errorf("context cannot be nil: %w", errorspkg.ErrInvalidInput)
	}

	if rc.CreatedAt.IsZero() {
		if existing, err := s.Get(ctx, id); err == nil {
			rc.CreatedAt = existing.CreatedAt
		}
	}
	rc.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"query":      rc.Query,
		"context":    *rc,
		"updated_at": rc.UpdatedAt,
	}}

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return false, fmt.Errorf("failed to update context in MongoDB: %w", err)
	}
	return result.MatchedCount > 0, nil
}

// Close closes the MongoDB connection.
func (s *MongoStore) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.client.Disconnect(ctx)
}

// Ping checks if the MongoDB connection is alive.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

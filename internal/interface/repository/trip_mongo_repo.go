package repository

import (
	"context"
	"errors"
	"fmt"

	"trip-planner-service/internal/domain/entity"
	"trip-planner-service/internal/domain/normalize"
	"trip-planner-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTripRepository stores one shared trip document per path, keyed by _id
type MongoTripRepository struct {
	collection *mongo.Collection
}

// NewMongoTripRepository creates a new trip repository on the given collection
func NewMongoTripRepository(db *mongo.Database, collection string) repository.TripRepository {
	return &MongoTripRepository{
		collection: db.Collection(collection),
	}
}

// Read returns the document at path as relaxed extended JSON
func (r *MongoTripRepository) Read(ctx context.Context, path string) ([]byte, error) {
	var doc bson.M
	err := r.collection.FindOne(ctx, bson.M{"_id": path}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read trip %s: %w", path, err)
	}
	return documentJSON(doc)
}

// ReadMeta fetches only the meta block of the document at path
func (r *MongoTripRepository) ReadMeta(ctx context.Context, path string) (entity.RemoteMeta, error) {
	opts := options.FindOne().SetProjection(bson.M{
		"meta.updatedAt": 1,
		"meta.updatedBy": 1,
	})

	var doc bson.M
	err := r.collection.FindOne(ctx, bson.M{"_id": path}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entity.RemoteMeta{}, repository.ErrNotFound
		}
		return entity.RemoteMeta{}, fmt.Errorf("failed to read trip meta %s: %w", path, err)
	}

	data, err := documentJSON(doc)
	if err != nil {
		return entity.RemoteMeta{}, err
	}
	v, err := normalize.Decode(data)
	if err != nil {
		return entity.RemoteMeta{}, nil
	}
	return normalize.RemoteMeta(v), nil
}

// Write replaces the document at path, creating it when absent
func (r *MongoTripRepository) Write(ctx context.Context, path string, data []byte) error {
	var doc bson.M
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return fmt.Errorf("failed to encode trip %s: %w", path, err)
	}
	doc["_id"] = path

	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": path}, doc, opts); err != nil {
		return fmt.Errorf("failed to write trip %s: %w", path, err)
	}
	return nil
}

func documentJSON(doc bson.M) ([]byte, error) {
	delete(doc, "_id")
	data, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to decode trip document: %w", err)
	}
	return data, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cbernatz/Etsywp/internal/infrastructure/repository/entity"
	"github.com/cbernatz/Etsywp/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoObjectStore implements ObjectStore on a MongoDB collection.
type MongoObjectStore struct {
	collection *mongo.Collection
}

// NewMongoObjectStore creates a MongoDB-backed object store.
func NewMongoObjectStore(db *mongo.Database) ports.ObjectStore {
	return &MongoObjectStore{
		collection: db.Collection("content_objects"),
	}
}

func (s *MongoObjectStore) Insert(ctx context.Context, obj *ports.Object) (string, error) {
	doc := entity.ContentObjectDocFromPort(obj)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	doc.UpdatedAt = time.Now()
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}

	_, err := s.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to insert object: %w", err)
	}

	obj.ID = doc.ID.Hex()
	obj.CreatedAt = doc.CreatedAt
	return obj.ID, nil
}

func (s *MongoObjectStore) Update(ctx context.Context, obj *ports.Object) error {
	objID, err := primitive.ObjectIDFromHex(obj.ID)
	if err != nil {
		return fmt.Errorf("invalid object ID: %w", err)
	}

	update := bson.M{"$set": bson.M{
		"title":     obj.Title,
		"content":   obj.Content,
		"status":    obj.Status,
		"fields":    obj.Fields,
		"updatedAt": time.Now(),
	}}

	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return fmt.Errorf("failed to update object: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("object not found: %s", obj.ID)
	}
	return nil
}

func (s *MongoObjectStore) FindOne(ctx context.Context, q ports.Query) (*ports.Object, error) {
	var doc entity.ContentObjectDoc

	err := s.collection.FindOne(ctx, buildFilter(q), options.FindOne().SetSort(buildSort(q))).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find object: %w", err)
	}
	return doc.ToPort(), nil
}

func (s *MongoObjectStore) Find(ctx context.Context, q ports.Query) ([]*ports.Object, error) {
	opts := options.Find().SetSort(buildSort(q))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	if q.Offset > 0 {
		opts.SetSkip(int64(q.Offset))
	}

	cursor, err := s.collection.Find(ctx, buildFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query objects: %w", err)
	}
	defer cursor.Close(ctx)

	var objects []*ports.Object
	for cursor.Next(ctx) {
		var doc entity.ContentObjectDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode object: %w", err)
		}
		objects = append(objects, doc.ToPort())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return objects, nil
}

func (s *MongoObjectStore) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid object ID: %w", err)
	}
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": objID}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *MongoObjectStore) DeleteByType(ctx context.Context, objType string) (int64, error) {
	res, err := s.collection.DeleteMany(ctx, bson.M{"type": objType})
	if err != nil {
		return 0, fmt.Errorf("failed to delete objects of type %s: %w", objType, err)
	}
	return res.DeletedCount, nil
}

func buildFilter(q ports.Query) bson.M {
	filter := bson.M{"type": q.Type}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if q.Field != "" {
		filter["fields."+q.Field] = q.Value
	}
	if q.MinField != "" {
		filter["fields."+q.MinField] = bson.M{"$gt": q.Min}
	}
	return filter
}

// buildSort maps the query's numeric field sort onto the document,
// falling back to insertion order.
func buildSort(q ports.Query) bson.D {
	if q.SortField != "" {
		dir := 1
		if q.SortDesc {
			dir = -1
		}
		return bson.D{{Key: "fields." + q.SortField, Value: dir}, {Key: "_id", Value: 1}}
	}
	return bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}
}

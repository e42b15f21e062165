package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is the production Store implementation, backed by a MongoDB
// database. One collection per Store collection name, one document per
// id using Mongo's native "_id" field — the same keying convention the
// original Python document-store layer uses.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore connects to uri and returns a Store bound to database db.
func NewMongoStore(ctx context.Context, uri, db string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{db: client.Database(db)}, nil
}

func (s *MongoStore) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Upsert implements Store.
func (s *MongoStore) Upsert(ctx context.Context, collection, id string, doc Doc) error {
	body := copyDoc(doc)
	body["_id"] = id
	opts := options.Replace().SetUpsert(true)
	_, err := s.coll(collection).ReplaceOne(ctx, bson.M{"_id": id}, body, opts)
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context, collection, id string) (Doc, error) {
	var doc Doc
	err := s.coll(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// Find implements Store.
func (s *MongoStore) Find(ctx context.Context, collection string, filter Filter, sortBy string, desc bool, limit int) ([]Doc, error) {
	opts := options.Find()
	if sortBy != "" {
		dir := 1
		if desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: sortBy, Value: dir}})
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.coll(collection).Find(ctx, bson.M(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var out []Doc
	for cur.Next(ctx) {
		var d Doc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode %s doc: %w", collection, err)
		}
		out = append(out, d)
	}
	return out, cur.Err()
}

// Delete implements Store.
func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.coll(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

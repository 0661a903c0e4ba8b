package persistence

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCache is a Cache backed by a MongoDB collection.
type MongoCache struct {
	coll *mongo.Collection
}

var _ Cache = (*MongoCache)(nil)

// NewMongoCache creates a Mongo-backed cache.
// dbName defaults to "comgr" if empty, collName defaults to "stage_cache".
func NewMongoCache(client *mongo.Client, dbName, collName string) *MongoCache {
	if dbName == "" {
		dbName = "comgr"
	}
	if collName == "" {
		collName = "stage_cache"
	}
	return &MongoCache{
		coll: client.Database(dbName).Collection(collName),
	}
}

type mongoCacheDoc struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	CreatedAt time.Time `bson:"created_at"`
}

func (c *MongoCache) Get(ctx context.Context, key string) ([]byte, error) {
	var doc mongoCacheDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return doc.Value, nil
}

func (c *MongoCache) Put(ctx context.Context, key string, value []byte) error {
	doc := mongoCacheDoc{Key: key, Value: value, CreatedAt: time.Now().UTC()}
	_, err := c.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return err
}

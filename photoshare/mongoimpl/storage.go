package mongoimpl

import (
	"context"
	"errors"
	"fmt"
	"insta-pics/photoshare"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collName = "entries"

type entry struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type MongoStorage struct {
	entries *mongo.Collection
	client  *mongo.Client
}

func NewMongoStorage(ctx context.Context, mongoURL string, dbName string) (*MongoStorage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	return &MongoStorage{
		entries: client.Database(dbName).Collection(collName),
		client:  client,
	}, nil
}

func (m *MongoStorage) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoStorage) IsReady(ctx context.Context) bool {
	if err := m.client.Ping(ctx, nil); err != nil {
		return false
	}
	return true
}

func (m *MongoStorage) Load(ctx context.Context, key string) ([]byte, error) {
	var doc entry
	err := m.entries.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, photoshare.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %v - %w", key, err, photoshare.ErrStorage)
	}
	return []byte(doc.Value), nil
}

func (m *MongoStorage) Save(ctx context.Context, key string, value []byte) error {
	doc := entry{Key: key, Value: string(value), UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := m.entries.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
		return fmt.Errorf("replace %s: %v - %w", key, err, photoshare.ErrStorage)
	}
	return nil
}

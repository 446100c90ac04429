package databases

// go generate: mockery --name StateDatabase

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const stateName = "state"

// StateDatabase contains the methods to use with the state store. Every
// backend keeps one JSON document per key.
type StateDatabase interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
}

// stateDocument is how a key is stored in mongo
type stateDocument struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}

type mongoStateDatabase struct {
	db DatabaseHelper
}

// NewMongoStateDatabase initializes a new instance of state database with the provided db connection
func NewMongoStateDatabase(db DatabaseHelper) StateDatabase {
	return &mongoStateDatabase{
		db: db,
	}
}

func (c *mongoStateDatabase) Load(ctx context.Context, key string) ([]byte, bool, error) {
	doc := &stateDocument{}
	err := c.db.Collection(stateName).FindOne(ctx, bson.M{"_id": key}).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(doc.Value), true, nil
}

func (c *mongoStateDatabase) Save(ctx context.Context, key string, value []byte) error {
	_, err := c.db.Collection(stateName).ReplaceOne(ctx,
		bson.M{"_id": key},
		stateDocument{Key: key, Value: string(value)},
		options.Replace().SetUpsert(true),
	)
	return err
}

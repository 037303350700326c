package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/coreybb/consumo/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore keeps readings in one MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects and pings the server; an unreachable server fails here,
// at startup, rather than on the first request.
func NewMongoStore(ctx context.Context, uri string, o Options) (*MongoStore, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(o.ConnectTimeout).
		SetServerSelectionTimeout(o.ConnectTimeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, unavailable("connect", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, o.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, unavailable("ping", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(o.Database).Collection(o.Collection),
	}, nil
}

func (s *MongoStore) InsertBatch(ctx context.Context, readings []models.StoredReading) (n int, err error) {
	if len(readings) == 0 {
		return 0, nil
	}
	defer func(start time.Time) { observe(backendMongo, "insert_batch", start, err) }(time.Now())

	docs := make([]interface{}, len(readings))
	for i := range readings {
		docs[i] = readings[i]
	}

	res, err := s.collection.InsertMany(ctx, docs)
	if err != nil {
		return 0, unavailable("insert many", err)
	}
	return len(res.InsertedIDs), nil
}

func (s *MongoStore) Find(ctx context.Context, filter models.ReadingFilter, limit int) (out []models.Reading, err error) {
	defer func(start time.Time) { observe(backendMongo, "find", start, err) }(time.Now())

	query := bson.M{}
	if filter.Date != "" {
		query[models.FieldDate] = filter.Date
	}
	if filter.Device != "" {
		query[models.FieldDevice] = filter.Device
	}

	cursor, err := s.collection.Find(ctx, query, options.Find().SetLimit(int64(normalizeLimit(limit))))
	if err != nil {
		return nil, unavailable("find", err)
	}
	defer cursor.Close(ctx)

	out = []models.Reading{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			skipMalformed(ctx, backendMongo, cursor.Current.String(), err)
			continue
		}
		r, err := models.DecodeReading(doc)
		if err != nil {
			skipMalformed(ctx, backendMongo, doc, err)
			continue
		}
		out = append(out, r)
	}
	if err := cursor.Err(); err != nil {
		return nil, unavailable("iterate cursor", err)
	}
	return out, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongo: %w", err)
	}
	return nil
}

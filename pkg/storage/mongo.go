package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/orgdeps/pkg/deps"
)

const (
	DefaultMongoDatabase   = "orgdeps"
	DefaultMongoCollection = "snapshots"
)

// MongoConfig holds connection settings for [NewMongoSink].
type MongoConfig struct {
	URI        string
	Database   string // default: orgdeps
	Collection string // default: snapshots
}

// MongoSink stores snapshots as documents so crawls can be compared over
// time and served without a shared filesystem.
type MongoSink struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoSink connects to MongoDB and verifies the connection.
func NewMongoSink(ctx context.Context, cfg MongoConfig) (*MongoSink, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	db := orDefault(cfg.Database, DefaultMongoDatabase)
	coll := orDefault(cfg.Collection, DefaultMongoCollection)
	return &MongoSink{client: client, coll: client.Database(db).Collection(coll)}, nil
}

// Save inserts the snapshot.
func (s *MongoSink) Save(ctx context.Context, snap Snapshot) error {
	if _, err := s.coll.InsertOne(ctx, toDocument(snap)); err != nil {
		return fmt.Errorf("insert snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// Latest returns the newest complete snapshot of org.
func (s *MongoSink) Latest(ctx context.Context, org string) (Snapshot, error) {
	filter := bson.D{{Key: "org", Value: org}, {Key: "partial", Value: false}}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var doc snapshotDocument
	err := s.coll.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, org)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("find snapshot: %w", err)
	}
	return doc.snapshot(), nil
}

// Close disconnects from MongoDB.
func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// snapshotDocument is the stored form of a Snapshot. Entries are kept as an
// array because repository names may contain dots, which are awkward in
// MongoDB field names.
type snapshotDocument struct {
	ID        string          `bson:"_id"`
	Org       string          `bson:"org"`
	CreatedAt time.Time       `bson:"created_at"`
	Partial   bool            `bson:"partial"`
	Entries   []entryDocument `bson:"entries"`
	Stats     deps.Stats      `bson:"stats"`
}

type entryDocument struct {
	Key  string   `bson:"key"`
	Deps []string `bson:"deps"`
}

func toDocument(snap Snapshot) snapshotDocument {
	doc := snapshotDocument{
		ID:        snap.ID,
		Org:       snap.Org,
		CreatedAt: snap.CreatedAt,
		Partial:   snap.Partial,
		Entries:   make([]entryDocument, 0, len(snap.Entries)),
		Stats:     snap.Stats,
	}
	for _, k := range snap.Keys() {
		d := snap.Entries[k]
		if d == nil {
			d = []string{}
		}
		doc.Entries = append(doc.Entries, entryDocument{Key: k, Deps: d})
	}
	return doc
}

func (d snapshotDocument) snapshot() Snapshot {
	entries := make(map[string][]string, len(d.Entries))
	for _, e := range d.Entries {
		list := e.Deps
		if list == nil {
			list = []string{}
		}
		entries[e.Key] = list
	}
	return Snapshot{
		ID:        d.ID,
		Org:       d.Org,
		CreatedAt: d.CreatedAt,
		Partial:   d.Partial,
		Entries:   entries,
		Stats:     d.Stats,
	}
}

var (
	_ Sink   = (*MongoSink)(nil)
	_ Source = (*MongoSink)(nil)
)

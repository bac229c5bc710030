package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	DefaultDatabase   = "dtsfetch"
	DefaultCollection = "runs"
	connectTimeout    = 10 * time.Second
)

// MongoConfig configures a [MongoSink].
type MongoConfig struct {
	URI        string // mongodb:// connection string
	Database   string // Default: DefaultDatabase
	Collection string // Default: DefaultCollection
}

// MongoSink stores runs as documents in a MongoDB collection.
type MongoSink struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Virtual paths contain dots, which MongoDB reads as field paths, so files
// are stored as an array of path/text pairs rather than a map.
type runDocument struct {
	ID        string         `bson:"_id"`
	Source    string         `bson:"source"`
	Files     []fileDocument `bson:"files"`
	FileCount int            `bson:"file_count"`
	CreatedAt time.Time      `bson:"created_at"`
}

type fileDocument struct {
	Path string `bson:"path"`
	Text string `bson:"text"`
}

// NewMongoSink connects to MongoDB and verifies the connection.
func NewMongoSink(ctx context.Context, cfg MongoConfig) (*MongoSink, error) {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoSink{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Save upserts run keyed by its ID.
func (s *MongoSink) Save(ctx context.Context, run Run) error {
	doc := toDocument(run)
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": doc.ID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// Load returns the run with the given ID.
func (s *MongoSink) Load(ctx context.Context, id string) (*Run, error) {
	var doc runDocument
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	run := fromDocument(doc)
	return &run, nil
}

// Close disconnects the client.
func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func toDocument(run Run) runDocument {
	doc := runDocument{
		ID:        run.ID,
		Source:    run.Source,
		FileCount: len(run.Files),
		CreatedAt: run.CreatedAt,
		Files:     make([]fileDocument, 0, len(run.Files)),
	}
	for _, p := range run.Paths() {
		doc.Files = append(doc.Files, fileDocument{Path: p, Text: run.Files[p]})
	}
	return doc
}

func fromDocument(doc runDocument) Run {
	files := make(map[string]string, len(doc.Files))
	for _, f := range doc.Files {
		files[f.Path] = f.Text
	}
	return Run{ID: doc.ID, Source: doc.Source, Files: files, CreatedAt: doc.CreatedAt}
}

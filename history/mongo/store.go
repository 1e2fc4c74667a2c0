// Package mongo is a MongoDB history backend. The event id is the document
// _id, so the server's unique _id index enforces write-once records.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/history"
	"github.com/xraph/clearing/id"
)

// DefaultCollection holds history records unless WithCollection says otherwise.
const DefaultCollection = "clearing_history"

// compile-time interface check
var _ history.Store = (*Store)(nil)

// Store implements history.Store on a MongoDB collection.
type Store struct {
	client *mongo.Client
	col    *mongo.Collection
	runID  id.ID
	owned  bool
}

// Option configures a Store.
type Option func(*Store)

// WithRunID stamps every record with the run that wrote it.
func WithRunID(run id.ID) Option {
	return func(s *Store) { s.runID = run }
}

// WithCollection overrides the collection name.
func WithCollection(name string) Option {
	return func(s *Store) { s.col = s.col.Database().Collection(name) }
}

// New uses db owned by the caller; Close leaves the client connected.
func New(db *mongo.Database, opts ...Option) *Store {
	s := &Store{client: db.Client(), col: db.Collection(DefaultCollection)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect dials uri and uses database. Close disconnects.
func Connect(ctx context.Context, uri, database string, opts ...Option) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("history/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("history/mongo: ping: %w", err)
	}

	s := New(client.Database(database), opts...)
	s.owned = true
	return s, nil
}

// Migrate creates the secondary index on client.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "client", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("history/mongo: migration failed: %w", err)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, ev event.Event) error {
	_, err := s.col.InsertOne(ctx, toHistoryModel(ev, s.runID.String()))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: tx %d", history.ErrDuplicateEvent, ev.Tx())
	}
	if err != nil {
		return fmt.Errorf("history/mongo: record tx %d: %w", ev.Tx(), err)
	}
	return nil
}

func (s *Store) Lookup(ctx context.Context, tx uint32) (event.Event, bool, error) {
	var m historyModel
	err := s.col.FindOne(ctx, bson.D{{Key: "_id", Value: int64(tx)}}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("history/mongo: lookup tx %d: %w", tx, err)
	}

	ev, err := fromHistoryModel(&m)
	if err != nil {
		return nil, false, err
	}
	return ev, true, nil
}

func (s *Store) Len(ctx context.Context) (int, error) {
	n, err := s.col.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Ping checks server connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects if the store dialed the connection itself.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

// Drop removes the collection. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.col.Drop(ctx)
}

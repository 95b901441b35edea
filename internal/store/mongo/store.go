// Package mongo implements store.Store on MongoDB.
//
// Every collection uses string _id values (UUIDs) so record IDs look the
// same whichever backend stored them. Decimals are stored as Decimal128.
package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/milavdabgar/gpp-ingest/internal/store"
)

// Collection names.
const (
	colDepartments = "departments"
	colUsers       = "users"
	colStudents    = "students"
	colResults     = "exam_results"
	colCounters    = "enrollment_counters"
)

// Store is a store.Store backed by one MongoDB database.
type Store struct {
	client *mongo.Client

	departments *mongo.Collection
	users       *mongo.Collection
	students    *mongo.Collection
	results     *mongo.Collection
	counters    *mongo.Collection

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open connects to uri and verifies the connection with a ping.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, store.Unavailable(err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, store.Unavailable(err)
	}
	return New(client, database), nil
}

// New uses an already connected client.
func New(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:      client,
		departments: db.Collection(colDepartments),
		users:       db.Collection(colUsers),
		students:    db.Collection(colStudents),
		results:     db.Collection(colResults),
		counters:    db.Collection(colCounters),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates the unique indexes the store relies on.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := []struct {
		col    *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.departments, []mongo.IndexModel{
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{s.students, []mongo.IndexModel{
			{Keys: bson.D{{Key: "enrollmentNo", Value: 1}}, Options: options.Index().SetUnique(true)},
			{
				Keys: bson.D{{Key: "userId", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"userId": bson.M{"$type": "string"}}),
			},
		}},
		{s.results, []mongo.IndexModel{
			{Keys: bson.D{{Key: "enrollmentNo", Value: 1}, {Key: "examId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "uploadBatch", Value: 1}, {Key: "uploadedAt", Value: -1}}},
		}},
		{s.users, []mongo.IndexModel{
			{Keys: bson.D{{Key: "roles", Value: 1}}},
		}},
	}
	for _, ix := range indexes {
		if _, err := ix.col.Indexes().CreateMany(ctx, ix.models); err != nil {
			return classify(err)
		}
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func newID() string {
	return uuid.NewString()
}

// classify maps driver errors onto the store sentinels.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.Duplicate(err)
	case mongo.IsNetworkError(err), errors.Is(err, mongo.ErrClientDisconnected),
		isServerSelection(err):
		return store.Unavailable(err)
	}
	return err
}

func isServerSelection(err error) bool {
	return strings.Contains(err.Error(), "server selection error")
}

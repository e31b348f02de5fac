package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	collDocuments        = "documents"
	collComments         = "comments"
	collMentions         = "mentions"
	collDailyAggregates  = "daily_aggregates"
	collOrgDaily         = "org_daily_aggregates"
	collWeeklyAggregates = "weekly_aggregates"
	collOrgWeekly        = "org_weekly_aggregates"
	collCrawlRuns        = "crawl_runs"
	collAggregationLogs  = "aggregation_logs"
)

// Mongo is the MongoDB-backed implementation of every store interface.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

var (
	_ DocumentStore = (*Mongo)(nil)
	_ RunStore      = (*Mongo)(nil)
	_ DailyStore    = (*Mongo)(nil)
	_ WeeklyStore   = (*Mongo)(nil)
)

// Connect opens a MongoDB connection, pings it and ensures the indexes that
// back the natural keys.
func Connect(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m := &Mongo{
		client: client,
		db:     client.Database(database),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	logrus.Infof("Connected to MongoDB database %s", database)
	return m, nil
}

// Close disconnects the underlying client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Database exposes the underlying database for read-only collaborators.
func (m *Mongo) Database() *mongo.Database {
	return m.db
}

// ensureIndexes creates the unique indexes enforcing every natural key, plus
// the query indexes the aggregators lean on. The mention dedup
// check-then-insert stays race-free only because of the unique index here.
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	unique := options.Index().SetUnique(true)

	indexes := map[string][]mongo.IndexModel{
		collDocuments: {
			{Keys: bson.D{{Key: "source_id", Value: 1}, {Key: "external_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "posted_at", Value: 1}}},
		},
		collComments: {
			{Keys: bson.D{{Key: "document_id", Value: 1}, {Key: "external_id", Value: 1}}, Options: unique},
		},
		collMentions: {
			{Keys: bson.D{
				{Key: "entity_id", Value: 1},
				{Key: "document_id", Value: 1},
				{Key: "comment_id", Value: 1},
				{Key: "mention_type", Value: 1},
			}, Options: unique},
			{Keys: bson.D{{Key: "entity_id", Value: 1}, {Key: "document_posted_at", Value: 1}}},
		},
		collDailyAggregates: {
			{Keys: bson.D{{Key: "entity_id", Value: 1}, {Key: "date", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "org_id", Value: 1}, {Key: "date", Value: 1}}},
		},
		collOrgDaily: {
			{Keys: bson.D{{Key: "org_id", Value: 1}, {Key: "date", Value: 1}}, Options: unique},
		},
		collWeeklyAggregates: {
			{Keys: bson.D{{Key: "entity_id", Value: 1}, {Key: "year", Value: 1}, {Key: "week", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "year", Value: 1}, {Key: "week", Value: 1}, {Key: "mention_count", Value: -1}}},
		},
		collOrgWeekly: {
			{Keys: bson.D{{Key: "org_id", Value: 1}, {Key: "year", Value: 1}, {Key: "week", Value: 1}}, Options: unique},
		},
		collCrawlRuns: {
			{Keys: bson.D{{Key: "source_id", Value: 1}, {Key: "started_at", Value: -1}}},
		},
		collAggregationLogs: {
			{Keys: bson.D{{Key: "year", Value: 1}, {Key: "week", Value: 1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := m.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("collection %s: %w", coll, err)
		}
	}

	return nil
}

// InTransaction runs fn inside a MongoDB session transaction. Requires a
// replica set deployment; the callers treat a commit failure as a failed
// batch, never a partial one.
func (m *Mongo) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

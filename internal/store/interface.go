package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/teacherhub/reputation-bot/internal/models"
)

// DocumentStore is the persistence surface the mention pipeline works
// against. Find methods return (nil, nil) when no row matches.
type DocumentStore interface {
	FindDocument(ctx context.Context, sourceID int64, externalID string) (*models.Document, error)
	InsertDocument(ctx context.Context, doc *models.Document) error
	UpdateDocumentCounters(ctx context.Context, id primitive.ObjectID, views, likes, comments int) error

	FindComment(ctx context.Context, documentID primitive.ObjectID, externalID string) (*models.CommentRecord, error)
	InsertComment(ctx context.Context, comment *models.CommentRecord) error

	MentionExists(ctx context.Context, entityID int64, documentID primitive.ObjectID, commentID *primitive.ObjectID, mentionType string) (bool, error)
	// InsertMention writes m unless its natural key already exists. The
	// second return is false for a duplicate, which is not an error.
	InsertMention(ctx context.Context, m *models.Mention) (bool, error)

	// InTransaction runs fn as one unit of work; fn's writes are either all
	// committed or all rolled back.
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// RunStore records crawl run outcomes.
type RunStore interface {
	StartCrawlRun(ctx context.Context, sourceID int64) (primitive.ObjectID, error)
	FinishCrawlRun(ctx context.Context, run *models.CrawlRun) error
}

// DailyStore is the persistence surface for daily aggregation.
type DailyStore interface {
	MentionsByEntityBetween(ctx context.Context, entityID int64, from, to time.Time) ([]models.Mention, error)
	DailyAggregate(ctx context.Context, entityID int64, date time.Time) (*models.DailyAggregate, error)
	UpsertDailyAggregate(ctx context.Context, agg *models.DailyAggregate) error
	DailyAggregatesByOrgOnDate(ctx context.Context, orgID int64, date time.Time) ([]models.DailyAggregate, error)
	DailyAggregatesOnDate(ctx context.Context, date time.Time) ([]models.DailyAggregate, error)
	OrgDailyAggregatesOnDate(ctx context.Context, date time.Time) ([]models.OrgDailyAggregate, error)
	UpsertOrgDailyAggregate(ctx context.Context, agg *models.OrgDailyAggregate) error
}

// WeeklyStore is the persistence surface for weekly aggregation and its read
// queries.
type WeeklyStore interface {
	DailyAggregatesBetween(ctx context.Context, entityID int64, from, to time.Time) ([]models.DailyAggregate, error)
	WeeklyAggregate(ctx context.Context, entityID int64, year, week int) (*models.WeeklyAggregate, error)
	UpsertWeeklyAggregate(ctx context.Context, agg *models.WeeklyAggregate) error
	WeeklyAggregatesForWeek(ctx context.Context, year, week int) ([]models.WeeklyAggregate, error)
	MarkWeekComplete(ctx context.Context, year, week int) error
	UpsertOrgWeeklyAggregate(ctx context.Context, agg *models.OrgWeeklyAggregate) error
	RecentWeeklyAggregates(ctx context.Context, entityID int64, limit int) ([]models.WeeklyAggregate, error)

	StartAggregationLog(ctx context.Context, log *models.AggregationLog) (primitive.ObjectID, error)
	FinishAggregationLog(ctx context.Context, log *models.AggregationLog) error
}

package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/teacherhub/reputation-bot/internal/models"
)

// FindDocument returns the document with the given natural key, or nil.
func (m *Mongo) FindDocument(ctx context.Context, sourceID int64, externalID string) (*models.Document, error) {
	var doc models.Document
	err := m.db.Collection(collDocuments).FindOne(ctx, bson.M{
		"source_id":   sourceID,
		"external_id": externalID,
	}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find document: %w", err)
	}
	return &doc, nil
}

// InsertDocument writes a new document and fills in its id.
func (m *Mongo) InsertDocument(ctx context.Context, doc *models.Document) error {
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := m.db.Collection(collDocuments).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// UpdateDocumentCounters updates only the mutable engagement counters.
func (m *Mongo) UpdateDocumentCounters(ctx context.Context, id primitive.ObjectID, views, likes, comments int) error {
	_, err := m.db.Collection(collDocuments).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"view_count":    views,
			"like_count":    likes,
			"comment_count": comments,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update document counters: %w", err)
	}
	return nil
}

// FindComment returns the comment with the given natural key, or nil.
func (m *Mongo) FindComment(ctx context.Context, documentID primitive.ObjectID, externalID string) (*models.CommentRecord, error) {
	var comment models.CommentRecord
	err := m.db.Collection(collComments).FindOne(ctx, bson.M{
		"document_id": documentID,
		"external_id": externalID,
	}).Decode(&comment)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}
	return &comment, nil
}

// InsertComment writes a new comment and fills in its id.
func (m *Mongo) InsertComment(ctx context.Context, comment *models.CommentRecord) error {
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	if _, err := m.db.Collection(collComments).InsertOne(ctx, comment); err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// MentionExists reports whether a mention with the given natural key exists.
func (m *Mongo) MentionExists(ctx context.Context, entityID int64, documentID primitive.ObjectID, commentID *primitive.ObjectID, mentionType string) (bool, error) {
	count, err := m.db.Collection(collMentions).CountDocuments(ctx, bson.M{
		"entity_id":    entityID,
		"document_id":  documentID,
		"comment_id":   commentID,
		"mention_type": mentionType,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check mention existence: %w", err)
	}
	return count > 0, nil
}

// InsertMention writes a mention; the unique index makes a concurrent
// duplicate a benign no-op rather than a corruption.
func (m *Mongo) InsertMention(ctx context.Context, mention *models.Mention) (bool, error) {
	if mention.ID.IsZero() {
		mention.ID = primitive.NewObjectID()
	}
	_, err := m.db.Collection(collMentions).InsertOne(ctx, mention)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert mention: %w", err)
	}
	return true, nil
}

// StartCrawlRun opens a running crawl run row for a source.
func (m *Mongo) StartCrawlRun(ctx context.Context, sourceID int64) (primitive.ObjectID, error) {
	run := models.CrawlRun{
		ID:        primitive.NewObjectID(),
		SourceID:  sourceID,
		Status:    models.StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if _, err := m.db.Collection(collCrawlRuns).InsertOne(ctx, run); err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to start crawl run: %w", err)
	}
	return run.ID, nil
}

// FinishCrawlRun closes a crawl run with its terminal status and counts.
func (m *Mongo) FinishCrawlRun(ctx context.Context, run *models.CrawlRun) error {
	_, err := m.db.Collection(collCrawlRuns).UpdateOne(ctx,
		bson.M{"_id": run.ID},
		bson.M{"$set": bson.M{
			"status":             run.Status,
			"finished_at":        run.FinishedAt,
			"posts_collected":    run.PostsCollected,
			"comments_collected": run.CommentsCollected,
			"mentions_found":     run.MentionsFound,
			"error_message":      run.ErrorMessage,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to finish crawl run: %w", err)
	}
	return nil
}

// MentionsByEntityBetween returns an entity's mentions whose parent document
// was posted in [from, to).
func (m *Mongo) MentionsByEntityBetween(ctx context.Context, entityID int64, from, to time.Time) ([]models.Mention, error) {
	cursor, err := m.db.Collection(collMentions).Find(ctx, bson.M{
		"entity_id":          entityID,
		"document_posted_at": bson.M{"$gte": from, "$lt": to},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query mentions: %w", err)
	}

	var mentions []models.Mention
	if err := cursor.All(ctx, &mentions); err != nil {
		return nil, fmt.Errorf("failed to decode mentions: %w", err)
	}
	return mentions, nil
}

// DailyAggregate returns the aggregate for (entity, date), or nil.
func (m *Mongo) DailyAggregate(ctx context.Context, entityID int64, date time.Time) (*models.DailyAggregate, error) {
	var agg models.DailyAggregate
	err := m.db.Collection(collDailyAggregates).FindOne(ctx, bson.M{
		"entity_id": entityID,
		"date":      date,
	}).Decode(&agg)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find daily aggregate: %w", err)
	}
	return &agg, nil
}

// UpsertDailyAggregate replaces the aggregate for its (entity, date) key.
func (m *Mongo) UpsertDailyAggregate(ctx context.Context, agg *models.DailyAggregate) error {
	filter := bson.M{"entity_id": agg.EntityID, "date": agg.Date}
	return m.replaceOne(ctx, collDailyAggregates, filter, agg, &agg.ID)
}

// DailyAggregatesByOrgOnDate returns a day's aggregates for an org's members.
func (m *Mongo) DailyAggregatesByOrgOnDate(ctx context.Context, orgID int64, date time.Time) ([]models.DailyAggregate, error) {
	return m.findDailyAggregates(ctx, bson.M{"org_id": orgID, "date": date})
}

// DailyAggregatesOnDate returns every entity aggregate for a day.
func (m *Mongo) DailyAggregatesOnDate(ctx context.Context, date time.Time) ([]models.DailyAggregate, error) {
	return m.findDailyAggregates(ctx, bson.M{"date": date})
}

func (m *Mongo) findDailyAggregates(ctx context.Context, filter bson.M) ([]models.DailyAggregate, error) {
	cursor, err := m.db.Collection(collDailyAggregates).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily aggregates: %w", err)
	}

	var aggs []models.DailyAggregate
	if err := cursor.All(ctx, &aggs); err != nil {
		return nil, fmt.Errorf("failed to decode daily aggregates: %w", err)
	}
	return aggs, nil
}

// OrgDailyAggregatesOnDate returns every org aggregate for a day.
func (m *Mongo) OrgDailyAggregatesOnDate(ctx context.Context, date time.Time) ([]models.OrgDailyAggregate, error) {
	cursor, err := m.db.Collection(collOrgDaily).Find(ctx, bson.M{"date": date})
	if err != nil {
		return nil, fmt.Errorf("failed to query org daily aggregates: %w", err)
	}

	var aggs []models.OrgDailyAggregate
	if err := cursor.All(ctx, &aggs); err != nil {
		return nil, fmt.Errorf("failed to decode org daily aggregates: %w", err)
	}
	return aggs, nil
}

// UpsertOrgDailyAggregate replaces the org aggregate for its (org, date) key.
func (m *Mongo) UpsertOrgDailyAggregate(ctx context.Context, agg *models.OrgDailyAggregate) error {
	filter := bson.M{"org_id": agg.OrgID, "date": agg.Date}
	return m.replaceOne(ctx, collOrgDaily, filter, agg, &agg.ID)
}

// DailyAggregatesBetween returns an entity's aggregates with date in
// [from, to].
func (m *Mongo) DailyAggregatesBetween(ctx context.Context, entityID int64, from, to time.Time) ([]models.DailyAggregate, error) {
	return m.findDailyAggregates(ctx, bson.M{
		"entity_id": entityID,
		"date":      bson.M{"$gte": from, "$lte": to},
	})
}

// WeeklyAggregate returns the aggregate for (entity, year, week), or nil.
func (m *Mongo) WeeklyAggregate(ctx context.Context, entityID int64, year, week int) (*models.WeeklyAggregate, error) {
	var agg models.WeeklyAggregate
	err := m.db.Collection(collWeeklyAggregates).FindOne(ctx, bson.M{
		"entity_id": entityID,
		"year":      year,
		"week":      week,
	}).Decode(&agg)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find weekly aggregate: %w", err)
	}
	return &agg, nil
}

// UpsertWeeklyAggregate replaces the aggregate for its (entity, year, week)
// key.
func (m *Mongo) UpsertWeeklyAggregate(ctx context.Context, agg *models.WeeklyAggregate) error {
	filter := bson.M{"entity_id": agg.EntityID, "year": agg.Year, "week": agg.Week}
	return m.replaceOne(ctx, collWeeklyAggregates, filter, agg, &agg.ID)
}

// WeeklyAggregatesForWeek returns every entity aggregate for a week, ordered
// by mention count descending with entity id ascending as the tie-break.
func (m *Mongo) WeeklyAggregatesForWeek(ctx context.Context, year, week int) ([]models.WeeklyAggregate, error) {
	cursor, err := m.db.Collection(collWeeklyAggregates).Find(ctx,
		bson.M{"year": year, "week": week},
		options.Find().SetSort(bson.D{{Key: "mention_count", Value: -1}, {Key: "entity_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly aggregates: %w", err)
	}

	var aggs []models.WeeklyAggregate
	if err := cursor.All(ctx, &aggs); err != nil {
		return nil, fmt.Errorf("failed to decode weekly aggregates: %w", err)
	}
	return aggs, nil
}

// MarkWeekComplete flags every weekly aggregate of (year, week) as the
// product of a finished batch pass.
func (m *Mongo) MarkWeekComplete(ctx context.Context, year, week int) error {
	_, err := m.db.Collection(collWeeklyAggregates).UpdateMany(ctx,
		bson.M{"year": year, "week": week},
		bson.M{"$set": bson.M{"complete": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark week complete: %w", err)
	}
	return nil
}

// UpsertOrgWeeklyAggregate replaces the org aggregate for its
// (org, year, week) key.
func (m *Mongo) UpsertOrgWeeklyAggregate(ctx context.Context, agg *models.OrgWeeklyAggregate) error {
	filter := bson.M{"org_id": agg.OrgID, "year": agg.Year, "week": agg.Week}
	return m.replaceOne(ctx, collOrgWeekly, filter, agg, &agg.ID)
}

// RecentWeeklyAggregates returns the entity's most recent aggregates, newest
// first.
func (m *Mongo) RecentWeeklyAggregates(ctx context.Context, entityID int64, limit int) ([]models.WeeklyAggregate, error) {
	cursor, err := m.db.Collection(collWeeklyAggregates).Find(ctx,
		bson.M{"entity_id": entityID},
		options.Find().
			SetSort(bson.D{{Key: "year", Value: -1}, {Key: "week", Value: -1}}).
			SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly aggregates: %w", err)
	}

	var aggs []models.WeeklyAggregate
	if err := cursor.All(ctx, &aggs); err != nil {
		return nil, fmt.Errorf("failed to decode weekly aggregates: %w", err)
	}
	return aggs, nil
}

// StartAggregationLog opens a running aggregation log row.
func (m *Mongo) StartAggregationLog(ctx context.Context, log *models.AggregationLog) (primitive.ObjectID, error) {
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	if _, err := m.db.Collection(collAggregationLogs).InsertOne(ctx, log); err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to start aggregation log: %w", err)
	}
	return log.ID, nil
}

// FinishAggregationLog closes an aggregation log with its terminal status.
func (m *Mongo) FinishAggregationLog(ctx context.Context, log *models.AggregationLog) error {
	_, err := m.db.Collection(collAggregationLogs).UpdateOne(ctx,
		bson.M{"_id": log.ID},
		bson.M{"$set": bson.M{
			"status":            log.Status,
			"finished_at":       log.FinishedAt,
			"records_processed": log.RecordsProcessed,
			"error_message":     log.ErrorMessage,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to finish aggregation log: %w", err)
	}
	return nil
}

// replaceOne upserts doc by filter. The caller leaves the doc's id zero so
// the replacement never tries to alter an existing row's _id; id is
// backfilled from the upserted key when a new row was created.
func (m *Mongo) replaceOne(ctx context.Context, coll string, filter bson.M, doc interface{}, id *primitive.ObjectID) error {
	res, err := m.db.Collection(coll).ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", coll, err)
	}
	if id != nil && id.IsZero() {
		if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
			*id = oid
		}
	}
	return nil
}

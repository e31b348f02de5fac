// Package pipeline turns raw fetched documents into persisted, deduplicated,
// signal-scored mention records.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/teacherhub/reputation-bot/internal/matching"
	"github.com/teacherhub/reputation-bot/internal/models"
	"github.com/teacherhub/reputation-bot/internal/scoring"
	"github.com/teacherhub/reputation-bot/internal/store"
)

// Pipeline ingests raw documents from one source: it upserts documents and
// comments by their natural keys, finds entity mentions in every text unit
// and inserts each new mention with the signal scores it got at first sight.
// Mentions are never updated afterwards, so re-ingesting a document under a
// changed lexicon leaves existing rows untouched.
type Pipeline struct {
	store   store.DocumentStore
	matcher *matching.Matcher
	scorer  *scoring.Scorer
}

// New creates a pipeline over the given store, matcher and scorer.
func New(st store.DocumentStore, matcher *matching.Matcher, scorer *scoring.Scorer) *Pipeline {
	return &Pipeline{
		store:   st,
		matcher: matcher,
		scorer:  scorer,
	}
}

// Ingest processes one batch of raw documents for a source as a single unit
// of work. A failure on one document is logged and the batch continues; a
// commit failure rolls the whole batch back and is returned as a pipeline
// failure.
func (p *Pipeline) Ingest(ctx context.Context, source models.Source, rawDocs []models.RawDocument) (models.IngestStats, error) {
	var stats models.IngestStats

	err := p.store.InTransaction(ctx, func(ctx context.Context) error {
		for _, raw := range rawDocs {
			if err := p.processDocument(ctx, source, raw, &stats); err != nil {
				logrus.Errorf("Error processing document %s from %s: %v", raw.ExternalID, source.Code, err)
			}
		}
		return nil
	})
	if err != nil {
		return models.IngestStats{}, fmt.Errorf("failed to commit ingest batch for %s: %w", source.Code, err)
	}

	logrus.Infof("Ingested batch from %s: %d new documents, %d updated, %d comments, %d mentions",
		source.Code, stats.DocumentsCreated, stats.DocumentsUpdated, stats.CommentsCreated, stats.MentionsFound)

	return stats, nil
}

func (p *Pipeline) processDocument(ctx context.Context, source models.Source, raw models.RawDocument, stats *models.IngestStats) error {
	doc, created, err := p.upsertDocument(ctx, source, raw)
	if err != nil {
		return err
	}
	if created {
		stats.DocumentsCreated++
	} else {
		stats.DocumentsUpdated++
	}

	comments := make([]models.CommentRecord, 0, len(raw.Comments))
	for _, rawComment := range raw.Comments {
		comment, created, err := p.upsertComment(ctx, doc.ID, rawComment)
		if err != nil {
			return err
		}
		if created {
			stats.CommentsCreated++
		}
		comments = append(comments, *comment)
	}

	found, err := p.extractMentions(ctx, doc, comments)
	if err != nil {
		return err
	}
	stats.MentionsFound += found

	return nil
}

// upsertDocument inserts a new document or, on a natural-key conflict,
// updates only the engagement counters of the existing row.
func (p *Pipeline) upsertDocument(ctx context.Context, source models.Source, raw models.RawDocument) (*models.Document, bool, error) {
	existing, err := p.store.FindDocument(ctx, source.ID, raw.ExternalID)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		if err := p.store.UpdateDocumentCounters(ctx, existing.ID, raw.ViewCount, raw.LikeCount, raw.CommentCount); err != nil {
			return nil, false, err
		}
		existing.ViewCount = raw.ViewCount
		existing.LikeCount = raw.LikeCount
		existing.CommentCount = raw.CommentCount
		return existing, false, nil
	}

	doc := &models.Document{
		SourceID:     source.ID,
		ExternalID:   raw.ExternalID,
		Title:        raw.Title,
		Content:      raw.Content,
		URL:          raw.URL,
		Author:       raw.Author,
		PostedAt:     raw.PostDate,
		ViewCount:    raw.ViewCount,
		LikeCount:    raw.LikeCount,
		CommentCount: raw.CommentCount,
		CollectedAt:  time.Now().UTC(),
	}
	if err := p.store.InsertDocument(ctx, doc); err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// upsertComment inserts a new comment; an existing natural key is a no-op.
func (p *Pipeline) upsertComment(ctx context.Context, documentID primitive.ObjectID, raw models.RawComment) (*models.CommentRecord, bool, error) {
	existing, err := p.store.FindComment(ctx, documentID, raw.ExternalID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	comment := &models.CommentRecord{
		DocumentID:  documentID,
		ExternalID:  raw.ExternalID,
		Content:     raw.Content,
		Author:      raw.Author,
		CommentedAt: raw.CommentDate,
		CollectedAt: time.Now().UTC(),
	}
	if err := p.store.InsertComment(ctx, comment); err != nil {
		return nil, false, err
	}
	return comment, true, nil
}

// extractMentions scans the document title, body and each comment body
// independently, scoring and inserting mentions whose natural key is new.
func (p *Pipeline) extractMentions(ctx context.Context, doc *models.Document, comments []models.CommentRecord) (int, error) {
	found := 0

	n, err := p.insertMatches(ctx, doc, nil, models.MentionTypeTitle, doc.Title)
	if err != nil {
		return found, err
	}
	found += n

	n, err = p.insertMatches(ctx, doc, nil, models.MentionTypeContent, doc.Content)
	if err != nil {
		return found, err
	}
	found += n

	for i := range comments {
		n, err = p.insertMatches(ctx, doc, &comments[i], models.MentionTypeComment, comments[i].Content)
		if err != nil {
			return found, err
		}
		found += n
	}

	return found, nil
}

func (p *Pipeline) insertMatches(ctx context.Context, doc *models.Document, comment *models.CommentRecord, mentionType, text string) (int, error) {
	matches := p.matcher.FindMentions(text, matching.DefaultContextWindow)
	if len(matches) == 0 {
		return 0, nil
	}

	var commentID *primitive.ObjectID
	if comment != nil {
		commentID = &comment.ID
	}

	inserted := 0
	for _, match := range matches {
		exists, err := p.store.MentionExists(ctx, match.EntityID, doc.ID, commentID, mentionType)
		if err != nil {
			return inserted, err
		}
		if exists {
			continue
		}

		result := p.scorer.Score(text)
		score := result.SentimentScore

		mention := &models.Mention{
			EntityID:         match.EntityID,
			DocumentID:       doc.ID,
			CommentID:        commentID,
			MentionType:      mentionType,
			MatchedText:      match.MatchedText,
			Context:          match.Context,
			Sentiment:        result.Sentiment,
			SentimentScore:   &score,
			Difficulty:       result.Difficulty,
			Recommended:      result.Recommended,
			DocumentPostedAt: doc.PostedAt,
			AnalyzedAt:       time.Now().UTC(),
		}

		ok, err := p.store.InsertMention(ctx, mention)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}

	return inserted, nil
}

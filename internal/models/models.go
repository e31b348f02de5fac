package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sentiment labels assigned by the scorer.
const (
	SentimentPositive = "POSITIVE"
	SentimentNegative = "NEGATIVE"
	SentimentNeutral  = "NEUTRAL"
)

// Difficulty labels assigned by the scorer. An empty string means the text
// carried no difficulty signal at all.
const (
	DifficultyEasy   = "EASY"
	DifficultyMedium = "MEDIUM"
	DifficultyHard   = "HARD"
)

// Mention types, keyed by which text unit of a document the match came from.
const (
	MentionTypeTitle   = "title"
	MentionTypeContent = "content"
	MentionTypeComment = "comment"
)

// Run statuses shared by CrawlRun and AggregationLog.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Entity is a tracked individual (an instructor). Owned by the external
// catalog; read-only from this service's perspective.
type Entity struct {
	ID      int64    `bson:"_id" json:"id"`
	Name    string   `bson:"name" json:"name"`
	Aliases []string `bson:"aliases,omitempty" json:"aliases,omitempty"`
	OrgID   int64    `bson:"org_id" json:"org_id"`
	Subject string   `bson:"subject,omitempty" json:"subject,omitempty"`
	Active  bool     `bson:"active" json:"active"`
}

// AllNames returns the canonical name plus every alias.
func (e Entity) AllNames() []string {
	names := make([]string, 0, len(e.Aliases)+1)
	names = append(names, e.Name)
	names = append(names, e.Aliases...)
	return names
}

// Org groups entities (an academy).
type Org struct {
	ID     int64  `bson:"_id" json:"id"`
	Name   string `bson:"name" json:"name"`
	Code   string `bson:"code" json:"code"`
	Active bool   `bson:"active" json:"active"`
}

// Source is one logical origin feed of documents (one forum/board).
type Source struct {
	ID     int64        `bson:"_id" json:"id"`
	Name   string       `bson:"name" json:"name"`
	Code   string       `bson:"code" json:"code"`
	Active bool         `bson:"active" json:"active"`
	Config SourceConfig `bson:"config,omitempty" json:"config,omitempty"`
}

// SourceConfig carries the fetch settings a collaborator needs.
type SourceConfig struct {
	BaseURL   string `bson:"base_url,omitempty" json:"base_url,omitempty"`
	BoardID   string `bson:"board_id,omitempty" json:"board_id,omitempty"`
	PageSize  int    `bson:"page_size,omitempty" json:"page_size,omitempty"`
	UserAgent string `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
}

// AnalysisKeyword is one weighted lexicon entry from the external catalog.
type AnalysisKeyword struct {
	Category string  `bson:"category" json:"category"`
	Keyword  string  `bson:"keyword" json:"keyword"`
	Weight   float64 `bson:"weight" json:"weight"`
	Active   bool    `bson:"active" json:"active"`
}

// RawComment is a comment as returned by a fetch collaborator.
type RawComment struct {
	ExternalID  string    `json:"external_id"`
	Content     string    `json:"content"`
	Author      string    `json:"author"`
	CommentDate time.Time `json:"comment_date"`
}

// RawDocument is a document as returned by a fetch collaborator, before any
// persistence or analysis.
type RawDocument struct {
	ExternalID   string       `json:"external_id"`
	Title        string       `json:"title"`
	Content      string       `json:"content"`
	URL          string       `json:"url"`
	Author       string       `json:"author"`
	PostDate     time.Time    `json:"post_date"`
	ViewCount    int          `json:"view_count"`
	LikeCount    int          `json:"like_count"`
	CommentCount int          `json:"comment_count"`
	Comments     []RawComment `json:"comments,omitempty"`
}

// Document is a persisted forum post. Natural key (source_id, external_id);
// engagement counters are the only mutable fields after creation.
type Document struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SourceID     int64              `bson:"source_id" json:"source_id"`
	ExternalID   string             `bson:"external_id" json:"external_id"`
	Title        string             `bson:"title" json:"title"`
	Content      string             `bson:"content" json:"content"`
	URL          string             `bson:"url,omitempty" json:"url,omitempty"`
	Author       string             `bson:"author,omitempty" json:"author,omitempty"`
	PostedAt     time.Time          `bson:"posted_at" json:"posted_at"`
	ViewCount    int                `bson:"view_count" json:"view_count"`
	LikeCount    int                `bson:"like_count" json:"like_count"`
	CommentCount int                `bson:"comment_count" json:"comment_count"`
	CollectedAt  time.Time          `bson:"collected_at" json:"collected_at"`
}

// CommentRecord is a persisted comment. Natural key (document_id, external_id).
type CommentRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DocumentID  primitive.ObjectID `bson:"document_id" json:"document_id"`
	ExternalID  string             `bson:"external_id" json:"external_id"`
	Content     string             `bson:"content" json:"content"`
	Author      string             `bson:"author,omitempty" json:"author,omitempty"`
	CommentedAt time.Time          `bson:"commented_at" json:"commented_at"`
	CollectedAt time.Time          `bson:"collected_at" json:"collected_at"`
}

// Mention is one detected occurrence of an entity name inside a text unit.
// Natural key (entity_id, document_id, comment_id, mention_type); rows are
// insert-only and never re-scored, so each mention keeps the analysis it got
// the first time it was seen.
type Mention struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	EntityID       int64               `bson:"entity_id" json:"entity_id"`
	DocumentID     primitive.ObjectID  `bson:"document_id" json:"document_id"`
	CommentID      *primitive.ObjectID `bson:"comment_id,omitempty" json:"comment_id,omitempty"`
	MentionType    string              `bson:"mention_type" json:"mention_type"`
	MatchedText    string              `bson:"matched_text" json:"matched_text"`
	Context        string              `bson:"context" json:"context"`
	Sentiment      string              `bson:"sentiment" json:"sentiment"`
	SentimentScore *float64            `bson:"sentiment_score,omitempty" json:"sentiment_score,omitempty"`
	Difficulty     string              `bson:"difficulty,omitempty" json:"difficulty,omitempty"`
	Recommended    bool                `bson:"recommended" json:"recommended"`
	// Denormalized from the parent document so daily rollups can filter by
	// posting day without a join.
	DocumentPostedAt time.Time `bson:"document_posted_at" json:"document_posted_at"`
	AnalyzedAt       time.Time `bson:"analyzed_at" json:"analyzed_at"`
}

// DailyAggregate is the per-entity daily rollup. Key (entity_id, date); a pure
// function of that day's mentions, safe to recompute.
type DailyAggregate struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EntityID int64              `bson:"entity_id" json:"entity_id"`
	OrgID    int64              `bson:"org_id" json:"org_id"`
	Date     time.Time          `bson:"date" json:"date"`

	MentionCount        int `bson:"mention_count" json:"mention_count"`
	TitleMentionCount   int `bson:"title_mention_count" json:"title_mention_count"`
	ContentMentionCount int `bson:"content_mention_count" json:"content_mention_count"`
	CommentMentionCount int `bson:"comment_mention_count" json:"comment_mention_count"`

	PositiveCount int      `bson:"positive_count" json:"positive_count"`
	NegativeCount int      `bson:"negative_count" json:"negative_count"`
	NeutralCount  int      `bson:"neutral_count" json:"neutral_count"`
	AvgSentiment  *float64 `bson:"avg_sentiment,omitempty" json:"avg_sentiment,omitempty"`

	DifficultyEasyCount   int `bson:"difficulty_easy_count" json:"difficulty_easy_count"`
	DifficultyMediumCount int `bson:"difficulty_medium_count" json:"difficulty_medium_count"`
	DifficultyHardCount   int `bson:"difficulty_hard_count" json:"difficulty_hard_count"`

	RecommendationCount int `bson:"recommendation_count" json:"recommendation_count"`

	MentionChange   int      `bson:"mention_change" json:"mention_change"`
	SentimentChange *float64 `bson:"sentiment_change,omitempty" json:"sentiment_change,omitempty"`

	Summary     string    `bson:"summary" json:"summary"`
	TopKeywords []string  `bson:"top_keywords,omitempty" json:"top_keywords,omitempty"`
	GeneratedAt time.Time `bson:"generated_at" json:"generated_at"`
}

// OrgDailyAggregate is the per-org daily rollup. Key (org_id, date).
type OrgDailyAggregate struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrgID int64              `bson:"org_id" json:"org_id"`
	Date  time.Time          `bson:"date" json:"date"`

	TotalMentions     int      `bson:"total_mentions" json:"total_mentions"`
	EntitiesMentioned int      `bson:"entities_mentioned" json:"entities_mentioned"`
	AvgSentiment      *float64 `bson:"avg_sentiment,omitempty" json:"avg_sentiment,omitempty"`
	TopEntityID       *int64   `bson:"top_entity_id,omitempty" json:"top_entity_id,omitempty"`
	GeneratedAt       time.Time `bson:"generated_at" json:"generated_at"`
}

// WeeklyAggregate is the per-entity weekly rollup. Key (entity_id, year, week)
// with year/week per ISO-8601 calendar weeks (Monday start).
type WeeklyAggregate struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EntityID  int64              `bson:"entity_id" json:"entity_id"`
	OrgID     int64              `bson:"org_id" json:"org_id"`
	Year      int                `bson:"year" json:"year"`
	Week      int                `bson:"week" json:"week"`
	WeekStart time.Time          `bson:"week_start" json:"week_start"`
	WeekEnd   time.Time          `bson:"week_end" json:"week_end"`

	MentionCount        int `bson:"mention_count" json:"mention_count"`
	TitleMentionCount   int `bson:"title_mention_count" json:"title_mention_count"`
	ContentMentionCount int `bson:"content_mention_count" json:"content_mention_count"`
	CommentMentionCount int `bson:"comment_mention_count" json:"comment_mention_count"`

	PositiveCount int      `bson:"positive_count" json:"positive_count"`
	NegativeCount int      `bson:"negative_count" json:"negative_count"`
	NeutralCount  int      `bson:"neutral_count" json:"neutral_count"`
	AvgSentiment  *float64 `bson:"avg_sentiment,omitempty" json:"avg_sentiment,omitempty"`

	DifficultyEasyCount   int `bson:"difficulty_easy_count" json:"difficulty_easy_count"`
	DifficultyMediumCount int `bson:"difficulty_medium_count" json:"difficulty_medium_count"`
	DifficultyHardCount   int `bson:"difficulty_hard_count" json:"difficulty_hard_count"`

	RecommendationCount int `bson:"recommendation_count" json:"recommendation_count"`

	MentionChangeRate *float64 `bson:"mention_change_rate,omitempty" json:"mention_change_rate,omitempty"`
	SentimentTrend    *float64 `bson:"sentiment_trend,omitempty" json:"sentiment_trend,omitempty"`

	GlobalRank int `bson:"global_rank,omitempty" json:"global_rank,omitempty"`
	OrgRank    int `bson:"org_rank,omitempty" json:"org_rank,omitempty"`

	TopKeywords       []string       `bson:"top_keywords,omitempty" json:"top_keywords,omitempty"`
	DailyDistribution map[string]int `bson:"daily_distribution,omitempty" json:"daily_distribution,omitempty"`

	Complete     bool      `bson:"complete" json:"complete"`
	AggregatedAt time.Time `bson:"aggregated_at" json:"aggregated_at"`

	// Live marks a non-persisted projection computed from the current week's
	// daily aggregates. Never stored.
	Live bool `bson:"-" json:"live"`
}

// OrgWeeklyAggregate is the per-org weekly rollup. Key (org_id, year, week).
type OrgWeeklyAggregate struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrgID     int64              `bson:"org_id" json:"org_id"`
	Year      int                `bson:"year" json:"year"`
	Week      int                `bson:"week" json:"week"`
	WeekStart time.Time          `bson:"week_start" json:"week_start"`
	WeekEnd   time.Time          `bson:"week_end" json:"week_end"`

	TotalMentions        int      `bson:"total_mentions" json:"total_mentions"`
	EntitiesMentioned    int      `bson:"entities_mentioned" json:"entities_mentioned"`
	TotalPositive        int      `bson:"total_positive" json:"total_positive"`
	TotalNegative        int      `bson:"total_negative" json:"total_negative"`
	TotalRecommendations int      `bson:"total_recommendations" json:"total_recommendations"`
	AvgSentiment         *float64 `bson:"avg_sentiment,omitempty" json:"avg_sentiment,omitempty"`

	TopEntityID       *int64   `bson:"top_entity_id,omitempty" json:"top_entity_id,omitempty"`
	TopEntityMentions int      `bson:"top_entity_mentions,omitempty" json:"top_entity_mentions,omitempty"`
	TopKeywords       []string `bson:"top_keywords,omitempty" json:"top_keywords,omitempty"`

	AggregatedAt time.Time `bson:"aggregated_at" json:"aggregated_at"`
}

// CrawlRun records one coordinator invocation against one source.
// State machine: running -> completed | failed; both terminal.
type CrawlRun struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SourceID          int64              `bson:"source_id" json:"source_id"`
	Status            string             `bson:"status" json:"status"`
	StartedAt         time.Time          `bson:"started_at" json:"started_at"`
	FinishedAt        *time.Time         `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
	PostsCollected    int                `bson:"posts_collected" json:"posts_collected"`
	CommentsCollected int                `bson:"comments_collected" json:"comments_collected"`
	MentionsFound     int                `bson:"mentions_found" json:"mentions_found"`
	ErrorMessage      string             `bson:"error_message,omitempty" json:"error_message,omitempty"`
}

// AggregationLog records one weekly-aggregation invocation. Same status
// machine as CrawlRun.
type AggregationLog struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type             string             `bson:"type" json:"type"`
	TargetDate       time.Time          `bson:"target_date" json:"target_date"`
	Year             int                `bson:"year" json:"year"`
	Week             int                `bson:"week" json:"week"`
	Status           string             `bson:"status" json:"status"`
	StartedAt        time.Time          `bson:"started_at" json:"started_at"`
	FinishedAt       *time.Time         `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
	RecordsProcessed int                `bson:"records_processed" json:"records_processed"`
	ErrorMessage     string             `bson:"error_message,omitempty" json:"error_message,omitempty"`
}

// IngestStats summarizes one pipeline batch.
type IngestStats struct {
	DocumentsCreated int `json:"documents_created"`
	DocumentsUpdated int `json:"documents_updated"`
	CommentsCreated  int `json:"comments_created"`
	MentionsFound    int `json:"mentions_found"`
}

// SourceResult is the per-source outcome of a coordinator run.
type SourceResult struct {
	SourceCode        string `json:"source_code"`
	Success           bool   `json:"success"`
	PostsCollected    int    `json:"posts_collected"`
	CommentsCollected int    `json:"comments_collected"`
	MentionsFound     int    `json:"mentions_found"`
	Error             string `json:"error,omitempty"`
}

// ReportStats summarizes one daily report batch.
type ReportStats struct {
	EntityReportsCreated int `json:"entity_reports_created"`
	OrgStatsCreated      int `json:"org_stats_created"`
}

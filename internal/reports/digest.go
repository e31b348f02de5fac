package reports

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/teacherhub/reputation-bot/internal/models"
)

// digestEntryLimit caps how many entities a digest lists.
const digestEntryLimit = 5

// DigestEntry is one entity's line in the daily digest.
type DigestEntry struct {
	EntityID     int64    `json:"entity_id"`
	EntityName   string   `json:"entity_name"`
	MentionCount int      `json:"mention_count"`
	AvgSentiment *float64 `json:"avg_sentiment,omitempty"`
	Summary      string   `json:"summary"`
}

// Digest is the cross-entity summary of one day, built for notification
// delivery after the daily aggregation run.
type Digest struct {
	Date                 time.Time     `json:"date"`
	EntitiesReported     int           `json:"entities_reported"`
	TotalMentions        int           `json:"total_mentions"`
	TotalPositive        int           `json:"total_positive"`
	TotalNegative        int           `json:"total_negative"`
	TotalRecommendations int           `json:"total_recommendations"`
	TopEntities          []DigestEntry `json:"top_entities"`
	GeneratedAt          time.Time     `json:"generated_at"`
}

// BuildDigest summarizes the day's aggregates across all entities. Returns
// (nil, nil) when no entity produced an aggregate that day, so callers can
// skip delivery.
func (a *DailyAggregator) BuildDigest(ctx context.Context, date time.Time) (*Digest, error) {
	day := DayStart(date)

	dailies, err := a.store.DailyAggregatesOnDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily aggregates for digest: %w", err)
	}
	if len(dailies) == 0 {
		return nil, nil
	}

	entities, err := a.catalog.ActiveEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active entities: %w", err)
	}
	names := make(map[int64]string, len(entities))
	for _, e := range entities {
		names[e.ID] = e.Name
	}

	digest := &Digest{
		Date:             day,
		EntitiesReported: len(dailies),
		GeneratedAt:      time.Now().UTC(),
	}

	sort.SliceStable(dailies, func(i, j int) bool {
		if dailies[i].MentionCount != dailies[j].MentionCount {
			return dailies[i].MentionCount > dailies[j].MentionCount
		}
		return dailies[i].EntityID < dailies[j].EntityID
	})

	for _, d := range dailies {
		digest.TotalMentions += d.MentionCount
		digest.TotalPositive += d.PositiveCount
		digest.TotalNegative += d.NegativeCount
		digest.TotalRecommendations += d.RecommendationCount

		if len(digest.TopEntities) < digestEntryLimit {
			digest.TopEntities = append(digest.TopEntities, DigestEntry{
				EntityID:     d.EntityID,
				EntityName:   names[d.EntityID],
				MentionCount: d.MentionCount,
				AvgSentiment: d.AvgSentiment,
				Summary:      d.Summary,
			})
		}
	}

	return digest, nil
}

// summaryMentionedLimit and summaryChangeLimit cap the DaySummary lists.
const (
	summaryMentionedLimit = 10
	summaryChangeLimit    = 5
)

// MentionedEntity is one row of DaySummary's most-mentioned list.
type MentionedEntity struct {
	EntityID       int64    `json:"entity_id"`
	MentionCount   int      `json:"mention_count"`
	SentimentScore *float64 `json:"sentiment_score,omitempty"`
}

// SentimentSwing is one row of DaySummary's biggest-change list.
type SentimentSwing struct {
	EntityID        int64    `json:"entity_id"`
	SentimentChange float64  `json:"sentiment_change"`
	CurrentScore    *float64 `json:"current_score,omitempty"`
}

// DaySummary is the full cross-entity view of one reporting day.
type DaySummary struct {
	Date                 time.Time         `json:"date"`
	EntitiesReported     int               `json:"entities_reported"`
	OrgsReported         int               `json:"orgs_reported"`
	TotalMentions        int               `json:"total_mentions"`
	TotalPositive        int               `json:"total_positive"`
	TotalNegative        int               `json:"total_negative"`
	TotalRecommendations int               `json:"total_recommendations"`
	PositiveRatio        float64           `json:"positive_ratio"`
	TopMentioned         []MentionedEntity `json:"top_mentioned"`
	BiggestSwings        []SentimentSwing  `json:"biggest_swings"`
}

// GetDaySummary reports the day's totals, the most-mentioned entities and the
// entities whose sentiment moved the most versus the prior day. A zero date
// means today. Days with no aggregates return an empty summary, not an error.
func (a *DailyAggregator) GetDaySummary(ctx context.Context, date time.Time) (*DaySummary, error) {
	if date.IsZero() {
		date = time.Now().UTC()
	}
	day := DayStart(date)

	dailies, err := a.store.DailyAggregatesOnDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily aggregates for summary: %w", err)
	}
	orgDailies, err := a.store.OrgDailyAggregatesOnDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load org daily aggregates for summary: %w", err)
	}

	summary := &DaySummary{
		Date:             day,
		EntitiesReported: len(dailies),
		OrgsReported:     len(orgDailies),
	}

	for _, d := range dailies {
		summary.TotalMentions += d.MentionCount
		summary.TotalPositive += d.PositiveCount
		summary.TotalNegative += d.NegativeCount
		summary.TotalRecommendations += d.RecommendationCount
	}
	if summary.TotalMentions > 0 {
		summary.PositiveRatio = round3(float64(summary.TotalPositive) / float64(summary.TotalMentions) * 100)
	}

	mentioned := make([]models.DailyAggregate, 0, len(dailies))
	for _, d := range dailies {
		if d.MentionCount > 0 {
			mentioned = append(mentioned, d)
		}
	}
	sort.SliceStable(mentioned, func(i, j int) bool {
		if mentioned[i].MentionCount != mentioned[j].MentionCount {
			return mentioned[i].MentionCount > mentioned[j].MentionCount
		}
		return mentioned[i].EntityID < mentioned[j].EntityID
	})
	for i, d := range mentioned {
		if i == summaryMentionedLimit {
			break
		}
		summary.TopMentioned = append(summary.TopMentioned, MentionedEntity{
			EntityID:       d.EntityID,
			MentionCount:   d.MentionCount,
			SentimentScore: d.AvgSentiment,
		})
	}

	swings := make([]models.DailyAggregate, 0, len(dailies))
	for _, d := range dailies {
		if d.SentimentChange != nil {
			swings = append(swings, d)
		}
	}
	sort.SliceStable(swings, func(i, j int) bool {
		di, dj := math.Abs(*swings[i].SentimentChange), math.Abs(*swings[j].SentimentChange)
		if di != dj {
			return di > dj
		}
		return swings[i].EntityID < swings[j].EntityID
	})
	for i, d := range swings {
		if i == summaryChangeLimit {
			break
		}
		summary.BiggestSwings = append(summary.BiggestSwings, SentimentSwing{
			EntityID:        d.EntityID,
			SentimentChange: *d.SentimentChange,
			CurrentScore:    d.AvgSentiment,
		})
	}

	return summary, nil
}

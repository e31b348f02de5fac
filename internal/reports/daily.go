// Package reports rolls persisted mentions up into daily and weekly
// reputation aggregates.
package reports

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/teacherhub/reputation-bot/internal/catalog"
	"github.com/teacherhub/reputation-bot/internal/models"
	"github.com/teacherhub/reputation-bot/internal/store"
)

// topKeywordCount is how many context keywords a daily aggregate keeps.
const topKeywordCount = 5

// Dominance thresholds for the summary phrase: positive share of classified
// (non-neutral) mentions above 60% reads positive-dominant, negative share
// above 40% reads negative-dominant.
const (
	positiveDominanceThreshold = 60.0
	negativeDominanceThreshold = 40.0
)

// contextVocabulary is the fixed candidate list scanned against mention
// contexts for daily top keywords. Deliberately separate from the scorer's
// weighted lexicon.
var contextVocabulary = []string{
	"추천", "강추", "비추", "합격", "불합격",
	"기초", "심화", "개념", "문풀", "기출",
	"쉬움", "어려움", "명강의", "꿀강", "노잼",
	"인강", "현강", "독학", "학원", "교재",
	"국어", "영어", "한국사", "행정법", "행정학",
}

// DailyAggregator computes per-entity and per-org daily statistics from
// persisted mentions. Aggregates are pure functions of their day's mentions
// and safe to recompute any number of times.
type DailyAggregator struct {
	store   store.DailyStore
	catalog catalog.Catalog
}

// NewDailyAggregator creates a daily aggregator.
func NewDailyAggregator(st store.DailyStore, cat catalog.Catalog) *DailyAggregator {
	return &DailyAggregator{store: st, catalog: cat}
}

// GenerateEntityDaily rolls one entity's mentions for one calendar day into
// a DailyAggregate and upserts it. Returns (nil, nil) when the entity has no
// mentions whose parent document was posted that day.
func (a *DailyAggregator) GenerateEntityDaily(ctx context.Context, entity models.Entity, date time.Time) (*models.DailyAggregate, error) {
	day := DayStart(date)

	mentions, err := a.store.MentionsByEntityBetween(ctx, entity.ID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to load mentions for entity %d: %w", entity.ID, err)
	}
	if len(mentions) == 0 {
		return nil, nil
	}

	agg := &models.DailyAggregate{
		EntityID:    entity.ID,
		OrgID:       entity.OrgID,
		Date:        day,
		GeneratedAt: time.Now().UTC(),
	}
	countMentions(mentions, agg)

	prev, err := a.store.DailyAggregate(ctx, entity.ID, day.AddDate(0, 0, -1))
	if err != nil {
		return nil, fmt.Errorf("failed to load prior daily aggregate: %w", err)
	}
	if prev != nil {
		agg.MentionChange = agg.MentionCount - prev.MentionCount
		if prev.AvgSentiment != nil && agg.AvgSentiment != nil {
			change := round3(*agg.AvgSentiment - *prev.AvgSentiment)
			agg.SentimentChange = &change
		}
	}

	agg.TopKeywords = topContextKeywords(mentions, topKeywordCount)
	agg.Summary = buildSummary(entity.Name, agg)

	if err := a.store.UpsertDailyAggregate(ctx, agg); err != nil {
		return nil, fmt.Errorf("failed to upsert daily aggregate: %w", err)
	}

	return agg, nil
}

// GenerateOrgDaily rolls the day's entity aggregates of one org into an
// OrgDailyAggregate. Returns (nil, nil) when no member entity produced a
// daily aggregate for that date.
func (a *DailyAggregator) GenerateOrgDaily(ctx context.Context, org models.Org, date time.Time) (*models.OrgDailyAggregate, error) {
	day := DayStart(date)

	dailies, err := a.store.DailyAggregatesByOrgOnDate(ctx, org.ID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily aggregates for org %d: %w", org.ID, err)
	}
	if len(dailies) == 0 {
		return nil, nil
	}

	agg := &models.OrgDailyAggregate{
		OrgID:       org.ID,
		Date:        day,
		GeneratedAt: time.Now().UTC(),
	}

	var scores []float64
	var top *models.DailyAggregate

	for i := range dailies {
		d := &dailies[i]
		agg.TotalMentions += d.MentionCount
		if d.MentionCount > 0 {
			agg.EntitiesMentioned++
		}
		if d.AvgSentiment != nil {
			scores = append(scores, *d.AvgSentiment)
		}
		// Tie-break on lower entity id to keep the pick deterministic.
		if top == nil || d.MentionCount > top.MentionCount ||
			(d.MentionCount == top.MentionCount && d.EntityID < top.EntityID) {
			top = d
		}
	}

	if avg, ok := mean(scores); ok {
		agg.AvgSentiment = &avg
	}
	if top != nil && top.MentionCount > 0 {
		id := top.EntityID
		agg.TopEntityID = &id
	}

	if err := a.store.UpsertOrgDailyAggregate(ctx, agg); err != nil {
		return nil, fmt.Errorf("failed to upsert org daily aggregate: %w", err)
	}

	return agg, nil
}

// GenerateAll produces daily aggregates for every active entity and org. A
// failure on one entity or org is logged and the batch continues.
func (a *DailyAggregator) GenerateAll(ctx context.Context, date time.Time) (models.ReportStats, error) {
	var stats models.ReportStats
	day := DayStart(date)

	entities, err := a.catalog.ActiveEntities(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list active entities: %w", err)
	}

	logrus.Infof("Generating daily aggregates for %s: %d entities", day.Format("2006-01-02"), len(entities))

	for _, entity := range entities {
		agg, err := a.GenerateEntityDaily(ctx, entity, day)
		if err != nil {
			logrus.Errorf("Daily aggregate failed for entity %d (%s): %v", entity.ID, entity.Name, err)
			continue
		}
		if agg != nil {
			stats.EntityReportsCreated++
		}
	}

	orgs, err := a.catalog.ActiveOrgs(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list active orgs: %w", err)
	}

	for _, org := range orgs {
		agg, err := a.GenerateOrgDaily(ctx, org, day)
		if err != nil {
			logrus.Errorf("Daily aggregate failed for org %d (%s): %v", org.ID, org.Name, err)
			continue
		}
		if agg != nil {
			stats.OrgStatsCreated++
		}
	}

	logrus.Infof("Daily aggregation for %s complete: %d entity reports, %d org stats",
		day.Format("2006-01-02"), stats.EntityReportsCreated, stats.OrgStatsCreated)

	return stats, nil
}

func countMentions(mentions []models.Mention, agg *models.DailyAggregate) {
	var scores []float64

	for _, m := range mentions {
		agg.MentionCount++

		switch m.MentionType {
		case models.MentionTypeTitle:
			agg.TitleMentionCount++
		case models.MentionTypeContent:
			agg.ContentMentionCount++
		case models.MentionTypeComment:
			agg.CommentMentionCount++
		}

		switch m.Sentiment {
		case models.SentimentPositive:
			agg.PositiveCount++
		case models.SentimentNegative:
			agg.NegativeCount++
		default:
			agg.NeutralCount++
		}

		switch m.Difficulty {
		case models.DifficultyEasy:
			agg.DifficultyEasyCount++
		case models.DifficultyMedium:
			agg.DifficultyMediumCount++
		case models.DifficultyHard:
			agg.DifficultyHardCount++
		}

		if m.Recommended {
			agg.RecommendationCount++
		}
		if m.SentimentScore != nil {
			scores = append(scores, *m.SentimentScore)
		}
	}

	if avg, ok := mean(scores); ok {
		agg.AvgSentiment = &avg
	}
}

// buildSummary renders the fixed daily summary template: mention total, a
// sentiment-dominance phrase, a difficulty phrase when any difficulty signal
// exists, and a recommendation clause when nonzero.
func buildSummary(entityName string, agg *models.DailyAggregate) string {
	parts := []string{fmt.Sprintf("%d mentions", agg.MentionCount)}

	classified := agg.PositiveCount + agg.NegativeCount
	positiveRatio := 0.0
	negativeRatio := 0.0
	if classified > 0 {
		positiveRatio = float64(agg.PositiveCount) / float64(classified) * 100
		negativeRatio = float64(agg.NegativeCount) / float64(classified) * 100
	}

	switch {
	case classified > 0 && positiveRatio > positiveDominanceThreshold:
		parts = append(parts, fmt.Sprintf("positive reactions dominant (%.0f%%)", positiveRatio))
	case classified > 0 && negativeRatio > negativeDominanceThreshold:
		parts = append(parts, fmt.Sprintf("negative reactions prominent (%.0f%%)", negativeRatio))
	default:
		parts = append(parts, "mostly neutral reactions")
	}

	difficultyTotal := agg.DifficultyEasyCount + agg.DifficultyMediumCount + agg.DifficultyHardCount
	if difficultyTotal > 0 {
		switch {
		case agg.DifficultyEasyCount > agg.DifficultyHardCount:
			parts = append(parts, "lecture difficulty: easy")
		case agg.DifficultyHardCount > agg.DifficultyEasyCount:
			parts = append(parts, "lecture difficulty: hard")
		default:
			parts = append(parts, "lecture difficulty: medium")
		}
	}

	if agg.RecommendationCount > 0 {
		parts = append(parts, fmt.Sprintf("%d recommendation mentions", agg.RecommendationCount))
	}

	return entityName + ": " + strings.Join(parts, ", ")
}

// topContextKeywords counts which candidate vocabulary words appear in each
// mention's context and keeps the most frequent ones. Ties resolve in
// vocabulary order.
func topContextKeywords(mentions []models.Mention, limit int) []string {
	counts := make(map[string]int)
	for _, m := range mentions {
		context := strings.ToLower(m.Context)
		for _, keyword := range contextVocabulary {
			if strings.Contains(context, keyword) {
				counts[keyword]++
			}
		}
	}

	var found []string
	for _, keyword := range contextVocabulary {
		if counts[keyword] > 0 {
			found = append(found, keyword)
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return counts[found[i]] > counts[found[j]]
	})

	if len(found) > limit {
		found = found[:limit]
	}
	return found
}

// DayStart truncates a time to the start of its UTC calendar day.
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return round3(sum / float64(len(values))), true
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

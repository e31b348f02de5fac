package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/teacherhub/reputation-bot/internal/catalog"
	"github.com/teacherhub/reputation-bot/internal/models"
	"github.com/teacherhub/reputation-bot/internal/store"
)

// weeklyKeywordCount is how many merged keywords a weekly aggregate keeps.
const weeklyKeywordCount = 10

// defaultTrendWeeks is how far back GetTrend looks when no window is given.
const defaultTrendWeeks = 8

// WeeklyAggregator rolls daily aggregates up into ISO-week statistics,
// assigns ranks, and serves weekly report reads. Completed weeks are always
// recomputed from their dailies, so re-running a week repairs it rather than
// skipping it.
type WeeklyAggregator struct {
	store   store.WeeklyStore
	catalog catalog.Catalog
	clock   clockwork.Clock
}

// NewWeeklyAggregator creates a weekly aggregator using the wall clock.
func NewWeeklyAggregator(st store.WeeklyStore, cat catalog.Catalog) *WeeklyAggregator {
	return &WeeklyAggregator{store: st, catalog: cat, clock: clockwork.NewRealClock()}
}

// NewWeeklyAggregatorWithClock creates a weekly aggregator with an injected
// clock, used by tests to pin the current week.
func NewWeeklyAggregatorWithClock(st store.WeeklyStore, cat catalog.Catalog, clock clockwork.Clock) *WeeklyAggregator {
	return &WeeklyAggregator{store: st, catalog: cat, clock: clock}
}

// WeekRange returns the Monday start and Sunday end of the ISO week containing
// date, plus its ISO year and week number.
func WeekRange(date time.Time) (start, end time.Time, year, week int) {
	day := DayStart(date)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	start = day.AddDate(0, 0, -offset)
	end = start.AddDate(0, 0, 6)
	year, week = start.ISOWeek()
	return start, end, year, week
}

// Aggregate computes weekly aggregates for the ISO week containing targetDate
// (the previous week when targetDate is zero), assigns global and org ranks,
// rolls up org weeklies, and marks the week complete. Every run is recorded in
// an aggregation log, opened before any work and closed on every exit path.
// Returns the number of entity aggregates written.
func (a *WeeklyAggregator) Aggregate(ctx context.Context, targetDate time.Time) (int, error) {
	if targetDate.IsZero() {
		targetDate = a.clock.Now().AddDate(0, 0, -7)
	}
	weekStart, weekEnd, year, week := WeekRange(targetDate)

	log := &models.AggregationLog{
		Type:       "weekly",
		TargetDate: DayStart(targetDate),
		Year:       year,
		Week:       week,
		Status:     models.StatusRunning,
		StartedAt:  a.clock.Now().UTC(),
	}
	logID, err := a.store.StartAggregationLog(ctx, log)
	if err != nil {
		return 0, fmt.Errorf("failed to open aggregation log: %w", err)
	}
	log.ID = logID

	logrus.Infof("Weekly aggregation starting for %d-W%02d (%s .. %s)",
		year, week, weekStart.Format("2006-01-02"), weekEnd.Format("2006-01-02"))

	processed, err := a.run(ctx, weekStart, weekEnd, year, week)

	finished := a.clock.Now().UTC()
	log.FinishedAt = &finished
	log.RecordsProcessed = processed
	if err != nil {
		log.Status = models.StatusFailed
		log.ErrorMessage = err.Error()
	} else {
		log.Status = models.StatusCompleted
	}
	if logErr := a.store.FinishAggregationLog(ctx, log); logErr != nil {
		logrus.Errorf("Failed to close aggregation log %s: %v", log.ID.Hex(), logErr)
	}

	if err != nil {
		return processed, err
	}

	logrus.Infof("Weekly aggregation for %d-W%02d complete: %d entities", year, week, processed)
	return processed, nil
}

func (a *WeeklyAggregator) run(ctx context.Context, weekStart, weekEnd time.Time, year, week int) (int, error) {
	entities, err := a.catalog.ActiveEntities(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active entities: %w", err)
	}

	processed := 0
	for _, entity := range entities {
		dailies, err := a.store.DailyAggregatesBetween(ctx, entity.ID, weekStart, weekEnd)
		if err != nil {
			return processed, fmt.Errorf("failed to load dailies for entity %d: %w", entity.ID, err)
		}
		if len(dailies) == 0 {
			continue
		}

		agg := buildWeekly(entity, dailies, weekStart, weekEnd, year, week)
		agg.AggregatedAt = a.clock.Now().UTC()

		if err := a.compareWithPriorWeek(ctx, agg, weekStart); err != nil {
			return processed, err
		}
		if err := a.store.UpsertWeeklyAggregate(ctx, agg); err != nil {
			return processed, fmt.Errorf("failed to upsert weekly aggregate for entity %d: %w", entity.ID, err)
		}
		processed++
	}

	ranked, err := a.assignRanks(ctx, year, week)
	if err != nil {
		return processed, err
	}
	if err := a.rollUpOrgs(ctx, ranked, weekStart, weekEnd, year, week); err != nil {
		return processed, err
	}
	if err := a.store.MarkWeekComplete(ctx, year, week); err != nil {
		return processed, fmt.Errorf("failed to mark week complete: %w", err)
	}

	return processed, nil
}

func buildWeekly(entity models.Entity, dailies []models.DailyAggregate, weekStart, weekEnd time.Time, year, week int) *models.WeeklyAggregate {
	agg := &models.WeeklyAggregate{
		EntityID:  entity.ID,
		OrgID:     entity.OrgID,
		Year:      year,
		Week:      week,
		WeekStart: weekStart,
		WeekEnd:   weekEnd,
	}

	var scores []float64
	distribution := make(map[string]int)

	for _, d := range dailies {
		agg.MentionCount += d.MentionCount
		agg.TitleMentionCount += d.TitleMentionCount
		agg.ContentMentionCount += d.ContentMentionCount
		agg.CommentMentionCount += d.CommentMentionCount
		agg.PositiveCount += d.PositiveCount
		agg.NegativeCount += d.NegativeCount
		agg.NeutralCount += d.NeutralCount
		agg.DifficultyEasyCount += d.DifficultyEasyCount
		agg.DifficultyMediumCount += d.DifficultyMediumCount
		agg.DifficultyHardCount += d.DifficultyHardCount
		agg.RecommendationCount += d.RecommendationCount

		if d.AvgSentiment != nil {
			scores = append(scores, *d.AvgSentiment)
		}
		if d.MentionCount > 0 {
			distribution[d.Date.Weekday().String()] += d.MentionCount
		}
	}

	if avg, ok := mean(scores); ok {
		agg.AvgSentiment = &avg
	}
	if len(distribution) > 0 {
		agg.DailyDistribution = distribution
	}
	agg.TopKeywords = mergeKeywords(dailies, weeklyKeywordCount)

	return agg
}

// compareWithPriorWeek fills the week-over-week change rate and sentiment
// trend from the previous ISO week's aggregate, when one exists.
func (a *WeeklyAggregator) compareWithPriorWeek(ctx context.Context, agg *models.WeeklyAggregate, weekStart time.Time) error {
	_, _, prevYear, prevWeek := WeekRange(weekStart.AddDate(0, 0, -7))
	prev, err := a.store.WeeklyAggregate(ctx, agg.EntityID, prevYear, prevWeek)
	if err != nil {
		return fmt.Errorf("failed to load prior weekly aggregate for entity %d: %w", agg.EntityID, err)
	}
	if prev == nil {
		return nil
	}

	if prev.MentionCount > 0 {
		rate := round3(float64(agg.MentionCount-prev.MentionCount) / float64(prev.MentionCount) * 100)
		agg.MentionChangeRate = &rate
	}
	if prev.AvgSentiment != nil && agg.AvgSentiment != nil {
		trend := round3(*agg.AvgSentiment - *prev.AvgSentiment)
		agg.SentimentTrend = &trend
	}
	return nil
}

// assignRanks orders the week's aggregates by mention count (entity id breaks
// ties) and writes global plus per-org ranks back.
func (a *WeeklyAggregator) assignRanks(ctx context.Context, year, week int) ([]models.WeeklyAggregate, error) {
	aggs, err := a.store.WeeklyAggregatesForWeek(ctx, year, week)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly aggregates for ranking: %w", err)
	}

	orgPositions := make(map[int64]int)
	for i := range aggs {
		aggs[i].GlobalRank = i + 1
		orgPositions[aggs[i].OrgID]++
		aggs[i].OrgRank = orgPositions[aggs[i].OrgID]
		if err := a.store.UpsertWeeklyAggregate(ctx, &aggs[i]); err != nil {
			return nil, fmt.Errorf("failed to write ranks for entity %d: %w", aggs[i].EntityID, err)
		}
	}
	return aggs, nil
}

// rollUpOrgs aggregates the ranked entity weeklies per org. ranked is sorted
// by mention count descending, so the first member found per org is its top
// entity.
func (a *WeeklyAggregator) rollUpOrgs(ctx context.Context, ranked []models.WeeklyAggregate, weekStart, weekEnd time.Time, year, week int) error {
	orgs, err := a.catalog.ActiveOrgs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active orgs: %w", err)
	}

	for _, org := range orgs {
		var members []models.WeeklyAggregate
		for _, agg := range ranked {
			if agg.OrgID == org.ID {
				members = append(members, agg)
			}
		}
		if len(members) == 0 {
			continue
		}

		orgAgg := &models.OrgWeeklyAggregate{
			OrgID:        org.ID,
			Year:         year,
			Week:         week,
			WeekStart:    weekStart,
			WeekEnd:      weekEnd,
			AggregatedAt: a.clock.Now().UTC(),
		}

		var scores []float64
		keywordCounts := make(map[string]int)
		var keywordOrder []string

		for _, m := range members {
			orgAgg.TotalMentions += m.MentionCount
			if m.MentionCount > 0 {
				orgAgg.EntitiesMentioned++
			}
			orgAgg.TotalPositive += m.PositiveCount
			orgAgg.TotalNegative += m.NegativeCount
			orgAgg.TotalRecommendations += m.RecommendationCount
			if m.AvgSentiment != nil {
				scores = append(scores, *m.AvgSentiment)
			}
			for _, kw := range m.TopKeywords {
				if keywordCounts[kw] == 0 {
					keywordOrder = append(keywordOrder, kw)
				}
				keywordCounts[kw]++
			}
		}

		if avg, ok := mean(scores); ok {
			orgAgg.AvgSentiment = &avg
		}
		if members[0].MentionCount > 0 {
			id := members[0].EntityID
			orgAgg.TopEntityID = &id
			orgAgg.TopEntityMentions = members[0].MentionCount
		}

		sort.SliceStable(keywordOrder, func(i, j int) bool {
			return keywordCounts[keywordOrder[i]] > keywordCounts[keywordOrder[j]]
		})
		if len(keywordOrder) > weeklyKeywordCount {
			keywordOrder = keywordOrder[:weeklyKeywordCount]
		}
		orgAgg.TopKeywords = keywordOrder

		if err := a.store.UpsertOrgWeeklyAggregate(ctx, orgAgg); err != nil {
			return fmt.Errorf("failed to upsert org weekly aggregate for org %d: %w", org.ID, err)
		}
	}
	return nil
}

// mergeKeywords merges the daily top-keyword lists by how many days each
// keyword appeared on. Ties keep first-seen order.
func mergeKeywords(dailies []models.DailyAggregate, limit int) []string {
	counts := make(map[string]int)
	var order []string
	for _, d := range dailies {
		for _, kw := range d.TopKeywords {
			if counts[kw] == 0 {
				order = append(order, kw)
			}
			counts[kw]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

// GetReport returns an entity's weekly aggregate. Zero year/week means the
// current week. A persisted complete aggregate wins; for the current week,
// when no complete aggregate exists and includeCurrentWeek is set, a live
// projection is computed from the daily aggregates gathered so far and
// returned without persisting.
func (a *WeeklyAggregator) GetReport(ctx context.Context, entityID int64, year, week int, includeCurrentWeek bool) (*models.WeeklyAggregate, error) {
	now := a.clock.Now()
	curStart, curEnd, curYear, curWeek := WeekRange(now)
	if year == 0 || week == 0 {
		year, week = curYear, curWeek
	}

	agg, err := a.store.WeeklyAggregate(ctx, entityID, year, week)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly aggregate: %w", err)
	}
	if agg != nil && agg.Complete {
		return agg, nil
	}

	if includeCurrentWeek && year == curYear && week == curWeek {
		dailies, err := a.store.DailyAggregatesBetween(ctx, entityID, curStart, DayStart(now))
		if err != nil {
			return nil, fmt.Errorf("failed to load current-week dailies: %w", err)
		}
		live := buildWeekly(models.Entity{ID: entityID}, dailies, curStart, curEnd, curYear, curWeek)
		live.Live = true
		live.AggregatedAt = now.UTC()
		if len(dailies) > 0 {
			live.OrgID = dailies[0].OrgID
		}
		return live, nil
	}

	return agg, nil
}

// GetRanking returns the week's aggregates in rank order, optionally filtered
// to one org, capped at limit when positive. Zero year/week means the current
// week.
func (a *WeeklyAggregator) GetRanking(ctx context.Context, year, week int, orgID *int64, limit int) ([]models.WeeklyAggregate, error) {
	if year == 0 || week == 0 {
		_, _, year, week = WeekRange(a.clock.Now())
	}

	aggs, err := a.store.WeeklyAggregatesForWeek(ctx, year, week)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly ranking: %w", err)
	}

	if orgID != nil {
		filtered := aggs[:0]
		for _, agg := range aggs {
			if agg.OrgID == *orgID {
				filtered = append(filtered, agg)
			}
		}
		aggs = filtered
	}
	if limit > 0 && len(aggs) > limit {
		aggs = aggs[:limit]
	}
	return aggs, nil
}

// GetTrend returns an entity's most recent weekly aggregates ordered oldest
// first, for charting. A non-positive weeks falls back to the default window.
func (a *WeeklyAggregator) GetTrend(ctx context.Context, entityID int64, weeks int) ([]models.WeeklyAggregate, error) {
	if weeks <= 0 {
		weeks = defaultTrendWeeks
	}

	aggs, err := a.store.RecentWeeklyAggregates(ctx, entityID, weeks)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly trend: %w", err)
	}
	for i, j := 0, len(aggs)-1; i < j; i, j = i+1, j-1 {
		aggs[i], aggs[j] = aggs[j], aggs[i]
	}
	return aggs, nil
}

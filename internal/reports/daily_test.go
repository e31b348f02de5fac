package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/teacherhub/reputation-bot/internal/models"
)

// MockDailyStore is a mock implementation of store.DailyStore.
type MockDailyStore struct {
	mock.Mock
}

func (m *MockDailyStore) MentionsByEntityBetween(ctx context.Context, entityID int64, from, to time.Time) ([]models.Mention, error) {
	args := m.Called(ctx, entityID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Mention), args.Error(1)
}

func (m *MockDailyStore) DailyAggregate(ctx context.Context, entityID int64, date time.Time) (*models.DailyAggregate, error) {
	args := m.Called(ctx, entityID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DailyAggregate), args.Error(1)
}

func (m *MockDailyStore) UpsertDailyAggregate(ctx context.Context, agg *models.DailyAggregate) error {
	args := m.Called(ctx, agg)
	return args.Error(0)
}

func (m *MockDailyStore) DailyAggregatesByOrgOnDate(ctx context.Context, orgID int64, date time.Time) ([]models.DailyAggregate, error) {
	args := m.Called(ctx, orgID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DailyAggregate), args.Error(1)
}

func (m *MockDailyStore) DailyAggregatesOnDate(ctx context.Context, date time.Time) ([]models.DailyAggregate, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DailyAggregate), args.Error(1)
}

func (m *MockDailyStore) OrgDailyAggregatesOnDate(ctx context.Context, date time.Time) ([]models.OrgDailyAggregate, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OrgDailyAggregate), args.Error(1)
}

func (m *MockDailyStore) UpsertOrgDailyAggregate(ctx context.Context, agg *models.OrgDailyAggregate) error {
	args := m.Called(ctx, agg)
	return args.Error(0)
}

// MockCatalog is a mock implementation of catalog.Catalog.
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) ActiveEntities(ctx context.Context) ([]models.Entity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Entity), args.Error(1)
}

func (m *MockCatalog) ActiveOrgs(ctx context.Context) ([]models.Org, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Org), args.Error(1)
}

func (m *MockCatalog) ActiveSources(ctx context.Context) ([]models.Source, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Source), args.Error(1)
}

func (m *MockCatalog) ActiveKeywords(ctx context.Context, category string) ([]models.AnalysisKeyword, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AnalysisKeyword), args.Error(1)
}

func ptr(v float64) *float64 { return &v }

func mentionWith(sentiment string, score float64, mentionType string) models.Mention {
	return models.Mention{
		ID:             primitive.NewObjectID(),
		EntityID:       1,
		MentionType:    mentionType,
		Sentiment:      sentiment,
		SentimentScore: ptr(score),
	}
}

var testEntity = models.Entity{ID: 1, Name: "김민수", OrgID: 10}
var testDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestDailyAggregator_GenerateEntityDaily_NoMentions(t *testing.T) {
	st := &MockDailyStore{}
	cat := &MockCatalog{}
	st.On("MentionsByEntityBetween", mock.Anything, int64(1), testDay, testDay.AddDate(0, 0, 1)).Return([]models.Mention{}, nil)

	agg, err := NewDailyAggregator(st, cat).GenerateEntityDaily(context.Background(), testEntity, testDay)

	assert.NoError(t, err)
	assert.Nil(t, agg)
	st.AssertNotCalled(t, "UpsertDailyAggregate", mock.Anything, mock.Anything)
}

func TestDailyAggregator_GenerateEntityDaily_CountsAndSummary(t *testing.T) {
	st := &MockDailyStore{}
	cat := &MockCatalog{}

	mentions := []models.Mention{
		mentionWith(models.SentimentPositive, 0.6, models.MentionTypeTitle),
		mentionWith(models.SentimentPositive, 0.8, models.MentionTypeContent),
		mentionWith(models.SentimentPositive, 0.4, models.MentionTypeComment),
		mentionWith(models.SentimentNegative, -0.5, models.MentionTypeComment),
		mentionWith(models.SentimentNeutral, 0, models.MentionTypeComment),
	}
	mentions[0].Difficulty = models.DifficultyEasy
	mentions[1].Difficulty = models.DifficultyEasy
	mentions[2].Difficulty = models.DifficultyHard
	mentions[0].Recommended = true
	mentions[1].Recommended = true

	prev := &models.DailyAggregate{MentionCount: 3, AvgSentiment: ptr(0.1)}

	st.On("MentionsByEntityBetween", mock.Anything, int64(1), testDay, testDay.AddDate(0, 0, 1)).Return(mentions, nil)
	st.On("DailyAggregate", mock.Anything, int64(1), testDay.AddDate(0, 0, -1)).Return(prev, nil)

	var saved *models.DailyAggregate
	st.On("UpsertDailyAggregate", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*models.DailyAggregate)
	}).Return(nil)

	agg, err := NewDailyAggregator(st, cat).GenerateEntityDaily(context.Background(), testEntity, testDay)

	assert.NoError(t, err)
	assert.Same(t, saved, agg)

	assert.Equal(t, int64(1), agg.EntityID)
	assert.Equal(t, int64(10), agg.OrgID)
	assert.Equal(t, testDay, agg.Date)

	assert.Equal(t, 5, agg.MentionCount)
	assert.Equal(t, 1, agg.TitleMentionCount)
	assert.Equal(t, 1, agg.ContentMentionCount)
	assert.Equal(t, 3, agg.CommentMentionCount)

	assert.Equal(t, 3, agg.PositiveCount)
	assert.Equal(t, 1, agg.NegativeCount)
	assert.Equal(t, 1, agg.NeutralCount)
	// (0.6 + 0.8 + 0.4 - 0.5 + 0) / 5
	assert.Equal(t, 0.26, *agg.AvgSentiment)

	assert.Equal(t, 2, agg.DifficultyEasyCount)
	assert.Equal(t, 1, agg.DifficultyHardCount)
	assert.Equal(t, 2, agg.RecommendationCount)

	assert.Equal(t, 2, agg.MentionChange)
	assert.Equal(t, 0.16, *agg.SentimentChange)

	// 3 of 4 classified mentions are positive: 75% > 60%.
	assert.Contains(t, agg.Summary, "김민수: 5 mentions")
	assert.Contains(t, agg.Summary, "positive reactions dominant (75%)")
	assert.Contains(t, agg.Summary, "lecture difficulty: easy")
	assert.Contains(t, agg.Summary, "2 recommendation mentions")
}

func TestDailyAggregator_GenerateEntityDaily_SummaryPhrases(t *testing.T) {
	tests := []struct {
		name     string
		mentions []models.Mention
		phrase   string
	}{
		{
			name: "Even split reads negative-prominent",
			mentions: []models.Mention{
				mentionWith(models.SentimentPositive, 0.6, models.MentionTypeContent),
				mentionWith(models.SentimentNegative, -0.6, models.MentionTypeContent),
			},
			phrase: "negative reactions prominent (50%)",
		},
		{
			name: "All neutral reads neutral",
			mentions: []models.Mention{
				mentionWith(models.SentimentNeutral, 0, models.MentionTypeContent),
				mentionWith(models.SentimentNeutral, 0, models.MentionTypeComment),
			},
			phrase: "mostly neutral reactions",
		},
		{
			name: "Mostly positive but below threshold reads neutral",
			mentions: []models.Mention{
				mentionWith(models.SentimentPositive, 0.6, models.MentionTypeContent),
				mentionWith(models.SentimentPositive, 0.6, models.MentionTypeContent),
				mentionWith(models.SentimentPositive, 0.6, models.MentionTypeContent),
				mentionWith(models.SentimentNegative, -0.6, models.MentionTypeContent),
				mentionWith(models.SentimentNegative, -0.6, models.MentionTypeContent),
			},
			phrase: "mostly neutral reactions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &MockDailyStore{}
			cat := &MockCatalog{}
			st.On("MentionsByEntityBetween", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(tt.mentions, nil)
			st.On("DailyAggregate", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
			st.On("UpsertDailyAggregate", mock.Anything, mock.Anything).Return(nil)

			agg, err := NewDailyAggregator(st, cat).GenerateEntityDaily(context.Background(), testEntity, testDay)

			assert.NoError(t, err)
			assert.Contains(t, agg.Summary, tt.phrase)
			assert.Equal(t, 0, agg.MentionChange)
		})
	}
}

func TestDailyAggregator_GenerateEntityDaily_TopKeywords(t *testing.T) {
	st := &MockDailyStore{}
	cat := &MockCatalog{}

	m1 := mentionWith(models.SentimentPositive, 0.6, models.MentionTypeContent)
	m1.Context = "김민수 강추 기출 문풀 좋다"
	m2 := mentionWith(models.SentimentPositive, 0.6, models.MentionTypeComment)
	m2.Context = "기출 강의 추천"

	st.On("MentionsByEntityBetween", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]models.Mention{m1, m2}, nil)
	st.On("DailyAggregate", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	st.On("UpsertDailyAggregate", mock.Anything, mock.Anything).Return(nil)

	agg, err := NewDailyAggregator(st, cat).GenerateEntityDaily(context.Background(), testEntity, testDay)

	assert.NoError(t, err)
	// 기출 appears in both contexts and sorts first.
	assert.Equal(t, "기출", agg.TopKeywords[0])
	assert.Contains(t, agg.TopKeywords, "강추")
	assert.Contains(t, agg.TopKeywords, "문풀")
	assert.Contains(t, agg.TopKeywords, "추천")
	assert.LessOrEqual(t, len(agg.TopKeywords), topKeywordCount)
}

func TestDailyAggregator_GenerateOrgDaily(t *testing.T) {
	st := &MockDailyStore{}
	cat := &MockCatalog{}
	org := models.Org{ID: 10, Name: "메가학원"}

	dailies := []models.DailyAggregate{
		{EntityID: 1, OrgID: 10, MentionCount: 7, AvgSentiment: ptr(0.4)},
		{EntityID: 2, OrgID: 10, MentionCount: 9, AvgSentiment: ptr(-0.2)},
		{EntityID: 3, OrgID: 10, MentionCount: 0},
	}

	st.On("DailyAggregatesByOrgOnDate", mock.Anything, int64(10), testDay).Return(dailies, nil)

	var saved *models.OrgDailyAggregate
	st.On("UpsertOrgDailyAggregate", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*models.OrgDailyAggregate)
	}).Return(nil)

	agg, err := NewDailyAggregator(st, cat).GenerateOrgDaily(context.Background(), org, testDay)

	assert.NoError(t, err)
	assert.Same(t, saved, agg)
	assert.Equal(t, 16, agg.TotalMentions)
	assert.Equal(t, 2, agg.EntitiesMentioned)
	assert.Equal(t, 0.1, *agg.AvgSentiment)
	assert.Equal(t, int64(2), *agg.TopEntityID)
}

func TestDailyAggregator_GenerateOrgDaily_NoAggregates(t *testing.T) {
	st := &MockDailyStore{}
	cat := &MockCatalog{}
	st.On("DailyAggregatesByOrgOnDate", mock.Anything, int64(10), testDay).Return([]models.DailyAggregate{}, nil)

	agg, err := NewDailyAggregator(st, cat).GenerateOrgDaily(context.Background(), models.Org{ID: 10}, testDay)

	assert.NoError(t, err)
	assert.Nil(t, agg)
	st.AssertNotCalled(t, "UpsertOrgDailyAggregate", mock.Anything, mock.Anything)
}

func TestDailyAggregator_GenerateAll_FailureIsolation(t *testing.T) {
	st := &MockDailyStore{}
	cat := &MockCatalog{}

	entities := []models.Entity{
		{ID: 1, Name: "김민수", OrgID: 10},
		{ID: 2, Name: "이영희", OrgID: 10},
	}
	cat.On("ActiveEntities", mock.Anything).Return(entities, nil)
	cat.On("ActiveOrgs", mock.Anything).Return([]models.Org{}, nil)

	// Entity 1 fails, entity 2 produces an aggregate.
	st.On("MentionsByEntityBetween", mock.Anything, int64(1), mock.Anything, mock.Anything).Return(nil, assert.AnError)
	st.On("MentionsByEntityBetween", mock.Anything, int64(2), mock.Anything, mock.Anything).
		Return([]models.Mention{mentionWith(models.SentimentNeutral, 0, models.MentionTypeContent)}, nil)
	st.On("DailyAggregate", mock.Anything, int64(2), mock.Anything).Return(nil, nil)
	st.On("UpsertDailyAggregate", mock.Anything, mock.Anything).Return(nil)

	stats, err := NewDailyAggregator(st, cat).GenerateAll(context.Background(), testDay)

	assert.NoError(t, err)
	assert.Equal(t, 1, stats.EntityReportsCreated)
	assert.Equal(t, 0, stats.OrgStatsCreated)
}

func TestDailyAggregator_BuildDigest(t *testing.T) {
	st := &MockDailyStore{}
	cat := &MockCatalog{}

	dailies := []models.DailyAggregate{
		{EntityID: 1, MentionCount: 3, PositiveCount: 2, RecommendationCount: 1, Summary: "a"},
		{EntityID: 2, MentionCount: 8, PositiveCount: 5, NegativeCount: 1, Summary: "b"},
	}
	st.On("DailyAggregatesOnDate", mock.Anything, testDay).Return(dailies, nil)
	cat.On("ActiveEntities", mock.Anything).Return([]models.Entity{
		{ID: 1, Name: "김민수"}, {ID: 2, Name: "이영희"},
	}, nil)

	digest, err := NewDailyAggregator(st, cat).BuildDigest(context.Background(), testDay)

	assert.NoError(t, err)
	assert.Equal(t, 2, digest.EntitiesReported)
	assert.Equal(t, 11, digest.TotalMentions)
	assert.Equal(t, 7, digest.TotalPositive)
	assert.Equal(t, 1, digest.TotalNegative)
	assert.Equal(t, 1, digest.TotalRecommendations)

	// Ordered by mention count descending.
	assert.Equal(t, "이영희", digest.TopEntities[0].EntityName)
	assert.Equal(t, "김민수", digest.TopEntities[1].EntityName)
}

func TestDailyAggregator_BuildDigest_EmptyDay(t *testing.T) {
	st := &MockDailyStore{}
	cat := &MockCatalog{}
	st.On("DailyAggregatesOnDate", mock.Anything, testDay).Return([]models.DailyAggregate{}, nil)

	digest, err := NewDailyAggregator(st, cat).BuildDigest(context.Background(), testDay)

	assert.NoError(t, err)
	assert.Nil(t, digest)
}

func TestDailyAggregator_GetDaySummary(t *testing.T) {
	st := &MockDailyStore{}
	cat := &MockCatalog{}

	dailies := []models.DailyAggregate{
		{EntityID: 1, MentionCount: 3, PositiveCount: 2, NegativeCount: 1, AvgSentiment: ptr(0.3), SentimentChange: ptr(0.1)},
		{EntityID: 2, MentionCount: 8, PositiveCount: 4, NegativeCount: 2, RecommendationCount: 2, AvgSentiment: ptr(0.1), SentimentChange: ptr(-0.4)},
		{EntityID: 3, MentionCount: 0},
	}
	orgDailies := []models.OrgDailyAggregate{{OrgID: 10, TotalMentions: 11}}
	st.On("DailyAggregatesOnDate", mock.Anything, testDay).Return(dailies, nil)
	st.On("OrgDailyAggregatesOnDate", mock.Anything, testDay).Return(orgDailies, nil)

	summary, err := NewDailyAggregator(st, cat).GetDaySummary(context.Background(), testDay)

	assert.NoError(t, err)
	assert.Equal(t, 3, summary.EntitiesReported)
	assert.Equal(t, 1, summary.OrgsReported)
	assert.Equal(t, 11, summary.TotalMentions)
	assert.Equal(t, 6, summary.TotalPositive)
	assert.Equal(t, 3, summary.TotalNegative)
	assert.Equal(t, 2, summary.TotalRecommendations)
	assert.InDelta(t, 54.545, summary.PositiveRatio, 0.001)

	// Zero-mention rows are excluded from the most-mentioned list.
	assert.Len(t, summary.TopMentioned, 2)
	assert.Equal(t, int64(2), summary.TopMentioned[0].EntityID)
	assert.Equal(t, 8, summary.TopMentioned[0].MentionCount)
	assert.Equal(t, int64(1), summary.TopMentioned[1].EntityID)

	// Swings are ordered by absolute change.
	assert.Len(t, summary.BiggestSwings, 2)
	assert.Equal(t, int64(2), summary.BiggestSwings[0].EntityID)
	assert.Equal(t, -0.4, summary.BiggestSwings[0].SentimentChange)
	assert.Equal(t, int64(1), summary.BiggestSwings[1].EntityID)
}

func TestDailyAggregator_GetDaySummary_EmptyDay(t *testing.T) {
	st := &MockDailyStore{}
	cat := &MockCatalog{}
	st.On("DailyAggregatesOnDate", mock.Anything, testDay).Return([]models.DailyAggregate{}, nil)
	st.On("OrgDailyAggregatesOnDate", mock.Anything, testDay).Return([]models.OrgDailyAggregate{}, nil)

	summary, err := NewDailyAggregator(st, cat).GetDaySummary(context.Background(), testDay)

	assert.NoError(t, err)
	assert.Equal(t, 0, summary.EntitiesReported)
	assert.Equal(t, 0.0, summary.PositiveRatio)
	assert.Empty(t, summary.TopMentioned)
	assert.Empty(t, summary.BiggestSwings)
}

package crawler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/teacherhub/reputation-bot/internal/matching"
	"github.com/teacherhub/reputation-bot/internal/models"
	"github.com/teacherhub/reputation-bot/internal/pipeline"
	"github.com/teacherhub/reputation-bot/internal/scoring"
)

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

// MockRunStore is a mock implementation of store.RunStore.
type MockRunStore struct {
	mock.Mock
}

func (m *MockRunStore) StartCrawlRun(ctx context.Context, sourceID int64) (primitive.ObjectID, error) {
	args := m.Called(ctx, sourceID)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockRunStore) FinishCrawlRun(ctx context.Context, run *models.CrawlRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// MockFetcher is a mock implementation of Fetcher.
type MockFetcher struct {
	mock.Mock
	code string
}

func (m *MockFetcher) Fetch(ctx context.Context, keyword string, limit int) ([]models.RawDocument, error) {
	args := m.Called(ctx, keyword, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RawDocument), args.Error(1)
}

func (m *MockFetcher) FetchLatest(ctx context.Context, limit int) ([]models.RawDocument, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RawDocument), args.Error(1)
}

func (m *MockFetcher) Code() string {
	return m.code
}

// noopStore satisfies store.DocumentStore for batches that carry no documents.
type noopStore struct{}

func (noopStore) FindDocument(ctx context.Context, sourceID int64, externalID string) (*models.Document, error) {
	return nil, nil
}
func (noopStore) InsertDocument(ctx context.Context, doc *models.Document) error { return nil }
func (noopStore) UpdateDocumentCounters(ctx context.Context, id primitive.ObjectID, views, likes, comments int) error {
	return nil
}
func (noopStore) FindComment(ctx context.Context, documentID primitive.ObjectID, externalID string) (*models.CommentRecord, error) {
	return nil, nil
}
func (noopStore) InsertComment(ctx context.Context, comment *models.CommentRecord) error { return nil }
func (noopStore) MentionExists(ctx context.Context, entityID int64, documentID primitive.ObjectID, commentID *primitive.ObjectID, mentionType string) (bool, error) {
	return false, nil
}
func (noopStore) InsertMention(ctx context.Context, m *models.Mention) (bool, error) {
	return true, nil
}
func (noopStore) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func testCoordinator(cat *MockCatalog, runs *MockRunStore) *Coordinator {
	matcher := matching.NewMatcher()
	pipe := pipeline.New(noopStore{}, matcher, scoring.NewScorer(nil))
	return NewCoordinator(cat, pipe, runs, nil)
}

func TestCoordinator_RunAll_NoSources(t *testing.T) {
	cat := &MockCatalog{}
	runs := &MockRunStore{}
	cat.On("ActiveSources", mock.Anything).Return([]models.Source{}, nil)

	results, err := testCoordinator(cat, runs).RunAll(context.Background(), "", 50, 3)

	assert.NoError(t, err)
	assert.Nil(t, results)
	runs.AssertNotCalled(t, "StartCrawlRun", mock.Anything, mock.Anything)
}

func TestCoordinator_RunAll_FailureIsolation(t *testing.T) {
	cat := &MockCatalog{}
	runs := &MockRunStore{}
	cat.On("ActiveSources", mock.Anything).Return([]models.Source{
		{ID: 1, Code: "alpha"},
		{ID: 2, Code: "beta"},
	}, nil)

	failing := &MockFetcher{code: "alpha"}
	failing.On("FetchLatest", mock.Anything, 50).Return(nil, assert.AnError)

	healthy := &MockFetcher{code: "beta"}
	healthy.On("FetchLatest", mock.Anything, 50).Return([]models.RawDocument{}, nil)

	runs.On("StartCrawlRun", mock.Anything, mock.Anything).Return(primitive.NewObjectID(), nil)

	var finished []string
	runs.On("FinishCrawlRun", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		finished = append(finished, args.Get(1).(*models.CrawlRun).Status)
	}).Return(nil)

	c := testCoordinator(cat, runs)
	c.Register(failing)
	c.Register(healthy)

	results, err := c.RunAll(context.Background(), "", 50, 1)

	assert.NoError(t, err)
	assert.Len(t, results, 2)

	// Results stay in source-enumeration order.
	assert.Equal(t, "alpha", results[0].SourceCode)
	assert.False(t, results[0].Success)
	assert.NotEmpty(t, results[0].Error)

	assert.Equal(t, "beta", results[1].SourceCode)
	assert.True(t, results[1].Success)

	// Both runs were closed, one failed and one completed.
	assert.ElementsMatch(t, []string{models.StatusFailed, models.StatusCompleted}, finished)
}

func TestCoordinator_RunAll_MissingFetcher(t *testing.T) {
	cat := &MockCatalog{}
	runs := &MockRunStore{}
	cat.On("ActiveSources", mock.Anything).Return([]models.Source{{ID: 1, Code: "ghost"}}, nil)

	runs.On("StartCrawlRun", mock.Anything, int64(1)).Return(primitive.NewObjectID(), nil)
	runs.On("FinishCrawlRun", mock.Anything, mock.Anything).Return(nil)

	results, err := testCoordinator(cat, runs).RunAll(context.Background(), "", 50, 3)

	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "ghost")
}

func TestCoordinator_RunAll_KeywordUsesSearch(t *testing.T) {
	cat := &MockCatalog{}
	runs := &MockRunStore{}
	cat.On("ActiveSources", mock.Anything).Return([]models.Source{{ID: 1, Code: "alpha"}}, nil)

	fetcher := &MockFetcher{code: "alpha"}
	fetcher.On("Fetch", mock.Anything, "김민수", 20).Return([]models.RawDocument{}, nil)

	runs.On("StartCrawlRun", mock.Anything, int64(1)).Return(primitive.NewObjectID(), nil)
	runs.On("FinishCrawlRun", mock.Anything, mock.Anything).Return(nil)

	c := testCoordinator(cat, runs)
	c.Register(fetcher)

	results, err := c.RunAll(context.Background(), "김민수", 20, 3)

	assert.NoError(t, err)
	assert.True(t, results[0].Success)
	fetcher.AssertNotCalled(t, "FetchLatest", mock.Anything, mock.Anything)
}

package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/teacherhub/reputation-bot/internal/matching"
	"github.com/teacherhub/reputation-bot/internal/models"
	"github.com/teacherhub/reputation-bot/internal/scoring"
)

// MockDocumentStore is a mock implementation of store.DocumentStore.
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) FindDocument(ctx context.Context, sourceID int64, externalID string) (*models.Document, error) {
	args := m.Called(ctx, sourceID, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Document), args.Error(1)
}

func (m *MockDocumentStore) InsertDocument(ctx context.Context, doc *models.Document) error {
	args := m.Called(ctx, doc)
	doc.ID = primitive.NewObjectID()
	return args.Error(0)
}

func (m *MockDocumentStore) UpdateDocumentCounters(ctx context.Context, id primitive.ObjectID, views, likes, comments int) error {
	args := m.Called(ctx, id, views, likes, comments)
	return args.Error(0)
}

func (m *MockDocumentStore) FindComment(ctx context.Context, documentID primitive.ObjectID, externalID string) (*models.CommentRecord, error) {
	args := m.Called(ctx, documentID, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CommentRecord), args.Error(1)
}

func (m *MockDocumentStore) InsertComment(ctx context.Context, comment *models.CommentRecord) error {
	args := m.Called(ctx, comment)
	comment.ID = primitive.NewObjectID()
	return args.Error(0)
}

func (m *MockDocumentStore) MentionExists(ctx context.Context, entityID int64, documentID primitive.ObjectID, commentID *primitive.ObjectID, mentionType string) (bool, error) {
	args := m.Called(ctx, entityID, documentID, commentID, mentionType)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentStore) InsertMention(ctx context.Context, mention *models.Mention) (bool, error) {
	args := m.Called(ctx, mention)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentStore) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

func newTestPipeline(st *MockDocumentStore) *Pipeline {
	matcher := matching.NewMatcher()
	matcher.Load([]models.Entity{{ID: 1, Name: "김민수", OrgID: 10}})
	return New(st, matcher, scoring.NewScorer(nil))
}

func testSource() models.Source {
	return models.Source{ID: 5, Name: "Test Board", Code: "board"}
}

func TestPipeline_Ingest_NewDocument(t *testing.T) {
	st := &MockDocumentStore{}
	p := newTestPipeline(st)

	raw := models.RawDocument{
		ExternalID: "post-1",
		Title:      "김민수 커리 질문",
		Content:    "김민수 강의 강추",
		PostDate:   time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		Comments: []models.RawComment{
			{ExternalID: "c-1", Content: "민수쌤 추천"},
		},
	}

	st.On("InTransaction", mock.Anything).Return(nil)
	st.On("FindDocument", mock.Anything, int64(5), "post-1").Return(nil, nil)
	st.On("InsertDocument", mock.Anything, mock.Anything).Return(nil)
	st.On("FindComment", mock.Anything, mock.Anything, "c-1").Return(nil, nil)
	st.On("InsertComment", mock.Anything, mock.Anything).Return(nil)
	st.On("MentionExists", mock.Anything, int64(1), mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	st.On("InsertMention", mock.Anything, mock.Anything).Return(true, nil)

	stats, err := p.Ingest(context.Background(), testSource(), []models.RawDocument{raw})

	assert.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentsCreated)
	assert.Equal(t, 0, stats.DocumentsUpdated)
	assert.Equal(t, 1, stats.CommentsCreated)
	assert.Equal(t, 3, stats.MentionsFound) // title, content, comment

	st.AssertNumberOfCalls(t, "InsertMention", 3)
}

func TestPipeline_Ingest_MentionCarriesScores(t *testing.T) {
	st := &MockDocumentStore{}
	p := newTestPipeline(st)

	raw := models.RawDocument{
		ExternalID: "post-2",
		Title:      "잡담",
		Content:    "김민수 강의 강추 완전 추천",
		PostDate:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}

	var inserted *models.Mention
	st.On("InTransaction", mock.Anything).Return(nil)
	st.On("FindDocument", mock.Anything, int64(5), "post-2").Return(nil, nil)
	st.On("InsertDocument", mock.Anything, mock.Anything).Return(nil)
	st.On("MentionExists", mock.Anything, int64(1), mock.Anything, mock.Anything, models.MentionTypeContent).Return(false, nil)
	st.On("InsertMention", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		inserted = args.Get(1).(*models.Mention)
	}).Return(true, nil)

	_, err := p.Ingest(context.Background(), testSource(), []models.RawDocument{raw})

	assert.NoError(t, err)
	if assert.NotNil(t, inserted) {
		assert.Equal(t, int64(1), inserted.EntityID)
		assert.Equal(t, models.MentionTypeContent, inserted.MentionType)
		assert.Equal(t, "김민수", inserted.MatchedText)
		assert.Equal(t, models.SentimentPositive, inserted.Sentiment)
		assert.True(t, inserted.Recommended)
		assert.Equal(t, raw.PostDate, inserted.DocumentPostedAt)
	}
}

func TestPipeline_Ingest_ExistingDocumentUpdatesCounters(t *testing.T) {
	st := &MockDocumentStore{}
	p := newTestPipeline(st)

	existing := &models.Document{
		ID:         primitive.NewObjectID(),
		SourceID:   5,
		ExternalID: "post-1",
		Title:      "김민수 커리 질문",
		PostedAt:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	raw := models.RawDocument{
		ExternalID: "post-1",
		Title:      "김민수 커리 질문",
		ViewCount:  120,
		LikeCount:  4,
	}

	st.On("InTransaction", mock.Anything).Return(nil)
	st.On("FindDocument", mock.Anything, int64(5), "post-1").Return(existing, nil)
	st.On("UpdateDocumentCounters", mock.Anything, existing.ID, 120, 4, 0).Return(nil)
	st.On("MentionExists", mock.Anything, int64(1), existing.ID, (*primitive.ObjectID)(nil), models.MentionTypeTitle).Return(true, nil)

	stats, err := p.Ingest(context.Background(), testSource(), []models.RawDocument{raw})

	assert.NoError(t, err)
	assert.Equal(t, 0, stats.DocumentsCreated)
	assert.Equal(t, 1, stats.DocumentsUpdated)
	assert.Equal(t, 0, stats.MentionsFound)

	st.AssertNotCalled(t, "InsertDocument", mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "InsertMention", mock.Anything, mock.Anything)
}

func TestPipeline_Ingest_CommitFailure(t *testing.T) {
	st := &MockDocumentStore{}
	p := newTestPipeline(st)

	st.On("InTransaction", mock.Anything).Return(assert.AnError)

	stats, err := p.Ingest(context.Background(), testSource(), []models.RawDocument{{ExternalID: "post-1"}})

	assert.Error(t, err)
	assert.Equal(t, models.IngestStats{}, stats)
}

func TestPipeline_Ingest_DocumentErrorDoesNotAbortBatch(t *testing.T) {
	st := &MockDocumentStore{}
	p := newTestPipeline(st)

	bad := models.RawDocument{ExternalID: "bad"}
	good := models.RawDocument{ExternalID: "good", Title: "잡담"}

	st.On("InTransaction", mock.Anything).Return(nil)
	st.On("FindDocument", mock.Anything, int64(5), "bad").Return(nil, assert.AnError)
	st.On("FindDocument", mock.Anything, int64(5), "good").Return(nil, nil)
	st.On("InsertDocument", mock.Anything, mock.Anything).Return(nil)

	stats, err := p.Ingest(context.Background(), testSource(), []models.RawDocument{bad, good})

	assert.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentsCreated)
}

package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/teacherhub/reputation-bot/internal/models"
)

// defaultUserAgent is sent when a source configures no override.
const defaultUserAgent = "reputation-bot/1.0"

// BoardFetcher fetches documents from a forum board exposing a JSON API with
// /posts/latest and /posts/search endpoints. Board-specific details (base
// URL, board id, page size) come from the source's fetch configuration.
type BoardFetcher struct {
	source models.Source
	client *resty.Client
}

var _ Fetcher = (*BoardFetcher)(nil)

type boardPost struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Content      string         `json:"content"`
	URL          string         `json:"url"`
	Author       string         `json:"author"`
	PostedAt     time.Time      `json:"posted_at"`
	ViewCount    int            `json:"view_count"`
	LikeCount    int            `json:"like_count"`
	CommentCount int            `json:"comment_count"`
	Comments     []boardComment `json:"comments"`
}

type boardComment struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	Author      string    `json:"author"`
	CommentedAt time.Time `json:"commented_at"`
}

type boardResponse struct {
	Posts []boardPost `json:"posts"`
}

// NewBoardFetcher creates a fetcher for one configured board source.
func NewBoardFetcher(source models.Source) *BoardFetcher {
	userAgent := source.Config.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &BoardFetcher{
		source: source,
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", userAgent),
	}
}

func (f *BoardFetcher) Code() string {
	return f.source.Code
}

// Fetch searches the board for documents matching keyword.
func (f *BoardFetcher) Fetch(ctx context.Context, keyword string, limit int) ([]models.RawDocument, error) {
	return f.request(ctx, "/posts/search", map[string]string{
		"board":   f.source.Config.BoardID,
		"keyword": keyword,
		"limit":   fmt.Sprintf("%d", limit),
	})
}

// FetchLatest returns the board's most recent documents.
func (f *BoardFetcher) FetchLatest(ctx context.Context, limit int) ([]models.RawDocument, error) {
	return f.request(ctx, "/posts/latest", map[string]string{
		"board": f.source.Config.BoardID,
		"limit": fmt.Sprintf("%d", limit),
	})
}

func (f *BoardFetcher) request(ctx context.Context, path string, params map[string]string) ([]models.RawDocument, error) {
	if f.source.Config.BaseURL == "" {
		return nil, fmt.Errorf("source %s has no base URL configured", f.source.Code)
	}

	var body boardResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&body).
		Get(f.source.Config.BaseURL + path)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", f.source.Code, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("source %s returned status %d", f.source.Code, resp.StatusCode())
	}

	docs := make([]models.RawDocument, 0, len(body.Posts))
	for _, post := range body.Posts {
		doc := models.RawDocument{
			ExternalID:   post.ID,
			Title:        post.Title,
			Content:      post.Content,
			URL:          post.URL,
			Author:       post.Author,
			PostDate:     post.PostedAt,
			ViewCount:    post.ViewCount,
			LikeCount:    post.LikeCount,
			CommentCount: post.CommentCount,
		}
		for _, comment := range post.Comments {
			doc.Comments = append(doc.Comments, models.RawComment{
				ExternalID:  comment.ID,
				Content:     comment.Content,
				Author:      comment.Author,
				CommentDate: comment.CommentedAt,
			})
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

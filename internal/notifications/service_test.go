package notifications

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/teacherhub/reputation-bot/internal/config"
	"github.com/teacherhub/reputation-bot/internal/reports"
)

func testDigest() *reports.Digest {
	score := 0.42
	return &reports.Digest{
		Date:                 time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		EntitiesReported:     2,
		TotalMentions:        11,
		TotalPositive:        7,
		TotalNegative:        1,
		TotalRecommendations: 3,
		TopEntities: []reports.DigestEntry{
			{EntityID: 2, EntityName: "이영희", MentionCount: 8, AvgSentiment: &score, Summary: "이영희: 8 mentions"},
			{EntityID: 1, EntityName: "김민수", MentionCount: 3, Summary: "김민수: 3 mentions"},
		},
		GeneratedAt: time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC),
	}
}

func TestService_BuildWebhookMessage(t *testing.T) {
	s := NewService(&config.Config{})

	message := s.buildWebhookMessage(testDigest())

	assert.Equal(t, "MessageCard", message.Type)
	assert.Equal(t, "Instructor Reputation Digest - 2026-03-02", message.Title)
	assert.Equal(t, "11 mentions across 2 instructors", message.Text)

	assert.Len(t, message.Sections, 2)
	assert.Equal(t, "Summary", message.Sections[0].ActivityTitle)
	assert.Equal(t, "Top Instructors", message.Sections[1].ActivityTitle)
	assert.Contains(t, message.Sections[1].ActivityText, "이영희")
	assert.Contains(t, message.Sections[1].ActivityText, "(sentiment 0.420)")
}

func TestService_BuildEmailBodies(t *testing.T) {
	s := NewService(&config.Config{})
	digest := testDigest()

	html, err := s.buildEmailHTML(digest)
	assert.NoError(t, err)
	assert.Contains(t, html, "이영희")
	assert.Contains(t, html, "sentiment 0.420")
	assert.Contains(t, html, "<strong>Total Mentions:</strong> 11")

	text := s.buildEmailText(digest)
	assert.Contains(t, text, "Total Mentions: 11")
	assert.Contains(t, text, "1. 이영희 (8 mentions)")
	assert.True(t, strings.Contains(text, "2. 김민수 (3 mentions)"))
}

func TestService_SendDigest_NoChannelsConfigured(t *testing.T) {
	s := NewService(&config.Config{})

	assert.NoError(t, s.SendDigest(testDigest()))
}

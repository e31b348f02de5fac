package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/teacherhub/reputation-bot/internal/config"
	"github.com/teacherhub/reputation-bot/internal/reports"
)

// Service delivers digests over an incoming webhook and SMTP email. Channels
// are independent; a failure on one does not stop the other.
type Service struct {
	config *config.Config
	client *resty.Client
}

var _ Notifier = (*Service)(nil)

// webhookMessage is the MessageCard payload posted to the webhook.
type webhookMessage struct {
	Type     string           `json:"@type"`
	Context  string           `json:"@context"`
	Title    string           `json:"title"`
	Text     string           `json:"text"`
	Sections []webhookSection `json:"sections,omitempty"`
}

type webhookSection struct {
	ActivityTitle string        `json:"activityTitle,omitempty"`
	ActivityText  string        `json:"activityText,omitempty"`
	Facts         []webhookFact `json:"facts,omitempty"`
	Markdown      bool          `json:"markdown,omitempty"`
}

type webhookFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a notification service.
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendDigest sends the daily digest to every configured channel and reports
// the combined outcome.
func (s *Service) SendDigest(digest *reports.Digest) error {
	var errors []string

	if s.config.WebhookURL != "" {
		if err := s.sendToWebhook(digest); err != nil {
			logrus.Errorf("Failed to send webhook notification: %v", err)
			errors = append(errors, fmt.Sprintf("webhook: %v", err))
		} else {
			logrus.Info("Successfully sent digest to webhook")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(digest); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("email: %v", err))
		} else {
			logrus.Info("Successfully sent digest via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToWebhook(digest *reports.Digest) error {
	message := s.buildWebhookMessage(digest)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.WebhookURL)

	if err != nil {
		return fmt.Errorf("failed to post webhook message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildWebhookMessage(digest *reports.Digest) *webhookMessage {
	message := &webhookMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Instructor Reputation Digest - %s", digest.Date.Format("2006-01-02")),
		Text:    fmt.Sprintf("%d mentions across %d instructors", digest.TotalMentions, digest.EntitiesReported),
	}

	facts := []webhookFact{
		{Name: "Total Mentions", Value: fmt.Sprintf("%d", digest.TotalMentions)},
		{Name: "Positive", Value: fmt.Sprintf("%d", digest.TotalPositive)},
		{Name: "Negative", Value: fmt.Sprintf("%d", digest.TotalNegative)},
		{Name: "Recommendations", Value: fmt.Sprintf("%d", digest.TotalRecommendations)},
		{Name: "Generated", Value: digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
	}
	message.Sections = append(message.Sections, webhookSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	if len(digest.TopEntities) > 0 {
		var lines []string
		for i, entry := range digest.TopEntities {
			line := fmt.Sprintf("%d. **%s** - %d mentions", i+1, entry.EntityName, entry.MentionCount)
			if entry.AvgSentiment != nil {
				line += fmt.Sprintf(" (sentiment %.3f)", *entry.AvgSentiment)
			}
			lines = append(lines, line)
		}

		message.Sections = append(message.Sections, webhookSection{
			ActivityTitle: "Top Instructors",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) sendEmail(digest *reports.Digest) error {
	subject := fmt.Sprintf("Instructor Reputation Digest - %s (%d mentions)",
		digest.Date.Format("2006-01-02"), digest.TotalMentions)

	htmlBody, err := s.buildEmailHTML(digest)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	textBody := s.buildEmailText(digest)

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

var emailTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"score": func(p *float64) string { return fmt.Sprintf("%.3f", *p) },
}).Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Instructor Reputation Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #2b5797; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .entry { border-left: 4px solid #2b5797; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .entry-name { font-weight: bold; margin-bottom: 5px; }
        .entry-meta { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Instructor Reputation Digest</h1>
        <p>{{.Date.Format "January 2, 2006"}} | generated {{.GeneratedAt.Format "2006-01-02 15:04 UTC"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Total Mentions:</strong> {{.TotalMentions}}</p>
        <p><strong>Instructors Mentioned:</strong> {{.EntitiesReported}}</p>
        <p><strong>Positive:</strong> {{.TotalPositive}} | <strong>Negative:</strong> {{.TotalNegative}}</p>
        <p><strong>Recommendations:</strong> {{.TotalRecommendations}}</p>
    </div>

    {{if .TopEntities}}
    <h2>Top Instructors</h2>
    {{range .TopEntities}}
    <div class="entry">
        <div class="entry-name">{{.EntityName}}</div>
        <div class="entry-meta">{{.MentionCount}} mentions{{if .AvgSentiment}} | sentiment {{score .AvgSentiment}}{{end}}</div>
        {{if .Summary}}<p>{{.Summary}}</p>{{end}}
    </div>
    {{end}}
    {{end}}

    <hr>
    <p><small>This digest was generated automatically by the reputation bot.</small></p>
</body>
</html>
`))

func (s *Service) buildEmailHTML(digest *reports.Digest) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, digest); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Service) buildEmailText(digest *reports.Digest) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Instructor Reputation Digest - %s\n", digest.Date.Format("2006-01-02")))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Total Mentions: %d\n", digest.TotalMentions))
	text.WriteString(fmt.Sprintf("Instructors Mentioned: %d\n", digest.EntitiesReported))
	text.WriteString(fmt.Sprintf("Positive: %d | Negative: %d\n", digest.TotalPositive, digest.TotalNegative))
	text.WriteString(fmt.Sprintf("Recommendations: %d\n", digest.TotalRecommendations))

	if len(digest.TopEntities) > 0 {
		text.WriteString("\nTOP INSTRUCTORS\n")
		text.WriteString("===============\n")
		for i, entry := range digest.TopEntities {
			text.WriteString(fmt.Sprintf("\n%d. %s (%d mentions)\n", i+1, entry.EntityName, entry.MentionCount))
			if entry.Summary != "" {
				text.WriteString(fmt.Sprintf("   %s\n", entry.Summary))
			}
		}
	}

	text.WriteString("\n---\nThis digest was generated automatically by the reputation bot.\n")

	return text.String()
}

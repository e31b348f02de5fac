package notifications

import "github.com/teacherhub/reputation-bot/internal/reports"

// Notifier delivers the daily digest to the configured channels.
type Notifier interface {
	SendDigest(digest *reports.Digest) error
}

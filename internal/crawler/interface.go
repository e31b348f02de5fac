package crawler

import (
	"context"

	"github.com/teacherhub/reputation-bot/internal/models"
)

// Fetcher is the contract every fetch collaborator implements. The actual
// page traversal, login flows and markup handling live behind this interface;
// the coordinator only sees uniform raw documents.
type Fetcher interface {
	// Fetch searches the source for documents matching keyword.
	Fetch(ctx context.Context, keyword string, limit int) ([]models.RawDocument, error)
	// FetchLatest returns the source's most recent documents.
	FetchLatest(ctx context.Context, limit int) ([]models.RawDocument, error)
	// Code is the logical source code this fetcher serves.
	Code() string
}

package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/teacherhub/reputation-bot/internal/archive"
	"github.com/teacherhub/reputation-bot/internal/catalog"
	"github.com/teacherhub/reputation-bot/internal/models"
	"github.com/teacherhub/reputation-bot/internal/pipeline"
	"github.com/teacherhub/reputation-bot/internal/store"
)

// Coordinator maps logical sources to fetch collaborators and runs
// fetch+ingest per source under bounded concurrency. One source's failure is
// recorded in its own CrawlRun and SourceResult and never touches siblings.
type Coordinator struct {
	catalog  catalog.Catalog
	pipeline *pipeline.Pipeline
	runs     store.RunStore
	archiver archive.Archiver
	fetchers map[string]Fetcher
}

// NewCoordinator creates a coordinator. archiver may be nil, in which case
// raw payloads are not archived.
func NewCoordinator(cat catalog.Catalog, pipe *pipeline.Pipeline, runs store.RunStore, archiver archive.Archiver) *Coordinator {
	return &Coordinator{
		catalog:  cat,
		pipeline: pipe,
		runs:     runs,
		archiver: archiver,
		fetchers: make(map[string]Fetcher),
	}
}

// Register adds a fetch collaborator for its source code, replacing any
// previous one.
func (c *Coordinator) Register(f Fetcher) {
	c.fetchers[f.Code()] = f
}

// RunAll crawls every active source. At most maxConcurrency sources run their
// fetch+ingest work at once; results come back in source-enumeration order
// regardless of completion order, one per source. RunAll itself only errors
// when the source list cannot be read.
func (c *Coordinator) RunAll(ctx context.Context, keyword string, limit, maxConcurrency int) ([]models.SourceResult, error) {
	sources, err := c.catalog.ActiveSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sources: %w", err)
	}
	if len(sources) == 0 {
		logrus.Info("No active sources to crawl")
		return nil, nil
	}
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	logrus.Infof("Starting crawl of %d sources (keyword=%q, limit=%d, concurrency=%d)",
		len(sources), keyword, limit, maxConcurrency)

	results := make([]models.SourceResult, len(sources))

	g := &errgroup.Group{}
	g.SetLimit(maxConcurrency)

	for i, source := range sources {
		i, source := i, source
		g.Go(func() error {
			results[i] = c.crawlSource(ctx, source, keyword, limit)
			return nil
		})
	}
	// Workers never return errors; failures are carried in the results.
	_ = g.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	logrus.Infof("Crawl finished: %d/%d sources succeeded", succeeded, len(sources))

	return results, nil
}

// crawlSource runs fetch+ingest for one source. The CrawlRun opened here is
// closed as completed or failed on every path.
func (c *Coordinator) crawlSource(ctx context.Context, source models.Source, keyword string, limit int) models.SourceResult {
	result := models.SourceResult{SourceCode: source.Code}

	runID, err := c.runs.StartCrawlRun(ctx, source.ID)
	if err != nil {
		result.Error = fmt.Sprintf("failed to record crawl run: %v", err)
		logrus.Errorf("Source %s: %s", source.Code, result.Error)
		return result
	}

	run := &models.CrawlRun{ID: runID, SourceID: source.ID}

	stats, err := c.fetchAndIngest(ctx, source, keyword, limit)
	finished := time.Now().UTC()
	run.FinishedAt = &finished

	if err != nil {
		result.Error = err.Error()
		run.Status = models.StatusFailed
		run.ErrorMessage = err.Error()
		logrus.Errorf("Source %s crawl failed: %v", source.Code, err)
	} else {
		result.Success = true
		result.PostsCollected = stats.DocumentsCreated + stats.DocumentsUpdated
		result.CommentsCollected = stats.CommentsCreated
		result.MentionsFound = stats.MentionsFound
		run.Status = models.StatusCompleted
		run.PostsCollected = result.PostsCollected
		run.CommentsCollected = result.CommentsCollected
		run.MentionsFound = result.MentionsFound
		logrus.Infof("Source %s: %d posts, %d comments, %d mentions",
			source.Code, result.PostsCollected, result.CommentsCollected, result.MentionsFound)
	}

	if err := c.runs.FinishCrawlRun(ctx, run); err != nil {
		logrus.Errorf("Source %s: failed to close crawl run: %v", source.Code, err)
	}

	return result
}

func (c *Coordinator) fetchAndIngest(ctx context.Context, source models.Source, keyword string, limit int) (models.IngestStats, error) {
	fetcher, ok := c.fetchers[source.Code]
	if !ok {
		return models.IngestStats{}, fmt.Errorf("no fetcher registered for source %s", source.Code)
	}

	var docs []models.RawDocument
	var err error
	if keyword != "" {
		docs, err = fetcher.Fetch(ctx, keyword, limit)
	} else {
		docs, err = fetcher.FetchLatest(ctx, limit)
	}
	if err != nil {
		return models.IngestStats{}, fmt.Errorf("fetch failed: %w", err)
	}

	logrus.Infof("Source %s returned %d documents", source.Code, len(docs))

	c.archivePayload(source, docs)

	return c.pipeline.Ingest(ctx, source, docs)
}

// archivePayload stores the raw fetched batch when an archiver is configured.
// Archive failures are logged, not fatal; the payload is a debugging aid, not
// part of the ingest contract.
func (c *Coordinator) archivePayload(source models.Source, docs []models.RawDocument) {
	if c.archiver == nil || len(docs) == 0 {
		return
	}

	data, err := json.Marshal(docs)
	if err != nil {
		logrus.Errorf("Source %s: failed to marshal payload for archive: %v", source.Code, err)
		return
	}

	name := fmt.Sprintf("%s/%s.json", source.Code, time.Now().UTC().Format("2006-01-02-15-04-05"))
	if err := c.archiver.Archive(name, data); err != nil {
		logrus.Errorf("Source %s: failed to archive payload: %v", source.Code, err)
	}
}

// Package scheduler wires the crawl, daily report, and weekly aggregation
// jobs onto cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/teacherhub/reputation-bot/internal/config"
	"github.com/teacherhub/reputation-bot/internal/crawler"
	"github.com/teacherhub/reputation-bot/internal/notifications"
	"github.com/teacherhub/reputation-bot/internal/reports"
)

// jobTimeout bounds each scheduled run.
const jobTimeout = 30 * time.Minute

// Service runs the three recurring jobs on their configured cron expressions.
// Schedules are evaluated in the configured time zone so the daily report
// fires at local end of day.
type Service struct {
	config      *config.Config
	coordinator *crawler.Coordinator
	daily       *reports.DailyAggregator
	weekly      *reports.WeeklyAggregator
	notifier    notifications.Notifier
	cron        *cron.Cron
}

// NewService creates a scheduler. The configured time zone must resolve or an
// error is returned.
func NewService(cfg *config.Config, coordinator *crawler.Coordinator, daily *reports.DailyAggregator, weekly *reports.WeeklyAggregator, notifier notifications.Notifier) (*Service, error) {
	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", cfg.TimeZone, err)
	}

	return &Service{
		config:      cfg,
		coordinator: coordinator,
		daily:       daily,
		weekly:      weekly,
		notifier:    notifier,
		cron:        cron.New(cron.WithSeconds(), cron.WithLocation(location)),
	}, nil
}

// Start registers the jobs and starts the cron loop.
func (s *Service) Start() error {
	if _, err := s.cron.AddFunc(s.config.CrawlSchedule, s.runCrawl); err != nil {
		return fmt.Errorf("invalid crawl schedule: %w", err)
	}
	if _, err := s.cron.AddFunc(s.config.DailyReportSchedule, s.runDailyReports); err != nil {
		return fmt.Errorf("invalid daily report schedule: %w", err)
	}
	if _, err := s.cron.AddFunc(s.config.WeeklySchedule, s.runWeeklyAggregation); err != nil {
		return fmt.Errorf("invalid weekly schedule: %w", err)
	}

	s.cron.Start()
	logrus.Infof("Scheduler started: crawl [%s], daily reports [%s], weekly aggregation [%s] (%s)",
		s.config.CrawlSchedule, s.config.DailyReportSchedule, s.config.WeeklySchedule, s.config.TimeZone)
	return nil
}

// Stop stops the cron loop. Jobs already running finish on their own.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}

func (s *Service) runCrawl() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	logrus.Info("Starting scheduled crawl run")
	results, err := s.coordinator.RunAll(ctx, "", s.config.CrawlLimit, s.config.MaxConcurrency)
	if err != nil {
		logrus.Errorf("Scheduled crawl run failed: %v", err)
		return
	}
	for _, r := range results {
		if !r.Success {
			logrus.Warnf("Source %s failed: %s", r.SourceCode, r.Error)
		}
	}
}

func (s *Service) runDailyReports() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	today := time.Now()
	logrus.Info("Starting scheduled daily report run")
	stats, err := s.daily.GenerateAll(ctx, today)
	if err != nil {
		logrus.Errorf("Scheduled daily report run failed: %v", err)
		return
	}
	if stats.EntityReportsCreated == 0 {
		return
	}

	digest, err := s.daily.BuildDigest(ctx, today)
	if err != nil {
		logrus.Errorf("Failed to build daily digest: %v", err)
		return
	}
	if digest == nil {
		return
	}
	if err := s.notifier.SendDigest(digest); err != nil {
		logrus.Errorf("Failed to deliver daily digest: %v", err)
	}
}

func (s *Service) runWeeklyAggregation() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	logrus.Info("Starting scheduled weekly aggregation")
	if _, err := s.weekly.Aggregate(ctx, time.Time{}); err != nil {
		logrus.Errorf("Scheduled weekly aggregation failed: %v", err)
	}
}

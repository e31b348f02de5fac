package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/teacherhub/reputation-bot/internal/archive"
	"github.com/teacherhub/reputation-bot/internal/catalog"
	"github.com/teacherhub/reputation-bot/internal/config"
	"github.com/teacherhub/reputation-bot/internal/crawler"
	"github.com/teacherhub/reputation-bot/internal/matching"
	"github.com/teacherhub/reputation-bot/internal/notifications"
	"github.com/teacherhub/reputation-bot/internal/pipeline"
	"github.com/teacherhub/reputation-bot/internal/reports"
	"github.com/teacherhub/reputation-bot/internal/scheduler"
	"github.com/teacherhub/reputation-bot/internal/scoring"
	"github.com/teacherhub/reputation-bot/internal/store"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting instructor reputation bot")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	cancel()
	if err != nil {
		logrus.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Close(shutdownCtx); err != nil {
			logrus.Errorf("Failed to close MongoDB connection: %v", err)
		}
	}()

	cat := catalog.NewMongoCatalog(db.Database())

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entities, err := cat.ActiveEntities(startupCtx)
	if err != nil {
		logrus.Fatalf("Failed to load entities: %v", err)
	}
	matcher := matching.NewMatcher()
	matcher.Load(entities)
	logrus.Infof("Loaded %d tracked entities", len(entities))

	scorer := scoring.NewScorer(buildLexicon(startupCtx, cfg, cat))

	var archiver archive.Archiver
	if cfg.ArchiveAccount != "" {
		archiver, err = archive.NewAzureArchive(cfg.ArchiveAccount, cfg.ArchiveContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize payload archive: %v", err)
		}
	}

	pipe := pipeline.New(db, matcher, scorer)
	coordinator := crawler.NewCoordinator(cat, pipe, db, archiver)

	sources, err := cat.ActiveSources(startupCtx)
	if err != nil {
		logrus.Fatalf("Failed to load sources: %v", err)
	}
	for _, source := range sources {
		coordinator.Register(crawler.NewBoardFetcher(source))
	}
	logrus.Infof("Registered %d source fetchers", len(sources))

	dailyAggregator := reports.NewDailyAggregator(db, cat)
	weeklyAggregator := reports.NewWeeklyAggregator(db, cat)
	notifier := notifications.NewService(cfg)

	schedulerService, err := scheduler.NewService(cfg, coordinator, dailyAggregator, weeklyAggregator, notifier)
	if err != nil {
		logrus.Fatalf("Failed to initialize scheduler: %v", err)
	}
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/trigger/crawl", triggerCrawlHandler(cfg, coordinator)).Methods("POST")
	router.HandleFunc("/trigger/daily", triggerDailyHandler(dailyAggregator)).Methods("POST")
	router.HandleFunc("/trigger/weekly", triggerWeeklyHandler(weeklyAggregator)).Methods("POST")
	router.HandleFunc("/reports/weekly", weeklyReportHandler(weeklyAggregator)).Methods("GET")
	router.HandleFunc("/reports/daily-summary", daySummaryHandler(dailyAggregator)).Methods("GET")
	router.HandleFunc("/archive/payloads", archiveListHandler(archiver)).Methods("GET")
	router.HandleFunc("/archive/payload", archivePayloadHandler(archiver)).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

// buildLexicon prefers catalog keyword rows, then the lexicon file, then the
// built-in defaults. Every path is fail-soft.
func buildLexicon(ctx context.Context, cfg *config.Config, cat catalog.Catalog) scoring.Lexicon {
	rows, err := cat.ActiveKeywords(ctx, "")
	if err != nil {
		logrus.Warnf("Failed to load catalog keywords, falling back: %v", err)
	} else if len(rows) > 0 {
		return scoring.LexiconFromKeywords(rows)
	}
	return scoring.LoadLexiconFile(cfg.LexiconPath)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func triggerCrawlHandler(cfg *config.Config, coordinator *crawler.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyword := r.URL.Query().Get("keyword")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			if _, err := coordinator.RunAll(ctx, keyword, cfg.CrawlLimit, cfg.MaxConcurrency); err != nil {
				logrus.Errorf("Manual crawl trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"message":"Crawl triggered"}`))
	}
}

func triggerDailyHandler(daily *reports.DailyAggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := time.Now()
		if raw := r.URL.Query().Get("date"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				http.Error(w, `{"error":"invalid date, want YYYY-MM-DD"}`, http.StatusBadRequest)
				return
			}
			date = parsed
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			if _, err := daily.GenerateAll(ctx, date); err != nil {
				logrus.Errorf("Manual daily report trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"message":"Daily aggregation triggered"}`))
	}
}

func triggerWeeklyHandler(weekly *reports.WeeklyAggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := time.Time{}
		if raw := r.URL.Query().Get("date"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				http.Error(w, `{"error":"invalid date, want YYYY-MM-DD"}`, http.StatusBadRequest)
				return
			}
			date = parsed
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			if _, err := weekly.Aggregate(ctx, date); err != nil {
				logrus.Errorf("Manual weekly aggregation trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"message":"Weekly aggregation triggered"}`))
	}
}

func daySummaryHandler(daily *reports.DailyAggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := time.Time{}
		if raw := r.URL.Query().Get("date"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				http.Error(w, `{"error":"invalid date, want YYYY-MM-DD"}`, http.StatusBadRequest)
				return
			}
			date = parsed
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		summary, err := daily.GetDaySummary(ctx, date)
		if err != nil {
			logrus.Errorf("Day summary read failed: %v", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summary)
	}
}

func archiveListHandler(archiver archive.Archiver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if archiver == nil {
			http.Error(w, `{"error":"payload archive is not configured"}`, http.StatusNotFound)
			return
		}

		names, err := archiver.List(r.URL.Query().Get("prefix"))
		if err != nil {
			logrus.Errorf("Archive list failed: %v", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		if names == nil {
			names = []string{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(names)
	}
}

func archivePayloadHandler(archiver archive.Archiver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if archiver == nil {
			http.Error(w, `{"error":"payload archive is not configured"}`, http.StatusNotFound)
			return
		}

		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, `{"error":"name is required"}`, http.StatusBadRequest)
			return
		}

		data, err := archiver.Retrieve(name)
		if err != nil {
			logrus.Errorf("Archive retrieve failed for %s: %v", name, err)
			http.Error(w, `{"error":"payload not found"}`, http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}

func weeklyReportHandler(weekly *reports.WeeklyAggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entityID int64
		if _, err := fmt.Sscan(r.URL.Query().Get("entity_id"), &entityID); err != nil {
			http.Error(w, `{"error":"entity_id is required"}`, http.StatusBadRequest)
			return
		}
		var year, week int
		fmt.Sscan(r.URL.Query().Get("year"), &year)
		fmt.Sscan(r.URL.Query().Get("week"), &week)

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		report, err := weekly.GetReport(ctx, entityID, year, week, true)
		if err != nil {
			logrus.Errorf("Weekly report read failed: %v", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		if report == nil {
			http.Error(w, `{"error":"no report for that week"}`, http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(report)
	}
}

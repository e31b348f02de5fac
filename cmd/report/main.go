// Command report runs one aggregation pass from the terminal: daily reports
// for a given date, or weekly aggregation for the week containing it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/teacherhub/reputation-bot/internal/catalog"
	"github.com/teacherhub/reputation-bot/internal/config"
	"github.com/teacherhub/reputation-bot/internal/reports"
	"github.com/teacherhub/reputation-bot/internal/store"
)

func main() {
	mode := flag.String("mode", "daily", "daily or weekly")
	dateArg := flag.String("date", "", "target date YYYY-MM-DD (default: today for daily, last week for weekly)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	date := time.Now()
	if *dateArg != "" {
		date, err = time.Parse("2006-01-02", *dateArg)
		if err != nil {
			log.Fatalf("Invalid date %q, want YYYY-MM-DD", *dateArg)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	db, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close(context.Background())

	cat := catalog.NewMongoCatalog(db.Database())

	switch *mode {
	case "daily":
		stats, err := reports.NewDailyAggregator(db, cat).GenerateAll(ctx, date)
		if err != nil {
			log.Fatalf("Daily aggregation failed: %v", err)
		}
		fmt.Printf("Daily aggregation for %s: %d entity reports, %d org stats\n",
			date.Format("2006-01-02"), stats.EntityReportsCreated, stats.OrgStatsCreated)

	case "weekly":
		target := date
		if *dateArg == "" {
			target = time.Time{}
		}
		processed, err := reports.NewWeeklyAggregator(db, cat).Aggregate(ctx, target)
		if err != nil {
			log.Fatalf("Weekly aggregation failed: %v", err)
		}
		fmt.Printf("Weekly aggregation complete: %d entities\n", processed)

	default:
		fmt.Fprintf(os.Stderr, "Unknown mode %q, want daily or weekly\n", *mode)
		os.Exit(2)
	}
}

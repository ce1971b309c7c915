// Command forecast evaluates a score against a draw feed once and prints the
// per-category verdicts and projections.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rewired-gh/drawcast/internal/feed"
	"github.com/rewired-gh/drawcast/internal/logger"
	"github.com/rewired-gh/drawcast/internal/models"
	"github.com/rewired-gh/drawcast/internal/projection"
	"github.com/rewired-gh/drawcast/internal/tracker"
)

var (
	feedPath   = flag.String("feed", "", "Path or http(s) URL of the feed document")
	score      = flag.Int("score", 0, "Score to evaluate")
	modeFlag   = flag.String("mode", "linear", "Projection mode: off, linear, moving-average, polynomial")
	asOfFlag   = flag.String("asof", "", "Reference date (YYYY-MM-DD), defaults to the latest round")
	categories = flag.String("categories", "", "Comma-separated categories, empty for all")
	lookback   = flag.Duration("lookback", 0, "Only consider rounds within this window before the reference date")
	jsonOut    = flag.Bool("json", false, "Print the report as JSON")
	showPoints = flag.Bool("points", false, "Print projection points")
	logLevel   = flag.String("log-level", "warn", "Log level")
)

func main() {
	flag.Parse()
	logger.InitWithOutput(*logLevel, "text", os.Stderr)

	if *feedPath == "" {
		fmt.Fprintln(os.Stderr, "forecast: -feed is required")
		flag.Usage()
		os.Exit(2)
	}

	mode, err := projection.ParseMode(*modeFlag)
	if err != nil {
		logger.Fatal("Invalid mode: %v", err)
	}

	var asOf time.Time
	if *asOfFlag != "" {
		asOf, err = models.ParseDate(*asOfFlag)
		if err != nil {
			logger.Fatal("Invalid -asof: %v", err)
		}
	}

	f, err := loadFeed(*feedPath)
	if err != nil {
		logger.Fatal("Failed to load feed: %v", err)
	}
	if f.Skipped > 0 {
		logger.Warn("Skipped %d invalid feed entries", f.Skipped)
	}

	profile := tracker.Profile{
		Score:      *score,
		Mode:       mode,
		Categories: splitCategories(*categories),
		Lookback:   *lookback,
	}
	report, catErrs := tracker.New(nil).Evaluate(f.Rounds, f.Snapshots, profile, asOf)
	for _, catErr := range catErrs {
		logger.Warn("%v", catErr)
	}

	if *jsonOut {
		err = printJSON(os.Stdout, report)
	} else {
		printReport(os.Stdout, report, *showPoints)
	}
	if err != nil {
		logger.Fatal("Failed to write report: %v", err)
	}
}

func loadFeed(path string) (*feed.Feed, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		return feed.NewClient(path, 30*time.Second, feed.ClientConfig{}).Fetch(ctx)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return feed.Decode(file)
}

func splitCategories(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

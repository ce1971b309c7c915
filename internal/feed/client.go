// Package feed fetches and decodes the draw feed: historical invitation rounds and
// candidate-pool distribution snapshots published as a single JSON document.
//
//	{
//	  "rounds":        [{"date": "2024-01-01", "category": "general", "score": 480, "invitations": 3000}],
//	  "distributions": [{"date": "2024-03-01", "total": 10000, "bands": [{"min": 601, "count": 100}, ...]}]
//	}
//
// Entries that fail validation are skipped and counted rather than failing the fetch.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rewired-gh/drawcast/internal/logger"
	"github.com/rewired-gh/drawcast/internal/models"
)

// ErrBadStatus is returned for non-retryable HTTP responses.
var ErrBadStatus = errors.New("unexpected feed status")

// ClientConfig holds retry and transport tuning
type ClientConfig struct {
	MaxRetries     int
	RetryDelayBase time.Duration
}

// Client provides access to the draw feed
type Client struct {
	url        string
	httpClient *http.Client
	config     ClientConfig
}

// Feed is a decoded feed document
type Feed struct {
	Rounds    []models.Round
	Snapshots []models.DistributionSnapshot
	Skipped   int // Entries dropped for failing validation
}

type wireRound struct {
	Date        string `json:"date"`
	Category    string `json:"category"`
	Score       int    `json:"score"`
	Invitations int    `json:"invitations"`
}

type wireDistribution struct {
	Date  string        `json:"date"`
	Total int           `json:"total"`
	Bands []models.Band `json:"bands"`
}

type wireFeed struct {
	Rounds        []wireRound        `json:"rounds"`
	Distributions []wireDistribution `json:"distributions"`
}

// NewClient creates a new feed client
func NewClient(url string, timeout time.Duration, cfg ClientConfig) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

// Fetch downloads and decodes the feed
func (c *Client) Fetch(ctx context.Context) (*Feed, error) {
	resp, err := c.doRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	f, err := Decode(resp.Body)
	if err != nil {
		return nil, err
	}
	if f.Skipped > 0 {
		logger.Warn("Feed contained %d invalid entries, skipped", f.Skipped)
	}
	logger.Debug("Decoded feed: %d rounds, %d distributions", len(f.Rounds), len(f.Snapshots))
	return f, nil
}

// Decode parses a feed document from r
func Decode(r io.Reader) (*Feed, error) {
	var wf wireFeed
	if err := json.NewDecoder(r).Decode(&wf); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}

	f := &Feed{}
	for _, wr := range wf.Rounds {
		date, err := models.ParseDate(wr.Date)
		if err != nil {
			f.Skipped++
			continue
		}
		round := models.Round{
			Category:    wr.Category,
			Date:        date,
			Score:       wr.Score,
			Invitations: wr.Invitations,
		}
		if round.Validate() != nil {
			f.Skipped++
			continue
		}
		f.Rounds = append(f.Rounds, round)
	}

	for _, wd := range wf.Distributions {
		date, err := models.ParseDate(wd.Date)
		if err != nil {
			f.Skipped++
			continue
		}
		snap := models.DistributionSnapshot{AsOf: date, Bands: wd.Bands, Total: wd.Total}
		if snap.Validate() != nil {
			f.Skipped++
			continue
		}
		f.Snapshots = append(f.Snapshots, snap)
	}
	return f, nil
}

// doRequest performs the HTTP request with linear-backoff retry on transport
// errors and 5xx responses
func (c *Client) doRequest(ctx context.Context) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.config.MaxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelayBase * time.Duration(i)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			logger.Debug("Feed request attempt %d failed: %v", i+1, err)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			logger.Debug("Feed request attempt %d failed: %v", i+1, lastErr)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// internal/service/symbolsync/sync.go

package symbolsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"tickerpulse/internal/domain/symbol"
)

const (
	defaultNasdaqURL = "https://www.nasdaqtrader.com/dynamic/SymDir/nasdaqlisted.txt"
	defaultOtherURL  = "https://www.nasdaqtrader.com/dynamic/SymDir/otherlisted.txt"

	// The directory files end with a "File Creation Time" trailer row.
	footerPrefix = "File Creation Time"

	maxListingBytes = 10 << 20
)

// exchangeNames maps the single-letter exchange codes used in the combined
// directory file to readable names.
var exchangeNames = map[string]string{
	"A": "NYSE American",
	"N": "NYSE",
	"P": "NYSE Arca",
	"Z": "BATS",
	"V": "IEX",
}

// Config tunes a directory sync. Zero values take defaults.
type Config struct {
	NasdaqURL  string
	OtherURL   string
	MaxRetries uint64
}

// SourceReport is one listing file's share of a sync run.
type SourceReport struct {
	Source   string `json:"source"`
	Listings int    `json:"listings"`
	Error    string `json:"error,omitempty"`

	err error
}

// Report summarizes a sync run.
type Report struct {
	Sources []SourceReport `json:"sources"`
	Unique  int            `json:"unique"`
	Elapsed time.Duration  `json:"elapsed"`
}

// Syncer refreshes the symbol directory from the exchange listing files.
type Syncer struct {
	client *http.Client
	store  symbol.Store
	cfg    Config
	log    *zap.Logger
	skip   map[string]struct{}
	now    func() time.Time
}

// NewSyncer creates a syncer. Stoplisted tokens never enter the directory, so
// the extractor cannot match them even before the dictionary filter runs.
func NewSyncer(client *http.Client, store symbol.Store, cfg Config, log *zap.Logger) *Syncer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.NasdaqURL == "" {
		cfg.NasdaqURL = defaultNasdaqURL
	}
	if cfg.OtherURL == "" {
		cfg.OtherURL = defaultOtherURL
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	skip := make(map[string]struct{})
	for _, s := range symbol.DefaultStoplist() {
		skip[s] = struct{}{}
	}

	return &Syncer{
		client: client,
		store:  store,
		cfg:    cfg,
		log:    log,
		skip:   skip,
		now:    time.Now,
	}
}

// Run fetches both listing files, merges them by ticker, and replaces the
// directory contents. If every source fails the existing directory is left
// untouched and an error is returned.
func (s *Syncer) Run(ctx context.Context) (Report, error) {
	started := s.now()
	fetchedAt := started.UTC()

	report := Report{}
	merged := make(map[string]symbol.Listing)
	var order []string

	sources := []struct {
		name  string
		url   string
		parse func(string, time.Time) []symbol.Listing
	}{
		{"nasdaq", s.cfg.NasdaqURL, s.parseNasdaq},
		{"other", s.cfg.OtherURL, s.parseOther},
	}

	for _, src := range sources {
		sr := SourceReport{Source: src.name}

		body, err := s.fetch(ctx, src.url)
		if err != nil {
			sr.err = err
			sr.Error = err.Error()
			s.log.Error("listing source fetch failed", zap.String("source", src.name), zap.Error(err))
			report.Sources = append(report.Sources, sr)
			continue
		}

		listings := src.parse(body, fetchedAt)
		sr.Listings = len(listings)
		report.Sources = append(report.Sources, sr)
		s.log.Info("listing source fetched", zap.String("source", src.name), zap.Int("listings", len(listings)))

		for _, l := range listings {
			if _, ok := merged[l.Ticker]; ok {
				continue
			}
			merged[l.Ticker] = l
			order = append(order, l.Ticker)
		}
	}

	failed := 0
	for _, sr := range report.Sources {
		if sr.err != nil {
			failed++
		}
	}
	if failed == len(sources) {
		report.Elapsed = s.now().Sub(started)
		return report, errors.New("all listing sources failed, keeping existing directory")
	}

	listings := make([]symbol.Listing, 0, len(merged))
	for _, ticker := range order {
		listings = append(listings, merged[ticker])
	}
	report.Unique = len(listings)

	if err := s.store.ReplaceAll(ctx, listings); err != nil {
		report.Elapsed = s.now().Sub(started)
		return report, fmt.Errorf("replacing symbol directory: %w", err)
	}

	report.Elapsed = s.now().Sub(started)
	s.log.Info("symbol directory refreshed", zap.Int("unique", report.Unique))
	return report, nil
}

// parseNasdaq reads the NASDAQ-listed file:
// Symbol|Security Name|Market Category|Test Issue|Financial Status|...
func (s *Syncer) parseNasdaq(body string, fetchedAt time.Time) []symbol.Listing {
	var listings []symbol.Listing

	for _, line := range dataLines(body) {
		parts := strings.Split(line, "|")
		if len(parts) < 2 {
			continue
		}
		ticker := strings.ToUpper(strings.TrimSpace(parts[0]))
		name := strings.TrimSpace(parts[1])

		if ticker == "" || s.skipTicker(ticker) {
			continue
		}
		if len(parts) >= 4 && strings.TrimSpace(parts[3]) == "Y" {
			// Test issue, not a tradable security.
			continue
		}

		listings = append(listings, symbol.Listing{
			Ticker:    ticker,
			Name:      name,
			Exchange:  "NASDAQ",
			UpdatedAt: fetchedAt,
		})
	}
	return listings
}

// parseOther reads the combined non-NASDAQ file:
// ACT Symbol|Security Name|Exchange|CQS Symbol|ETF|Round Lot Size|Test Issue|...
func (s *Syncer) parseOther(body string, fetchedAt time.Time) []symbol.Listing {
	var listings []symbol.Listing

	for _, line := range dataLines(body) {
		parts := strings.Split(line, "|")
		if len(parts) < 3 {
			continue
		}
		ticker := strings.ToUpper(strings.TrimSpace(parts[0]))
		name := strings.TrimSpace(parts[1])
		exchange := strings.TrimSpace(parts[2])

		if ticker == "" || s.skipTicker(ticker) {
			continue
		}
		if len(parts) >= 7 && strings.TrimSpace(parts[6]) == "Y" {
			continue
		}

		if full, ok := exchangeNames[exchange]; ok {
			exchange = full
		}

		listings = append(listings, symbol.Listing{
			Ticker:    ticker,
			Name:      name,
			Exchange:  exchange,
			UpdatedAt: fetchedAt,
		})
	}
	return listings
}

func (s *Syncer) skipTicker(ticker string) bool {
	_, ok := s.skip[ticker]
	return ok
}

// dataLines strips the header row and the creation-time trailer.
func dataLines(body string) []string {
	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) <= 1 {
		return nil
	}

	var out []string
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, footerPrefix) {
			break
		}
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func (s *Syncer) fetch(ctx context.Context, url string) (string, error) {
	var body string

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("listing source returned status %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("listing source returned status %d", resp.StatusCode))
		}

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxListingBytes))
		if err != nil {
			return fmt.Errorf("reading listing body: %w", err)
		}
		body = string(raw)
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.cfg.MaxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}
	return body, nil
}

// internal/service/aggregate/aggregator.go

package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tickerpulse/internal/domain/content"
	"tickerpulse/internal/domain/mention"
	"tickerpulse/internal/domain/trend"
)

const defaultPageSize = 500

// Config tunes a single aggregator instance.
type Config struct {
	// PageSize bounds each mention scan page.
	PageSize int

	// ByCommunity additionally produces community-scoped snapshots alongside
	// the all-communities rows.
	ByCommunity bool
}

// PeriodResult reports the outcome of one period's aggregation.
type PeriodResult struct {
	Period        trend.Period `json:"period"`
	UniqueTickers int          `json:"unique_tickers"`
	TotalMentions int          `json:"total_mentions"`
	Snapshots     int          `json:"snapshots"`
	Err           error        `json:"-"`
	Error         string       `json:"error,omitempty"`
}

// Result summarizes one aggregation run. Periods fail independently: a scan or
// write error for one window never aborts the others.
type Result struct {
	RunID     string                        `json:"run_id"`
	StartedAt time.Time                     `json:"started_at"`
	Duration  time.Duration                 `json:"duration"`
	Periods   map[trend.Period]PeriodResult `json:"periods"`
}

// Failed reports whether any period ended in error.
func (r Result) Failed() bool {
	for _, pr := range r.Periods {
		if pr.Err != nil {
			return true
		}
	}
	return false
}

// Aggregator periodically compresses the mention log into per-window trend
// snapshots. Each run fully recomputes every snapshot, so re-running against
// an unchanged log reproduces identical results.
type Aggregator struct {
	mentions  mention.Store
	snapshots trend.Store
	cfg       Config
	log       *zap.Logger
	now       func() time.Time
}

// NewAggregator creates an aggregator over the given stores.
func NewAggregator(mentions mention.Store, snapshots trend.Store, cfg Config, log *zap.Logger) *Aggregator {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	return &Aggregator{
		mentions:  mentions,
		snapshots: snapshots,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Run aggregates every period once and returns the per-period outcome.
func (a *Aggregator) Run(ctx context.Context) Result {
	started := a.now()
	result := Result{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Periods:   make(map[trend.Period]PeriodResult, len(trend.Periods())),
	}

	for _, period := range trend.Periods() {
		if err := ctx.Err(); err != nil {
			result.Periods[period] = PeriodResult{Period: period, Err: err, Error: err.Error()}
			continue
		}

		pr, err := a.aggregatePeriod(ctx, period, started)
		if err != nil {
			a.log.Error("period aggregation failed",
				zap.String("run_id", result.RunID),
				zap.String("period", string(period)),
				zap.Error(err))
			pr = PeriodResult{Period: period, Err: err, Error: err.Error()}
		} else {
			a.log.Info("period aggregated",
				zap.String("run_id", result.RunID),
				zap.String("period", string(period)),
				zap.Int("unique_tickers", pr.UniqueTickers),
				zap.Int("total_mentions", pr.TotalMentions),
				zap.Int("snapshots", pr.Snapshots))
		}
		result.Periods[period] = pr
	}

	result.Duration = a.now().Sub(started)
	return result
}

type counterKey struct {
	ticker    string
	community string
}

type counters struct {
	threads  int
	comments int
}

// aggregatePeriod scans every mention inside the period's window, following
// the store's continuation cursor to exhaustion, and persists one snapshot per
// grouping key. The window's lower bound is inclusive.
func (a *Aggregator) aggregatePeriod(ctx context.Context, period trend.Period, now time.Time) (PeriodResult, error) {
	windowStart := now.Add(-period.Duration())

	groups := make(map[counterKey]counters)
	total := 0

	cursor := ""
	for {
		page, err := a.mentions.Scan(ctx, windowStart, cursor, a.cfg.PageSize)
		if err != nil {
			return PeriodResult{}, fmt.Errorf("scanning mentions for %s: %w", period, err)
		}

		for _, m := range page.Mentions {
			total++
			a.record(groups, counterKey{ticker: m.Ticker}, m.Kind)
			if a.cfg.ByCommunity {
				a.record(groups, counterKey{ticker: m.Ticker, community: m.Community}, m.Kind)
			}
		}

		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	snapshots := buildSnapshots(period, groups, now)
	if len(snapshots) > 0 {
		if err := a.snapshots.PutBatch(ctx, snapshots); err != nil {
			return PeriodResult{}, fmt.Errorf("writing snapshots for %s: %w", period, err)
		}
	}

	unique := 0
	for key := range groups {
		if key.community == "" {
			unique++
		}
	}

	return PeriodResult{
		Period:        period,
		UniqueTickers: unique,
		TotalMentions: total,
		Snapshots:     len(snapshots),
	}, nil
}

func (a *Aggregator) record(groups map[counterKey]counters, key counterKey, kind content.Kind) {
	c := groups[key]
	if kind == content.KindComment {
		c.comments++
	} else {
		c.threads++
	}
	groups[key] = c
}

// buildSnapshots materializes the grouped counters in a deterministic order
// (ticker, then community) so identical runs produce identical write batches.
func buildSnapshots(period trend.Period, groups map[counterKey]counters, now time.Time) []trend.Snapshot {
	keys := make([]counterKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ticker != keys[j].ticker {
			return keys[i].ticker < keys[j].ticker
		}
		return keys[i].community < keys[j].community
	})

	snapshots := make([]trend.Snapshot, 0, len(keys))
	for _, key := range keys {
		c := groups[key]
		snapshots = append(snapshots, trend.Snapshot{
			Period:       period,
			Ticker:       key.ticker,
			Community:    key.community,
			ThreadCount:  c.threads,
			CommentCount: c.comments,
			Total:        c.threads + c.comments,
			ComputedAt:   now,
		})
	}
	return snapshots
}

// TopK returns the k highest-total snapshots. Ties are broken by ticker in
// lexical order so rankings are stable across runs.
func TopK(snapshots []trend.Snapshot, k int) []trend.Snapshot {
	ranked := make([]trend.Snapshot, len(snapshots))
	copy(ranked, snapshots)

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Total != ranked[j].Total {
			return ranked[i].Total > ranked[j].Total
		}
		return ranked[i].Ticker < ranked[j].Ticker
	})

	if k > 0 && k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}

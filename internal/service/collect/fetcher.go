// internal/service/collect/fetcher.go

package collect

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"tickerpulse/internal/domain/content"
)

// Feed supplies new content from one community of the social platform.
type Feed interface {
	NewPosts(ctx context.Context, community string, limit int) ([]content.Record, error)
	NewComments(ctx context.Context, community string, limit int) ([]content.Record, error)
}

// WatermarkStore tracks the newest origin timestamp already fetched per
// community, so fetch cycles only publish content they have not seen.
type WatermarkStore interface {
	LastFetch(ctx context.Context, community string) (time.Time, error)
	SetLastFetch(ctx context.Context, community string, t time.Time) error
}

// Publisher pushes raw content records onto the processing queue. The NATS
// connection satisfies this directly.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// FetcherConfig tunes a fetch cycle.
type FetcherConfig struct {
	Communities      []string
	PostsPerFetch    int
	CommentsPerFetch int
	Subject          string
}

// CommunityStats reports one community's share of a fetch cycle.
type CommunityStats struct {
	Community string `json:"community"`
	Posts     int    `json:"posts"`
	Comments  int    `json:"comments"`
	Published int    `json:"published"`
	Error     string `json:"error,omitempty"`

	err error
}

// CycleStats summarizes a whole fetch cycle. Communities fail independently.
type CycleStats struct {
	Communities []CommunityStats `json:"communities"`
	Published   int              `json:"published"`
	Failures    int              `json:"failures"`
	Elapsed     time.Duration    `json:"elapsed"`
}

// Fetcher pulls new content from the upstream feed and publishes it to the
// processing queue, advancing a per-community watermark as it goes.
type Fetcher struct {
	feed       Feed
	watermarks WatermarkStore
	bus        Publisher
	cfg        FetcherConfig
	log        *zap.Logger
	now        func() time.Time
}

// NewFetcher creates a fetcher.
func NewFetcher(feed Feed, watermarks WatermarkStore, bus Publisher, cfg FetcherConfig, log *zap.Logger) *Fetcher {
	if cfg.PostsPerFetch <= 0 {
		cfg.PostsPerFetch = 100
	}
	if cfg.CommentsPerFetch <= 0 {
		cfg.CommentsPerFetch = 100
	}
	return &Fetcher{
		feed:       feed,
		watermarks: watermarks,
		bus:        bus,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// RunCycle fetches every configured community once. One community's failure is
// recorded in its stats and never aborts the rest of the cycle.
func (f *Fetcher) RunCycle(ctx context.Context) CycleStats {
	started := f.now()
	stats := CycleStats{}

	for _, community := range f.cfg.Communities {
		cs := f.fetchCommunity(ctx, community)
		if cs.err != nil {
			cs.Error = cs.err.Error()
			stats.Failures++
			f.log.Error("community fetch failed", zap.String("community", community), zap.Error(cs.err))
		} else {
			f.log.Info("community fetched",
				zap.String("community", community),
				zap.Int("posts", cs.Posts),
				zap.Int("comments", cs.Comments),
				zap.Int("published", cs.Published))
		}
		stats.Published += cs.Published
		stats.Communities = append(stats.Communities, cs)
	}

	stats.Elapsed = f.now().Sub(started)
	return stats
}

func (f *Fetcher) fetchCommunity(ctx context.Context, community string) CommunityStats {
	cs := CommunityStats{Community: community}

	watermark, err := f.watermarks.LastFetch(ctx, community)
	if err != nil {
		f.log.Warn("watermark unavailable", zap.String("community", community), zap.Error(err))
	}
	if watermark.IsZero() {
		// First cycle for this community, or the store is down. Start one
		// hour back rather than ingesting the whole listing history.
		watermark = f.now().Add(-time.Hour)
	}
	latest := watermark

	posts, err := f.feed.NewPosts(ctx, community, f.cfg.PostsPerFetch)
	if err != nil {
		cs.err = err
		return cs
	}

	comments, err := f.feed.NewComments(ctx, community, f.cfg.CommentsPerFetch)
	if err != nil {
		cs.err = err
		return cs
	}

	for _, rec := range posts {
		if !rec.OccurredAt.After(watermark) {
			continue
		}
		cs.Posts++
		if f.publish(rec) {
			cs.Published++
		}
		if rec.OccurredAt.After(latest) {
			latest = rec.OccurredAt
		}
	}

	for _, rec := range comments {
		if !rec.OccurredAt.After(watermark) {
			continue
		}
		cs.Comments++
		if f.publish(rec) {
			cs.Published++
		}
		if rec.OccurredAt.After(latest) {
			latest = rec.OccurredAt
		}
	}

	if latest.After(watermark) {
		if err := f.watermarks.SetLastFetch(ctx, community, latest); err != nil {
			f.log.Error("failed to advance watermark",
				zap.String("community", community), zap.Error(err))
		}
	}

	return cs
}

// publish serializes one record onto the queue. A failed publish drops the
// record; mention inserts are idempotent so re-publishing is always safe.
func (f *Fetcher) publish(rec content.Record) bool {
	payload, err := json.Marshal(rec)
	if err != nil {
		f.log.Error("failed to encode content record", zap.String("source_id", rec.SourceID), zap.Error(err))
		return false
	}
	if err := f.bus.Publish(f.cfg.Subject, payload); err != nil {
		f.log.Error("failed to publish content record", zap.String("source_id", rec.SourceID), zap.Error(err))
		return false
	}
	return true
}

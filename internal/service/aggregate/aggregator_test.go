package aggregate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tickerpulse/internal/domain/content"
	"tickerpulse/internal/domain/mention"
	"tickerpulse/internal/domain/trend"
)

// fakeMentionStore serves a fixed mention log with cursor pagination.
type fakeMentionStore struct {
	mentions []mention.Mention
	failFor  map[time.Time]error
	scans    int
}

func (s *fakeMentionStore) Put(ctx context.Context, m mention.Mention) (mention.PutOutcome, error) {
	s.mentions = append(s.mentions, m)
	return mention.OutcomeInserted, nil
}

func (s *fakeMentionStore) Scan(ctx context.Context, minOccurredAt time.Time, cursor string, pageSize int) (mention.Page, error) {
	s.scans++
	if err, ok := s.failFor[minOccurredAt]; ok {
		return mention.Page{}, err
	}

	var matched []mention.Mention
	for _, m := range s.mentions {
		if !m.OccurredAt.Before(minOccurredAt) {
			matched = append(matched, m)
		}
	}

	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	page := mention.Page{Mentions: matched[start:end]}
	if end < len(matched) {
		page.Cursor = strconv.Itoa(end)
	}
	return page, nil
}

func (s *fakeMentionStore) ListByTicker(ctx context.Context, ticker string, since time.Time, limit int) ([]mention.Mention, error) {
	return nil, nil
}

// fakeSnapshotStore records every batch it receives.
type fakeSnapshotStore struct {
	batches   [][]trend.Snapshot
	snapshots map[string]trend.Snapshot
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{snapshots: make(map[string]trend.Snapshot)}
}

func (s *fakeSnapshotStore) PutBatch(ctx context.Context, snapshots []trend.Snapshot) error {
	batch := make([]trend.Snapshot, len(snapshots))
	copy(batch, snapshots)
	s.batches = append(s.batches, batch)
	for _, snap := range snapshots {
		key := fmt.Sprintf("%s|%s|%s", snap.Period, snap.Ticker, snap.Community)
		s.snapshots[key] = snap
	}
	return nil
}

func (s *fakeSnapshotStore) Top(ctx context.Context, period trend.Period, community string, limit int) ([]trend.Snapshot, error) {
	return nil, nil
}

func testMention(ticker, community string, kind content.Kind, occurredAt time.Time) mention.Mention {
	return mention.Mention{
		Ticker:     ticker,
		Community:  community,
		SourceID:   fmt.Sprintf("%s-%d", ticker, occurredAt.UnixNano()),
		Kind:       kind,
		OccurredAt: occurredAt,
	}
}

func newTestAggregator(mentions mention.Store, snapshots trend.Store, cfg Config, now time.Time) *Aggregator {
	a := NewAggregator(mentions, snapshots, cfg, zap.NewNop())
	a.now = func() time.Time { return now }
	return a
}

func TestRunGroupsByTickerAndKind(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ms := &fakeMentionStore{mentions: []mention.Mention{
		testMention("TSLA", "stocks", content.KindThread, now.Add(-time.Hour)),
		testMention("TSLA", "stocks", content.KindComment, now.Add(-2*time.Hour)),
		testMention("TSLA", "investing", content.KindComment, now.Add(-3*time.Hour)),
		testMention("NVDA", "stocks", content.KindThread, now.Add(-time.Hour)),
	}}
	ss := newFakeSnapshotStore()

	result := newTestAggregator(ms, ss, Config{}, now).Run(context.Background())
	require.False(t, result.Failed())

	tsla := ss.snapshots["24h|TSLA|"]
	assert.Equal(t, 1, tsla.ThreadCount)
	assert.Equal(t, 2, tsla.CommentCount)
	assert.Equal(t, 3, tsla.Total)
	assert.Equal(t, tsla.ThreadCount+tsla.CommentCount, tsla.Total)

	nvda := ss.snapshots["24h|NVDA|"]
	assert.Equal(t, 1, nvda.ThreadCount)
	assert.Equal(t, 0, nvda.CommentCount)

	pr := result.Periods[trend.Period24h]
	assert.Equal(t, 2, pr.UniqueTickers)
	assert.Equal(t, 4, pr.TotalMentions)
}

func TestRunCommunityScopedSnapshots(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ms := &fakeMentionStore{mentions: []mention.Mention{
		testMention("TSLA", "stocks", content.KindThread, now.Add(-time.Hour)),
		testMention("TSLA", "investing", content.KindComment, now.Add(-time.Hour)),
	}}
	ss := newFakeSnapshotStore()

	result := newTestAggregator(ms, ss, Config{ByCommunity: true}, now).Run(context.Background())
	require.False(t, result.Failed())

	assert.Equal(t, 2, ss.snapshots["24h|TSLA|"].Total)
	assert.Equal(t, 1, ss.snapshots["24h|TSLA|stocks"].Total)
	assert.Equal(t, 1, ss.snapshots["24h|TSLA|investing"].Total)

	// Unique tickers counts the all-communities rows only.
	assert.Equal(t, 1, result.Periods[trend.Period24h].UniqueTickers)
}

func TestRunWindowBoundaryInclusive(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ms := &fakeMentionStore{mentions: []mention.Mention{
		// Exactly at the 24h boundary: included.
		testMention("TSLA", "stocks", content.KindThread, now.Add(-24*time.Hour)),
		// One second past the boundary: excluded from 24h, included in 7d.
		testMention("NVDA", "stocks", content.KindThread, now.Add(-24*time.Hour-time.Second)),
	}}
	ss := newFakeSnapshotStore()

	result := newTestAggregator(ms, ss, Config{}, now).Run(context.Background())
	require.False(t, result.Failed())

	assert.Equal(t, 1, result.Periods[trend.Period24h].TotalMentions)
	assert.Equal(t, 2, result.Periods[trend.Period7d].TotalMentions)
	assert.Equal(t, 1, ss.snapshots["24h|TSLA|"].Total)
	assert.NotContains(t, ss.snapshots, "24h|NVDA|")
	assert.Equal(t, 1, ss.snapshots["7d|NVDA|"].Total)
}

func TestRunFollowsPaginationToExhaustion(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ms := &fakeMentionStore{}
	for i := 0; i < 7; i++ {
		ms.mentions = append(ms.mentions,
			testMention("TSLA", "stocks", content.KindComment, now.Add(-time.Duration(i+1)*time.Minute)))
	}
	ss := newFakeSnapshotStore()

	result := newTestAggregator(ms, ss, Config{PageSize: 2}, now).Run(context.Background())
	require.False(t, result.Failed())

	// All seven mentions counted even though each scan page held only two.
	assert.Equal(t, 7, ss.snapshots["24h|TSLA|"].Total)
	// 4 pages per period, 3 periods.
	assert.Equal(t, 12, ms.scans)
}

func TestRunIdempotent(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ms := &fakeMentionStore{mentions: []mention.Mention{
		testMention("TSLA", "stocks", content.KindThread, now.Add(-time.Hour)),
		testMention("NVDA", "stocks", content.KindComment, now.Add(-time.Hour)),
	}}

	first := newFakeSnapshotStore()
	newTestAggregator(ms, first, Config{}, now).Run(context.Background())

	second := newFakeSnapshotStore()
	newTestAggregator(ms, second, Config{}, now).Run(context.Background())

	assert.Equal(t, first.snapshots, second.snapshots)
	assert.Equal(t, first.batches, second.batches)
}

func TestRunPeriodFailureIsolated(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	scanErr := errors.New("store unavailable")
	ms := &fakeMentionStore{
		mentions: []mention.Mention{
			testMention("TSLA", "stocks", content.KindThread, now.Add(-time.Hour)),
		},
		failFor: map[time.Time]error{
			now.Add(-trend.Period7d.Duration()): scanErr,
		},
	}
	ss := newFakeSnapshotStore()

	result := newTestAggregator(ms, ss, Config{}, now).Run(context.Background())

	assert.True(t, result.Failed())
	require.ErrorIs(t, result.Periods[trend.Period7d].Err, scanErr)
	assert.NotEmpty(t, result.Periods[trend.Period7d].Error)

	// The other periods completed and persisted their snapshots.
	assert.NoError(t, result.Periods[trend.Period24h].Err)
	assert.NoError(t, result.Periods[trend.Period30d].Err)
	assert.Contains(t, ss.snapshots, "24h|TSLA|")
	assert.Contains(t, ss.snapshots, "30d|TSLA|")
}

func TestRunCancelledContext(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ms := &fakeMentionStore{}
	ss := newFakeSnapshotStore()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := newTestAggregator(ms, ss, Config{}, now).Run(ctx)
	assert.True(t, result.Failed())
	assert.Empty(t, ss.snapshots)
}

func TestTopKRanking(t *testing.T) {
	snapshots := []trend.Snapshot{
		{Ticker: "NVDA", Total: 5},
		{Ticker: "AAPL", Total: 9},
		{Ticker: "TSLA", Total: 5},
		{Ticker: "GME", Total: 1},
	}

	top := TopK(snapshots, 3)
	require.Len(t, top, 3)
	assert.Equal(t, "AAPL", top[0].Ticker)
	// Equal totals rank lexically.
	assert.Equal(t, "NVDA", top[1].Ticker)
	assert.Equal(t, "TSLA", top[2].Ticker)

	// Input order is untouched.
	assert.Equal(t, "NVDA", snapshots[0].Ticker)
}

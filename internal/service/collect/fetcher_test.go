package collect

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tickerpulse/internal/domain/content"
)

type fakeFeed struct {
	posts    map[string][]content.Record
	comments map[string][]content.Record
	err      map[string]error
}

func (f *fakeFeed) NewPosts(ctx context.Context, community string, limit int) ([]content.Record, error) {
	if err := f.err[community]; err != nil {
		return nil, err
	}
	return f.posts[community], nil
}

func (f *fakeFeed) NewComments(ctx context.Context, community string, limit int) ([]content.Record, error) {
	if err := f.err[community]; err != nil {
		return nil, err
	}
	return f.comments[community], nil
}

type fakeWatermarks struct {
	marks map[string]time.Time
	errOn string
}

func (w *fakeWatermarks) LastFetch(ctx context.Context, community string) (time.Time, error) {
	if community == w.errOn {
		return time.Time{}, errors.New("metadata store unavailable")
	}
	return w.marks[community], nil
}

func (w *fakeWatermarks) SetLastFetch(ctx context.Context, community string, t time.Time) error {
	w.marks[community] = t
	return nil
}

type fakeBus struct {
	published []content.Record
	subjects  []string
}

func (b *fakeBus) Publish(subject string, data []byte) error {
	var rec content.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	b.published = append(b.published, rec)
	b.subjects = append(b.subjects, subject)
	return nil
}

func threadRecord(id, community string, occurredAt time.Time) content.Record {
	return content.Record{
		SourceID:   id,
		Kind:       content.KindThread,
		Community:  community,
		Title:      "title " + id,
		Body:       "body",
		OccurredAt: occurredAt,
	}
}

func commentRecord(id, community string, occurredAt time.Time) content.Record {
	return content.Record{
		SourceID:   id,
		ParentID:   "parent",
		Kind:       content.KindComment,
		Community:  community,
		Body:       "body",
		OccurredAt: occurredAt,
	}
}

func TestRunCycleSkipsRecordsAtOrBeforeWatermark(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mark := now.Add(-30 * time.Minute)

	feed := &fakeFeed{
		posts: map[string][]content.Record{"stocks": {
			threadRecord("new1", "stocks", now.Add(-10*time.Minute)),
			threadRecord("atmark", "stocks", mark),
			threadRecord("old", "stocks", now.Add(-2*time.Hour)),
		}},
		comments: map[string][]content.Record{"stocks": {
			commentRecord("c1", "stocks", now.Add(-5*time.Minute)),
		}},
	}
	marks := &fakeWatermarks{marks: map[string]time.Time{"stocks": mark}}
	bus := &fakeBus{}

	f := NewFetcher(feed, marks, bus, FetcherConfig{
		Communities: []string{"stocks"},
		Subject:     "content.reddit",
	}, zap.NewNop())
	f.now = func() time.Time { return now }

	stats := f.RunCycle(context.Background())

	assert.Equal(t, 2, stats.Published)
	assert.Zero(t, stats.Failures)
	require.Len(t, bus.published, 2)
	assert.Equal(t, "new1", bus.published[0].SourceID)
	assert.Equal(t, "c1", bus.published[1].SourceID)
	assert.Equal(t, "content.reddit", bus.subjects[0])

	// Watermark advanced to the newest record seen.
	assert.Equal(t, now.Add(-5*time.Minute), marks.marks["stocks"])
}

func TestRunCycleDefaultsWatermarkOnError(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	feed := &fakeFeed{
		posts: map[string][]content.Record{"stocks": {
			threadRecord("recent", "stocks", now.Add(-10*time.Minute)),
			threadRecord("stale", "stocks", now.Add(-3*time.Hour)),
		}},
		comments: map[string][]content.Record{},
	}
	marks := &fakeWatermarks{marks: map[string]time.Time{}, errOn: "stocks"}
	bus := &fakeBus{}

	f := NewFetcher(feed, marks, bus, FetcherConfig{Communities: []string{"stocks"}, Subject: "content"}, zap.NewNop())
	f.now = func() time.Time { return now }

	stats := f.RunCycle(context.Background())

	// Only the record inside the one-hour fallback window is published.
	assert.Equal(t, 1, stats.Published)
	require.Len(t, bus.published, 1)
	assert.Equal(t, "recent", bus.published[0].SourceID)
}

func TestRunCycleIsolatesCommunityFailures(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	feed := &fakeFeed{
		posts: map[string][]content.Record{"investing": {
			threadRecord("ok", "investing", now.Add(-time.Minute)),
		}},
		comments: map[string][]content.Record{},
		err:      map[string]error{"stocks": errors.New("rate limited")},
	}
	marks := &fakeWatermarks{marks: map[string]time.Time{
		"stocks":    now.Add(-time.Hour),
		"investing": now.Add(-time.Hour),
	}}
	bus := &fakeBus{}

	f := NewFetcher(feed, marks, bus, FetcherConfig{
		Communities: []string{"stocks", "investing"},
		Subject:     "content",
	}, zap.NewNop())
	f.now = func() time.Time { return now }

	stats := f.RunCycle(context.Background())

	assert.Equal(t, 1, stats.Failures)
	assert.Equal(t, 1, stats.Published)
	require.Len(t, stats.Communities, 2)
	assert.NotEmpty(t, stats.Communities[0].Error)
	assert.Empty(t, stats.Communities[1].Error)
}

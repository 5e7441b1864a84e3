package collect

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tickerpulse/internal/domain/content"
	"tickerpulse/internal/domain/dd"
	"tickerpulse/internal/domain/mention"
	"tickerpulse/internal/domain/symbol"
	"tickerpulse/internal/service/classify"
	"tickerpulse/internal/service/extract"
)

type fakeMentionStore struct {
	mentions []mention.Mention
	seen     map[string]bool
	putErr   error
}

func newFakeMentionStore() *fakeMentionStore {
	return &fakeMentionStore{seen: map[string]bool{}}
}

func (s *fakeMentionStore) Put(ctx context.Context, m mention.Mention) (mention.PutOutcome, error) {
	if s.putErr != nil {
		return 0, s.putErr
	}
	key := m.Ticker + "|" + m.SourceID
	if s.seen[key] {
		return mention.OutcomeAlreadyExists, nil
	}
	s.seen[key] = true
	s.mentions = append(s.mentions, m)
	return mention.OutcomeInserted, nil
}

func (s *fakeMentionStore) Scan(ctx context.Context, minOccurredAt time.Time, cursor string, pageSize int) (mention.Page, error) {
	return mention.Page{}, nil
}

func (s *fakeMentionStore) ListByTicker(ctx context.Context, ticker string, since time.Time, limit int) ([]mention.Mention, error) {
	return nil, nil
}

type fakeDDStore struct {
	posts []dd.Post
	seen  map[string]bool
}

func newFakeDDStore() *fakeDDStore {
	return &fakeDDStore{seen: map[string]bool{}}
}

func (s *fakeDDStore) Put(ctx context.Context, p dd.Post) (mention.PutOutcome, error) {
	if s.seen[p.SourceID] {
		return mention.OutcomeAlreadyExists, nil
	}
	s.seen[p.SourceID] = true
	s.posts = append(s.posts, p)
	return mention.OutcomeInserted, nil
}

func (s *fakeDDStore) List(ctx context.Context, f dd.Filter) ([]dd.Post, error) {
	return nil, nil
}

func newTestProcessor(t *testing.T, mentions mention.Store, ddPosts dd.Store) *Processor {
	t.Helper()
	dict := symbol.NewDictionary([]string{"TSLA", "AAPL", "GME"}, symbol.DefaultStoplist())
	return NewProcessor(
		extract.NewExtractor(dict),
		classify.NewClassifier(classify.Config{}),
		mentions,
		ddPosts,
		ProcessorConfig{Subject: "content.reddit"},
		zap.NewNop(),
	)
}

func TestProcessStoresMentionsForThread(t *testing.T) {
	mentions := newFakeMentionStore()
	p := newTestProcessor(t, mentions, newFakeDDStore())

	rec := content.Record{
		SourceID:   "abc123",
		Kind:       content.KindThread,
		Community:  "stocks",
		Title:      "Thoughts on $TSLA",
		Body:       "Picked up more shares today.",
		Author:     "trader1",
		Score:      42,
		URL:        "https://www.reddit.com/r/stocks/comments/abc123/",
		OccurredAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.Process(context.Background(), rec))

	require.Len(t, mentions.mentions, 1)
	m := mentions.mentions[0]
	assert.Equal(t, "TSLA", m.Ticker)
	assert.Equal(t, "abc123", m.SourceID)
	assert.Equal(t, "abc123", m.PostID)
	assert.Equal(t, content.KindThread, m.Kind)
	assert.Equal(t, "stocks", m.Community)
	assert.Equal(t, 42, m.Score)
	assert.InDelta(t, 0.99, m.Confidence, 1e-9)

	stats := p.Stats()
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Mentions)
	assert.Zero(t, stats.Duplicates)
}

func TestProcessCommentMentionPointsAtParentThread(t *testing.T) {
	mentions := newFakeMentionStore()
	p := newTestProcessor(t, mentions, newFakeDDStore())

	rec := content.Record{
		SourceID:   "comment9",
		ParentID:   "thread1",
		Kind:       content.KindComment,
		Community:  "wallstreetbets",
		Body:       "$GME to the top",
		Author:     "ape42",
		OccurredAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.Process(context.Background(), rec))

	require.Len(t, mentions.mentions, 1)
	assert.Equal(t, "comment9", mentions.mentions[0].SourceID)
	assert.Equal(t, "thread1", mentions.mentions[0].PostID)
}

func TestProcessCountsDuplicateMentions(t *testing.T) {
	mentions := newFakeMentionStore()
	p := newTestProcessor(t, mentions, newFakeDDStore())

	rec := content.Record{
		SourceID:   "abc123",
		Kind:       content.KindThread,
		Community:  "stocks",
		Title:      "$AAPL earnings",
		Body:       "Solid quarter.",
		OccurredAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.Process(context.Background(), rec))
	require.NoError(t, p.Process(context.Background(), rec))

	assert.Len(t, mentions.mentions, 1)
	stats := p.Stats()
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Mentions)
	assert.Equal(t, 1, stats.Duplicates)
}

func TestProcessSkipsInvalidRecord(t *testing.T) {
	mentions := newFakeMentionStore()
	p := newTestProcessor(t, mentions, newFakeDDStore())

	rec := content.Record{
		Kind:       content.KindThread,
		Community:  "stocks",
		Title:      "$TSLA",
		OccurredAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.Process(context.Background(), rec))

	assert.Empty(t, mentions.mentions)
	assert.Equal(t, 1, p.Stats().Skipped)
	assert.Zero(t, p.Stats().Processed)
}

func TestProcessStoresQualifyingDDPost(t *testing.T) {
	mentions := newFakeMentionStore()
	ddPosts := newFakeDDStore()
	p := newTestProcessor(t, mentions, ddPosts)

	body := "My thesis on $TSLA rests on a full valuation with a dcf model. " +
		"Revenue grew alongside earnings and margin expansion, with free cash flow " +
		"turning positive and debt falling each quarterly report. " +
		strings.Repeat("The balance sheet supports continued growth in every segment I reviewed. ", 8)

	rec := content.Record{
		SourceID:   "dd001",
		Kind:       content.KindThread,
		Community:  "SecurityAnalysis",
		Title:      "Deep Dive DD: Tesla valuation and analysis",
		Body:       body,
		Author:     "analyst",
		Score:      310,
		Comments:   57,
		OccurredAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.Process(context.Background(), rec))

	require.Len(t, ddPosts.posts, 1)
	post := ddPosts.posts[0]
	assert.Equal(t, "dd001", post.SourceID)
	assert.Equal(t, "TSLA", post.PrimaryTicker)
	assert.Equal(t, "SecurityAnalysis", post.Community)
	assert.Equal(t, 310, post.Upvotes)
	assert.Equal(t, 57, post.CommentCount)
	assert.Greater(t, post.QualityScore, 6)
	assert.Contains(t, post.Tags, "Valuation")
	assert.Equal(t, 1, p.Stats().DDPosts)
}

func TestProcessNeverClassifiesCommentsOrShortThreads(t *testing.T) {
	ddPosts := newFakeDDStore()
	p := newTestProcessor(t, newFakeMentionStore(), ddPosts)

	comment := content.Record{
		SourceID:   "c1",
		ParentID:   "t1",
		Kind:       content.KindComment,
		Community:  "SecurityAnalysis",
		Body:       "Great dd, my own valuation and dcf analysis agrees on every thesis point " + strings.Repeat("word ", 100),
		OccurredAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	short := content.Record{
		SourceID:   "t2",
		Kind:       content.KindThread,
		Community:  "SecurityAnalysis",
		Title:      "DD: quick valuation analysis",
		Body:       "Short thesis with a dcf and valuation and earnings and revenue and margin notes.",
		OccurredAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.Process(context.Background(), comment))
	require.NoError(t, p.Process(context.Background(), short))

	assert.Empty(t, ddPosts.posts)
	assert.Zero(t, p.Stats().DDPosts)
}

func TestProcessPropagatesStoreErrors(t *testing.T) {
	mentions := newFakeMentionStore()
	mentions.putErr = errors.New("connection reset")
	p := newTestProcessor(t, mentions, newFakeDDStore())

	rec := content.Record{
		SourceID:   "abc123",
		Kind:       content.KindThread,
		Community:  "stocks",
		Title:      "$TSLA",
		Body:       "body",
		OccurredAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	err := p.Process(context.Background(), rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storing mention")
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickerpulse/internal/domain/dd"
	"tickerpulse/internal/domain/mention"
	"tickerpulse/internal/domain/trend"
)

type fakeSnapshotStore struct {
	snapshots []trend.Snapshot
	err       error

	gotPeriod    trend.Period
	gotCommunity string
	gotLimit     int
}

func (s *fakeSnapshotStore) PutBatch(ctx context.Context, snapshots []trend.Snapshot) error {
	return nil
}

func (s *fakeSnapshotStore) Top(ctx context.Context, period trend.Period, community string, limit int) ([]trend.Snapshot, error) {
	s.gotPeriod = period
	s.gotCommunity = community
	s.gotLimit = limit
	return s.snapshots, s.err
}

type fakeMentionStore struct {
	mentions []mention.Mention

	gotTicker string
	gotSince  time.Time
	gotLimit  int
}

func (s *fakeMentionStore) Put(ctx context.Context, m mention.Mention) (mention.PutOutcome, error) {
	return mention.OutcomeInserted, nil
}

func (s *fakeMentionStore) Scan(ctx context.Context, minOccurredAt time.Time, cursor string, pageSize int) (mention.Page, error) {
	return mention.Page{}, nil
}

func (s *fakeMentionStore) ListByTicker(ctx context.Context, ticker string, since time.Time, limit int) ([]mention.Mention, error) {
	s.gotTicker = ticker
	s.gotSince = since
	s.gotLimit = limit
	return s.mentions, nil
}

type fakeDDStore struct {
	posts     []dd.Post
	gotFilter dd.Filter
}

func (s *fakeDDStore) Put(ctx context.Context, p dd.Post) (mention.PutOutcome, error) {
	return mention.OutcomeInserted, nil
}

func (s *fakeDDStore) List(ctx context.Context, f dd.Filter) ([]dd.Post, error) {
	s.gotFilter = f
	return s.posts, nil
}

func TestGetTrendingDefaultsAndLimitCap(t *testing.T) {
	store := &fakeSnapshotStore{snapshots: []trend.Snapshot{
		{Period: trend.Period24h, Ticker: "TSLA", Total: 12},
	}}
	h := NewTrendHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/trending?limit=5000", nil)
	rec := httptest.NewRecorder()
	h.GetTrending(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, trend.Period24h, store.gotPeriod)
	assert.Equal(t, "", store.gotCommunity)
	assert.Equal(t, maxLeaderboardLimit, store.gotLimit)

	var got []trend.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "TSLA", got[0].Ticker)
}

func TestGetTrendingRejectsUnknownPeriod(t *testing.T) {
	h := NewTrendHandler(&fakeSnapshotStore{})

	req := httptest.NewRequest(http.MethodGet, "/trending?period=12h", nil)
	rec := httptest.NewRecorder()
	h.GetTrending(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTrendingEmptyLeaderboardIsJSONArray(t *testing.T) {
	h := NewTrendHandler(&fakeSnapshotStore{})

	req := httptest.NewRequest(http.MethodGet, "/trending?period=7d", nil)
	rec := httptest.NewRecorder()
	h.GetTrending(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())
}

func TestGetTrendingStoreFailure(t *testing.T) {
	h := NewTrendHandler(&fakeSnapshotStore{err: errors.New("db down")})

	req := httptest.NewRequest(http.MethodGet, "/trending", nil)
	rec := httptest.NewRecorder()
	h.GetTrending(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetTickerMentionsUppercasesAndDefaults(t *testing.T) {
	store := &fakeMentionStore{}
	h := NewMentionHandler(store)

	router := chi.NewRouter()
	router.Get("/tickers/{ticker}/mentions", h.GetTickerMentions)

	req := httptest.NewRequest(http.MethodGet, "/tickers/tsla/mentions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "TSLA", store.gotTicker)
	assert.Equal(t, 50, store.gotLimit)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), store.gotSince, time.Minute)
}

func TestGetTickerMentionsSinceFilter(t *testing.T) {
	store := &fakeMentionStore{}
	h := NewMentionHandler(store)

	router := chi.NewRouter()
	router.Get("/tickers/{ticker}/mentions", h.GetTickerMentions)

	req := httptest.NewRequest(http.MethodGet, "/tickers/GME/mentions?since=2024-03-01T00:00:00Z&limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), store.gotSince)
	assert.Equal(t, 10, store.gotLimit)

	req = httptest.NewRequest(http.MethodGet, "/tickers/GME/mentions?since=yesterday", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDDPostsFilters(t *testing.T) {
	store := &fakeDDStore{posts: []dd.Post{{SourceID: "dd1", PrimaryTicker: "NVDA"}}}
	h := NewDDHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/dd?ticker=NVDA&community=stocks&min_confidence=0.6&limit=5", nil)
	rec := httptest.NewRecorder()
	h.GetDDPosts(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "NVDA", store.gotFilter.Ticker)
	assert.Equal(t, "stocks", store.gotFilter.Community)
	assert.InDelta(t, 0.6, store.gotFilter.MinConfidence, 1e-9)
	assert.Equal(t, 5, store.gotFilter.Limit)
}

func TestGetDDPostsRejectsBadConfidence(t *testing.T) {
	h := NewDDHandler(&fakeDDStore{})

	for _, conf := range []string{"1.5", "-0.1", "high"} {
		req := httptest.NewRequest(http.MethodGet, "/dd?min_confidence="+conf, nil)
		rec := httptest.NewRecorder()
		h.GetDDPosts(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "min_confidence=%s", conf)
	}
}

// internal/social/reddit.go

package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"tickerpulse/internal/domain/content"
)

const defaultBaseURL = "https://www.reddit.com"

// RedditClient reads public subreddit listings over the JSON endpoints.
type RedditClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	maxRetries uint64
	log        *zap.Logger
}

// RedditPost is a submission as returned by the listing endpoints.
type RedditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Subreddit   string  `json:"subreddit"`
	Author      string  `json:"author"`
	Created     float64 `json:"created_utc"`
}

// RedditComment is a comment as returned by the listing endpoints.
type RedditComment struct {
	ID        string  `json:"id"`
	Body      string  `json:"body"`
	LinkID    string  `json:"link_id"`
	ParentID  string  `json:"parent_id"`
	Permalink string  `json:"permalink"`
	Score     int     `json:"score"`
	Subreddit string  `json:"subreddit"`
	Author    string  `json:"author"`
	Created   float64 `json:"created_utc"`
}

type redditListing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// NewRedditClient creates a client. The user agent is mandatory: the API rate
// limits anonymous defaults aggressively.
func NewRedditClient(userAgent string, maxRetries int, log *zap.Logger) *RedditClient {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &RedditClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		userAgent:  userAgent,
		maxRetries: uint64(maxRetries),
		log:        log,
	}
}

// NewPosts fetches the newest submissions from a subreddit as thread records.
func (c *RedditClient) NewPosts(ctx context.Context, subreddit string, limit int) ([]content.Record, error) {
	if limit <= 0 {
		limit = 100
	}

	url := fmt.Sprintf("%s/r/%s/new.json?limit=%d", c.baseURL, subreddit, limit)
	listing, err := c.getListing(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching posts from r/%s: %w", subreddit, err)
	}

	records := make([]content.Record, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		var post RedditPost
		if err := json.Unmarshal(child.Data, &post); err != nil {
			c.log.Warn("skipping undecodable submission", zap.String("subreddit", subreddit), zap.Error(err))
			continue
		}
		records = append(records, content.Record{
			SourceID:   post.ID,
			Kind:       content.KindThread,
			Community:  post.Subreddit,
			Title:      post.Title,
			Body:       post.SelfText,
			Author:     post.Author,
			Score:      post.Score,
			Comments:   post.NumComments,
			URL:        defaultBaseURL + post.Permalink,
			OccurredAt: time.Unix(int64(post.Created), 0).UTC(),
		})
	}

	c.log.Debug("fetched submissions", zap.String("subreddit", subreddit), zap.Int("count", len(records)))
	return records, nil
}

// NewComments fetches the newest comments from a subreddit as comment records.
func (c *RedditClient) NewComments(ctx context.Context, subreddit string, limit int) ([]content.Record, error) {
	if limit <= 0 {
		limit = 100
	}

	url := fmt.Sprintf("%s/r/%s/comments.json?limit=%d", c.baseURL, subreddit, limit)
	listing, err := c.getListing(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching comments from r/%s: %w", subreddit, err)
	}

	records := make([]content.Record, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		var comment RedditComment
		if err := json.Unmarshal(child.Data, &comment); err != nil {
			c.log.Warn("skipping undecodable comment", zap.String("subreddit", subreddit), zap.Error(err))
			continue
		}
		records = append(records, content.Record{
			SourceID:   comment.ID,
			ParentID:   stripKindPrefix(comment.LinkID),
			Kind:       content.KindComment,
			Community:  comment.Subreddit,
			Body:       comment.Body,
			Author:     comment.Author,
			Score:      comment.Score,
			URL:        defaultBaseURL + comment.Permalink,
			OccurredAt: time.Unix(int64(comment.Created), 0).UTC(),
		})
	}

	c.log.Debug("fetched comments", zap.String("subreddit", subreddit), zap.Int("count", len(records)))
	return records, nil
}

// getListing performs a GET with retries on transient failures. Client errors
// other than 429 are permanent and fail immediately.
func (c *RedditClient) getListing(ctx context.Context, url string) (*redditListing, error) {
	var listing redditListing

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("listing endpoint returned status %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("listing endpoint returned status %d", resp.StatusCode))
		}

		listing = redditListing{}
		if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding listing response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return &listing, nil
}

// stripKindPrefix drops the type tag from a fullname like "t3_abc123".
func stripKindPrefix(fullname string) string {
	if i := strings.IndexByte(fullname, '_'); i >= 0 {
		return fullname[i+1:]
	}
	return fullname
}

// internal/service/collect/processor.go

package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"tickerpulse/internal/domain/content"
	"tickerpulse/internal/domain/dd"
	"tickerpulse/internal/domain/mention"
	"tickerpulse/internal/service/classify"
	"tickerpulse/internal/service/extract"
)

const (
	// Classification only runs on bodies with some substance.
	minClassifyWords = 50

	maxExcerptLen = 200
	maxTitleLen   = 500
	maxBodyLen    = 5000
)

// ProcessorConfig tunes the processing side of the pipeline.
type ProcessorConfig struct {
	Subject string
}

// ProcessStats counts what a processor has handled since creation.
type ProcessStats struct {
	Processed  int `json:"processed"`
	Skipped    int `json:"skipped"`
	Mentions   int `json:"mentions"`
	Duplicates int `json:"duplicates"`
	DDPosts    int `json:"dd_posts"`
	Errors     int `json:"errors"`
}

// Processor consumes raw content records from the queue, extracts ticker
// mentions, classifies due-diligence posts, and persists both.
type Processor struct {
	extractor  *extract.Extractor
	classifier *classify.Classifier
	mentions   mention.Store
	ddPosts    dd.Store
	cfg        ProcessorConfig
	log        *zap.Logger
	now        func() time.Time

	mu    sync.Mutex
	stats ProcessStats
}

// NewProcessor creates a processor.
func NewProcessor(
	extractor *extract.Extractor,
	classifier *classify.Classifier,
	mentions mention.Store,
	ddPosts dd.Store,
	cfg ProcessorConfig,
	log *zap.Logger,
) *Processor {
	return &Processor{
		extractor:  extractor,
		classifier: classifier,
		mentions:   mentions,
		ddPosts:    ddPosts,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// Subscribe attaches the processor to the content subject. Malformed and
// invalid messages are skipped individually; store failures are logged and the
// message dropped (the fetch side re-publishes, and inserts are idempotent).
func (p *Processor) Subscribe(ctx context.Context, conn *nats.Conn) (*nats.Subscription, error) {
	return conn.Subscribe(p.cfg.Subject, func(msg *nats.Msg) {
		var rec content.Record
		if err := json.Unmarshal(msg.Data, &rec); err != nil {
			p.log.Warn("skipping undecodable content message", zap.Error(err))
			p.bump(func(s *ProcessStats) { s.Skipped++ })
			return
		}
		if err := p.Process(ctx, rec); err != nil {
			p.log.Error("failed to process content record",
				zap.String("source_id", rec.SourceID), zap.Error(err))
			p.bump(func(s *ProcessStats) { s.Errors++ })
		}
	})
}

// Process handles one content record end to end.
func (p *Processor) Process(ctx context.Context, rec content.Record) error {
	if err := rec.Validate(); err != nil {
		p.log.Debug("skipping invalid content record",
			zap.String("source_id", rec.SourceID), zap.Error(err))
		p.bump(func(s *ProcessStats) { s.Skipped++ })
		return nil
	}

	p.mu.Lock()
	extractor := p.extractor
	p.mu.Unlock()
	candidates := extractor.ExtractWithConfidence(rec.Text())

	inserted, duplicates, err := p.storeMentions(ctx, rec, candidates)
	if err != nil {
		return err
	}

	ddStored, err := p.maybeStoreDD(ctx, rec, candidates)
	if err != nil {
		return err
	}

	p.bump(func(s *ProcessStats) {
		s.Processed++
		s.Mentions += inserted
		s.Duplicates += duplicates
		if ddStored {
			s.DDPosts++
		}
	})
	return nil
}

// SwapExtractor replaces the extractor after a dictionary reload. In-flight
// records finish with the extractor they started with.
func (p *Processor) SwapExtractor(e *extract.Extractor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.extractor = e
}

// Stats returns a copy of the running counters.
func (p *Processor) Stats() ProcessStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Processor) storeMentions(ctx context.Context, rec content.Record, candidates []extract.Candidate) (inserted, duplicates int, err error) {
	postID := rec.SourceID
	if rec.Kind == content.KindComment {
		postID = rec.ParentID
	}

	for _, cand := range candidates {
		m := mention.Mention{
			Ticker:     cand.Ticker,
			Community:  rec.Community,
			SourceID:   rec.SourceID,
			PostID:     postID,
			Kind:       rec.Kind,
			Author:     rec.Author,
			Score:      rec.Score,
			URL:        rec.URL,
			Confidence: cand.Confidence,
			Excerpt:    truncate(cand.Excerpt, maxExcerptLen),
			OccurredAt: rec.OccurredAt,
			RecordedAt: p.now().UTC(),
		}

		outcome, err := p.mentions.Put(ctx, m)
		if err != nil {
			return inserted, duplicates, fmt.Errorf("storing mention %s/%s: %w", m.Ticker, m.SourceID, err)
		}
		if outcome == mention.OutcomeAlreadyExists {
			duplicates++
			p.log.Debug("duplicate mention skipped",
				zap.String("ticker", m.Ticker), zap.String("source_id", m.SourceID))
			continue
		}
		inserted++
	}
	return inserted, duplicates, nil
}

// maybeStoreDD classifies substantial thread bodies and persists qualifying
// posts. Comments and short posts are never classified.
func (p *Processor) maybeStoreDD(ctx context.Context, rec content.Record, candidates []extract.Candidate) (bool, error) {
	if rec.Kind != content.KindThread || rec.Title == "" || rec.Body == "" {
		return false, nil
	}
	if len(strings.Fields(rec.Body)) <= minClassifyWords {
		return false, nil
	}

	result := p.classifier.Classify(rec.Title, rec.Body, rec.Community)
	if !result.IsDD {
		return false, nil
	}

	meta := p.classifier.Metadata(rec.Title, rec.Body)

	primary := "UNKNOWN"
	if len(candidates) > 0 {
		primary = candidates[0].Ticker
	}

	post := dd.Post{
		SourceID:      rec.SourceID,
		PrimaryTicker: primary,
		Title:         truncate(rec.Title, maxTitleLen),
		Body:          truncate(rec.Body, maxBodyLen),
		Community:     rec.Community,
		Author:        rec.Author,
		URL:           rec.URL,
		Upvotes:       rec.Score,
		CommentCount:  rec.Comments,
		QualityScore:  result.Score,
		Confidence:    result.Confidence,
		Tags:          meta.Tags,
		HasCharts:     meta.HasCharts,
		HasTables:     meta.HasTables,
		WordCount:     meta.WordCount,
		OccurredAt:    rec.OccurredAt,
		RecordedAt:    p.now().UTC(),
	}

	outcome, err := p.ddPosts.Put(ctx, post)
	if err != nil {
		return false, fmt.Errorf("storing dd post %s: %w", post.SourceID, err)
	}
	if outcome == mention.OutcomeAlreadyExists {
		p.log.Debug("duplicate dd post skipped", zap.String("source_id", post.SourceID))
		return false, nil
	}

	p.log.Info("dd post detected",
		zap.String("source_id", post.SourceID),
		zap.String("ticker", post.PrimaryTicker),
		zap.Int("score", post.QualityScore))
	return true, nil
}

func (p *Processor) bump(apply func(*ProcessStats)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	apply(&p.stats)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// cmd/collector/main.go

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"tickerpulse/internal/adapter/storage"
	"tickerpulse/internal/config"
	"tickerpulse/internal/logger"
	"tickerpulse/internal/service/aggregate"
	"tickerpulse/internal/service/classify"
	"tickerpulse/internal/service/collect"
	"tickerpulse/internal/service/extract"
	"tickerpulse/internal/service/symbolsync"
	"tickerpulse/internal/social"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logg.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		logg.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	natsConn, err := initNATS(cfg.NATS, logg)
	if err != nil {
		logg.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Close()

	// Initialize storage adapters
	symbolStore := storage.NewSymbolStore(db)
	watermarkStore := storage.NewWatermarkStore(db)
	mentionStore := storage.NewMentionStore(db)
	ddPostStore := storage.NewDDPostStore(db)
	snapshotStore := storage.NewSnapshotStore(db)

	// Symbol directory sync
	syncer := symbolsync.NewSyncer(nil, symbolStore, symbolsync.Config{
		NasdaqURL: cfg.SymbolSync.NasdaqURL,
		OtherURL:  cfg.SymbolSync.OtherURL,
	}, logg.Named("symbolsync"))

	// The extractor is useless without a ticker universe. Load it up front,
	// syncing the directory first if the table is still empty.
	dict, err := symbolStore.Load(ctx)
	if err != nil {
		logg.Fatal("Failed to load symbol dictionary", zap.Error(err))
	}
	if dict.Len() == 0 {
		logg.Info("Symbol directory empty, running initial sync")
		if _, err := syncer.Run(ctx); err != nil {
			logg.Fatal("Initial symbol sync failed", zap.Error(err))
		}
		if dict, err = symbolStore.Load(ctx); err != nil {
			logg.Fatal("Failed to reload symbol dictionary", zap.Error(err))
		}
	}
	logg.Info("Symbol dictionary loaded", zap.Int("symbols", dict.Len()))

	// Processing side: queue subscription -> extraction -> classification
	classifier := classify.NewClassifier(classify.Config{
		MinWordCount:     cfg.Classifier.MinWordCount,
		Threshold:        cfg.Classifier.Threshold,
		CommunityWeights: cfg.Classifier.CommunityWeights,
	})
	processor := collect.NewProcessor(
		extract.NewExtractor(dict),
		classifier,
		mentionStore,
		ddPostStore,
		collect.ProcessorConfig{Subject: cfg.Collector.Subject},
		logg.Named("processor"),
	)

	sub, err := processor.Subscribe(ctx, natsConn)
	if err != nil {
		logg.Fatal("Failed to subscribe to content subject", zap.Error(err))
	}
	defer sub.Unsubscribe()

	// Fetch side: upstream feed -> queue
	reddit := social.NewRedditClient(cfg.Reddit.UserAgent, cfg.Reddit.MaxRetries, logg.Named("reddit"))
	fetcher := collect.NewFetcher(reddit, watermarkStore, natsConn, collect.FetcherConfig{
		Communities:      cfg.Collector.Communities,
		PostsPerFetch:    cfg.Collector.PostsPerFetch,
		CommentsPerFetch: cfg.Collector.CommentsPerFetch,
		Subject:          cfg.Collector.Subject,
	}, logg.Named("fetcher"))

	aggregator := aggregate.NewAggregator(mentionStore, snapshotStore, aggregate.Config{
		PageSize:    cfg.Aggregator.PageSize,
		ByCommunity: cfg.Aggregator.ByCommunity,
	}, logg.Named("aggregator"))

	// Schedule the pipeline
	scheduler := cron.New()

	if _, err := scheduler.AddFunc(cfg.Collector.FetchSchedule, func() {
		stats := fetcher.RunCycle(ctx)
		logg.Info("Fetch cycle complete",
			zap.Int("published", stats.Published),
			zap.Int("failures", stats.Failures),
			zap.Duration("elapsed", stats.Elapsed))
	}); err != nil {
		logg.Fatal("Invalid fetch schedule", zap.Error(err))
	}

	if _, err := scheduler.AddFunc(cfg.Aggregator.Schedule, func() {
		result := aggregator.Run(ctx)
		if result.Failed() {
			logg.Warn("Aggregation run had period failures", zap.String("run_id", result.RunID))
		}
	}); err != nil {
		logg.Fatal("Invalid aggregator schedule", zap.Error(err))
	}

	if _, err := scheduler.AddFunc(cfg.SymbolSync.Schedule, func() {
		if _, err := syncer.Run(ctx); err != nil {
			logg.Error("Symbol sync failed", zap.Error(err))
		}
	}); err != nil {
		logg.Fatal("Invalid symbol sync schedule", zap.Error(err))
	}

	if _, err := scheduler.AddFunc(cfg.Collector.ReloadSchedule, func() {
		fresh, err := symbolStore.Load(ctx)
		if err != nil {
			logg.Error("Dictionary reload failed", zap.Error(err))
			return
		}
		processor.SwapExtractor(extract.NewExtractor(fresh))
		logg.Info("Symbol dictionary reloaded", zap.Int("symbols", fresh.Len()))
	}); err != nil {
		logg.Fatal("Invalid dictionary reload schedule", zap.Error(err))
	}

	scheduler.Start()
	logg.Info("Collector started",
		zap.Strings("communities", cfg.Collector.Communities),
		zap.String("subject", cfg.Collector.Subject))

	// Wait for shutdown signal
	<-shutdown
	logg.Info("Shutdown signal received")

	cronCtx := scheduler.Stop()
	cancel()

	// Let any in-flight cron job finish, bounded by the shutdown timeout
	select {
	case <-cronCtx.Done():
	case <-time.After(cfg.Server.ShutdownTimeout):
		logg.Warn("Timed out waiting for scheduled jobs")
	}

	stats := processor.Stats()
	logg.Info("Shutdown complete",
		zap.Int("processed", stats.Processed),
		zap.Int("mentions", stats.Mentions),
		zap.Int("dd_posts", stats.DDPosts))
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig, logg *zap.Logger) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logg.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logg.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logg.Warn("NATS connection closed")
		}),
	}

	return nats.Connect(cfg.URL, options...)
}

// Package pipeline orchestrates a full run: cache preparation, feed
// ingestion, exact deduplication, clustering, and cross-day merge. Each
// step reports a typed result; non-fatal problems land in those results
// so callers never have to parse logs.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/IreneBurresi/awsome-ai-news/internal/cache"
	"github.com/IreneBurresi/awsome-ai-news/internal/config"
	"github.com/IreneBurresi/awsome-ai-news/internal/dedup"
	"github.com/IreneBurresi/awsome-ai-news/internal/feed"
	"github.com/IreneBurresi/awsome-ai-news/internal/merge"
	"github.com/IreneBurresi/awsome-ai-news/internal/news"
	"github.com/IreneBurresi/awsome-ai-news/internal/oracle"
)

// Pipeline wires the steps together over one cache store.
type Pipeline struct {
	cfg       *config.Config
	store     *cache.Store
	fetcher   feed.Fetcher
	clusterer oracle.Clusterer
	judge     oracle.SimilarityJudge
	logger    *zap.Logger

	// DryRun stops after ingestion and performs no cache writes.
	DryRun bool
}

// New builds a pipeline from config. Oracles are optional: without an API
// key the pipeline falls back to singleton clusters and no merging.
func New(cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := cache.NewStore(cfg.ResolvedCacheDir(), logger)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:     cfg,
		store:   store,
		fetcher: feed.NewRSSFetcher(),
		judge:   oracle.NoopJudge{},
		logger:  logger.Named("pipeline"),
	}
	if cfg.OracleEnabled() {
		client := oracle.NewAnthropic(cfg.OracleKey(), cfg.Oracle.Model, cfg.Oracle.Temperature, logger)
		p.clusterer = client
		p.judge = client
	}
	return p, nil
}

// PrepareResult reports cache preparation (step 0).
type PrepareResult struct {
	CacheCleaned  int      `json:"cache_cleaned"`
	CacheBackedUp bool     `json:"cache_backed_up"`
	BackupPath    string   `json:"backup_path,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}

// IngestResult reports feed ingestion (step 1).
type IngestResult struct {
	FeedsFetched   int      `json:"feeds_fetched"`
	FeedsFailed    int      `json:"feeds_failed"`
	TotalRaw       int      `json:"total_articles_raw"`
	AfterFilter    int      `json:"articles_after_filter"`
	SlugCollisions int      `json:"slug_collisions"`
	Errors         []string `json:"errors,omitempty"`
}

// Result aggregates one pipeline run.
type Result struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Prepare    PrepareResult `json:"prepare"`
	Ingest     IngestResult  `json:"ingest"`
	Dedup      dedup.Stats   `json:"dedup"`
	Clusters   int           `json:"clusters"`
	// ClusterFallback is set when singleton clusters were used instead of
	// the clustering oracle.
	ClusterFallback bool           `json:"cluster_fallback,omitempty"`
	Merge           merge.Stats    `json:"merge"`
	News            []news.Cluster `json:"-"`
}

// Run executes the pipeline under the cache lock. cache.ErrLockHeld means
// another instance is running; the caller must treat that as fatal for
// this invocation and not retry.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	result := &Result{StartedAt: time.Now()}

	lock, err := cache.AcquireLock(p.store.Root(), p.logger)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	p.prepare(&result.Prepare)

	articles := p.ingest(ctx, &result.Ingest)
	if p.DryRun {
		p.logger.Info("dry run, stopping after ingestion", zap.Int("articles", len(articles)))
		result.FinishedAt = time.Now()
		return result, nil
	}

	unique, dedupStats, err := dedup.NewEngine(p.store, p.cfg.ArticleCategory(), p.logger).Deduplicate(articles)
	if err != nil {
		return result, fmt.Errorf("dedup step: %w", err)
	}
	result.Dedup = dedupStats

	clusters := p.cluster(ctx, unique, result)
	result.Clusters = len(clusters)

	merged, mergeStats, err := p.mergeDays(ctx, clusters)
	if err != nil {
		return result, fmt.Errorf("merge step: %w", err)
	}
	result.Merge = mergeStats
	result.News = merged
	result.FinishedAt = time.Now()

	p.logger.Info("pipeline completed",
		zap.Int("ingested", result.Ingest.AfterFilter),
		zap.Int("unique", result.Dedup.UniqueArticles),
		zap.Int("clusters", result.Clusters),
		zap.Int("news", len(merged)),
		zap.Duration("took", result.FinishedAt.Sub(result.StartedAt)))
	return result, nil
}

// prepare backs up and cleans the cache per config. Both are best-effort:
// failures are recorded and the run continues.
func (p *Pipeline) prepare(res *PrepareResult) {
	if p.cfg.BackupOnStart && !p.DryRun {
		path, err := p.store.Backup()
		if err != nil {
			p.logger.Warn("cache backup failed", zap.Error(err))
			res.Errors = append(res.Errors, fmt.Sprintf("backup failed: %v", err))
		} else {
			res.CacheBackedUp = true
			res.BackupPath = path
		}
	}

	if p.cfg.CleanupOnStart && !p.DryRun {
		stats := p.store.Cleanup([]cache.Category{p.cfg.ArticleCategory(), p.cfg.NewsCategory()})
		res.CacheCleaned = stats.FilesRemoved
		res.Errors = append(res.Errors, stats.Errors...)
	}
}

func (p *Pipeline) ingest(ctx context.Context, res *IngestResult) []news.Article {
	fetchResult := feed.FetchAll(ctx, p.fetcher, p.cfg.EnabledFeeds(), p.cfg.GetConcurrency(), p.logger)
	res.FeedsFetched = fetchResult.FeedsFetched
	res.FeedsFailed = fetchResult.FeedsFailed
	res.TotalRaw = len(fetchResult.Articles)
	for _, err := range fetchResult.Errors {
		res.Errors = append(res.Errors, err.Error())
	}

	identified, idStats := feed.Identify(fetchResult.Articles, p.logger)
	res.AfterFilter = len(identified)
	res.SlugCollisions = idStats.Collisions
	res.Errors = append(res.Errors, idStats.Errors...)
	return identified
}

// cluster calls the clustering oracle, falling back to singleton clusters
// when it is missing or fails.
func (p *Pipeline) cluster(ctx context.Context, articles []news.Article, result *Result) []news.Cluster {
	if len(articles) == 0 {
		return nil
	}
	if p.clusterer == nil {
		result.ClusterFallback = true
		return oracle.Singletons(articles)
	}
	clusters, err := p.clusterer.Cluster(ctx, articles)
	if err != nil {
		p.logger.Warn("clustering oracle failed, using singleton clusters", zap.Error(err))
		result.ClusterFallback = true
		return oracle.Singletons(articles)
	}
	return clusters
}

// mergeDays obtains similarity judgments for today's clusters against the
// cached lookback window and applies them through the merge engine.
func (p *Pipeline) mergeDays(ctx context.Context, today []news.Cluster) ([]news.Cluster, merge.Stats, error) {
	engine := merge.NewEngine(p.store, p.cfg.NewsCategory(), p.cfg.GetLookbackDays(), p.logger)

	cached, _, err := engine.LoadWindow()
	if err != nil {
		return nil, merge.Stats{}, err
	}

	var judgments []news.Judgment
	if len(cached) > 0 && len(today) > 0 {
		judgments, err = p.judge.Judge(ctx, today, cached)
		if err != nil {
			// Fallback: no merge rather than a failed run, when configured.
			if p.cfg.Oracle == nil || p.cfg.Oracle.FallbackToNoMerge {
				p.logger.Warn("similarity oracle failed, keeping all clusters", zap.Error(err))
				judgments = nil
			} else {
				return nil, merge.Stats{}, err
			}
		}
	}

	return engine.Merge(today, cached, judgments)
}

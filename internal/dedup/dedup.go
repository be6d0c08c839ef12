// Package dedup filters a batch of ingested articles against the recent
// cache shards by exact slug identity. It performs no semantic comparison:
// two articles are duplicates iff their slugs are equal.
package dedup

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/IreneBurresi/awsome-ai-news/internal/cache"
	"github.com/IreneBurresi/awsome-ai-news/internal/news"
)

// Stats describes one deduplication run. Shard-loading counters are
// propagated so corruption is visible to callers, not just logs.
type Stats struct {
	InputArticles       int     `json:"input_articles"`
	CacheArticles       int     `json:"cache_articles"`
	DuplicatesFound     int     `json:"duplicates_found"`
	UniqueArticles      int     `json:"unique_articles"`
	DeduplicationRate   float64 `json:"deduplication_rate"`
	CacheFilesLoaded    int     `json:"cache_files_loaded"`
	CacheFilesCorrupted int     `json:"cache_files_corrupted"`
}

// Engine deduplicates article batches against a cache store.
type Engine struct {
	store  *cache.Store
	cat    cache.Category
	logger *zap.Logger
	now    func() time.Time
}

// NewEngine returns an engine over the given store and article category.
// The category carries the retention window, so a configured retention
// override shields exactly as many days as cleanup keeps.
func NewEngine(store *cache.Store, cat cache.Category, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, cat: cat, logger: logger.Named("dedup"), now: time.Now}
}

// Deduplicate partitions articles into unique and duplicate sets against
// the article shards of the last retention window, then persists the
// unique set into today's shard (accumulating across runs on the same
// day).
//
// Ordering is first-occurrence-wins over the input sequence: the first
// appearance of a slug is unique, later appearances in the same batch are
// duplicates even if the slug was not cached.
func (e *Engine) Deduplicate(articles []news.Article) ([]news.Article, Stats, error) {
	cutoff := e.now().AddDate(0, 0, -e.cat.RetentionDays)

	cached, loadStats, err := cache.LoadSince[news.Article](e.store, e.cat, cutoff)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("loading cached articles: %w", err)
	}

	// Fresh accumulator per invocation; seeded from the cache, then fed
	// every slug seen in this batch so within-batch repeats are caught.
	known := make(map[string]struct{}, len(cached)+len(articles))
	for _, a := range cached {
		known[a.Slug] = struct{}{}
	}

	unique := make([]news.Article, 0, len(articles))
	duplicates := 0
	for _, a := range articles {
		if _, seen := known[a.Slug]; seen {
			duplicates++
			e.logger.Debug("duplicate article", zap.String("slug", a.Slug))
			continue
		}
		known[a.Slug] = struct{}{}
		unique = append(unique, a)
	}

	if len(unique) > 0 {
		if _, err := cache.AppendToday(e.store, e.cat, unique, func(a news.Article) string {
			return a.Slug
		}); err != nil {
			return nil, Stats{}, fmt.Errorf("saving unique articles: %w", err)
		}
	}

	rate := 0.0
	if len(articles) > 0 {
		rate = float64(duplicates) / float64(len(articles))
	}
	stats := Stats{
		InputArticles:       len(articles),
		CacheArticles:       len(cached),
		DuplicatesFound:     duplicates,
		UniqueArticles:      len(unique),
		DeduplicationRate:   rate,
		CacheFilesLoaded:    loadStats.FilesLoaded,
		CacheFilesCorrupted: loadStats.FilesCorrupted,
	}

	e.logger.Info("deduplication completed",
		zap.Int("input", stats.InputArticles),
		zap.Int("duplicates", stats.DuplicatesFound),
		zap.Int("unique", stats.UniqueArticles),
		zap.Float64("rate", stats.DeduplicationRate))
	return unique, stats, nil
}

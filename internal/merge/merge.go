// Package merge consolidates today's news clusters with clusters cached
// over the lookback window, driven by duplicate-pair judgments produced by
// an external similarity oracle. It decides nothing about similarity
// itself; it only applies verdicts.
package merge

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/IreneBurresi/awsome-ai-news/internal/cache"
	"github.com/IreneBurresi/awsome-ai-news/internal/news"
)

// Stats describes one merge run. Unresolvable judgments are skipped and
// reported here, never fatal.
type Stats struct {
	NewsBeforeDedup  int      `json:"news_before_dedup"`
	NewsAfterDedup   int      `json:"news_after_dedup"`
	DuplicatesFound  int      `json:"duplicates_found"`
	NewsMerged       int      `json:"news_merged"`
	JudgmentsSkipped int      `json:"judgments_skipped"`
	CachedNews       int      `json:"cached_news"`
	Errors           []string `json:"errors,omitempty"`
}

// Engine merges clusters across days through a cache store.
type Engine struct {
	store        *cache.Store
	cat          cache.Category
	lookbackDays int
	logger       *zap.Logger
	now          func() time.Time
}

// NewEngine returns an engine that persists into the given news category
// and considers cached clusters from the last lookbackDays days.
func NewEngine(store *cache.Store, cat cache.Category, lookbackDays int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, cat: cat, lookbackDays: lookbackDays, logger: logger.Named("merge"), now: time.Now}
}

// LoadWindow loads the cached clusters of the lookback window. Callers pass
// the result to Merge, so the window is read from disk exactly once per run
// even when a similarity judge inspects it first.
func (e *Engine) LoadWindow() ([]news.Cluster, cache.LoadStats, error) {
	cutoff := e.now().AddDate(0, 0, -e.lookbackDays)
	return cache.LoadSince[news.Cluster](e.store, e.cat, cutoff)
}

// Merge applies the duplicate-pair judgments to today's clusters and the
// cached window, persists the consolidated set into today's news shard,
// and returns it.
//
// For each resolvable pair the side with more articles becomes the base;
// on a tie the cached side wins, keeping IDs stable for already published
// news. The other side is absorbed: its article slugs and keywords are
// unioned into the base and it disappears from the output. Judgments that
// reference unknown IDs are skipped and counted. Judgment order does not
// change the outcome except that successive judgments against the same
// base compose.
func (e *Engine) Merge(today, cached []news.Cluster, judgments []news.Judgment) ([]news.Cluster, Stats, error) {
	stats := Stats{NewsBeforeDedup: len(today), DuplicatesFound: len(judgments)}
	stats.CachedNews = len(cached)

	// Fast path: nothing cached means nothing to merge against. Persist
	// today's clusters so tomorrow has a window to compare with.
	if len(cached) == 0 {
		e.logger.Info("no cached news, skipping merge", zap.Int("today", len(today)))
		if err := e.persist(today); err != nil {
			return nil, stats, err
		}
		stats.NewsAfterDedup = len(today)
		return today, stats, nil
	}

	todayByID := make(map[string]news.Cluster, len(today))
	for _, c := range today {
		todayByID[c.NewsID] = c
	}
	cachedByID := make(map[string]news.Cluster, len(cached))
	for _, c := range cached {
		cachedByID[c.NewsID] = c
	}

	result := make([]news.Cluster, len(cached))
	copy(result, cached)
	absorbedToday := make(map[string]struct{})

	for _, j := range judgments {
		todayItem, okToday := todayByID[j.TodayID]
		cachedItem, okCached := cachedByID[j.CachedID]
		if !okToday || !okCached {
			e.logger.Warn("judgment references unknown cluster, skipping",
				zap.String("today_id", j.TodayID), zap.String("cached_id", j.CachedID))
			stats.JudgmentsSkipped++
			stats.Errors = append(stats.Errors,
				fmt.Sprintf("unresolvable judgment: today=%s cached=%s", j.TodayID, j.CachedID))
			continue
		}

		// Larger side wins; ties keep the cached cluster as base so that
		// already published IDs stay stable.
		base, absorbed := cachedItem, todayItem
		if todayItem.ArticleCount > cachedItem.ArticleCount {
			base, absorbed = todayItem, cachedItem
		}

		merged := e.combine(base, absorbed)

		if base.NewsID == cachedItem.NewsID {
			result = replaceByID(result, cachedItem.NewsID, merged)
		} else {
			// Base is today's side: drop the absorbed cached cluster and
			// carry the merged one in its place. replaceByID updates the
			// copy a previous judgment against the same base appended, so
			// the base never appears twice.
			result = removeByID(result, cachedItem.NewsID)
			result = replaceByID(result, merged.NewsID, merged)
		}

		// Keep both indexes pointing at the merged cluster so later
		// judgments against the same base compose instead of overwriting.
		todayByID[todayItem.NewsID] = merged
		cachedByID[cachedItem.NewsID] = merged
		if base.NewsID == todayItem.NewsID {
			todayByID[base.NewsID] = merged
		}

		absorbedToday[j.TodayID] = struct{}{}
		stats.NewsMerged++

		e.logger.Info("clusters merged",
			zap.String("base", merged.NewsID),
			zap.Int("articles", merged.ArticleCount),
			zap.String("reason", j.Reason))
	}

	for _, c := range today {
		if _, absorbed := absorbedToday[c.NewsID]; !absorbed {
			result = append(result, c)
		}
	}

	if err := e.persist(result); err != nil {
		return nil, stats, err
	}
	stats.NewsAfterDedup = len(result)

	e.logger.Info("merge completed",
		zap.Int("before", stats.NewsBeforeDedup),
		zap.Int("after", stats.NewsAfterDedup),
		zap.Int("merged", stats.NewsMerged),
		zap.Int("skipped", stats.JudgmentsSkipped))
	return result, stats, nil
}

// combine folds absorbed into base: article slugs and keywords are unioned
// in insertion order, keywords capped, identity and editorial fields kept
// from the base, updated_at set to now.
func (e *Engine) combine(base, absorbed news.Cluster) news.Cluster {
	slugs := unionOrdered(base.ArticleSlugs, absorbed.ArticleSlugs, 0)
	keywords := unionOrdered(base.Keywords, absorbed.Keywords, news.MaxKeywords)
	now := e.now()

	return news.Cluster{
		NewsID:       base.NewsID,
		Title:        base.Title,
		Summary:      base.Summary,
		ArticleSlugs: slugs,
		ArticleCount: len(slugs),
		MainTopic:    base.MainTopic,
		Keywords:     keywords,
		CreatedAt:    base.CreatedAt,
		UpdatedAt:    &now,
	}
}

func (e *Engine) persist(clusters []news.Cluster) error {
	if len(clusters) == 0 {
		return nil
	}
	if _, err := cache.AppendToday(e.store, e.cat, clusters, func(c news.Cluster) string {
		return c.NewsID
	}); err != nil {
		return fmt.Errorf("saving merged news: %w", err)
	}
	return nil
}

// unionOrdered appends items of b not already in a, preserving first
// appearance order. A limit of 0 means unbounded.
func unionOrdered(a, b []string, limit int) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, lists := range [][]string{a, b} {
		for _, v := range lists {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func replaceByID(clusters []news.Cluster, id string, with news.Cluster) []news.Cluster {
	for i, c := range clusters {
		if c.NewsID == id {
			clusters[i] = with
			return clusters
		}
	}
	return append(clusters, with)
}

func removeByID(clusters []news.Cluster, id string) []news.Cluster {
	out := clusters[:0]
	for _, c := range clusters {
		if c.NewsID != id {
			out = append(out, c)
		}
	}
	return out
}

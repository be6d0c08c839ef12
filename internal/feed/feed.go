// Package feed ingests RSS/Atom sources into article records. It sits
// upstream of the cache core: fetching may run concurrently, but its output
// is a single ordered batch handed to deduplication.
package feed

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/IreneBurresi/awsome-ai-news/internal/config"
	"github.com/IreneBurresi/awsome-ai-news/internal/news"
)

// maxArticleAge drops feed items older than a week at ingestion time.
const maxArticleAge = 7 * 24 * time.Hour

// maxContentLength truncates stripped article content.
const maxContentLength = 2000

// Fetcher fetches one source into article records.
type Fetcher interface {
	Fetch(ctx context.Context, source config.Feed) ([]news.Article, error)
}

// RSSFetcher fetches RSS and Atom feeds with gofeed.
type RSSFetcher struct {
	parser *gofeed.Parser
}

// NewRSSFetcher returns a ready fetcher.
func NewRSSFetcher() *RSSFetcher {
	return &RSSFetcher{parser: gofeed.NewParser()}
}

// Fetch downloads and parses a single feed. Articles come back without
// identities; Identify assigns slugs and content hashes afterwards.
func (f *RSSFetcher) Fetch(ctx context.Context, source config.Feed) ([]news.Article, error) {
	parsed, err := f.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", source.Name, err)
	}

	now := time.Now()
	maxAge := now.Add(-maxArticleAge)
	articles := make([]news.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		var published *time.Time
		if item.PublishedParsed != nil {
			published = item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = item.UpdatedParsed
		}
		if published != nil && published.Before(maxAge) {
			continue
		}

		content := item.Description
		if content == "" {
			content = item.Content
		}
		content = truncate(stripHTML(content), maxContentLength)

		author := ""
		if len(item.Authors) > 0 && item.Authors[0] != nil {
			author = item.Authors[0].Name
		}

		articles = append(articles, news.Article{
			Title:         item.Title,
			URL:           item.Link,
			PublishedDate: published,
			Content:       content,
			Author:        author,
			FeedName:      source.Name,
			FeedPriority:  source.Priority,
		})
	}
	return articles, nil
}

// Result aggregates a multi-feed fetch.
type Result struct {
	Articles     []news.Article
	FeedsFetched int
	FeedsFailed  int
	Errors       []error
}

// FetchAll fetches every source with at most limit in flight, applies the
// per-feed filters, and returns the surviving articles sorted newest
// first. Individual feed failures are collected, never fatal.
func FetchAll(ctx context.Context, fetcher Fetcher, sources []config.Feed, limit int, logger *zap.Logger) Result {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("feed")

	var (
		mu     sync.Mutex
		result Result
	)

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, src := range sources {
		src := src
		g.Go(func() error {
			articles, err := fetcher.Fetch(ctx, src)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("feed fetch failed", zap.String("feed", src.Name), zap.Error(err))
				result.FeedsFailed++
				result.Errors = append(result.Errors, err)
				return nil
			}

			kept := articles
			if src.Type == "generalist" {
				var rejected int
				kept, rejected = ApplyFilter(articles, src.Filter)
				if rejected > 0 {
					logger.Debug("articles filtered out",
						zap.String("feed", src.Name), zap.Int("rejected", rejected))
				}
			}
			result.FeedsFetched++
			result.Articles = append(result.Articles, kept...)
			return nil
		})
	}
	g.Wait()

	sort.SliceStable(result.Articles, func(i, j int) bool {
		return publishedOrZero(result.Articles[i]).After(publishedOrZero(result.Articles[j]))
	})

	logger.Info("feeds fetched",
		zap.Int("ok", result.FeedsFetched),
		zap.Int("failed", result.FeedsFailed),
		zap.Int("articles", len(result.Articles)))
	return result
}

func publishedOrZero(a news.Article) time.Time {
	if a.PublishedDate != nil {
		return *a.PublishedDate
	}
	return time.Time{}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

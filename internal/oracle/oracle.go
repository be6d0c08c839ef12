// Package oracle wraps the LLM collaborators the pipeline consumes: a
// clustering oracle that groups articles into news stories, and a
// similarity judge that flags cross-day duplicate clusters. The pipeline
// treats both as black boxes and never trusts their output blindly.
package oracle

import (
	"context"
	"strings"
	"time"

	"github.com/IreneBurresi/awsome-ai-news/internal/news"
	"github.com/IreneBurresi/awsome-ai-news/internal/slug"
)

// Clusterer groups a deduplicated article batch into news clusters.
type Clusterer interface {
	Cluster(ctx context.Context, articles []news.Article) ([]news.Cluster, error)
}

// SimilarityJudge compares today's clusters with cached ones and returns
// the pairs it considers the same story. An empty result means no merges.
type SimilarityJudge interface {
	Judge(ctx context.Context, today, cached []news.Cluster) ([]news.Judgment, error)
}

// NoopJudge never finds duplicates. Used when no oracle is configured and
// the pipeline falls back to keeping all clusters.
type NoopJudge struct{}

func (NoopJudge) Judge(ctx context.Context, today, cached []news.Cluster) ([]news.Judgment, error) {
	return nil, nil
}

// Singletons turns each article into its own cluster. Fallback when the
// clustering oracle is unavailable or fails.
func Singletons(articles []news.Article) []news.Cluster {
	clusters := make([]news.Cluster, 0, len(articles))
	now := time.Now().UTC()

	for _, a := range articles {
		title := clip(a.Title, 150)
		if len(title) < 10 {
			title = clip("News: "+a.Title, 150)
		}

		summary := a.Content
		if len(summary) < 50 {
			summary = clip("News about "+a.Title+". Published by "+a.FeedName+".", 500)
		} else {
			summary = clip(summary, 500)
		}

		var keywords []string
		for _, w := range strings.Fields(strings.ToLower(a.Title)) {
			if len(w) > 4 {
				keywords = append(keywords, w)
			}
			if len(keywords) == 5 {
				break
			}
		}

		clusters = append(clusters, news.Cluster{
			NewsID:       slug.ClusterID(a.Title, []string{a.Slug}),
			Title:        title,
			Summary:      summary,
			ArticleSlugs: []string{a.Slug},
			ArticleCount: 1,
			MainTopic:    "singleton",
			Keywords:     keywords,
			CreatedAt:    now,
		})
	}
	return clusters
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

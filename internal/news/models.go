// Package news defines the data model shared by the pipeline steps. JSON
// tags match the on-disk cache format, which is the only byte-exact
// compatibility surface of this system.
package news

import "time"

// Article is a deduplicable unit produced by feed ingestion. Once a slug is
// assigned the article is treated as immutable.
type Article struct {
	Title         string     `json:"title"`
	URL           string     `json:"url"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	Content       string     `json:"content,omitempty"`
	Author        string     `json:"author,omitempty"`
	FeedName      string     `json:"feed_name"`
	FeedPriority  int        `json:"feed_priority"`
	Slug          string     `json:"slug"`
	ContentHash   string     `json:"content_hash"`
}

// Cluster groups articles that cover the same story. Clusters are created
// by the clustering oracle and mutated only by the merge engine; a cluster
// is never destroyed, only absorbed into another one.
type Cluster struct {
	NewsID       string     `json:"news_id"`
	Title        string     `json:"title"`
	Summary      string     `json:"summary"`
	ArticleSlugs []string   `json:"article_slugs"`
	ArticleCount int        `json:"article_count"`
	MainTopic    string     `json:"main_topic"`
	Keywords     []string   `json:"keywords"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// Valid reports whether the cluster satisfies its structural invariants.
func (c Cluster) Valid() bool {
	return c.NewsID != "" &&
		len(c.ArticleSlugs) > 0 &&
		c.ArticleCount == len(c.ArticleSlugs) &&
		len(c.Keywords) <= MaxKeywords
}

// MaxKeywords caps the keyword list carried by a cluster.
const MaxKeywords = 10

// Judgment is an external verdict that two clusters cover the same story:
// one from today's clustering, one from the cache lookback window. It is
// consumed by the merge engine and never persisted on its own.
type Judgment struct {
	TodayID  string `json:"news_today_id"`
	CachedID string `json:"news_cached_id"`
	Reason   string `json:"merge_reason"`
}

// MaxJudgmentReason caps the free-text merge reason.
const MaxJudgmentReason = 150

package feed

import (
	"errors"

	"go.uber.org/zap"

	"github.com/IreneBurresi/awsome-ai-news/internal/news"
	"github.com/IreneBurresi/awsome-ai-news/internal/slug"
)

// IdentifyStats reports identity assignment over a batch.
type IdentifyStats struct {
	Collisions int
	Dropped    int
	Errors     []string
}

// Identify assigns each article its slug and content hash. The slug set is
// built fresh for this batch and threaded through the loop, so titles
// repeated within the batch get suffixed variants. An article whose title
// exhausts all collision suffixes is dropped and reported; the rest of the
// batch continues.
func Identify(articles []news.Article, logger *zap.Logger) ([]news.Article, IdentifyStats) {
	if logger == nil {
		logger = zap.NewNop()
	}

	existing := make(map[string]struct{}, len(articles))
	out := make([]news.Article, 0, len(articles))
	var stats IdentifyStats

	for _, a := range articles {
		s, err := slug.Generate(a.Title, existing)
		if err != nil {
			if errors.Is(err, slug.ErrCollisionExhausted) {
				logger.Error("dropping article: slug collisions exhausted", zap.String("title", a.Title))
				stats.Dropped++
				stats.Errors = append(stats.Errors, err.Error())
				continue
			}
			stats.Errors = append(stats.Errors, err.Error())
			continue
		}
		if slug.IsSuffixed(s) {
			stats.Collisions++
		}
		existing[s] = struct{}{}

		a.Slug = s
		a.ContentHash = slug.ContentHash(a.Title, slug.NormalizeURL(a.URL))
		out = append(out, a)
	}
	return out, stats
}

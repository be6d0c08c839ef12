package feed

import (
	"regexp"
	"strings"

	"github.com/IreneBurresi/awsome-ai-news/internal/config"
	"github.com/IreneBurresi/awsome-ai-news/internal/news"
)

// ApplyFilter runs the whitelist/blacklist rules of a generalist feed over
// a batch and returns the articles that pass plus the rejected count. A nil
// filter accepts everything. Regexes are validated at config load time; an
// invalid pattern here fails closed for the whitelist and open for the
// blacklist.
func ApplyFilter(articles []news.Article, f *config.FeedFilter) ([]news.Article, int) {
	if f == nil {
		return articles, 0
	}

	kept := make([]news.Article, 0, len(articles))
	rejected := 0
	for _, a := range articles {
		if passesFilter(a, f) {
			kept = append(kept, a)
		} else {
			rejected++
		}
	}
	return kept, rejected
}

func passesFilter(a news.Article, f *config.FeedFilter) bool {
	text := filterText(a, f.ApplyToFields)

	if len(f.WhitelistKeywords) > 0 && !containsAny(text, f.WhitelistKeywords) {
		return false
	}
	if f.WhitelistRegex != "" {
		re, err := regexp.Compile("(?i)" + f.WhitelistRegex)
		if err != nil || !re.MatchString(text) {
			return false
		}
	}
	if len(f.BlacklistKeywords) > 0 && containsAny(text, f.BlacklistKeywords) {
		return false
	}
	if f.BlacklistRegex != "" {
		re, err := regexp.Compile("(?i)" + f.BlacklistRegex)
		if err == nil && re.MatchString(text) {
			return false
		}
	}
	return true
}

func filterText(a news.Article, fields []string) string {
	if len(fields) == 0 {
		fields = []string{"title", "content"}
	}
	var parts []string
	for _, field := range fields {
		switch field {
		case "title":
			parts = append(parts, a.Title)
		case "content":
			parts = append(parts, a.Content)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

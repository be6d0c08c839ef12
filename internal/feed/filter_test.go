package feed

import (
	"testing"

	"github.com/IreneBurresi/awsome-ai-news/internal/config"
	"github.com/IreneBurresi/awsome-ai-news/internal/news"
)

func filterArticle(title, content string) news.Article {
	return news.Article{Title: title, Content: content}
}

func TestApplyFilterNilAcceptsAll(t *testing.T) {
	articles := []news.Article{filterArticle("anything", "goes")}
	kept, rejected := ApplyFilter(articles, nil)
	if len(kept) != 1 || rejected != 0 {
		t.Errorf("nil filter must accept everything, got kept=%d rejected=%d", len(kept), rejected)
	}
}

func TestApplyFilterWhitelistKeywords(t *testing.T) {
	f := &config.FeedFilter{WhitelistKeywords: []string{"machine learning", "LLM"}}
	articles := []news.Article{
		filterArticle("New LLM benchmark released", ""),
		filterArticle("Advances in machine learning", ""),
		filterArticle("Celebrity gossip roundup", ""),
	}

	kept, rejected := ApplyFilter(articles, f)
	if len(kept) != 2 || rejected != 1 {
		t.Errorf("expected 2 kept / 1 rejected, got %d / %d", len(kept), rejected)
	}
}

func TestApplyFilterKeywordsCaseInsensitive(t *testing.T) {
	f := &config.FeedFilter{WhitelistKeywords: []string{"OpenAI"}}
	kept, _ := ApplyFilter([]news.Article{filterArticle("openai ships new model", "")}, f)
	if len(kept) != 1 {
		t.Error("keyword match should ignore case")
	}
}

func TestApplyFilterBlacklistWins(t *testing.T) {
	f := &config.FeedFilter{
		WhitelistKeywords: []string{"ai"},
		BlacklistKeywords: []string{"sponsored"},
	}
	articles := []news.Article{
		filterArticle("AI model launch", ""),
		filterArticle("Sponsored: AI gadget deals", ""),
	}

	kept, rejected := ApplyFilter(articles, f)
	if len(kept) != 1 || rejected != 1 {
		t.Errorf("blacklisted article must be rejected even when whitelisted, got kept=%d", len(kept))
	}
}

func TestApplyFilterWhitelistRegex(t *testing.T) {
	f := &config.FeedFilter{WhitelistRegex: `\bGPT-\d+\b`}
	articles := []news.Article{
		filterArticle("GPT-5 rumors", ""),
		filterArticle("GPT hype without version", ""),
	}

	kept, _ := ApplyFilter(articles, f)
	if len(kept) != 1 || kept[0].Title != "GPT-5 rumors" {
		t.Errorf("expected only regex match kept, got %v", kept)
	}
}

func TestApplyFilterInvalidRegexFailsClosedOpen(t *testing.T) {
	// Broken whitelist regex rejects; broken blacklist regex passes through.
	badWhite := &config.FeedFilter{WhitelistRegex: "("}
	kept, _ := ApplyFilter([]news.Article{filterArticle("anything", "")}, badWhite)
	if len(kept) != 0 {
		t.Error("invalid whitelist regex should fail closed")
	}

	badBlack := &config.FeedFilter{BlacklistRegex: "("}
	kept, _ = ApplyFilter([]news.Article{filterArticle("anything", "")}, badBlack)
	if len(kept) != 1 {
		t.Error("invalid blacklist regex should fail open")
	}
}

func TestApplyFilterFieldsRestrictMatching(t *testing.T) {
	f := &config.FeedFilter{
		WhitelistKeywords: []string{"transformers"},
		ApplyToFields:     []string{"title"},
	}
	articles := []news.Article{
		filterArticle("Transformers explained", "misc"),
		filterArticle("Unrelated title", "all about transformers"),
	}

	kept, _ := ApplyFilter(articles, f)
	if len(kept) != 1 || kept[0].Title != "Transformers explained" {
		t.Errorf("title-only filter must ignore content, got %v", kept)
	}
}

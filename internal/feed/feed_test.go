package feed

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/IreneBurresi/awsome-ai-news/internal/config"
	"github.com/IreneBurresi/awsome-ai-news/internal/news"
)

// stubFetcher serves canned batches per feed name and fails on demand.
type stubFetcher struct {
	batches map[string][]news.Article
	fail    map[string]bool
}

func (s *stubFetcher) Fetch(_ context.Context, source config.Feed) ([]news.Article, error) {
	if s.fail[source.Name] {
		return nil, errors.New("connection refused")
	}
	return s.batches[source.Name], nil
}

func timePtr(t time.Time) *time.Time { return &t }

func TestFetchAllCollectsAndSorts(t *testing.T) {
	now := time.Now()
	fetcher := &stubFetcher{batches: map[string][]news.Article{
		"one": {
			{Title: "older", PublishedDate: timePtr(now.Add(-2 * time.Hour))},
			{Title: "newest", PublishedDate: timePtr(now)},
		},
		"two": {
			{Title: "middle", PublishedDate: timePtr(now.Add(-time.Hour))},
		},
	}}
	sources := []config.Feed{
		{Name: "one", Type: "specialized"},
		{Name: "two", Type: "specialized"},
	}

	result := FetchAll(context.Background(), fetcher, sources, 2, nil)
	if result.FeedsFetched != 2 || result.FeedsFailed != 0 {
		t.Fatalf("expected 2 ok / 0 failed, got %+v", result)
	}
	if len(result.Articles) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(result.Articles))
	}
	got := []string{result.Articles[0].Title, result.Articles[1].Title, result.Articles[2].Title}
	want := []string{"newest", "middle", "older"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected newest-first order %v, got %v", want, got)
			break
		}
	}
}

func TestFetchAllFeedFailureIsIsolated(t *testing.T) {
	fetcher := &stubFetcher{
		batches: map[string][]news.Article{"good": {{Title: "survivor"}}},
		fail:    map[string]bool{"bad": true},
	}
	sources := []config.Feed{
		{Name: "good", Type: "specialized"},
		{Name: "bad", Type: "specialized"},
	}

	result := FetchAll(context.Background(), fetcher, sources, 0, nil)
	if result.FeedsFetched != 1 || result.FeedsFailed != 1 {
		t.Errorf("expected 1 ok / 1 failed, got %+v", result)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected failure collected in errors, got %v", result.Errors)
	}
	if len(result.Articles) != 1 || result.Articles[0].Title != "survivor" {
		t.Errorf("expected surviving feed's articles, got %v", result.Articles)
	}
}

func TestFetchAllFiltersGeneralistFeeds(t *testing.T) {
	fetcher := &stubFetcher{batches: map[string][]news.Article{
		"general": {
			{Title: "AI breakthrough"},
			{Title: "Sports results"},
		},
	}}
	sources := []config.Feed{{
		Name:   "general",
		Type:   "generalist",
		Filter: &config.FeedFilter{WhitelistKeywords: []string{"ai"}},
	}}

	result := FetchAll(context.Background(), fetcher, sources, 1, nil)
	if len(result.Articles) != 1 || result.Articles[0].Title != "AI breakthrough" {
		t.Errorf("generalist feed should be filtered, got %v", result.Articles)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"no markup at all", "no markup at all"},
		{"<div>spaced\n\n  out</div>", "spaced out"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := stripHTML(tt.in); got != tt.want {
			t.Errorf("stripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 50)
	got := truncate(long, 10)
	if len([]rune(got)) != 10 || !strings.HasSuffix(got, "...") {
		t.Errorf("expected 10 runes ending in ellipsis, got %q", got)
	}
	if truncate("short", 10) != "short" {
		t.Error("strings within the limit must pass through unchanged")
	}
}

package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/IreneBurresi/awsome-ai-news/internal/news"
	"github.com/IreneBurresi/awsome-ai-news/internal/slug"
)

// Anthropic implements both oracles against the Anthropic Messages API.
type Anthropic struct {
	client      *anthropic.Client
	model       anthropic.Model
	temperature float64
	logger      *zap.Logger
}

// NewAnthropic builds an oracle client. model may be empty to use a
// default small model.
func NewAnthropic(apiKey, model string, temperature float64, logger *zap.Logger) *Anthropic {
	if model == "" {
		model = string(anthropic.ModelClaude3_5HaikuLatest)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Anthropic{
		client:      &client,
		model:       anthropic.Model(model),
		temperature: temperature,
		logger:      logger.Named("oracle"),
	}
}

const clusterSystemPrompt = `You are a news editor grouping AI news articles into stories.
Group articles that cover the same underlying event or announcement into one cluster.
Respond with JSON only, no prose, matching:
{"clusters": [{"title": "...", "summary": "...", "article_slugs": ["..."], "main_topic": "...", "keywords": ["..."]}]}
Rules: every article slug appears in exactly one cluster; title 10-150 chars; summary 50-500 chars; at most 10 keywords per cluster.`

const judgeSystemPrompt = `You compare today's news clusters with clusters from previous days and identify pairs that cover the SAME real-world story.
Respond with JSON only, no prose, matching:
{"duplicate_pairs": [{"news_today_id": "...", "news_cached_id": "...", "merge_reason": "..."}], "rationale": "..."}
Only report pairs you are confident are the same story. merge_reason max 150 chars.`

// Cluster asks the model to group the batch into stories. Cluster IDs are
// always derived locally so the result is deterministic for a given
// grouping even when the model omits or invents IDs.
func (a *Anthropic) Cluster(ctx context.Context, articles []news.Article) ([]news.Cluster, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	prompt := formatArticlesForClustering(articles)
	text, err := a.complete(ctx, clusterSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("clustering oracle: %w", err)
	}

	var parsed struct {
		Clusters []struct {
			Title        string   `json:"title"`
			Summary      string   `json:"summary"`
			ArticleSlugs []string `json:"article_slugs"`
			MainTopic    string   `json:"main_topic"`
			Keywords     []string `json:"keywords"`
		} `json:"clusters"`
	}
	if err := json.Unmarshal([]byte(cleanJSONResponse(text)), &parsed); err != nil {
		return nil, fmt.Errorf("clustering oracle: parsing response: %w", err)
	}

	known := make(map[string]struct{}, len(articles))
	for _, art := range articles {
		known[art.Slug] = struct{}{}
	}

	now := time.Now().UTC()
	clusters := make([]news.Cluster, 0, len(parsed.Clusters))
	for _, c := range parsed.Clusters {
		// Drop hallucinated members; a cluster left empty is dropped whole.
		slugs := make([]string, 0, len(c.ArticleSlugs))
		for _, s := range c.ArticleSlugs {
			if _, ok := known[s]; ok {
				slugs = append(slugs, s)
			}
		}
		if len(slugs) == 0 {
			a.logger.Warn("oracle cluster had no known articles, dropping", zap.String("title", c.Title))
			continue
		}
		keywords := c.Keywords
		if len(keywords) > news.MaxKeywords {
			keywords = keywords[:news.MaxKeywords]
		}
		clusters = append(clusters, news.Cluster{
			NewsID:       slug.ClusterID(c.Title, slugs),
			Title:        c.Title,
			Summary:      c.Summary,
			ArticleSlugs: slugs,
			ArticleCount: len(slugs),
			MainTopic:    c.MainTopic,
			Keywords:     keywords,
			CreatedAt:    now,
		})
	}
	return clusters, nil
}

// Judge asks the model for duplicate pairs between today and the cached
// window. Malformed pairs are dropped and reasons are capped; resolution
// against actual clusters happens later in the merge engine.
func (a *Anthropic) Judge(ctx context.Context, today, cached []news.Cluster) ([]news.Judgment, error) {
	if len(today) == 0 || len(cached) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("TODAY'S NEWS:\n\n")
	sb.WriteString(formatClustersForJudging(today))
	sb.WriteString("\nCACHED NEWS (previous days):\n\n")
	sb.WriteString(formatClustersForJudging(cached))

	text, err := a.complete(ctx, judgeSystemPrompt, sb.String())
	if err != nil {
		return nil, fmt.Errorf("similarity oracle: %w", err)
	}

	var parsed struct {
		DuplicatePairs []news.Judgment `json:"duplicate_pairs"`
		Rationale      string          `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(cleanJSONResponse(text)), &parsed); err != nil {
		return nil, fmt.Errorf("similarity oracle: parsing response: %w", err)
	}

	judgments := make([]news.Judgment, 0, len(parsed.DuplicatePairs))
	for _, j := range parsed.DuplicatePairs {
		if j.TodayID == "" || j.CachedID == "" {
			continue
		}
		if len(j.Reason) > news.MaxJudgmentReason {
			j.Reason = j.Reason[:news.MaxJudgmentReason]
		}
		judgments = append(judgments, j)
	}
	a.logger.Info("similarity oracle returned pairs",
		zap.Int("pairs", len(judgments)), zap.String("rationale", clip(parsed.Rationale, 120)))
	return judgments, nil
}

func (a *Anthropic) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   4096,
		Temperature: anthropic.Float(a.temperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("empty response from anthropic")
	}
	return resp.Content[0].Text, nil
}

func formatArticlesForClustering(articles []news.Article) string {
	var sb strings.Builder
	for i, a := range articles {
		sb.WriteString(fmt.Sprintf("[%d] Slug: %s\n", i+1, a.Slug))
		sb.WriteString(fmt.Sprintf("    Title: %s\n", a.Title))
		sb.WriteString(fmt.Sprintf("    Feed: %s\n", a.FeedName))
		if a.PublishedDate != nil {
			sb.WriteString(fmt.Sprintf("    Published: %s\n", a.PublishedDate.Format("2006-01-02 15:04")))
		}
		if a.Content != "" {
			sb.WriteString(fmt.Sprintf("    Preview: %s\n", clip(a.Content, 200)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatClustersForJudging(clusters []news.Cluster) string {
	var sb strings.Builder
	for i, c := range clusters {
		sb.WriteString(fmt.Sprintf("%d. [ID: %s] %s\n", i+1, c.NewsID, c.Title))
		sb.WriteString(fmt.Sprintf("   Summary: %s\n", clip(c.Summary, 200)))
		sb.WriteString(fmt.Sprintf("   Topic: %s | Articles: %d | Created: %s\n\n",
			c.MainTopic, c.ArticleCount, c.CreatedAt.Format("2006-01-02 15:04")))
	}
	return sb.String()
}

// cleanJSONResponse strips markdown fences and surrounding prose from a
// model response, keeping the outermost JSON object.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}

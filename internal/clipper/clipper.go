// Package clipper imports recipes from web pages into the recipe repository.
package clipper

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"pantry-planner/internal/llm"
	"pantry-planner/internal/metrics"
	"pantry-planner/internal/recipe"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// Clipper handles fetching and extracting recipes from URLs.
type Clipper struct {
	recipeRepo   *recipe.Repository
	textGen      llm.TextGenerator
	metricsStore *metrics.Store
	httpClient   *http.Client
}

// NewClipper creates a new Clipper instance. metricsStore may be nil.
func NewClipper(recipeRepo *recipe.Repository, textGen llm.TextGenerator, metricsStore *metrics.Store) *Clipper {
	return &Clipper{
		recipeRepo:   recipeRepo,
		textGen:      textGen,
		metricsStore: metricsStore,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
}

// ClipURL fetches the URL, extracts a structured recipe, and saves it.
// The extractor parses free-text ingredient lines into quantity/unit/name
// here, at ingestion, so availability checks never re-parse ambiguous data.
func (c *Clipper) ClipURL(ctx context.Context, url string) (*recipe.Recipe, error) {
	content, title, err := c.fetchAndCleanHTML(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}

	result, err := recipe.Extract(ctx, c.textGen, recipe.PageData{
		ID:        uuid.NewString(),
		Title:     title,
		SourceURL: url,
		Content:   content,
	})
	if err != nil {
		c.record(metrics.OperationMetric{Operation: "clip", FailedCount: 1})
		return nil, fmt.Errorf("recipe extraction failed: %w", err)
	}

	if err := c.recipeRepo.Save(ctx, result.Recipe); err != nil {
		return nil, fmt.Errorf("failed to save clipped recipe: %w", err)
	}

	log.Printf("Clipped %q: %d ingredients, %d tokens, %s",
		result.Recipe.Title, len(result.Recipe.Ingredients), result.Usage.TotalTokens, result.Latency)
	c.record(metrics.OperationMetric{
		Operation: "clip",
		ItemCount: len(result.Recipe.Ingredients),
		LatencyMS: result.Latency.Milliseconds(),
	})

	return &result.Recipe, nil
}

func (c *Clipper) record(m metrics.OperationMetric) {
	if c.metricsStore == nil {
		return
	}
	if err := c.metricsStore.Record(m); err != nil {
		log.Printf("Warning: failed to record clip metric: %v", err)
	}
}

func (c *Clipper) fetchAndCleanHTML(url string) (string, string, error) {
	resp, err := c.httpClient.Get(url)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", "", err
	}

	// Remove noise to save LLM tokens
	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	title := doc.Find("title").First().Text()
	return doc.Find("body").Text(), title, nil
}

package recipe

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"pantry-planner/internal/llm"
)

//go:embed extractor_prompt.md
var extractorPrompt string

// PageData is the raw material handed to the extractor: page text plus the
// identifiers minted at ingestion.
type PageData struct {
	ID        string
	Title     string
	SourceURL string
	Content   string
}

// ExtractorResult carries the normalized recipe and operational metadata.
type ExtractorResult struct {
	Recipe  Recipe
	Usage   llm.TokenUsage
	Latency time.Duration
}

// Extract normalizes raw page content into a structured recipe. Ambiguous
// external data (free-text ingredient lines, mixed quantity formats) is
// resolved here, once, at the ingestion boundary; downstream components only
// ever see IngredientRequirement values.
func Extract(ctx context.Context, textGen llm.TextGenerator, data PageData) (ExtractorResult, error) {
	start := time.Now()

	prompt, err := buildExtractorPrompt(data)
	if err != nil {
		return ExtractorResult{}, err
	}

	llmResp, err := textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return ExtractorResult{}, fmt.Errorf("failed to get LLM response: %w", err)
	}

	rec := Recipe{}
	if err := json.Unmarshal([]byte(llmResp.Content), &rec); err != nil {
		return ExtractorResult{Usage: llmResp.Usage}, fmt.Errorf(
			"failed to unmarshal LLM response: %w. LLM Response: %s", err, llmResp.Content)
	}

	rec.ID = data.ID
	rec.SourceURL = data.SourceURL
	rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	return ExtractorResult{
		Recipe:  rec,
		Usage:   llmResp.Usage,
		Latency: time.Since(start),
	}, nil
}

func buildExtractorPrompt(data PageData) (string, error) {
	tmpl, err := template.New("extractor").Parse(extractorPrompt)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

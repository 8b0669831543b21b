package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joescharf/revu/internal/models"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-haiku-4-5-20251001"

// Client wraps the Anthropic API for code review and summaries.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if model == "" {
		model = DefaultModel
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// complete sends one system+user exchange and returns the text reply with
// any markdown fencing removed.
func (c *Client) complete(ctx context.Context, system, user string, maxTokens int64) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}
	return stripFences(text), nil
}

// stripFences removes a surrounding ```json ... ``` block if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		} else {
			text = ""
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}

// buildReviewPrompt constructs the system and user prompts for reviewing one file.
func buildReviewPrompt(filename, content string, hints []string) (system string, user string) {
	system = `You are a senior software engineer reviewing one file of a code submission. Return ONLY a JSON object with these fields:
- "overall_score": number between 0 and 1 rating the overall code quality
- "confidence": number between 0 and 1, how confident you are in this review
- "strengths": array of strings, what the code does well
- "issues": array of strings, concrete problems found
- "recommendations": array of strings, specific improvements
- "refactoring_suggestions": array of strings
- "security_concerns": array of strings

Rules:
- Focus on correctness, security, performance, maintainability and best practices
- Keep each entry to one sentence
- Use empty arrays rather than omitting fields
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	if len(hints) > 0 {
		sb.WriteString("Context:\n")
		for _, h := range hints {
			sb.WriteString("- ")
			sb.WriteString(h)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("File: ")
	sb.WriteString(filename)
	sb.WriteString("\n\n")
	sb.WriteString(content)
	user = sb.String()
	return
}

type reviewResponse struct {
	OverallScore           float64  `json:"overall_score"`
	Confidence             float64  `json:"confidence"`
	Strengths              []string `json:"strengths"`
	Issues                 []string `json:"issues"`
	Recommendations        []string `json:"recommendations"`
	RefactoringSuggestions []string `json:"refactoring_suggestions"`
	SecurityConcerns       []string `json:"security_concerns"`
}

// parseReview decodes a review reply. Scores are clamped to [0, 1].
func parseReview(filename, text string) (models.AIReviewResult, error) {
	var r reviewResponse
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return models.AIReviewResult{}, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	return models.AIReviewResult{
		Filename:               filename,
		OverallScore:           clamp01(r.OverallScore),
		Confidence:             clamp01(r.Confidence),
		Strengths:              r.Strengths,
		Issues:                 r.Issues,
		Recommendations:        r.Recommendations,
		RefactoringSuggestions: r.RefactoringSuggestions,
		SecurityConcerns:       r.SecurityConcerns,
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// FallbackReview is the review recorded when the model could not produce one.
func FallbackReview(err error) models.AIReviewResult {
	res := models.AIReviewResult{
		OverallScore:    0.7,
		Confidence:      0.6,
		Strengths:       []string{"Code structure appears reasonable"},
		Issues:          []string{"AI review unavailable"},
		Recommendations: []string{"Manual code review recommended"},
	}
	if err != nil {
		res.Note = err.Error()
	}
	return res
}

// ReviewCode asks the model to review one file. An unparseable reply yields
// the fallback review; only transport failures are returned as errors.
func (c *Client) ReviewCode(ctx context.Context, filename, content string, hints []string) (models.AIReviewResult, error) {
	systemPrompt, userPrompt := buildReviewPrompt(filename, content, hints)
	text, err := c.complete(ctx, systemPrompt, userPrompt, 2048)
	if err != nil {
		return models.AIReviewResult{}, err
	}
	res, err := parseReview(filename, text)
	if err != nil {
		res = FallbackReview(err)
		res.Filename = filename
	}
	return res, nil
}

// buildSummaryPrompt constructs the prompts for the consolidated summary.
func buildSummaryPrompt(sub models.Submission, res models.Results) (system string, user string) {
	system = `You consolidate automated code review results into a decision summary. Return ONLY a JSON object with these fields:
- "recommendation": one of "APPROVE", "NEEDS_WORK", "REJECT"
- "priority": one of "LOW", "MEDIUM", "HIGH"
- "key_findings": array of strings, the most important observations
- "action_items": array of strings, what the author should do next
- "approval_criteria": array of strings, what must hold before approval

Rules:
- Any high severity security finding means "REJECT" with priority "HIGH"
- Base every finding on the provided metrics, do not invent issues
- Return valid JSON only, no markdown fencing or explanation`

	m := res.Means()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Submission #%d: %s\n", sub.Number, sub.Title)
	if sub.Author != "" {
		fmt.Fprintf(&sb, "Author: %s\n", sub.Author)
	}
	sb.WriteString("\nMetrics:\n")
	fmt.Fprintf(&sb, "- Security score: %.2f/10 (%d findings, %d high severity)\n", m.SecurityScore, res.FindingCount(), m.HighSeverityIssues)
	fmt.Fprintf(&sb, "- Quality score: %.2f/10\n", m.QualityScore)
	fmt.Fprintf(&sb, "- Test coverage: %.1f%%\n", m.Coverage)
	fmt.Fprintf(&sb, "- AI review score: %.2f\n", m.AIScore)
	fmt.Fprintf(&sb, "- Documentation coverage: %.1f%%\n", m.DocumentationCoverage)

	var issues []string
	for _, r := range res.AIReview {
		for _, is := range r.Issues {
			issues = append(issues, r.Filename+": "+is)
		}
	}
	if len(issues) > 0 {
		sb.WriteString("\nReviewer issues:\n")
		for _, is := range issues {
			sb.WriteString("- ")
			sb.WriteString(is)
			sb.WriteString("\n")
		}
	}
	for _, mt := range res.MissingTests {
		fmt.Fprintf(&sb, "\nMissing tests in %s: %s\n", mt.Filename,
			strings.Join(append(append([]string{}, mt.UntestedFunctions...), mt.UntestedTypes...), ", "))
	}
	user = sb.String()
	return
}

type summaryResponse struct {
	Recommendation   string   `json:"recommendation"`
	Priority         string   `json:"priority"`
	KeyFindings      []string `json:"key_findings"`
	ActionItems      []string `json:"action_items"`
	ApprovalCriteria []string `json:"approval_criteria"`
}

func parseSummary(text string) (models.Summary, error) {
	var r summaryResponse
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return models.Summary{}, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	rec := strings.ToUpper(strings.TrimSpace(r.Recommendation))
	switch rec {
	case "APPROVE", "NEEDS_WORK", "REJECT":
	default:
		return models.Summary{}, fmt.Errorf("unknown recommendation %q", r.Recommendation)
	}
	priority := strings.ToUpper(strings.TrimSpace(r.Priority))
	if priority == "" {
		priority = "MEDIUM"
	}
	return models.Summary{
		Recommendation:   rec,
		Priority:         priority,
		KeyFindings:      r.KeyFindings,
		ActionItems:      r.ActionItems,
		ApprovalCriteria: r.ApprovalCriteria,
		Source:           "llm",
	}, nil
}

// Summarize asks the model for the consolidated summary of all results.
func (c *Client) Summarize(ctx context.Context, sub models.Submission, res models.Results) (models.Summary, error) {
	systemPrompt, userPrompt := buildSummaryPrompt(sub, res)
	text, err := c.complete(ctx, systemPrompt, userPrompt, 2048)
	if err != nil {
		return models.Summary{}, err
	}
	return parseSummary(text)
}

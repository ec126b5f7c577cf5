// Package llm classifies human replies to AI review comments using the
// Anthropic API.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joescharf/revdash/internal/models"
)

// Client wraps the Anthropic API for sentiment classification.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
// Extra request options (for example option.WithBaseURL) are passed through.
func NewClient(apiKey, model string, extra ...option.RequestOption) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	opts = append(opts, extra...)
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

type classification struct {
	Sentiment string `json:"sentiment"`
	Reason    string `json:"reason"`
}

// buildClassifyPrompt constructs the system and user prompts for classifying
// how humans responded to an AI review comment.
func buildClassifyPrompt(comment string, replies []string) (system string, user string) {
	system = `You judge how developers reacted to an automated code review comment. Return ONLY a JSON object with these fields:
- "sentiment": one of "positive", "negative", "neutral"
- "reason": one short sentence

Rules:
- "positive": the replies agree, thank the reviewer, or say the suggestion was applied
- "negative": the replies dismiss the comment as wrong, noisy, or irrelevant
- "neutral": the replies are questions, discussion, or mixed
- Judge the replies, not the quality of the original comment
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	sb.WriteString("Review comment:\n")
	sb.WriteString(comment)
	sb.WriteString("\n")
	for i, r := range replies {
		fmt.Fprintf(&sb, "\nReply %d:\n%s\n", i+1, r)
	}
	user = sb.String()
	return
}

// parseClassification decodes the model's JSON answer.
func parseClassification(text string) (models.Sentiment, error) {
	text = stripFencing(text)

	var c classification
	if err := json.Unmarshal([]byte(text), &c); err != nil {
		return "", fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	s := models.Sentiment(strings.ToLower(strings.TrimSpace(c.Sentiment)))
	if !s.Valid() {
		return "", fmt.Errorf("unexpected sentiment %q in LLM response", c.Sentiment)
	}
	return s, nil
}

// stripFencing removes a surrounding markdown code fence if present.
func stripFencing(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}

// ClassifySentiment asks the model how the replies received the comment.
// With no replies there is nothing to judge and the result is empty.
func (c *Client) ClassifySentiment(ctx context.Context, comment string, replies []string) (models.Sentiment, error) {
	if len(replies) == 0 {
		return "", nil
	}
	systemPrompt, userPrompt := buildClassifyPrompt(comment, replies)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 256,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	// Extract text from response
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

	return parseClassification(text)
}

package llm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/inov8tr/ecolab/internal/models"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5"

// Client wraps the Anthropic API for drafting summary notes.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
// Extra request options (base URL, HTTP client) are passed through.
func NewClient(apiKey, model string, extra ...option.RequestOption) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	opts = append(opts, extra...)
	if model == "" {
		model = DefaultModel
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildNotesPrompt constructs the system and user prompts for summary notes.
func buildNotesPrompt(test *models.BinderTest, metrics []*models.Metric) (system string, user string) {
	system = `You write the notes section of a frozen asphalt binder test summary for laboratory peer reviewers.

Rules:
- Use only the confirmed metrics given; never invent values, units or positions
- 2-5 plain sentences, no headings, no lists, no markdown
- Mention the performance grade bounds when pgHigh or pgLow metrics are present
- Point out metrics without units or temperature so reviewers can check them
- Return the notes text only, no preamble or explanation`

	var sb strings.Builder
	sb.WriteString("Binder test: ")
	sb.WriteString(test.Name)
	sb.WriteString("\n")
	for _, f := range []struct{ label, value string }{
		{"Test", test.TestName},
		{"Standard", test.TestStandard},
		{"Purpose", test.TestPurpose},
		{"Material", test.MaterialDescription},
		{"Binder source", test.BinderSource},
		{"Batch", test.BatchID},
	} {
		if f.value != "" {
			fmt.Fprintf(&sb, "%s: %s\n", f.label, f.value)
		}
	}

	sb.WriteString("\nConfirmed metrics:\n")
	for _, m := range metrics {
		sb.WriteString("- ")
		sb.WriteString(m.DisplayName())
		if m.Position != "" {
			sb.WriteString(" @ ")
			sb.WriteString(m.Position)
		}
		sb.WriteString(" = ")
		sb.WriteString(formatValue(m.Value))
		if m.Units != "" {
			sb.WriteString(" ")
			sb.WriteString(m.Units)
		}
		if m.Temperature != nil {
			sb.WriteString(" at ")
			sb.WriteString(formatValue(m.Temperature))
			sb.WriteString(" C")
		}
		sb.WriteString("\n")
	}
	user = sb.String()
	return
}

func formatValue(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// DraftSummaryNotes asks the model for reviewer-facing notes on a test's
// confirmed metrics.
func (c *Client) DraftSummaryNotes(ctx context.Context, test *models.BinderTest, metrics []*models.Metric) (string, error) {
	systemPrompt, userPrompt := buildNotesPrompt(test, metrics)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
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

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	text = stripFence(text)
	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}
	return text, nil
}

// stripFence removes a surrounding markdown code fence, if present.
func stripFence(text string) string {
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

package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// Tone asks an LLM (via OpenRouter) for a short motivational line matched to
// the user's recent performance. Without an API key, or on any failure, it
// falls back to static lines, so dispatch never depends on the model.
type Tone struct {
	client *openai.Client
	model  openai.ChatModel
}

// NewTone returns a generator; apiKey may be empty for fallback-only mode.
func NewTone(apiKey string) *Tone {
	if apiKey == "" {
		return &Tone{}
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(openRouterBaseURL),
	)
	return &Tone{
		client: &client,
		model:  "openai/gpt-4o-mini",
	}
}

func (t *Tone) DispatchLine(ctx context.Context, reminderText string, streak, failures int) string {
	if t.client == nil {
		return fallbackLine(streak)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	prompt := fmt.Sprintf(
		"You are a wellbeing assistant. The user has a %d-day streak and %d recent misses. "+
			"Activity: %s. Write one short line (max 150 characters), upbeat if the streak "+
			"is high, understanding but encouraging after misses. Reply with the line only.",
		streak, failures, reminderText)

	resp, err := t.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: t.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature:         openai.Float(0.7),
		MaxCompletionTokens: openai.Int(60),
	})
	if err != nil || len(resp.Choices) == 0 {
		return fallbackLine(streak)
	}

	line := strings.TrimSpace(resp.Choices[0].Message.Content)
	if line == "" {
		return fallbackLine(streak)
	}
	return line
}

func fallbackLine(streak int) string {
	if streak >= 5 {
		return "You're on a streak! Keep it going."
	}
	return "Time for your scheduled activity."
}

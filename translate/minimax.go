package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/sashabaranov/go-openai"
)

// MiniMax exposes an OpenAI-shaped chat completion API, so the client
// library only needs a different base URL.
const MinimaxBaseURL = "https://api.minimax.chat/v1"

const minimaxModel = "MiniMax-Text-01"

type MinimaxTranslator struct {
	client *openai.Client
	logger *log.Logger
}

func NewMinimaxTranslator(
	apiKey string,
	baseURL string,
	logger *log.Logger,
) *MinimaxTranslator {
	if baseURL == "" {
		baseURL = MinimaxBaseURL
	}
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &MinimaxTranslator{
		client: openai.NewClientWithConfig(config),
		logger: logger,
	}
}

func (m *MinimaxTranslator) Translate(
	ctx context.Context,
	text, sourceLang, targetLang string,
) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	systemPrompt := fmt.Sprintf(
		"You are a real-time interpreter translating from %s to %s. "+
			"Translate the following spoken text naturally and accurately. "+
			"Preserve the speaker's tone, intent, and emotional nuance. "+
			"Output ONLY the translation, nothing else. No explanations, no quotes.",
		LanguageName(sourceLang),
		LanguageName(targetLang),
	)

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: minimaxModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in translation response")
	}

	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	m.logger.Debug(
		"translate",
		"from", sourceLang,
		"to", targetLang,
		"chars", len(translated),
	)

	return translated, nil
}

// Package answer generates natural-language answers from ranked article
// matches. It is a thin collaborator around an external text-generation
// service; the retrieval core never depends on it.
package answer

import (
	"context"
	"fmt"
	"strings"

	"claro-backend/internal/domain"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Fallback is returned to the user when answer generation fails; retrieval
// results are still served.
const Fallback = "Przepraszam, wystąpił błąd podczas generowania odpowiedzi. Proszę spróbować ponownie później."

const systemPrompt = "Jesteś prawnikiem specjalizującym się w polskim prawie. " +
	"Odpowiadasz na pytania użytkowników na podstawie przepisów prawnych."

// contextPreviewLen bounds how much of each article is quoted to the model.
const contextPreviewLen = 300

// Client calls the chat-completion API.
type Client struct {
	api    *openai.Client
	model  string
	logger *zap.Logger
}

func NewClient(apiKey, model string, logger *zap.Logger) *Client {
	return &Client{
		api:    openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// Generate produces an answer to the query grounded in the matched articles.
func (c *Client) Generate(ctx context.Context, query string, results []domain.SearchResult) (string, error) {
	var sb strings.Builder
	for _, res := range results {
		preview := res.Content
		if len(preview) > contextPreviewLen {
			preview = preview[:contextPreviewLen] + "..."
		}
		fmt.Fprintf(&sb, "\n\nArtykuł %s (%s):\n%s", res.ArticleNumber, res.LawName, preview)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Pytanie: %s\n\nPowiązane przepisy:%s", query, sb.String())},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
	})
	if err != nil {
		c.logger.Error("chat completion failed", zap.Error(err))
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// PromptTurn is one entry of the bounded prompt sent to the remote model,
// already mapped to the model's role vocabulary ("user" / "model").
type PromptTurn struct {
	Role string
	Text string
}

// Generator is the remote model collaborator: an opaque, possibly slow,
// possibly failing function from prompt turns to reply text.
type Generator interface {
	Generate(ctx context.Context, turns []PromptTurn) (string, error)
}

type GeminiGenerator struct {
	client    *genai.Client
	modelName string
}

func NewGeminiGenerator(ctx context.Context, apiKey, modelName string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiGenerator{client: client, modelName: modelName}, nil
}

func (g *GeminiGenerator) Close() {
	if g == nil || g.client == nil {
		return
	}
	if err := g.client.Close(); err != nil {
		log.Error().Err(err).Msg("error closing GenAI client")
	}
}

// Generate sends the prompt as a chat: all turns but the last become the
// session history, the final user turn is the message itself.
func (g *GeminiGenerator) Generate(ctx context.Context, turns []PromptTurn) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("prompt is empty")
	}

	last := turns[len(turns)-1]
	if last.Role != "user" {
		return "", fmt.Errorf("last prompt turn is not from 'user', cannot send chat message")
	}

	model := g.client.GenerativeModel(g.modelName)
	chat := model.StartChat()
	for _, turn := range turns[:len(turns)-1] {
		chat.History = append(chat.History, &genai.Content{
			Role:  turn.Role,
			Parts: []genai.Part{genai.Text(turn.Text)},
		})
	}

	resp, err := chat.SendMessage(ctx, genai.Text(last.Text))
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response had no valid candidates")
	}

	var reply strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			reply.WriteString(string(txt))
		} else {
			log.Debug().Str("part_type", fmt.Sprintf("%T", part)).Msg("gemini response part was not text")
		}
	}

	if reply.Len() == 0 {
		return "", fmt.Errorf("gemini response contained no text parts")
	}
	return strings.TrimSpace(reply.String()), nil
}

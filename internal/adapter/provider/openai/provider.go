// Package openai implements the AI collaborators: semantic answer checking
// and whole-deck generation via an OpenAI-compatible chat completion API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/heartmarshall/flashdeck-backend/internal/config"
	"github.com/heartmarshall/flashdeck-backend/internal/domain"
)

// Provider wraps an OpenAI-compatible client for flashcard use cases.
type Provider struct {
	client          *openai.Client
	model           string
	checkTimeout    time.Duration
	generateTimeout time.Duration
}

// New creates a new AI provider from configuration.
func New(cfg config.AIConfig) *Provider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Provider{
		client:          openai.NewClientWithConfig(clientConfig),
		model:           cfg.Model,
		checkTimeout:    cfg.CheckTimeout,
		generateTimeout: cfg.GenerateTimeout,
	}
}

// ---------------------------------------------------------------------------
// Answer checking
// ---------------------------------------------------------------------------

const checkSystemPrompt = `You judge flashcard answers. Given the expected answer and the learner's answer,
respond with a JSON object: {"similarity": <0.0-1.0>, "category": "<exact|close|wrong>", "feedback": "<one short sentence>"}.
Judge meaning, not spelling. Respond with JSON only.`

// checkResponse is the JSON shape the model is instructed to return.
type checkResponse struct {
	Similarity float64 `json:"similarity"`
	Category   string  `json:"category"`
	Feedback   string  `json:"feedback"`
}

// SimilarityResult is the outcome of a semantic answer check.
type SimilarityResult struct {
	Similarity float64
	Category   string
	Feedback   string
}

// CheckAnswer asks the model how close the given answer is to the expected
// one. Returns domain.ErrTimeout if the model does not respond within the
// configured check timeout.
func (p *Provider) CheckAnswer(ctx context.Context, expected, given string) (*SimilarityResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.checkTimeout)
	defer cancel()

	userPrompt := fmt.Sprintf("Expected answer: %q\nLearner's answer: %q", expected, given)

	content, err := p.complete(ctx, checkSystemPrompt, userPrompt)
	if err != nil {
		return nil, mapProviderError(err, "check answer")
	}

	var resp checkResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &resp); err != nil {
		return nil, fmt.Errorf("check answer: parse model response: %w", err)
	}

	if resp.Similarity < 0 {
		resp.Similarity = 0
	}
	if resp.Similarity > 1 {
		resp.Similarity = 1
	}

	return &SimilarityResult{
		Similarity: resp.Similarity,
		Category:   resp.Category,
		Feedback:   resp.Feedback,
	}, nil
}

// ---------------------------------------------------------------------------
// Deck generation
// ---------------------------------------------------------------------------

const generateSystemPrompt = `You create flashcard decks. Given a topic and a card count,
respond with a JSON object: {"cards": [{"front": "<question or prompt>", "back": "<answer>"}]}.
Fronts and backs may use simple markdown. Respond with JSON only.`

// generateResponse is the JSON shape the model is instructed to return.
type generateResponse struct {
	Cards []struct {
		Front string `json:"front"`
		Back  string `json:"back"`
	} `json:"cards"`
}

// GeneratedCard is one card proposed by the model.
type GeneratedCard struct {
	Front string
	Back  string
}

// GenerateDeck asks the model for `count` cards about the topic. Generation
// can take a while on large decks; domain.ErrTimeout is returned when the
// configured generate timeout elapses first.
func (p *Provider) GenerateDeck(ctx context.Context, topic string, count int) ([]GeneratedCard, error) {
	ctx, cancel := context.WithTimeout(ctx, p.generateTimeout)
	defer cancel()

	userPrompt := fmt.Sprintf("Topic: %s\nNumber of cards: %d", topic, count)

	content, err := p.complete(ctx, generateSystemPrompt, userPrompt)
	if err != nil {
		return nil, mapProviderError(err, "generate deck")
	}

	var resp generateResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &resp); err != nil {
		return nil, fmt.Errorf("generate deck: parse model response: %w", err)
	}

	cards := make([]GeneratedCard, 0, len(resp.Cards))
	for _, c := range resp.Cards {
		front := strings.TrimSpace(c.Front)
		back := strings.TrimSpace(c.Back)
		if front == "" || back == "" {
			continue
		}
		cards = append(cards, GeneratedCard{Front: front, Back: back})
		if len(cards) == count {
			break
		}
	}

	if len(cards) == 0 {
		return nil, fmt.Errorf("generate deck: model returned no usable cards")
	}

	return cards, nil
}

// ---------------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------------

// complete runs a single system+user chat completion and returns the
// assistant's message content.
func (p *Provider) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}

	return resp.Choices[0].Message.Content, nil
}

// extractJSON strips markdown code fences some models wrap around JSON.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

// mapProviderError converts timeouts into domain.ErrTimeout so transports
// can distinguish a slow model from a broken one.
func mapProviderError(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, domain.ErrTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}

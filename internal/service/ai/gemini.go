package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

// GeminiConfig describes the Gemini chat backend.
type GeminiConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature *float32
	MaxTokens   int32
}

// GeminiChatModel adapts the genai client to eino's chat model contract.
type GeminiChatModel struct {
	models *genai.Models
	cfg    GeminiConfig
}

// NewGeminiChatModel creates a Gemini backend.
func NewGeminiChatModel(ctx context.Context, cfg GeminiConfig) (*GeminiChatModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("gemini model is required")
	}

	client, err := NewGeminiClient(ctx, cfg.APIKey, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	return &GeminiChatModel{models: client.Models, cfg: cfg}, nil
}

// NewGeminiClient builds a genai client for the Gemini API backend.
func NewGeminiClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

// Generate implements model.BaseChatModel.
func (m *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	contents := GeminiContents(input)

	var config *genai.GenerateContentConfig
	if m.cfg.Temperature != nil || m.cfg.MaxTokens > 0 {
		config = &genai.GenerateContentConfig{
			Temperature:     m.cfg.Temperature,
			MaxOutputTokens: m.cfg.MaxTokens,
		}
	}

	resp, err := m.models.GenerateContent(ctx, m.cfg.Model, contents, config)
	if err != nil {
		return nil, wrapGeminiError(err)
	}

	text, err := firstText(resp)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(text, nil), nil
}

// Stream implements model.BaseChatModel with a single-chunk stream.
func (m *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// GeminiContents converts chat messages into Gemini contents. The directive is
// sent as the leading user turn so that the order of the conversation is
// exactly the order of input.
func GeminiContents(input []*schema.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		role := genai.RoleUser
		if msg.Role == schema.Assistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	return contents
}

// firstText extracts the first candidate's first non-thought text part.
func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrNoCandidates
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return "", ErrNoCandidates
	}
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if strings.TrimSpace(part.Text) != "" {
			return part.Text, nil
		}
	}
	return "", ErrNoCandidates
}

func wrapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("gemini generate: %w", &StatusError{Code: apiErr.Code, Message: apiErr.Message})
	}
	return fmt.Errorf("gemini generate: %w", err)
}

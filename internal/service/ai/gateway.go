package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/puppettale/backend/internal/metrics"
	"github.com/puppettale/backend/internal/model/chat"
)

// Completer is the contract the pipelines depend on.
type Completer interface {
	Complete(ctx context.Context, system string, history []chat.Message, userMessage string) (string, error)
}

// Gateway sends ordered conversations to a chat backend and retries
// transient failures. It holds no per-call state and is safe for concurrent use.
type Gateway struct {
	backend  model.BaseChatModel
	name     string
	template prompt.ChatTemplate
	policy   RetryPolicy
}

// NewGateway wraps backend. name labels logs and metrics.
func NewGateway(backend model.BaseChatModel, name string, policy RetryPolicy) *Gateway {
	if name == "" {
		name = "default"
	}
	return &Gateway{
		backend: backend,
		name:    name,
		template: prompt.FromMessages(
			schema.FString,
			schema.SystemMessage("{system}"),
			schema.MessagesPlaceholder("history", true),
			schema.UserMessage("{query}"),
		),
		policy: policy.normalized(),
	}
}

// Complete returns the raw text of the first candidate. Failures are returned
// as *Error so callers can pick a degraded reply with DegradedReply.
func (g *Gateway) Complete(ctx context.Context, system string, history []chat.Message, userMessage string) (string, error) {
	messages, err := g.buildMessages(ctx, system, history, userMessage)
	if err != nil {
		return "", &Error{Kind: KindUnknown, Err: err}
	}

	var text string
	attempts, err := g.policy.Do(ctx, retryable, func(attempt int) error {
		resp, callErr := g.backend.Generate(ctx, messages)
		if callErr != nil {
			metrics.GatewayAttempts.WithLabelValues(g.name, "error").Inc()
			if retryable(callErr) {
				log.Printf("[gateway] backend=%s unavailable, attempt %d/%d", g.name, attempt, g.policy.MaxAttempts)
			}
			return callErr
		}
		if resp == nil || strings.TrimSpace(resp.Content) == "" {
			metrics.GatewayAttempts.WithLabelValues(g.name, "empty").Inc()
			return ErrNoCandidates
		}
		metrics.GatewayAttempts.WithLabelValues(g.name, "ok").Inc()
		text = resp.Content
		return nil
	})
	if err != nil {
		gwErr := classify(err, attempts)
		switch gwErr.Kind {
		case KindClient:
			log.Printf("[gateway] backend=%s rejected request (status %d): %v", g.name, gwErr.StatusCode, err)
		case KindEmpty:
			log.Printf("[gateway] backend=%s returned no usable text", g.name)
		default:
			log.Printf("[gateway] backend=%s failed after %d attempt(s): %v", g.name, attempts, err)
		}
		return "", gwErr
	}

	return text, nil
}

func (g *Gateway) buildMessages(ctx context.Context, system string, history []chat.Message, userMessage string) ([]*schema.Message, error) {
	messages, err := g.template.Format(ctx, map[string]any{
		"system":  system,
		"history": HistoryMessages(history),
		"query":   userMessage,
	})
	if err != nil {
		return nil, fmt.Errorf("format prompt: %w", err)
	}

	// A narrative request has no directive; drop the empty system slot.
	if strings.TrimSpace(system) == "" && len(messages) > 0 && messages[0].Role == schema.System {
		messages = messages[1:]
	}
	if len(messages) == 0 {
		return nil, errors.New("empty conversation")
	}
	return messages, nil
}

// HistoryMessages maps stored messages onto chat roles, preserving order.
func HistoryMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Speaker {
		case chat.SpeakerUser:
			history = append(history, schema.UserMessage(msg.Text))
		case chat.SpeakerAI:
			history = append(history, schema.AssistantMessage(msg.Text, nil))
		}
	}
	return history
}

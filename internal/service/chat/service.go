package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/puppettale/backend/internal/analysis/interpret"
	"github.com/puppettale/backend/internal/metrics"
	"github.com/puppettale/backend/internal/model/chat"
	"github.com/puppettale/backend/internal/model/child"
	"github.com/puppettale/backend/internal/model/sound"
	"github.com/puppettale/backend/internal/service/ai"
	"github.com/puppettale/backend/internal/service/safety"
	"github.com/puppettale/backend/internal/service/session"
	"github.com/puppettale/backend/internal/storage"
)

var (
	ErrSessionRequired = errors.New("session id is required")
	ErrEmptyMessage    = errors.New("message is required")
	ErrNoHistory       = errors.New("no history found")
)

const (
	// WaitReply answers a turn that arrived inside the debounce window.
	WaitReply = "I'm thinking! Please wait a moment."
	// EmptyMessageReply answers a turn without text.
	EmptyMessageReply = "Please enter a message."
	// DefaultConstraint is used when the request carries no extra constraint.
	DefaultConstraint = "none"
)

// Deps wires the turn pipeline's collaborators. Children may be nil.
type Deps struct {
	Sessions session.Store
	Messages storage.MessageStore
	Children storage.ChildStore
	Sounds   sound.Catalog
	Gateway  ai.Completer
	Prompts  *ai.PromptManager
	Gate     *safety.Gate
	Now      func() time.Time
}

// Service runs one conversational turn per call. It holds no per-session
// state itself; concurrent calls for different sessions never block each other.
type Service struct {
	sessions session.Store
	messages storage.MessageStore
	children storage.ChildStore
	sounds   sound.Catalog
	gateway  ai.Completer
	prompts  *ai.PromptManager
	gate     *safety.Gate
	now      func() time.Time
}

// NewService builds the turn pipeline.
func NewService(deps Deps) *Service {
	if deps.Prompts == nil {
		deps.Prompts = ai.NewPromptManager()
	}
	if deps.Gate == nil {
		deps.Gate = safety.New()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		sessions: deps.Sessions,
		messages: deps.Messages,
		children: deps.Children,
		sounds:   deps.Sounds,
		gateway:  deps.Gateway,
		prompts:  deps.Prompts,
		gate:     deps.Gate,
		now:      deps.Now,
	}
}

// ProcessTurn runs the full turn: debounce, persist the child's message, ask
// the model, interpret, gate, persist the reply. Backend failures never
// surface as errors; the degraded text becomes the reply. The turn runs to
// completion even when the caller goes away.
func (s *Service) ProcessTurn(ctx context.Context, req chat.TurnRequest) (chat.TurnResult, error) {
	ctx = context.WithoutCancel(ctx)

	if strings.TrimSpace(req.SessionID) == "" {
		return chat.TurnResult{}, ErrSessionRequired
	}
	if strings.TrimSpace(req.UserMessage) == "" {
		return chat.TurnResult{}, ErrEmptyMessage
	}

	now := s.now()
	accepted, err := s.sessions.TryTouch(ctx, req.SessionID, now)
	if err != nil {
		return chat.TurnResult{}, fmt.Errorf("debounce check: %w", err)
	}
	if !accepted {
		metrics.Turns.WithLabelValues("rejected").Inc()
		log.Printf("[chat] duplicate turn blocked session=%s", req.SessionID)
		return s.rejected(ctx, req.SessionID), nil
	}

	ambience, err := s.resolveAmbience(ctx, req.SessionID, req.AmbienceID)
	if err != nil {
		return chat.TurnResult{}, err
	}

	history, err := s.messages.ListMessages(ctx, req.SessionID)
	if err != nil {
		return chat.TurnResult{}, fmt.Errorf("load history: %w", err)
	}

	userMsg := chat.NewMessage(req.SessionID, chat.SpeakerUser, req.UserMessage, now)
	userMsg.ChildID = req.ChildID
	if _, err := s.messages.AppendMessage(ctx, userMsg); err != nil {
		return chat.TurnResult{}, fmt.Errorf("persist user message: %w", err)
	}

	p := storage.ResolvePersona(ctx, s.children, req.ChildID, s.now())
	p.Override(req.ChildName, req.ChildAge, req.PuppetName)
	constraint := strings.TrimSpace(req.Constraint)
	if constraint == "" {
		constraint = DefaultConstraint
	}
	directive := s.prompts.TurnDirective(ai.DirectiveParams{
		PuppetName:      p.PuppetName,
		ChildName:       p.ChildName,
		ChildAge:        p.ChildAge,
		Constraint:      constraint,
		Mode:            p.Mode,
		AmbienceContext: s.sounds.AIContext(ambience),
	})

	out := s.reply(ctx, directive, history, req.UserMessage, p)

	repliedAt := s.now()
	aiMsg := chat.NewMessage(req.SessionID, chat.SpeakerAI, out.text, repliedAt)
	aiMsg.ChildID = req.ChildID
	aiMsg.Emotion = out.emotion
	if _, err := s.messages.AppendMessage(ctx, aiMsg); err != nil {
		log.Printf("[chat] failed to persist ai message session=%s: %v", req.SessionID, err)
	}

	metrics.Turns.WithLabelValues(out.outcome).Inc()
	log.Printf("[chat] turn session=%s outcome=%s emotion=%s", req.SessionID, out.outcome, out.emotion)
	return chat.TurnResult{
		SessionID:          req.SessionID,
		AIResponse:         out.text,
		Timestamp:          repliedAt.Format(time.RFC3339),
		CurrentAmbienceID:  ambience,
		BackgroundImageURL: s.sounds.BackgroundURL(ambience),
	}, nil
}

// History returns a session's transcript in order.
func (s *Service) History(ctx context.Context, sessionID string) ([]chat.Message, error) {
	messages, err := s.messages.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, ErrNoHistory
	}
	return messages, nil
}

type turnReply struct {
	text    string
	outcome string
	emotion string
}

func (s *Service) reply(ctx context.Context, directive string, history []chat.Message, userMessage string, p child.Persona) turnReply {
	raw, err := s.gateway.Complete(ctx, directive, history, userMessage)
	if err != nil {
		log.Printf("[chat] gateway failed kind=%s: %v", ai.KindOf(err), err)
		return turnReply{text: ai.DegradedReply(err), outcome: "degraded", emotion: interpret.EstimateEmotion(userMessage)}
	}

	result := interpret.Interpret(raw)
	emotion := result.Emotion
	switch result.Kind {
	case interpret.PlainText:
		log.Printf("[chat] model ignored the json contract, using plain text")
		emotion = interpret.EstimateEmotion(userMessage)
	case interpret.Structured:
		log.Printf("[chat] analysis emotion=%q background=%q intent=%q", result.Emotion, result.Background, result.Intent)
	}
	if emotion == "" {
		emotion = interpret.EstimateEmotion(userMessage)
	}

	decision := s.gate.Apply(safety.Input{
		Status:     result.Safety,
		Reply:      result.Reply,
		ChildName:  p.ChildName,
		PuppetName: p.PuppetName,
	})
	if result.Safety.Blocking() {
		log.Printf("[chat] safety status %s detected", result.Safety)
		return turnReply{text: decision.Reply, outcome: "safety", emotion: emotion}
	}
	return turnReply{text: decision.Reply, outcome: "accepted", emotion: emotion}
}

// resolveAmbience stores an explicit choice and otherwise falls back to the
// last stored one.
func (s *Service) resolveAmbience(ctx context.Context, sessionID, requested string) (string, error) {
	requested = strings.ToLower(strings.TrimSpace(requested))
	if requested != "" && requested != "null" {
		if err := s.sessions.SetAmbience(ctx, sessionID, requested); err != nil {
			return "", fmt.Errorf("store ambience: %w", err)
		}
		return requested, nil
	}

	state, _, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	return state.AmbienceOrDefault(), nil
}

func (s *Service) rejected(ctx context.Context, sessionID string) chat.TurnResult {
	ambience := sound.DefaultID
	if state, ok, err := s.sessions.Get(ctx, sessionID); err == nil && ok {
		ambience = state.AmbienceOrDefault()
	}
	return chat.TurnResult{
		SessionID:          sessionID,
		AIResponse:         WaitReply,
		Timestamp:          s.now().Format(time.RFC3339),
		CurrentAmbienceID:  ambience,
		BackgroundImageURL: s.sounds.BackgroundURL(ambience),
		Rejected:           true,
	}
}

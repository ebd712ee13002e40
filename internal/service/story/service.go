package story

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/puppettale/backend/internal/analysis/interpret"
	"github.com/puppettale/backend/internal/metrics"
	"github.com/puppettale/backend/internal/model/child"
	"github.com/puppettale/backend/internal/model/story"
	"github.com/puppettale/backend/internal/service/ai"
	"github.com/puppettale/backend/internal/storage"
)

var (
	ErrInsufficientData     = errors.New("cannot generate story: insufficient data")
	ErrSafetyConcern        = errors.New("cannot generate story: safety concern")
	ErrNarrativeUnavailable = errors.New("cannot generate story: narrative unavailable")
)

// Renderer turns an image prompt into a public image URL.
type Renderer interface {
	Render(ctx context.Context, prompt string) (string, error)
}

// Config bounds the generated book.
type Config struct {
	MinPages       int
	MaxPages       int
	Concurrency    int
	PlaceholderURL string
}

// Deps wires the synthesis pipeline's collaborators.
type Deps struct {
	Messages storage.MessageStore
	Stories  storage.StoryStore
	Children storage.ChildStore
	Gateway  ai.Completer
	Prompts  *ai.PromptManager
	Renderer Renderer
	Now      func() time.Time
}

// Service synthesises an illustrated story from a finished conversation.
type Service struct {
	deps Deps
	cfg  Config
}

// NewService builds the pipeline, filling zero config values with defaults.
func NewService(deps Deps, cfg Config) *Service {
	if deps.Prompts == nil {
		deps.Prompts = ai.NewPromptManager()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.MinPages <= 0 {
		cfg.MinPages = DefaultMinPages
	}
	if cfg.MaxPages < cfg.MinPages {
		cfg.MaxPages = DefaultMaxPages
		if cfg.MaxPages < cfg.MinPages {
			cfg.MaxPages = cfg.MinPages
		}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	return &Service{deps: deps, cfg: cfg}
}

// Create runs analyse, safety check, narrate, paginate, illustrate and
// persist. On ErrSafetyConcern the returned artifact still carries the
// detected emotion and ingredients but no pages. A caller going away does
// not abort the external calls or the final write.
func (s *Service) Create(ctx context.Context, req story.CreateRequest) (story.Artifact, error) {
	ctx = context.WithoutCancel(ctx)
	now := s.deps.Now()
	p := storage.ResolvePersona(ctx, s.deps.Children, req.ChildID, now)
	p.Override(req.ChildName, req.ChildAge, req.PuppetName)

	analysis, err := s.analyze(ctx, req.SessionID, p)
	if err != nil {
		metrics.Stories.WithLabelValues("insufficient_data").Inc()
		return story.Artifact{SessionID: req.SessionID, Pages: []story.Page{}}, err
	}

	if analysis.Safety.Blocking() {
		metrics.Stories.WithLabelValues("safety").Inc()
		log.Printf("[story] session=%s blocked by safety status %s", req.SessionID, analysis.Safety)
		return story.Artifact{
			SessionID:   req.SessionID,
			Pages:       []story.Page{},
			Emotion:     analysis.Emotion,
			Ingredients: analysis.Ingredients,
		}, ErrSafetyConcern
	}

	instruction := s.deps.Prompts.StoryInstruction(ai.StoryParams{
		PuppetName:  p.PuppetName,
		ChildName:   p.ChildName,
		ChildAge:    p.ChildAge,
		Ingredients: analysis.Ingredients,
	})
	narrative, err := s.deps.Gateway.Complete(ctx, "", nil, instruction)
	if err != nil {
		metrics.Stories.WithLabelValues("narrative_failed").Inc()
		log.Printf("[story] narrative generation failed session=%s: %v", req.SessionID, err)
		return story.Artifact{SessionID: req.SessionID, Pages: []story.Page{}}, fmt.Errorf("%w: %v", ErrNarrativeUnavailable, err)
	}
	narrative = strings.TrimSpace(narrative)

	pages, written := Paginate(narrative, s.cfg.MinPages, s.cfg.MaxPages, s.cfg.PlaceholderURL)
	if written < len(pages) {
		log.Printf("[story] session=%s narrative filled %d of %d pages, padding the rest", req.SessionID, written, len(pages))
	}
	s.illustrate(ctx, pages, p, analysis.Ingredients)

	rec, err := s.deps.Stories.SaveStory(ctx, story.Record{
		ChildID:      req.ChildID,
		SessionID:    req.SessionID,
		Title:        now.Format(time.DateOnly),
		ThumbnailURL: pages[len(pages)-1].ImageURL,
		Pages:        pages,
		CreatedAt:    now,
	})
	if err != nil {
		metrics.Stories.WithLabelValues("persist_failed").Inc()
		return story.Artifact{}, fmt.Errorf("persist story: %w", err)
	}

	metrics.Stories.WithLabelValues("created").Inc()
	log.Printf("[story] created story=%s session=%s pages=%d", rec.ID, req.SessionID, len(rec.Pages))
	return story.Artifact{
		SessionID:     req.SessionID,
		StoryID:       rec.ID,
		Title:         rec.Title,
		ThumbnailURL:  rec.ThumbnailURL,
		Pages:         rec.Pages,
		NarrativeText: narrative,
		Emotion:       analysis.Emotion,
		Ingredients:   analysis.Ingredients,
	}, nil
}

func (s *Service) analyze(ctx context.Context, sessionID string, p child.Persona) (story.Analysis, error) {
	history, err := s.deps.Messages.ListMessages(ctx, sessionID)
	if err != nil {
		return story.Analysis{}, fmt.Errorf("load history: %w", err)
	}
	if len(history) == 0 {
		log.Printf("[story] session=%s has no history to analyse", sessionID)
		return story.Analysis{}, ErrInsufficientData
	}

	directive := s.deps.Prompts.AnalysisDirective(p.PuppetName, p.ChildName, p.ChildAge)
	raw, err := s.deps.Gateway.Complete(ctx, directive, history, ai.AnalysisRequest)
	if err != nil {
		log.Printf("[story] analysis call failed session=%s: %v", sessionID, err)
		return story.Analysis{}, fmt.Errorf("%w: %v", ErrInsufficientData, err)
	}

	result := interpret.Interpret(raw)
	if result.Kind != interpret.Structured || !result.HasAnalysis {
		log.Printf("[story] analysis for session=%s was %s, not usable", sessionID, result.Kind)
		return story.Analysis{}, ErrInsufficientData
	}
	return result.Analysis(), nil
}

// illustrate fills ImageURL for each page, bounded by the configured
// concurrency. A failed page gets the placeholder.
func (s *Service) illustrate(ctx context.Context, pages []story.Page, p child.Persona, ingredients []story.Ingredient) {
	if s.deps.Renderer == nil {
		for i := range pages {
			pages[i].ImageURL = s.cfg.PlaceholderURL
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i := range pages {
		i := i
		g.Go(func() error {
			prompt := ImagePrompt(pages[i].Text, p, ingredients)
			url, err := s.deps.Renderer.Render(ctx, prompt)
			if err != nil || url == "" {
				metrics.IllustrationFallbacks.Inc()
				log.Printf("[story] illustration failed for page %d, using placeholder: %v", pages[i].Number, err)
				url = s.cfg.PlaceholderURL
			}
			pages[i].ImageURL = url
			return nil
		})
	}
	_ = g.Wait()
}

package story

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puppettale/backend/internal/model/chat"
	"github.com/puppettale/backend/internal/model/child"
	"github.com/puppettale/backend/internal/model/story"
	"github.com/puppettale/backend/internal/service/ai"
	"github.com/puppettale/backend/internal/storage"
)

const placeholder = "https://cdn.example.com/placeholder-image.png"

// routedGateway answers analysis and narrative requests differently.
type routedGateway struct {
	mu           sync.Mutex
	analysis     string
	analysisErr  error
	narrative    string
	narrativeErr error
	requests     []string
}

func (g *routedGateway) Complete(_ context.Context, system string, _ []chat.Message, userMessage string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, userMessage)
	if system != "" {
		return g.analysis, g.analysisErr
	}
	return g.narrative, g.narrativeErr
}

type fakeRenderer struct {
	mu      sync.Mutex
	fail    map[string]bool
	prompts []string
}

func (r *fakeRenderer) Render(_ context.Context, prompt string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
	for marker := range r.fail {
		if strings.Contains(prompt, marker) {
			return "", errors.New("no image data")
		}
	}
	return fmt.Sprintf("https://images.example.com/%d.png", len(r.prompts)), nil
}

const greenAnalysis = "```json\n" + `{"thought_process":{"safety_status":"GREEN","detected_emotion":"hopeful",
"story_ingredients":[{"type":"animal","fantasy_element":"a flying whale","real_memory":"saw a whale book"}]},"response":"ok"}` + "\n```"

func seedHistory(t *testing.T, store *storage.MemoryStore, sessionID string, n int) {
	t.Helper()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		speaker := chat.SpeakerUser
		if i%2 == 1 {
			speaker = chat.SpeakerAI
		}
		_, err := store.AppendMessage(context.Background(), chat.NewMessage(sessionID, speaker, fmt.Sprintf("line %d", i), base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}
}

func newService(store *storage.MemoryStore, gw ai.Completer, renderer Renderer) *Service {
	return NewService(Deps{
		Messages: store,
		Stories:  store,
		Children: store,
		Gateway:  gw,
		Renderer: renderer,
		Now:      func() time.Time { return time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC) },
	}, Config{MinPages: 3, MaxPages: 4, Concurrency: 2, PlaceholderURL: placeholder})
}

func TestCreateBuildsFourPagesFromFiveParagraphs(t *testing.T) {
	store := storage.NewMemoryStore()
	seedHistory(t, store, "s1", 6)
	gw := &routedGateway{
		analysis:  greenAnalysis,
		narrative: "Mina met a flying whale.\n\nThey sailed the sky.\n\nTori laughed.\n\nThey came home.\n\nThe end.",
	}
	renderer := &fakeRenderer{fail: map[string]bool{"sailed the sky": true}}

	art, err := newService(store, gw, renderer).Create(context.Background(), story.CreateRequest{
		SessionID: "s1", ChildID: "c1", ChildName: "Mina",
	})
	require.NoError(t, err)

	require.Len(t, art.Pages, 4)
	for i, p := range art.Pages {
		assert.Equal(t, i+1, p.Number)
		assert.NotEmpty(t, p.ImageURL)
	}
	assert.Equal(t, "They came home.", art.Pages[3].Text)
	assert.Equal(t, placeholder, art.Pages[1].ImageURL)
	assert.Equal(t, art.Pages[3].ImageURL, art.ThumbnailURL)
	assert.Equal(t, "2024-05-02", art.Title)
	assert.Equal(t, "hopeful", art.Emotion)
	require.Len(t, art.Ingredients, 1)
	assert.Contains(t, art.NarrativeText, "The end.")
	assert.Len(t, renderer.prompts, 4)

	saved, err := store.GetStory(context.Background(), "c1", art.StoryID)
	require.NoError(t, err)
	assert.Len(t, saved.Pages, 4)

	assert.Equal(t, ai.AnalysisRequest, gw.requests[0])
	assert.Contains(t, gw.requests[1], "a flying whale")
}

func TestCreateAbortsOnSafetyConcern(t *testing.T) {
	store := storage.NewMemoryStore()
	seedHistory(t, store, "s1", 4)
	gw := &routedGateway{
		analysis: `{"thought_process":{"safety_status":"RED_FLAG","detected_emotion":"afraid","story_ingredients":[{"type":"fear","fantasy_element":"shadow","real_memory":"dark room"}]},"response":""}`,
	}
	renderer := &fakeRenderer{}

	art, err := newService(store, gw, renderer).Create(context.Background(), story.CreateRequest{SessionID: "s1", ChildID: "c1"})

	assert.ErrorIs(t, err, ErrSafetyConcern)
	assert.Empty(t, art.Pages)
	assert.Equal(t, "afraid", art.Emotion)
	assert.Len(t, art.Ingredients, 1)
	assert.Len(t, gw.requests, 1, "narrative must not be requested")
	assert.Empty(t, renderer.prompts)

	list, _ := store.ListStories(context.Background(), "c1")
	assert.Empty(t, list)
}

func TestCreateNeedsHistory(t *testing.T) {
	store := storage.NewMemoryStore()
	gw := &routedGateway{analysis: greenAnalysis}

	_, err := newService(store, gw, nil).Create(context.Background(), story.CreateRequest{SessionID: "empty"})

	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Empty(t, gw.requests)
}

func TestCreateRejectsUnstructuredAnalysis(t *testing.T) {
	store := storage.NewMemoryStore()
	seedHistory(t, store, "s1", 2)
	gw := &routedGateway{analysis: "I think the child is happy."}

	_, err := newService(store, gw, nil).Create(context.Background(), story.CreateRequest{SessionID: "s1"})

	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCreateReportsNarrativeFailure(t *testing.T) {
	store := storage.NewMemoryStore()
	seedHistory(t, store, "s1", 2)
	gw := &routedGateway{analysis: greenAnalysis, narrativeErr: &ai.Error{Kind: ai.KindUnknown}}

	_, err := newService(store, gw, nil).Create(context.Background(), story.CreateRequest{SessionID: "s1", ChildID: "c1"})

	assert.ErrorIs(t, err, ErrNarrativeUnavailable)
	list, _ := store.ListStories(context.Background(), "c1")
	assert.Empty(t, list)
}

func TestCreateIllustratesPaddingPages(t *testing.T) {
	store := storage.NewMemoryStore()
	seedHistory(t, store, "s1", 2)
	gw := &routedGateway{analysis: greenAnalysis, narrative: "A single page about a flying whale."}
	renderer := &fakeRenderer{}

	art, err := newService(store, gw, renderer).Create(context.Background(), story.CreateRequest{SessionID: "s1", ChildID: "c1"})
	require.NoError(t, err)

	require.Len(t, art.Pages, 3)
	assert.Len(t, renderer.prompts, 3)
	closing := 0
	for _, prompt := range renderer.prompts {
		if strings.Contains(prompt, ClosingLine) {
			closing++
		}
	}
	assert.Equal(t, 2, closing)
	for _, p := range art.Pages {
		assert.NotEqual(t, placeholder, p.ImageURL)
	}
	assert.Equal(t, ClosingLine, art.Pages[2].Text)
	assert.Equal(t, art.Pages[2].ImageURL, art.ThumbnailURL)
}

func TestCreateFallsBackToPlaceholderForFailedPaddingPage(t *testing.T) {
	store := storage.NewMemoryStore()
	seedHistory(t, store, "s1", 2)
	gw := &routedGateway{analysis: greenAnalysis, narrative: "A single page about a flying whale."}
	renderer := &fakeRenderer{fail: map[string]bool{ClosingLine: true}}

	art, err := newService(store, gw, renderer).Create(context.Background(), story.CreateRequest{SessionID: "s1", ChildID: "c1"})
	require.NoError(t, err)

	require.Len(t, art.Pages, 3)
	assert.NotEqual(t, placeholder, art.Pages[0].ImageURL)
	assert.Equal(t, placeholder, art.Pages[1].ImageURL)
	assert.Equal(t, placeholder, art.ThumbnailURL)
}

// ctxStore rejects writes on a done context the way gorm's WithContext does.
type ctxStore struct {
	*storage.MemoryStore
}

func (s ctxStore) SaveStory(ctx context.Context, rec story.Record) (story.Record, error) {
	if err := ctx.Err(); err != nil {
		return story.Record{}, err
	}
	return s.MemoryStore.SaveStory(ctx, rec)
}

// cancellingRenderer cancels the caller's request context on the first render.
type cancellingRenderer struct {
	cancel context.CancelFunc
}

func (r cancellingRenderer) Render(ctx context.Context, _ string) (string, error) {
	r.cancel()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "https://images.example.com/page.png", nil
}

func TestCreateSurvivesCallerDisconnect(t *testing.T) {
	mem := storage.NewMemoryStore()
	seedHistory(t, mem, "s1", 2)
	store := ctxStore{mem}
	reqCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := NewService(Deps{
		Messages: store,
		Stories:  store,
		Children: store,
		Gateway:  &routedGateway{analysis: greenAnalysis, narrative: "One.\n\nTwo.\n\nThree."},
		Renderer: cancellingRenderer{cancel: cancel},
	}, Config{MinPages: 3, MaxPages: 4, Concurrency: 1, PlaceholderURL: placeholder})

	art, err := svc.Create(reqCtx, story.CreateRequest{SessionID: "s1", ChildID: "c1"})
	require.NoError(t, err)
	require.Error(t, reqCtx.Err())

	for _, p := range art.Pages {
		assert.Equal(t, "https://images.example.com/page.png", p.ImageURL)
	}
	list, err := mem.ListStories(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestImagePromptIncludesPuppetOnlyWhenNamed(t *testing.T) {
	p := child.Persona{ChildName: "Mina", ChildAge: 6, PuppetName: "Tori"}

	with := ImagePrompt("Tori hugged Mina.", p, nil)
	without := ImagePrompt("Mina looked at the stars.", p, nil)

	assert.Contains(t, with, "puppet companion named Tori")
	assert.NotContains(t, without, "puppet companion")
	assert.Contains(t, without, "6-year-old child named Mina")
}

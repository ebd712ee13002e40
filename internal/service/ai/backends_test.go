package ai

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func sampleConversation() []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage("directive"),
		schema.UserMessage("hi"),
		schema.AssistantMessage("hello!", nil),
		schema.UserMessage("tell me more"),
	}
}

func TestGeminiContentsSendsDirectiveAsLeadingUserTurn(t *testing.T) {
	contents := GeminiContents(sampleConversation())

	require.Len(t, contents, 4)
	roles := []string{contents[0].Role, contents[1].Role, contents[2].Role, contents[3].Role}
	assert.Equal(t, []string{genai.RoleUser, genai.RoleUser, genai.RoleModel, genai.RoleUser}, roles)
	assert.Equal(t, "directive", contents[0].Parts[0].Text)
	assert.Equal(t, "tell me more", contents[3].Parts[0].Text)
}

func TestOpenAIMessagesMapsRoles(t *testing.T) {
	msgs := OpenAIMessages(sampleConversation())

	require.Len(t, msgs, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[2].Role)
	assert.Equal(t, "tell me more", msgs[3].Content)
}

func TestFirstTextSkipsThoughtsAndRejectsMissingCandidates(t *testing.T) {
	_, err := firstText(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, ErrNoCandidates)

	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "thinking...", Thought: true},
			{Text: "real answer"},
		}},
	}}}
	text, err := firstText(resp)
	require.NoError(t, err)
	assert.Equal(t, "real answer", text)
}

func TestWrapGeminiErrorExposesStatus(t *testing.T) {
	err := wrapGeminiError(genai.APIError{Code: 503, Message: "busy"})
	assert.True(t, retryable(err))
	assert.Equal(t, 503, statusOf(err))
}

func TestPromptManagerSelectsModeTone(t *testing.T) {
	pm := NewPromptManager()

	energetic := pm.TurnDirective(DirectiveParams{PuppetName: "Tori", ChildName: "Mina", ChildAge: 6, Mode: "ENERGETIC", AmbienceContext: "ocean sounds"})
	assert.Contains(t, energetic, "bouncy")
	assert.Contains(t, energetic, "(Additional constraints: none)")
	assert.Contains(t, energetic, "ocean sounds")

	fallback := pm.TurnDirective(DirectiveParams{PuppetName: "Tori", ChildName: "Mina", ChildAge: 6, Mode: "UNKNOWN", Constraint: "no sweets"})
	assert.Contains(t, fallback, "warm hug")
	assert.Contains(t, fallback, "no sweets")
}

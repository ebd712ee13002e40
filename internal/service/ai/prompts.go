package ai

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/puppettale/backend/internal/model/child"
	"github.com/puppettale/backend/internal/model/story"
)

// AnalysisRequest is appended as the final user turn when a whole
// conversation is analysed.
const AnalysisRequest = "Based on the conversation so far, please output the analysis JSON."

// ModeTemplate is the tone block injected for one puppet mode.
type ModeTemplate struct {
	Tone  string
	Hints []string
}

// DirectiveParams fills the puppet directive.
type DirectiveParams struct {
	PuppetName      string
	ChildName       string
	ChildAge        int
	Constraint      string
	Mode            child.PuppetMode
	AmbienceContext string
}

// StoryParams fills the narrative instruction.
type StoryParams struct {
	PuppetName  string
	ChildName   string
	ChildAge    int
	Ingredients []story.Ingredient
}

// PromptManager renders the directives sent to the generative backend.
type PromptManager struct {
	modes map[child.PuppetMode]*ModeTemplate
}

// NewPromptManager creates a manager with the built-in mode templates.
func NewPromptManager() *PromptManager {
	pm := &PromptManager{modes: make(map[child.PuppetMode]*ModeTemplate)}
	pm.loadDefaultModes()
	return pm
}

// TurnDirective builds the system instruction for one conversational turn.
func (pm *PromptManager) TurnDirective(p DirectiveParams) string {
	var b strings.Builder
	b.WriteString(pm.baseDirective(p.PuppetName, p.ChildName, p.ChildAge))

	mode := pm.modeTemplate(p.Mode)
	b.WriteString("\n\nTone:\n")
	b.WriteString(mode.Tone)
	if len(mode.Hints) > 0 {
		b.WriteString("\n- ")
		b.WriteString(strings.Join(mode.Hints, "\n- "))
	}

	constraint := strings.TrimSpace(p.Constraint)
	if constraint == "" {
		constraint = "none"
	}
	b.WriteString("\n(Additional constraints: ")
	b.WriteString(constraint)
	b.WriteString(")")

	if ctx := strings.TrimSpace(p.AmbienceContext); ctx != "" {
		b.WriteString("\n\n")
		b.WriteString(ctx)
	}
	return b.String()
}

// AnalysisDirective builds the system instruction used to analyse a finished
// conversation. It shares the persona and output contract of the turn directive.
func (pm *PromptManager) AnalysisDirective(puppetName, childName string, childAge int) string {
	return pm.baseDirective(puppetName, childName, childAge) + "\n(Additional constraints: none)"
}

// StoryInstruction builds the free-form narrative request.
func (pm *PromptManager) StoryInstruction(p StoryParams) string {
	return fmt.Sprintf(`You are %[1]s, a friendly puppet who writes short picture-book stories for %[2]s, a %[3]s-year-old child staying in hospital.

Write a warm, hopeful fairy tale in which %[2]s is the hero and %[1]s is the companion.
Weave in every ingredient below. Turn each real memory into its fantasy element instead of retelling it literally.

Story ingredients:
%[4]s
Rules:
- Write 3 to 4 short paragraphs separated by a blank line. Each paragraph becomes one illustrated page.
- Use simple words a %[3]s-year-old understands. At most 3 sentences per paragraph.
- No titles, headings, lists, markdown or JSON. Plain prose only.
- Never mention needles, pain or anything frightening in detail. End on a comforting note.`,
		p.PuppetName,
		p.ChildName,
		strconv.Itoa(p.ChildAge),
		IngredientList(p.Ingredients),
	)
}

// IngredientList renders ingredients as a bullet list, one per line.
func IngredientList(ingredients []story.Ingredient) string {
	if len(ingredients) == 0 {
		return "- (no specific ingredients, use a gentle adventure)\n"
	}

	var b strings.Builder
	for _, ing := range ingredients {
		fmt.Fprintf(&b, "- Type: %s, Element: %s, Memory: %s\n", ing.Type, ing.FantasyElement, ing.RealMemory)
	}
	return b.String()
}

func (pm *PromptManager) baseDirective(puppetName, childName string, childAge int) string {
	return fmt.Sprintf(`You are %[1]s, a soft hand puppet who keeps %[2]s company in the hospital. %[2]s is %[3]d years old.

Role:
- Talk like a caring friend, never like a doctor or a teacher.
- Keep every reply under 100 characters and at most 2 short sentences.
- Ask at most one gentle question per reply.
- Quietly collect story ingredients: things %[2]s likes, fears, remembers or imagines.

Safety:
- If %[2]s mentions self-harm, abuse or danger, set safety_status to RED_FLAG.
- If %[2]s describes pain or a medical symptom, set safety_status to MEDICAL.
- Otherwise use GREEN.

Output exactly one JSON object and nothing else:
{
  "thought_process": {
    "safety_status": "GREEN | RED_FLAG | MEDICAL",
    "detected_emotion": "one word",
    "background_setting": "where the child imagines being",
    "intent_analysis": "what the child wants right now",
    "story_ingredients": [
      {"type": "category", "fantasy_element": "imaginative version", "real_memory": "what the child said"}
    ]
  },
  "response": "what %[1]s says to %[2]s"
}`, puppetName, childName, childAge)
}

func (pm *PromptManager) modeTemplate(mode child.PuppetMode) *ModeTemplate {
	if tmpl, ok := pm.modes[mode]; ok {
		return tmpl
	}
	return pm.modes[child.ModeAffectionate]
}

func (pm *PromptManager) loadDefaultModes() {
	pm.modes[child.ModeAffectionate] = &ModeTemplate{
		Tone: "Speak slowly and softly, like a warm hug.",
		Hints: []string{
			"Name the child's feelings before moving on",
			"Use calm words such as cosy, gentle and safe",
			"Praise small acts of bravery",
		},
	}
	pm.modes[child.ModeEnergetic] = &ModeTemplate{
		Tone: "Be bouncy, playful and full of wonder.",
		Hints: []string{
			"Use fun sound words like whoosh and boing",
			"Turn answers into tiny games or adventures",
			"Keep the energy up without overwhelming the child",
		},
	}
}

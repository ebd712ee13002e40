package interpret

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/puppettale/backend/internal/model/story"
)

// Kind tags which shape of model output was recognised.
type Kind int

const (
	// Unusable means there was no text at all.
	Unusable Kind = iota
	// PlainText means the model ignored the JSON contract; the text is the reply.
	PlainText
	// Structured means a JSON object was parsed.
	Structured
)

func (k Kind) String() string {
	switch k {
	case PlainText:
		return "plain_text"
	case Structured:
		return "structured"
	default:
		return "unusable"
	}
}

// Result is the interpreted form of one model response.
type Result struct {
	Kind        Kind
	Safety      story.SafetyStatus
	Emotion     string
	Background  string
	Intent      string
	Ingredients []story.Ingredient
	Reply       string
	// HasAnalysis reports whether a thought-process block was present.
	HasAnalysis bool
}

// Analysis projects the result onto the story analysis model.
func (r Result) Analysis() story.Analysis {
	return story.Analysis{Safety: r.Safety, Emotion: r.Emotion, Ingredients: r.Ingredients}
}

var whitespaceRun = regexp.MustCompile(`\s{2,}`)

// Interpret never fails for present text. Malformed JSON degrades to PlainText
// with GREEN safety.
func Interpret(raw string) Result {
	cleaned := StripFence(raw)
	if cleaned == "" {
		return Result{Kind: Unusable, Safety: story.SafetyGreen}
	}

	if strings.HasPrefix(cleaned, "{") && gjson.Valid(cleaned) {
		if root := gjson.Parse(cleaned); root.IsObject() {
			return structured(root)
		}
	}

	return Result{
		Kind:    PlainText,
		Safety:  story.SafetyGreen,
		Emotion: EstimateEmotion(cleaned),
		Reply:   NormalizeReply(cleaned),
	}
}

// StripFence removes a surrounding ``` or ```json code fence and trims.
func StripFence(raw string) string {
	text := strings.TrimSpace(raw)
	for _, marker := range []string{"```json", "```JSON", "```"} {
		start := strings.Index(text, marker)
		if start < 0 {
			continue
		}
		body := text[start+len(marker):]
		if end := strings.LastIndex(body, "```"); end >= 0 {
			body = body[:end]
		}
		return strings.TrimSpace(body)
	}
	return text
}

// NormalizeReply folds line breaks into spaces and collapses whitespace runs.
func NormalizeReply(text string) string {
	text = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func structured(root gjson.Result) Result {
	thought := lookup(root, "thought_process", "thoughtProcess")
	hasAnalysis := thought.IsObject()
	if !hasAnalysis {
		// Some responses flatten the analysis onto the top level.
		thought = root
		hasAnalysis = lookup(root, "safety_status", "safetyStatus").Exists()
	}

	return Result{
		Kind:        Structured,
		Safety:      story.ParseSafetyStatus(lookup(thought, "safety_status", "safetyStatus").String()),
		Emotion:     strings.TrimSpace(lookup(thought, "detected_emotion", "detectedEmotion").String()),
		Background:  strings.TrimSpace(lookup(thought, "background_setting", "backgroundSetting").String()),
		Intent:      strings.TrimSpace(lookup(thought, "intent_analysis", "intentAnalysis").String()),
		Ingredients: ingredients(lookup(thought, "story_ingredients", "storyIngredients")),
		Reply:       NormalizeReply(lookup(root, "response", "reply").String()),
		HasAnalysis: hasAnalysis,
	}
}

func ingredients(list gjson.Result) []story.Ingredient {
	if !list.IsArray() {
		return nil
	}

	var out []story.Ingredient
	list.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		out = append(out, story.Ingredient{
			Type:           strings.TrimSpace(item.Get("type").String()),
			FantasyElement: strings.TrimSpace(lookup(item, "fantasy_element", "fantasyElement").String()),
			RealMemory:     strings.TrimSpace(lookup(item, "real_memory", "realMemory").String()),
		})
		return true
	})
	return out
}

// lookup returns the first key that exists on obj.
func lookup(obj gjson.Result, keys ...string) gjson.Result {
	for _, key := range keys {
		if v := obj.Get(key); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

package story

import (
	"strings"
	"time"

	"github.com/puppettale/backend/pkg/utils"
)

// SafetyStatus classifies the conversational risk detected by the model.
type SafetyStatus string

const (
	SafetyGreen   SafetyStatus = "GREEN"
	SafetyRedFlag SafetyStatus = "RED_FLAG"
	SafetyMedical SafetyStatus = "MEDICAL"
)

// ParseSafetyStatus maps free model text onto a known status. Anything that is
// not recognised counts as GREEN.
func ParseSafetyStatus(raw string) SafetyStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(SafetyRedFlag), "RED-FLAG", "REDFLAG", "RED":
		return SafetyRedFlag
	case string(SafetyMedical):
		return SafetyMedical
	default:
		return SafetyGreen
	}
}

// Blocking reports whether the status forbids story generation.
func (s SafetyStatus) Blocking() bool {
	return s == SafetyRedFlag || s == SafetyMedical
}

// Ingredient is a (category, imaginative element, source memory) triple pulled
// out of the conversation.
type Ingredient struct {
	Type           string `json:"type"`
	FantasyElement string `json:"fantasyElement"`
	RealMemory     string `json:"realMemory"`
}

// Analysis is the structured read of a whole conversation.
type Analysis struct {
	Safety      SafetyStatus `json:"safetyStatus"`
	Emotion     string       `json:"detectedEmotion"`
	Ingredients []Ingredient `json:"storyIngredients"`
}

// Page is one illustrated unit of a story.
type Page struct {
	Number   int    `json:"pageNumber"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Record is the persisted form of a finished story.
type Record struct {
	ID           string    `json:"id"`
	ChildID      string    `json:"childId"`
	SessionID    string    `json:"sessionId"`
	Title        string    `json:"title"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	Pages        []Page    `json:"pages"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Artifact is what the synthesis pipeline hands back to its caller.
type Artifact struct {
	SessionID     string       `json:"sessionId"`
	StoryID       string       `json:"storyId,omitempty"`
	Title         string       `json:"title,omitempty"`
	ThumbnailURL  string       `json:"thumbnailUrl,omitempty"`
	Pages         []Page       `json:"pages"`
	NarrativeText string       `json:"narrativeText,omitempty"`
	Emotion       string       `json:"detectedEmotion,omitempty"`
	Ingredients   []Ingredient `json:"ingredients"`
}

// CreateRequest triggers synthesis for a finished session.
type CreateRequest struct {
	SessionID  string `json:"sessionId" validate:"required,max=128"`
	ChildID    string `json:"childId,omitempty" validate:"max=64"`
	ChildName  string `json:"userName,omitempty" validate:"max=64"`
	ChildAge   *int   `json:"userAge,omitempty" validate:"omitempty,min=0,max=18"`
	PuppetName string `json:"puppetName,omitempty" validate:"max=64"`
}

// Validate checks field limits.
func (r CreateRequest) Validate() error {
	return utils.ValidateStruct(r)
}

package chat

import "github.com/puppettale/backend/pkg/utils"

// TurnRequest is one inbound child utterance plus the optional persona context
// the client knows about.
type TurnRequest struct {
	SessionID   string `json:"sessionId" validate:"required,max=128"`
	UserMessage string `json:"userMessage" validate:"maxbytes"`
	AmbienceID  string `json:"soundId,omitempty" validate:"max=64"`
	ChildID     string `json:"childId,omitempty" validate:"max=64"`
	ChildName   string `json:"userName,omitempty" validate:"max=64"`
	ChildAge    *int   `json:"userAge,omitempty" validate:"omitempty,min=0,max=18"`
	Constraint  string `json:"userConstraint,omitempty" validate:"max=512"`
	PuppetName  string `json:"puppetName,omitempty" validate:"max=64"`
}

// TurnResult is returned to the child for every accepted or rejected turn.
type TurnResult struct {
	SessionID          string `json:"sessionId"`
	AIResponse         string `json:"aiResponse"`
	Timestamp          string `json:"timestamp"`
	CurrentAmbienceID  string `json:"currentSoundId"`
	BackgroundImageURL string `json:"backgroundImageUrl"`
	Rejected           bool   `json:"-"`
}

// Validate checks field limits. An empty message is reported separately by the
// turn pipeline.
func (r TurnRequest) Validate() error {
	return utils.ValidateStruct(r)
}

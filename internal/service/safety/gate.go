package safety

import (
	"fmt"
	"strings"

	"github.com/puppettale/backend/internal/model/story"
)

// Gate picks the reply that is finally shown to the child. It keeps no state
// between turns.
type Gate struct{}

// Input is what the gate needs for one decision.
type Input struct {
	Status     story.SafetyStatus
	Reply      string
	ChildName  string
	PuppetName string
}

// Decision is the gate's output.
type Decision struct {
	Reply string
	// Substituted is true when a canned message replaced the model's text.
	Substituted bool
}

// New returns a Gate.
func New() *Gate { return &Gate{} }

// Apply never returns a blank reply.
func (g *Gate) Apply(in Input) Decision {
	reply := strings.TrimSpace(in.Reply)
	if reply != "" {
		return Decision{Reply: reply}
	}

	switch in.Status {
	case story.SafetyRedFlag:
		return Decision{Reply: EscalationMessage(in.PuppetName, in.ChildName), Substituted: true}
	case story.SafetyMedical:
		return Decision{Reply: MedicalMessage(in.ChildName), Substituted: true}
	default:
		return Decision{Reply: FallbackMessage(in.PuppetName), Substituted: true}
	}
}

// EscalationMessage is used when a RED_FLAG turn has no reply of its own.
func EscalationMessage(puppetName, childName string) string {
	return fmt.Sprintf("Oh no, that sounds really dangerous and scary. %s cares about %s so much, so I'm going to share this with your grown-up.",
		orDefault(puppetName, "Tori"), orDefault(childName, "you"))
}

// MedicalMessage is used when a MEDICAL turn has no reply of its own.
func MedicalMessage(childName string) string {
	return fmt.Sprintf("%s, it sounds like you're hurting a lot. Shall we tell the doctor so they can help? Is there a grown-up near you?",
		orDefault(childName, "Friend"))
}

// FallbackMessage is used when nothing else produced text.
func FallbackMessage(puppetName string) string {
	return fmt.Sprintf("Sorry, %s is still gathering thoughts! Could you say that one more time?", orDefault(puppetName, "Tori"))
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

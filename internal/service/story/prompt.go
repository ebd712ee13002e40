package story

import (
	"fmt"
	"strings"

	"github.com/puppettale/backend/internal/model/child"
	"github.com/puppettale/backend/internal/model/story"
)

// ImagePrompt builds the illustration request for one page. Fantasy elements
// that appear in the page are listed, and the puppet is drawn only when the
// page names it.
func ImagePrompt(pageText string, p child.Persona, ingredients []story.Ingredient) string {
	pageText = strings.TrimSpace(pageText)

	var extras []string
	for _, ing := range ingredients {
		element := strings.TrimSpace(ing.FantasyElement)
		if element != "" && strings.Contains(pageText, element) {
			extras = append(extras, element)
		}
	}

	var b strings.Builder
	b.WriteString("GENERATE_IMAGE_ONLY. NO TEXT. ")
	b.WriteString("Children's picture-book illustration, age-appropriate and simple. ")
	b.WriteString("Style: bright soft pastel colours, cute rounded shapes, warm and comforting atmosphere. ")
	fmt.Fprintf(&b, "Main character: a cute %d-year-old child named %s. ", p.ChildAge, p.ChildName)
	if p.PuppetName != "" && strings.Contains(pageText, p.PuppetName) {
		fmt.Fprintf(&b, "Include a friendly puppet companion named %s. ", p.PuppetName)
	}
	fmt.Fprintf(&b, "Scene to paint: %s. ", strings.TrimSuffix(pageText, "."))
	if len(extras) > 0 {
		fmt.Fprintf(&b, "Additional elements: %s. ", strings.Join(extras, ", "))
	}
	b.WriteString("Strictly no text, letters, words, signage, subtitles or speech bubbles.")
	return b.String()
}

package story

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/puppettale/backend/internal/model/story"
)

const (
	DefaultMinPages = 3
	DefaultMaxPages = 4
	// ClosingLine fills pages when the narrative is too short.
	ClosingLine = "Thank you for telling me so many stories!"
)

var (
	paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)
	lineBreaks     = regexp.MustCompile(`[\r\n]+`)
	spaceRun       = regexp.MustCompile(` {2,}`)
)

// Paginate splits a narrative into between minPages and maxPages pages. It
// returns the pages and how many of them came from the narrative; the rest
// are padding pages whose ImageURL starts as placeholderURL.
func Paginate(narrative string, minPages, maxPages int, placeholderURL string) ([]story.Page, int) {
	if minPages < 1 {
		minPages = DefaultMinPages
	}
	if maxPages < minPages {
		maxPages = minPages
	}

	normalized := strings.ReplaceAll(narrative, "\r\n", "\n")
	pages := make([]story.Page, 0, maxPages)
	for _, raw := range paragraphBreak.Split(normalized, -1) {
		if len(pages) == maxPages {
			break
		}
		text := cleanParagraph(raw)
		if text == "" {
			continue
		}
		pages = append(pages, story.Page{Number: len(pages) + 1, Text: text})
	}

	written := len(pages)
	for len(pages) < minPages {
		pages = append(pages, story.Page{Number: len(pages) + 1, Text: ClosingLine, ImageURL: placeholderURL})
	}
	return pages, written
}

func cleanParagraph(raw string) string {
	text := strings.TrimSpace(raw)
	text = lineBreaks.ReplaceAllString(text, " ")
	text = strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, text)
	text = strings.ReplaceAll(text, `\"`, `"`)
	text = strings.ReplaceAll(text, `\`, "")
	text = spaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

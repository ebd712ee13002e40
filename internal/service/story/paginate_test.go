package story

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginateBounds(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"blank lines":  "\n\n  \n\n",
		"one":          "Once upon a time.",
		"two":          "A.\n\nB.",
		"three":        "A.\n\nB.\n\nC.",
		"five":         "A.\n\nB.\n\nC.\n\nD.\n\nE.",
		"crlf":         "A.\r\n\r\nB.\r\n\r\nC.\r\n\r\nD.",
		"spaced break": "A.\n   \nB.\n\t\nC.",
	}

	for name, narrative := range cases {
		t.Run(name, func(t *testing.T) {
			pages, written := Paginate(narrative, 3, 4, "placeholder.png")

			require.GreaterOrEqual(t, len(pages), 3)
			require.LessOrEqual(t, len(pages), 4)
			assert.LessOrEqual(t, written, len(pages))
			for i, p := range pages {
				assert.Equal(t, i+1, p.Number)
				assert.NotEmpty(t, strings.TrimSpace(p.Text))
			}
		})
	}
}

func TestPaginateDropsExtraParagraphs(t *testing.T) {
	pages, written := Paginate("One.\n\nTwo.\n\nThree.\n\nFour.\n\nFive.", 3, 4, "p.png")

	require.Len(t, pages, 4)
	assert.Equal(t, 4, written)
	assert.Equal(t, "Four.", pages[3].Text)
	for _, p := range pages {
		assert.Empty(t, p.ImageURL)
	}
}

func TestPaginatePadsWithClosingLine(t *testing.T) {
	pages, written := Paginate("Only one paragraph.", 3, 4, "p.png")

	require.Len(t, pages, 3)
	assert.Equal(t, 1, written)
	assert.Equal(t, ClosingLine, pages[1].Text)
	assert.Equal(t, "p.png", pages[2].ImageURL)
}

func TestPaginateCleansEscapes(t *testing.T) {
	pages, _ := Paginate("Tori said \\\"hello\\\"\nand waved.\\n\n\nNext page.", 3, 4, "")

	assert.Equal(t, `Tori said "hello" and waved.n`, pages[0].Text)
	assert.Equal(t, "Next page.", pages[1].Text)
}

func TestPaginateStripsControlCharacters(t *testing.T) {
	pages, written := Paginate("Tori\tsaid\x00 hi\x07 to\x1b the\t\twhale.\u0085\n\nThe end.", 3, 4, "")

	require.Equal(t, 2, written)
	assert.Equal(t, "Tori said hi to the whale.", pages[0].Text)
	assert.Equal(t, "The end.", pages[1].Text)
	for _, p := range pages {
		for _, r := range p.Text {
			assert.False(t, unicode.IsControl(r), "control rune %U in %q", r, p.Text)
		}
	}
}

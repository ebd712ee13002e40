package sound

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogFallsBackToDefault(t *testing.T) {
	catalog := NewMemoryCatalog(Seed("https://assets.example.com/sounds/"))

	assert.Equal(t, "images/none.png", catalog.BackgroundURL("thunder"))
	assert.Contains(t, catalog.AIContext(""), "quiet")
}

func TestCatalogLookupIgnoresCase(t *testing.T) {
	catalog := NewMemoryCatalog(Seed("https://assets.example.com/sounds/"))

	opt, ok := catalog.FindByID("OCEAN")
	assert.True(t, ok)
	assert.Equal(t, "https://assets.example.com/sounds/ocean.mp3", opt.AudioURL)
	assert.Equal(t, "images/ocean.png", catalog.BackgroundURL("Ocean"))
}

package sound

import "strings"

// Catalog exposes ambience lookups for the chat pipeline and HTTP handlers.
type Catalog interface {
	List() []Option
	FindByID(id string) (Option, bool)
	AIContext(id string) string
	BackgroundURL(id string) string
}

// MemoryCatalog implements Catalog with an in-memory slice.
type MemoryCatalog struct {
	items []Option
}

// NewMemoryCatalog returns a MemoryCatalog preloaded with the supplied options.
func NewMemoryCatalog(items []Option) *MemoryCatalog {
	return &MemoryCatalog{items: append([]Option(nil), items...)}
}

// List returns the ambience options in display order.
func (c *MemoryCatalog) List() []Option {
	return append([]Option(nil), c.items...)
}

// FindByID looks up an option case-insensitively.
func (c *MemoryCatalog) FindByID(id string) (Option, bool) {
	for _, item := range c.items {
		if strings.EqualFold(item.ID, id) {
			return item, true
		}
	}
	return Option{}, false
}

// AIContext returns the directive line for id, falling back to the default ambience.
func (c *MemoryCatalog) AIContext(id string) string {
	return c.resolve(id).AIContext
}

// BackgroundURL returns the background image for id, falling back to the default ambience.
func (c *MemoryCatalog) BackgroundURL(id string) string {
	return c.resolve(id).BackgroundURL
}

func (c *MemoryCatalog) resolve(id string) Option {
	if opt, ok := c.FindByID(id); ok {
		return opt
	}
	opt, _ := c.FindByID(DefaultID)
	return opt
}

package illustration

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"

	"github.com/google/uuid"
)

// DefaultKeyPrefix is the object folder for story pages.
const DefaultKeyPrefix = "stories"

// Renderer generates an image for a prompt and publishes it.
type Renderer struct {
	gen    Generator
	up     Uploader
	prefix string
	newKey func() string
}

// NewRenderer combines a generator with an uploader.
func NewRenderer(gen Generator, up Uploader, prefix string) *Renderer {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Renderer{gen: gen, up: up, prefix: prefix, newKey: uuid.NewString}
}

// Render returns the public URL of a freshly generated image.
func (r *Renderer) Render(ctx context.Context, prompt string) (string, error) {
	img, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	key := path.Join(r.prefix, r.newKey()+extension(img.MIMEType))
	url, err := r.up.Upload(ctx, key, img.Data, img.MIMEType)
	if err != nil {
		return "", fmt.Errorf("upload illustration: %w", err)
	}
	log.Printf("[illustration] uploaded %s (%d bytes)", key, len(img.Data))
	return url, nil
}

func extension(mime string) string {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

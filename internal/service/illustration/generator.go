package illustration

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// ErrNoImage is returned when the backend answered without image data.
var ErrNoImage = errors.New("no image data in response")

// Image is raw generated image bytes.
type Image struct {
	Data     []byte
	MIMEType string
}

// Generator turns a prompt into an image.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Image, error)
}

// GeminiGenerator asks a Gemini image model for a single picture.
type GeminiGenerator struct {
	models      *genai.Models
	model       string
	aspectRatio string
}

// NewGeminiGenerator wraps an existing genai client.
func NewGeminiGenerator(client *genai.Client, model, aspectRatio string) (*GeminiGenerator, error) {
	if client == nil {
		return nil, errors.New("genai client is required")
	}
	if model == "" {
		return nil, errors.New("image model is required")
	}
	return &GeminiGenerator{models: client.Models, model: model, aspectRatio: aspectRatio}, nil
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (Image, error) {
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityText), string(genai.ModalityImage)},
	}
	if g.aspectRatio != "" {
		config.ImageConfig = &genai.ImageConfig{AspectRatio: g.aspectRatio}
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return Image{}, fmt.Errorf("generate image: %w", err)
	}
	return firstImage(resp)
}

func firstImage(resp *genai.GenerateContentResponse) (Image, error) {
	if resp == nil {
		return Image{}, ErrNoImage
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return Image{Data: part.InlineData.Data, MIMEType: mime}, nil
		}
	}
	return Image{}, ErrNoImage
}

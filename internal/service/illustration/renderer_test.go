package illustration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type stubGenerator struct {
	img Image
	err error
}

func (g stubGenerator) Generate(context.Context, string) (Image, error) { return g.img, g.err }

type recordingUploader struct {
	keys  []string
	types []string
	err   error
}

func (u *recordingUploader) Upload(_ context.Context, key string, _ []byte, contentType string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.keys = append(u.keys, key)
	u.types = append(u.types, contentType)
	return ObjectURL("https://cdn.example.com", "bucket", key), nil
}

func TestRenderUploadsUnderPrefix(t *testing.T) {
	up := &recordingUploader{}
	r := NewRenderer(stubGenerator{img: Image{Data: []byte{1, 2}, MIMEType: "image/jpeg"}}, up, "")
	r.newKey = func() string { return "fixed" }

	url, err := r.Render(context.Background(), "a whale")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/stories/fixed.jpg", url)
	assert.Equal(t, []string{"stories/fixed.jpg"}, up.keys)
	assert.Equal(t, []string{"image/jpeg"}, up.types)
}

func TestRenderPropagatesFailures(t *testing.T) {
	_, err := NewRenderer(stubGenerator{err: ErrNoImage}, &recordingUploader{}, "").Render(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoImage)

	boom := errors.New("bucket gone")
	_, err = NewRenderer(stubGenerator{img: Image{Data: []byte{1}}}, &recordingUploader{err: boom}, "").Render(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}

func TestFirstImage(t *testing.T) {
	_, err := firstImage(nil)
	assert.ErrorIs(t, err, ErrNoImage)

	textOnly := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: "here you go"}}},
	}}}
	_, err = firstImage(textOnly)
	assert.ErrorIs(t, err, ErrNoImage)

	withImage := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "here you go"},
			{InlineData: &genai.Blob{Data: []byte("png-bytes")}},
		}},
	}}}
	img, err := firstImage(withImage)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), img.Data)
	assert.Equal(t, "image/png", img.MIMEType)
}

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "https://storage.googleapis.com/b/stories/a.png", ObjectURL("", "b", "/stories/a.png"))
	assert.Equal(t, "https://cdn.example.com/stories/a.png", ObjectURL("https://cdn.example.com/", "b", "stories/a.png"))
}

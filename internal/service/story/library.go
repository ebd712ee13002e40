package story

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/puppettale/backend/internal/model/story"
)

// MaxTitleLength is the longest title, in characters, a story can carry.
const MaxTitleLength = 255

// ErrInvalidTitle is returned for a blank or overlong title.
var ErrInvalidTitle = errors.New("title must be 1-255 characters")

// List returns a child's stories, newest first.
func (s *Service) List(ctx context.Context, childID string) ([]story.Record, error) {
	return s.deps.Stories.ListStories(ctx, childID)
}

// Get returns one story with its pages in order.
func (s *Service) Get(ctx context.Context, childID, storyID string) (story.Record, error) {
	return s.deps.Stories.GetStory(ctx, childID, storyID)
}

// Rename changes a story's title.
func (s *Service) Rename(ctx context.Context, childID, storyID, title string) (story.Record, error) {
	title = strings.TrimSpace(title)
	if title == "" || utf8.RuneCountInString(title) > MaxTitleLength {
		return story.Record{}, ErrInvalidTitle
	}
	return s.deps.Stories.UpdateStoryTitle(ctx, childID, storyID, title)
}

// Delete hides a story from the library.
func (s *Service) Delete(ctx context.Context, childID, storyID string) error {
	return s.deps.Stories.DeleteStory(ctx, childID, storyID)
}

// CountToday counts stories created since local midnight.
func (s *Service) CountToday(ctx context.Context, childID string) (int, error) {
	now := s.deps.Now()
	y, m, d := now.Date()
	return s.deps.Stories.CountStoriesSince(ctx, childID, time.Date(y, m, d, 0, 0, 0, 0, now.Location()))
}

package storage

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/puppettale/backend/internal/model/chat"
	"github.com/puppettale/backend/internal/model/child"
	"github.com/puppettale/backend/internal/model/story"
)

// ErrNotFound is returned when a record does not exist or was soft-deleted.
var ErrNotFound = errors.New("record not found")

// MessageStore persists the append-only conversation log.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg chat.Message) (chat.Message, error)
	// ListMessages returns a session's messages ordered by timestamp. An
	// unknown session yields an empty slice.
	ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error)
}

// StoryStore persists finished stories.
type StoryStore interface {
	SaveStory(ctx context.Context, rec story.Record) (story.Record, error)
	// ListStories returns live stories of a child, newest first.
	ListStories(ctx context.Context, childID string) ([]story.Record, error)
	GetStory(ctx context.Context, childID, storyID string) (story.Record, error)
	UpdateStoryTitle(ctx context.Context, childID, storyID, title string) (story.Record, error)
	DeleteStory(ctx context.Context, childID, storyID string) error
	CountStoriesSince(ctx context.Context, childID string, since time.Time) (int, error)
}

// ChildStore persists children and their puppets.
type ChildStore interface {
	GetChild(ctx context.Context, childID string) (child.Child, error)
	SaveChild(ctx context.Context, c child.Child) (child.Child, error)
	UpdatePuppetName(ctx context.Context, childID, name string) (child.Child, error)
	UpdatePuppetMode(ctx context.Context, childID string, mode child.PuppetMode) (child.Child, error)
}

// Store is the full persistence collaborator.
type Store interface {
	MessageStore
	StoryStore
	ChildStore
}

// stampMessage fills the id, timestamp and log date a caller left empty.
func stampMessage(msg chat.Message) chat.Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if msg.LogDate == "" {
		msg.LogDate = msg.Timestamp.Format(time.DateOnly)
	}
	return msg
}

func newID() string { return uuid.NewString() }

// ResolvePersona loads the child's record when childID is set and falls back
// to defaults otherwise. Lookup failures are logged, not returned.
func ResolvePersona(ctx context.Context, children ChildStore, childID string, now time.Time) child.Persona {
	p := child.DefaultPersona()
	if childID == "" || children == nil {
		return p
	}

	record, err := children.GetChild(ctx, childID)
	switch {
	case err == nil:
		p.ApplyRecord(record, now)
	case errors.Is(err, ErrNotFound):
		log.Printf("[storage] unknown child=%s, using default persona", childID)
	default:
		log.Printf("[storage] failed to load child=%s: %v", childID, err)
	}
	return p
}

package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/puppettale/backend/internal/model/chat"
	"github.com/puppettale/backend/internal/model/child"
	"github.com/puppettale/backend/internal/model/story"
)

type storyEntry struct {
	record  story.Record
	deleted bool
}

// MemoryStore is an in-process Store suitable for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]chat.Message
	stories  map[string]*storyEntry
	children map[string]child.Child
}

// NewMemoryStore bootstraps an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make(map[string][]chat.Message),
		stories:  make(map[string]*storyEntry),
		children: make(map[string]child.Child),
	}
}

// AppendMessage implements MessageStore.
func (s *MemoryStore) AppendMessage(_ context.Context, msg chat.Message) (chat.Message, error) {
	msg = stampMessage(msg)

	s.mu.Lock()
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
	s.mu.Unlock()

	return msg, nil
}

// ListMessages implements MessageStore.
func (s *MemoryStore) ListMessages(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := s.messages[sessionID]
	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	sort.SliceStable(copied, func(i, j int) bool {
		return copied[i].Timestamp.Before(copied[j].Timestamp)
	})
	return copied, nil
}

// SaveStory implements StoryStore.
func (s *MemoryStore) SaveStory(_ context.Context, rec story.Record) (story.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Pages = append([]story.Page(nil), rec.Pages...)

	s.mu.Lock()
	s.stories[rec.ID] = &storyEntry{record: rec}
	s.mu.Unlock()

	return cloneRecord(rec), nil
}

// ListStories implements StoryStore.
func (s *MemoryStore) ListStories(_ context.Context, childID string) ([]story.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]story.Record, 0)
	for _, e := range s.stories {
		if e.deleted || e.record.ChildID != childID {
			continue
		}
		out = append(out, cloneRecord(e.record))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetStory implements StoryStore.
func (s *MemoryStore) GetStory(_ context.Context, childID, storyID string) (story.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.liveStoryLocked(childID, storyID)
	if err != nil {
		return story.Record{}, err
	}
	return cloneRecord(e.record), nil
}

// UpdateStoryTitle implements StoryStore.
func (s *MemoryStore) UpdateStoryTitle(_ context.Context, childID, storyID, title string) (story.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.liveStoryLocked(childID, storyID)
	if err != nil {
		return story.Record{}, err
	}
	e.record.Title = title
	return cloneRecord(e.record), nil
}

// DeleteStory implements StoryStore. Deletion is soft.
func (s *MemoryStore) DeleteStory(_ context.Context, childID, storyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.liveStoryLocked(childID, storyID)
	if err != nil {
		return err
	}
	e.deleted = true
	return nil
}

// CountStoriesSince implements StoryStore.
func (s *MemoryStore) CountStoriesSince(_ context.Context, childID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.stories {
		if !e.deleted && e.record.ChildID == childID && !e.record.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// GetChild implements ChildStore.
func (s *MemoryStore) GetChild(_ context.Context, childID string) (child.Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.children[childID]
	if !ok {
		return child.Child{}, ErrNotFound
	}
	return cloneChild(c), nil
}

// SaveChild implements ChildStore.
func (s *MemoryStore) SaveChild(_ context.Context, c child.Child) (child.Child, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	s.mu.Lock()
	s.children[c.ID] = cloneChild(c)
	s.mu.Unlock()

	return c, nil
}

// UpdatePuppetName implements ChildStore.
func (s *MemoryStore) UpdatePuppetName(_ context.Context, childID, name string) (child.Child, error) {
	return s.updatePuppet(childID, func(p *child.Puppet) { p.Name = name })
}

// UpdatePuppetMode implements ChildStore.
func (s *MemoryStore) UpdatePuppetMode(_ context.Context, childID string, mode child.PuppetMode) (child.Child, error) {
	return s.updatePuppet(childID, func(p *child.Puppet) { p.Mode = mode })
}

func (s *MemoryStore) updatePuppet(childID string, apply func(*child.Puppet)) (child.Child, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.children[childID]
	if !ok {
		return child.Child{}, ErrNotFound
	}
	c = cloneChild(c)
	if c.Puppet == nil {
		c.Puppet = &child.Puppet{Mode: child.ModeAffectionate}
	}
	apply(c.Puppet)
	s.children[childID] = c
	return cloneChild(c), nil
}

func (s *MemoryStore) liveStoryLocked(childID, storyID string) (*storyEntry, error) {
	e, ok := s.stories[storyID]
	if !ok || e.deleted || e.record.ChildID != childID {
		return nil, ErrNotFound
	}
	return e, nil
}

func cloneRecord(rec story.Record) story.Record {
	rec.Pages = append([]story.Page(nil), rec.Pages...)
	return rec
}

func cloneChild(c child.Child) child.Child {
	if c.Puppet != nil {
		p := *c.Puppet
		c.Puppet = &p
	}
	return c
}

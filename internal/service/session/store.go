package session

import (
	"context"
	"time"

	"github.com/puppettale/backend/internal/model/sound"
)

const (
	// DefaultDebounce is the minimum gap between two accepted turns of one session.
	DefaultDebounce = 2 * time.Second
	// DefaultIdleTTL bounds how long an untouched session is remembered.
	DefaultIdleTTL = 30 * time.Minute
)

// State is the per-session soft state kept between turns.
type State struct {
	LastRequest time.Time
	AmbienceID  string
}

// Store owns session state for the lifetime of the process.
type Store interface {
	// Get returns the state for id. ok is false when the session is unknown.
	Get(ctx context.Context, id string) (state State, ok bool, err error)
	// TryTouch records now as the last request time unless the previous
	// accepted request is younger than the debounce window. The check and the
	// update happen as one atomic step.
	TryTouch(ctx context.Context, id string, now time.Time) (bool, error)
	// Touch unconditionally records now as the last request time.
	Touch(ctx context.Context, id string, now time.Time) error
	// SetAmbience stores the chosen ambience for id.
	SetAmbience(ctx context.Context, id, ambienceID string) error
}

// AmbienceOrDefault returns the stored ambience or the catalog default.
func (s State) AmbienceOrDefault() string {
	if s.AmbienceID == "" {
		return sound.DefaultID
	}
	return s.AmbienceID
}

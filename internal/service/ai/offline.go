package ai

import (
	"context"
	"errors"

	"github.com/puppettale/backend/internal/model/chat"
)

// ErrBackendOffline is wrapped by Offline when no chat backend is configured.
var ErrBackendOffline = errors.New("no chat backend configured")

// Offline is a Completer used when the service starts without a backend.
// Every call fails as unavailable, so turns still get an in-character reply.
type Offline struct{}

// Complete implements Completer.
func (Offline) Complete(context.Context, string, []chat.Message, string) (string, error) {
	return "", &Error{Kind: KindUnavailable, Attempts: 0, Err: ErrBackendOffline}
}

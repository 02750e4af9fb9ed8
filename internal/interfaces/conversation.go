package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/tickerchat/internal/models"
)

// ConversationStore owns in-flight confirmation dialogues.
//
// Get and Mutate return ErrConversationNotFound for unknown ids and
// ErrConversationExpired once ExpiresAt has passed; neither mutates state.
// Mutate serialises calls per conversation id. Returned conversations are
// copies and may be freely modified by the caller.
type ConversationStore interface {
	Create(ctx context.Context, query string) (*models.Conversation, error)
	Get(ctx context.Context, id string) (*models.Conversation, error)
	Mutate(ctx context.Context, id string, fn func(conv *models.Conversation) error) (*models.Conversation, error)
	Delete(ctx context.Context, id string) error

	// Sweep evicts expired conversations and returns how many were removed.
	Sweep(now time.Time) int
	Len() int
}

// Clock returns the current time. Injected so expiry can be tested.
type Clock func() time.Time

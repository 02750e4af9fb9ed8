// Package conversation holds in-flight confirmation dialogues in memory.
package conversation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/common"
	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/models"
)

// DefaultTTL is the lifetime of a conversation from creation.
const DefaultTTL = 30 * time.Minute

// entry guards one conversation. expiresAt never changes after creation so
// the sweeper can read it without taking mu.
type entry struct {
	mu        sync.Mutex
	conv      *models.Conversation
	expiresAt time.Time
	terminal  atomic.Bool
	removed   bool
}

// Store is an in-memory ConversationStore. The registry lock is only held
// to find, insert or remove entries; mutation is serialised per entry.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	closed  bool

	ttl    time.Duration
	now    interfaces.Clock
	logger arbor.ILogger
}

var _ interfaces.ConversationStore = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(clock interfaces.Clock) Option {
	return func(s *Store) {
		s.now = clock
	}
}

// NewStore creates a store with the given TTL (DefaultTTL when <= 0).
func NewStore(ttl time.Duration, logger arbor.ILogger, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured conversation lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create registers a new conversation for query.
func (s *Store) Create(ctx context.Context, query string) (*models.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.now()
	conv := &models.Conversation{
		ID:            common.NewConversationID(),
		State:         models.StateAwaitingConfirmation,
		OriginalQuery: query,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, interfaces.ErrStoreUnavailable
	}
	s.entries[conv.ID] = &entry{conv: conv, expiresAt: conv.ExpiresAt}

	s.logger.Debug().
		Str("conversation_id", conv.ID).
		Str("expires_at", conv.ExpiresAt.Format(time.RFC3339)).
		Msg("Conversation created")

	return conv.Clone(), nil
}

func (s *Store) lookup(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, interfaces.ErrStoreUnavailable
	}
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrConversationNotFound, id)
	}
	return e, nil
}

// checkLocked validates e for access at now. Caller holds e.mu.
func (s *Store) checkLocked(e *entry, id string, now time.Time) error {
	if e.removed {
		return fmt.Errorf("%w: %s", interfaces.ErrConversationNotFound, id)
	}
	if e.conv.IsExpired(now) {
		return fmt.Errorf("%w: %s", interfaces.ErrConversationExpired, id)
	}
	return nil
}

// Get returns a copy of the conversation. It never mutates state.
func (s *Store) Get(ctx context.Context, id string) (*models.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := s.checkLocked(e, id, s.now()); err != nil {
		return nil, err
	}
	return e.conv.Clone(), nil
}

// Mutate applies fn to a working copy under the conversation's lock and
// commits it only when fn returns nil. Resolved conversations are immutable.
func (s *Store) Mutate(ctx context.Context, id string, fn func(conv *models.Conversation) error) (*models.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := s.now()
	if err := s.checkLocked(e, id, now); err != nil {
		return nil, err
	}
	if e.conv.State.IsTerminal() {
		return e.conv.Clone(), fmt.Errorf("%w: %s", interfaces.ErrConversationResolved, id)
	}

	working := e.conv.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}

	// Identity and lifetime are owned by the store.
	working.ID = e.conv.ID
	working.CreatedAt = e.conv.CreatedAt
	working.ExpiresAt = e.conv.ExpiresAt
	working.UpdatedAt = now

	e.conv = working
	if working.State.IsTerminal() {
		e.terminal.Store(true)
	}
	return working.Clone(), nil
}

// Delete evicts a conversation. Deleting an unknown id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return interfaces.ErrStoreUnavailable
	}
	if ok {
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
	}
	return nil
}

// Sweep evicts conversations past their expiry and resolved conversations
// nobody collected. Returns the number evicted.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	var evicted []*entry
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) || e.terminal.Load() {
			delete(s.entries, id)
			evicted = append(evicted, e)
		}
	}
	remaining := len(s.entries)
	s.mu.Unlock()

	for _, e := range evicted {
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
	}

	if len(evicted) > 0 {
		s.logger.Debug().
			Int("evicted", len(evicted)).
			Int("remaining", remaining).
			Msg("Conversation sweep completed")
	}
	return len(evicted)
}

// Len returns the number of stored conversations, including expired ones
// not yet swept.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close drops all conversations. Later calls return ErrStoreUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = make(map[string]*entry)
	return nil
}

package conversation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Julian1897/smart-data-qa/internal/model/qa"
)

// Store keeps every conversation thread grouped by owning session. All
// history mutation goes through Append so concurrent questions against the
// same conversation serialize into chronological order.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string]*qa.Conversation
}

// NewStore bootstraps the in-memory conversation store.
func NewStore() *Store {
	return &Store{buckets: make(map[string]map[string]*qa.Conversation)}
}

// Register creates the bucket for a new session. Called by the session
// registry so a conversation can never reference a dead session.
func (s *Store) Register(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[sessionID]; !ok {
		s.buckets[sessionID] = make(map[string]*qa.Conversation)
	}
}

// DropSession removes a session's bucket and every conversation in it.
func (s *Store) DropSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, sessionID)
}

// Create provisions an empty conversation under the session.
func (s *Store) Create(_ context.Context, sessionID string) (qa.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.buckets[sessionID]
	if !ok {
		return qa.Conversation{}, qa.ErrSessionNotFound
	}
	conv := s.newConversation(sessionID)
	bucket[conv.ID] = conv
	return snapshot(conv), nil
}

// Get retrieves a conversation by id. Fails when the conversation is absent
// or belongs to a different session.
func (s *Store) Get(_ context.Context, sessionID, conversationID string) (qa.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, err := s.lookup(sessionID, conversationID)
	if err != nil {
		return qa.Conversation{}, err
	}
	return snapshot(conv), nil
}

// List returns conversation summaries ordered most-recently-active first.
func (s *Store) List(_ context.Context, sessionID string) ([]qa.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket, ok := s.buckets[sessionID]
	if !ok {
		return nil, qa.ErrSessionNotFound
	}

	summaries := make([]qa.ConversationSummary, 0, len(bucket))
	for _, conv := range bucket {
		summaries = append(summaries, qa.ConversationSummary{
			ID:           conv.ID,
			Title:        conv.Title(),
			EntryCount:   len(conv.Entries),
			LastActivity: conv.LastActive,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastActivity.After(summaries[j].LastActivity)
	})
	return summaries, nil
}

// Delete removes a conversation. When the deleted conversation is the
// caller's active one, or the session would be left without any conversation,
// a replacement empty conversation is created under the same lock and its id
// returned so the caller can rebind.
func (s *Store) Delete(_ context.Context, sessionID, conversationID string, active bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.buckets[sessionID]
	if !ok {
		return "", qa.ErrSessionNotFound
	}
	if _, ok := bucket[conversationID]; !ok {
		return "", qa.ErrConversationNotFound
	}
	delete(bucket, conversationID)

	if !active && len(bucket) > 0 {
		return "", nil
	}
	replacement := s.newConversation(sessionID)
	bucket[replacement.ID] = replacement
	return replacement.ID, nil
}

// Append is the sole mutator of conversation history. The store lock makes
// the read-modify-write atomic with respect to concurrent appends.
func (s *Store) Append(_ context.Context, sessionID, conversationID string, entry qa.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.lookup(sessionID, conversationID)
	if err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	conv.Entries = append(conv.Entries, entry)
	conv.LastActive = entry.CreatedAt
	return nil
}

// Count reports how many conversations a session currently has.
func (s *Store) Count(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets[sessionID])
}

func (s *Store) lookup(sessionID, conversationID string) (*qa.Conversation, error) {
	bucket, ok := s.buckets[sessionID]
	if !ok {
		return nil, qa.ErrSessionNotFound
	}
	conv, ok := bucket[conversationID]
	if !ok {
		return nil, qa.ErrConversationNotFound
	}
	return conv, nil
}

func (s *Store) newConversation(sessionID string) *qa.Conversation {
	now := time.Now().UTC()
	return &qa.Conversation{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Entries:    make([]qa.Entry, 0, 16),
		CreatedAt:  now,
		LastActive: now,
	}
}

// snapshot copies a conversation so callers never observe in-place appends.
func snapshot(conv *qa.Conversation) qa.Conversation {
	copied := *conv
	copied.Entries = make([]qa.Entry, len(conv.Entries))
	copy(copied.Entries, conv.Entries)
	return copied
}

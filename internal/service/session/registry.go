package session

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Julian1897/smart-data-qa/internal/model/dataset"
	"github.com/Julian1897/smart-data-qa/internal/model/qa"
	"github.com/Julian1897/smart-data-qa/internal/service/conversation"
	"github.com/Julian1897/smart-data-qa/internal/service/engine"
)

// Registry owns dataset sessions and their lifecycle. Creating a session
// loads the table into the execution engine and seeds exactly one
// conversation; deleting cascades through both.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]*qa.Session
	lastActive  map[string]time.Time
	convs       *conversation.Store
	eng         *engine.Store
	idleTimeout time.Duration
}

// NewRegistry builds a registry around the conversation store and execution
// engine. idleTimeout of zero disables the idle cleanup policy.
func NewRegistry(convs *conversation.Store, eng *engine.Store, idleTimeout time.Duration) *Registry {
	return &Registry{
		sessions:    make(map[string]*qa.Session),
		lastActive:  make(map[string]time.Time),
		convs:       convs,
		eng:         eng,
		idleTimeout: idleTimeout,
	}
}

// Create provisions a session from a parsed table and seeds its first
// conversation.
func (r *Registry) Create(ctx context.Context, table *dataset.Table) (qa.Session, qa.Conversation, error) {
	if table == nil || len(table.Columns) == 0 {
		return qa.Session{}, qa.Conversation{}, qa.ErrInvalidDataset
	}
	r.sweep(ctx)

	session := &qa.Session{
		ID:        uuid.NewString(),
		FileName:  table.SourceName,
		Columns:   append([]dataset.Column(nil), table.Columns...),
		RowCount:  table.RowCount(),
		CreatedAt: time.Now().UTC(),
		Table:     table,
	}

	if err := r.eng.Load(ctx, session.ID, table); err != nil {
		return qa.Session{}, qa.Conversation{}, fmt.Errorf("load dataset: %w", err)
	}

	r.mu.Lock()
	r.sessions[session.ID] = session
	r.lastActive[session.ID] = session.CreatedAt
	r.mu.Unlock()

	r.convs.Register(session.ID)
	conv, err := r.convs.Create(ctx, session.ID)
	if err != nil {
		return qa.Session{}, qa.Conversation{}, fmt.Errorf("seed conversation: %w", err)
	}

	log.Printf("[session] created session=%s file=%q rows=%d cols=%d",
		session.ID, session.FileName, session.RowCount, len(session.Columns))
	return *session, conv, nil
}

// Get retrieves a session by id and refreshes its activity timestamp.
func (r *Registry) Get(_ context.Context, id string) (qa.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return qa.Session{}, qa.ErrSessionNotFound
	}
	r.lastActive[id] = time.Now().UTC()
	return *session, nil
}

// List returns session summaries ordered by most recent activity.
func (r *Registry) List(ctx context.Context) []qa.SessionSummary {
	r.sweep(ctx)

	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]qa.SessionSummary, 0, len(r.sessions))
	order := make(map[string]time.Time, len(r.sessions))
	for id, session := range r.sessions {
		summaries = append(summaries, qa.SessionSummary{
			SessionID:         session.ID,
			FileName:          session.FileName,
			RowCount:          session.RowCount,
			ColumnsCount:      len(session.Columns),
			ConversationCount: r.convs.Count(id),
			CreatedAt:         session.CreatedAt,
		})
		order[id] = r.lastActive[id]
	}
	sort.Slice(summaries, func(i, j int) bool {
		return order[summaries[i].SessionID].After(order[summaries[j].SessionID])
	})
	return summaries
}

// Delete destroys a session and cascades to its conversations and the loaded
// dataset. Destruction invalidates every child conversation.
func (r *Registry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	if _, ok := r.sessions[id]; !ok {
		r.mu.Unlock()
		return qa.ErrSessionNotFound
	}
	delete(r.sessions, id)
	delete(r.lastActive, id)
	r.mu.Unlock()

	r.convs.DropSession(id)
	r.eng.Drop(id)
	log.Printf("[session] deleted session=%s", id)
	return nil
}

// sweep drops sessions idle past the timeout. Invoked lazily from Create and
// List; the engine runs no background workers.
func (r *Registry) sweep(ctx context.Context) {
	if r.idleTimeout <= 0 {
		return
	}

	cutoff := time.Now().UTC().Add(-r.idleTimeout)
	var expired []string

	r.mu.RLock()
	for id, last := range r.lastActive {
		if last.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range expired {
		if err := r.Delete(ctx, id); err == nil {
			log.Printf("[session] expired idle session=%s", id)
		}
	}
}

package qa

import (
	"strings"
	"time"
)

// DefaultTitle 是空对话的展示标题。
const DefaultTitle = "新对话"

const titleRuneLimit = 30

// Entry persists one question/answer turn. Append-only; never mutated or
// reordered after creation.
type Entry struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is one ordered thread of Q&A turns within a session. Insertion
// order of Entries is chronological order.
type Conversation struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	Entries    []Entry   `json:"entries"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
}

// Title derives the display title from the first question. Kept as a pure
// derivation so it can never diverge from the history.
func (c Conversation) Title() string {
	if len(c.Entries) == 0 {
		return DefaultTitle
	}
	title := strings.TrimSpace(c.Entries[0].Question)
	if title == "" {
		return DefaultTitle
	}
	runes := []rune(title)
	if len(runes) > titleRuneLimit {
		return string(runes[:titleRuneLimit]) + "…"
	}
	return title
}

// ConversationSummary is the listing shape returned by the conversation store.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	EntryCount   int       `json:"entry_count"`
	LastActivity time.Time `json:"last_activity"`
}

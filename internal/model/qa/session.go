package qa

import (
	"time"

	"github.com/Julian1897/smart-data-qa/internal/model/dataset"
)

// Session captures one loaded dataset and its metadata. Immutable after
// creation except for the set of child conversations, which live in the
// conversation store.
type Session struct {
	ID        string           `json:"id"`
	FileName  string           `json:"fileName"`
	Columns   []dataset.Column `json:"columns"`
	RowCount  int              `json:"rowCount"`
	CreatedAt time.Time        `json:"createdAt"`

	// Table holds the read-only dataset backing this session.
	Table *dataset.Table `json:"-"`
}

// SessionSummary is the listing shape returned by the registry.
type SessionSummary struct {
	SessionID         string    `json:"session_id"`
	FileName          string    `json:"file_name"`
	RowCount          int       `json:"row_count"`
	ColumnsCount      int       `json:"columns_count"`
	ConversationCount int       `json:"conversation_count"`
	CreatedAt         time.Time `json:"created_at"`
}

package resolver

import (
	"context"
	"log"
	"strings"

	"github.com/Julian1897/smart-data-qa/internal/analysis/fallback"
	"github.com/Julian1897/smart-data-qa/internal/model/qa"
	"github.com/Julian1897/smart-data-qa/internal/service/conversation"
	"github.com/Julian1897/smart-data-qa/internal/service/engine"
	"github.com/Julian1897/smart-data-qa/internal/service/modelcfg"
	"github.com/Julian1897/smart-data-qa/internal/service/session"
	"github.com/Julian1897/smart-data-qa/internal/service/translator"
)

// Provenance notes recorded on resolved entries.
const (
	NoteFallback         = "fallback mode used"
	NoteExecutionFailure = "query execution failed"
)

// State tracks one resolution through its lifecycle. Executed,
// FallbackAnswered and ErrorAnswered are terminal.
type State int

const (
	Idle State = iota
	ContextBuilt
	TranslationAttempted
	Executed
	FallbackAnswered
	ErrorAnswered
)

// Request is one question bound to a session and, optionally, an existing
// conversation.
type Request struct {
	SessionID      string
	ConversationID string
	Question       string
}

// Response is the terminal answer of a resolution. Success is false only for
// ErrorAnswered; translation unavailability never surfaces as a failure.
type Response struct {
	Success        bool   `json:"success"`
	Answer         string `json:"answer"`
	Note           string `json:"note,omitempty"`
	ConversationID string `json:"conversation_id"`
}

// Service orchestrates one question end-to-end: context building, the
// translate-or-fallback decision, execution and history recording.
type Service struct {
	sessions *session.Registry
	convs    *conversation.Store
	models   *modelcfg.Manager
	eng      *engine.Store
}

// NewService wires the resolver to its collaborators.
func NewService(sessions *session.Registry, convs *conversation.Store, models *modelcfg.Manager, eng *engine.Store) *Service {
	return &Service{sessions: sessions, convs: convs, models: models, eng: eng}
}

// Resolve answers one question. Hard failures (empty question, missing
// session or conversation) return an error; everything else terminates in an
// answered response with the appropriate provenance note.
func (s *Service) Resolve(ctx context.Context, req Request) (Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Response{}, qa.ErrEmptyQuestion
	}

	state := Idle

	sess, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return Response{}, err
	}

	var conv qa.Conversation
	if req.ConversationID == "" {
		conv, err = s.convs.Create(ctx, sess.ID)
	} else {
		conv, err = s.convs.Get(ctx, sess.ID, req.ConversationID)
	}
	if err != nil {
		return Response{}, err
	}

	// Schema plus full prior history lets follow-up questions resolve
	// references to earlier answers.
	tctx := translator.Context{
		Columns:  sess.Columns,
		RowCount: sess.RowCount,
		History:  conv.Entries,
	}
	state = ContextBuilt

	var (
		answer string
		note   string
	)

	if svc := s.models.Current(); svc != nil {
		outcome := svc.Translate(ctx, question, tctx)
		state = TranslationAttempted

		if !outcome.Unavailable {
			result, execErr := s.eng.Execute(ctx, sess.ID, outcome.Query)
			if execErr != nil {
				// Malformed generated queries are not retried against the model.
				log.Printf("[resolver] session=%s execution failed: %v", sess.ID, execErr)
				answer = "生成的查询无法执行，请换一种方式提问。"
				note = NoteExecutionFailure
				state = ErrorAnswered
			} else {
				answer = FormatResult(result)
				state = Executed
			}
		} else {
			log.Printf("[resolver] session=%s translation unavailable: %s", sess.ID, outcome.Reason)
		}
	}

	if state != Executed && state != ErrorAnswered {
		answer = fallback.Analyze(sess.Table, question)
		note = NoteFallback
		state = FallbackAnswered
	}

	entry := qa.Entry{Question: question, Answer: answer, Note: note}
	if err := s.convs.Append(ctx, sess.ID, conv.ID, entry); err != nil {
		return Response{}, err
	}

	return Response{
		Success:        state != ErrorAnswered,
		Answer:         answer,
		Note:           note,
		ConversationID: conv.ID,
	}, nil
}

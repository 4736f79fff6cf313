package translator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/Julian1897/smart-data-qa/internal/model/dataset"
	"github.com/Julian1897/smart-data-qa/internal/model/qa"
)

const defaultTimeout = 30 * time.Second

// Config 描述外部翻译模型的接入参数。
type Config struct {
	APIKey    string
	APIBase   string
	ModelName string
	Timeout   time.Duration
}

// Context is everything the translator is allowed to see: schema metadata
// plus prior turns. Never raw rows.
type Context struct {
	Columns  []dataset.Column
	RowCount int
	History  []qa.Entry
}

// Outcome is the explicit result variant of a translation attempt. Either
// Query carries a runnable statement or Unavailable is set; Translate never
// returns an error and never panics.
type Outcome struct {
	Query       string
	Unavailable bool
	Reason      string
}

// Service converts a natural-language question plus dataset context into a
// single SQL statement through the configured chat model.
type Service struct {
	cfg   Config
	chain compose.Runnable[map[string]any, *schema.Message]
}

// New builds a translator from the supplied configuration. The prompt chain
// is compiled once and reused for every question.
func New(ctx context.Context, cfg Config) (*Service, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL: cfg.APIBase,
		APIKey:  cfg.APIKey,
		Model:   cfg.ModelName,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile translation chain: %w", err)
	}

	return &Service{cfg: cfg, chain: runnable}, nil
}

// ModelName reports which model this translator talks to.
func (s *Service) ModelName() string {
	return s.cfg.ModelName
}

// Translate asks the model for a query answering the question. Any failure,
// including the bounded timeout expiring, comes back as Unavailable so the
// resolver can fall through to the deterministic analyzer.
func (s *Service) Translate(ctx context.Context, question string, qc Context) Outcome {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	input := map[string]any{
		"system":  buildSystemPrompt(qc),
		"history": buildHistory(qc.History),
		"query":   question,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		log.Printf("[translator] model call failed: %v", err)
		return Outcome{Unavailable: true, Reason: err.Error()}
	}

	query := ExtractSQL(response.Content)
	if query == "" {
		log.Printf("[translator] no SQL found in model output (%d bytes)", len(response.Content))
		return Outcome{Unavailable: true, Reason: "model output contained no SQL statement"}
	}

	log.Printf("[translator] model=%s produced query of %d bytes", s.cfg.ModelName, len(query))
	return Outcome{Query: query}
}

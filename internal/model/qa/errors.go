package qa

import "errors"

// Failure modes surfaced to callers. TranslationUnavailable is deliberately
// absent: the resolver always recovers it locally via the fallback analyzer.
var (
	ErrInvalidDataset       = errors.New("dataset has no columns")
	ErrSessionNotFound      = errors.New("session not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidModelConfig   = errors.New("model configuration is invalid")
	ErrEmptyQuestion        = errors.New("question is empty")
)

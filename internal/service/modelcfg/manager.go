package modelcfg

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Julian1897/smart-data-qa/internal/model/qa"
	"github.com/Julian1897/smart-data-qa/internal/service/translator"
)

// Config 是对外暴露的模型配置形态。
type Config struct {
	APIKey    string `json:"api_key"`
	APIBase   string `json:"api_base"`
	ModelName string `json:"model_name"`
}

// Status reports whether a translator is active. The credential value is
// never echoed.
type Status struct {
	Configured bool   `json:"configured"`
	APIBase    string `json:"api_base,omitempty"`
	ModelName  string `json:"model_name,omitempty"`
}

// Manager holds the process-wide active translator. Updates take effect for
// every query that has not yet started translation; an in-flight translation
// keeps the instance it snapshotted.
type Manager struct {
	mu      sync.RWMutex
	cfg     Config
	current *translator.Service
	timeout time.Duration
}

// NewManager builds an unconfigured manager. timeout bounds each translation
// attempt.
func NewManager(timeout time.Duration) *Manager {
	return &Manager{timeout: timeout}
}

// Bootstrap applies a configuration from the environment at startup. A
// failure only logs; the process starts unconfigured and serves fallback
// answers.
func (m *Manager) Bootstrap(ctx context.Context, cfg Config) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return
	}
	if err := m.Set(ctx, cfg); err != nil {
		log.Printf("[modelcfg] bootstrap skipped: %v", err)
	}
}

// Set validates and swaps the active configuration. On any failure the
// previous configuration stays untouched.
func (m *Manager) Set(ctx context.Context, cfg Config) error {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.APIBase) == "" {
		return qa.ErrInvalidModelConfig
	}
	if strings.TrimSpace(cfg.ModelName) == "" {
		cfg.ModelName = "gpt-3.5-turbo"
	}

	svc, err := translator.New(ctx, translator.Config{
		APIKey:    cfg.APIKey,
		APIBase:   cfg.APIBase,
		ModelName: cfg.ModelName,
		Timeout:   m.timeout,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", qa.ErrInvalidModelConfig, err)
	}

	m.mu.Lock()
	m.cfg = cfg
	m.current = svc
	m.mu.Unlock()

	log.Printf("[modelcfg] translator configured model=%s base=%s", cfg.ModelName, cfg.APIBase)
	return nil
}

// Current returns the active translator, or nil when none is configured.
func (m *Manager) Current() *translator.Service {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// GetStatus reports the active configuration without the credential.
func (m *Manager) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		Configured: m.current != nil,
		APIBase:    m.cfg.APIBase,
		ModelName:  m.cfg.ModelName,
	}
}

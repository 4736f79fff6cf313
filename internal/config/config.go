package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  Server
	Model   Model
	Upload  Upload
	Session Session
}

// Server 描述 HTTP 服务配置。
type Server struct {
	Addr string
}

// Model 描述翻译模型的启动配置，沿用 OPENAI_* 环境变量。
type Model struct {
	APIKey    string
	APIBase   string
	ModelName string
	Timeout   time.Duration
}

// Upload 描述上传限制。
type Upload struct {
	MaxBytes int64
}

// Session 描述会话清理策略。
type Session struct {
	IdleTimeout time.Duration
}

const (
	defaultAPIBase          = "https://api.openai.com/v1"
	defaultModelName        = "gpt-3.5-turbo"
	defaultUploadMaxBytes   = 100 << 20 // 100 MiB
	defaultTranslateTimeout = 30 * time.Second
)

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServer()
	if err != nil {
		return nil, err
	}

	model, err := loadModel()
	if err != nil {
		return nil, err
	}

	upload, err := loadUpload()
	if err != nil {
		return nil, err
	}

	session, err := loadSession()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Model: model, Upload: upload, Session: session}, nil
}

func loadServer() (Server, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许直接传入 ":8080" 或 "127.0.0.1:8080"。
		return Server{Addr: port}, nil
	}
	if strings.Contains(port, " ") {
		return Server{}, fmt.Errorf("invalid PORT value: %q", port)
	}
	return Server{Addr: ":" + port}, nil
}

func loadModel() (Model, error) {
	timeoutSeconds, err := parseOptionalIntEnv("TRANSLATE_TIMEOUT_SECONDS")
	if err != nil {
		return Model{}, err
	}
	timeout := defaultTranslateTimeout
	if timeoutSeconds != nil && *timeoutSeconds > 0 {
		timeout = time.Duration(*timeoutSeconds) * time.Second
	}

	return Model{
		APIKey:    strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		APIBase:   getEnvOrDefault("OPENAI_API_BASE", defaultAPIBase),
		ModelName: getEnvOrDefault("MODEL_NAME", defaultModelName),
		Timeout:   timeout,
	}, nil
}

func loadUpload() (Upload, error) {
	maxBytes, err := parseOptionalIntEnv("UPLOAD_MAX_BYTES")
	if err != nil {
		return Upload{}, err
	}
	limit := int64(defaultUploadMaxBytes)
	if maxBytes != nil && *maxBytes > 0 {
		limit = int64(*maxBytes)
	}
	return Upload{MaxBytes: limit}, nil
}

func loadSession() (Session, error) {
	minutes, err := parseOptionalIntEnv("SESSION_IDLE_TIMEOUT_MINUTES")
	if err != nil {
		return Session{}, err
	}
	// 默认不开启闲置清理。
	var idle time.Duration
	if minutes != nil && *minutes > 0 {
		idle = time.Duration(*minutes) * time.Minute
	}
	return Session{IdleTimeout: idle}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Zendesk OAuth
	ZendeskClientID     string
	ZendeskClientSecret string
	RedirectURI         string
	OAuthScope          string

	// OpenAI
	OpenAIAPIKey string

	// Fetch
	// FetchTimeoutが0の場合、外部APIコールにクライアント側タイムアウトを
	// 設定しない。
	FetchTimeout    time.Duration
	ArticlesPerPage int

	// Rate Limit（req/min単位）
	RateLimitGeneral int
	RateLimitLLM     int

	// Export mail
	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string
	ExportMailFrom string

	// Server
	ServerPort string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.ZendeskClientID = os.Getenv("ZENDESK_CLIENT_ID")
	if cfg.ZendeskClientID == "" {
		missing = append(missing, "ZENDESK_CLIENT_ID")
	}

	cfg.ZendeskClientSecret = os.Getenv("ZENDESK_CLIENT_SECRET")
	if cfg.ZendeskClientSecret == "" {
		missing = append(missing, "ZENDESK_CLIENT_SECRET")
	}

	cfg.RedirectURI = os.Getenv("REDIRECT_URI")
	if cfg.RedirectURI == "" {
		missing = append(missing, "REDIRECT_URI")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.OAuthScope = getEnvString("ZENDESK_OAUTH_SCOPE", "users:read")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 0)
	cfg.ArticlesPerPage = getEnvInt("ARTICLES_PER_PAGE", 10)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLLM = getEnvInt("RATE_LIMIT_LLM", 10)
	cfg.SMTPHost = getEnvString("SMTP_HOST", "")
	cfg.SMTPPort = getEnvString("SMTP_PORT", "587")
	cfg.SMTPUsername = getEnvString("SMTP_USERNAME", "")
	cfg.SMTPPassword = getEnvString("SMTP_PASSWORD", "")
	cfg.ExportMailFrom = getEnvString("EXPORT_MAIL_FROM", "")
	cfg.ServerPort = getEnvString("SERVER_PORT", "3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

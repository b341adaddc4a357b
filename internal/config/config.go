package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort string
	BaseURL    string

	// Disney API
	DisneyAPIBaseURL string
	DisneyAPITimeout time.Duration
	DisneyAPIMaxSize int64
	DisneyAPIRate    float64 // 外部APIへの送信レート（req/sec）
	AllowPrivateAPI  bool    // trueの場合はSSRFガードを無効化する（ローカルのモックAPI向け）

	// 一覧
	PageSize int

	// Rate Limit
	RateLimitGeneral int

	// View Session
	ViewSessionTTL time.Duration

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// すべての値にデフォルトがあり、値の形式が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	cfg.DisneyAPIBaseURL = strings.TrimRight(getEnvString("DISNEY_API_BASE_URL", "https://api.disneyapi.dev"), "/")
	cfg.DisneyAPITimeout = getEnvDuration("DISNEY_API_TIMEOUT", 10*time.Second)
	cfg.DisneyAPIMaxSize = getEnvInt64("DISNEY_API_MAX_SIZE", 5242880)
	cfg.DisneyAPIRate = getEnvFloat("DISNEY_API_RATE", 5)
	cfg.AllowPrivateAPI = getEnvBool("ALLOW_PRIVATE_API", false)
	cfg.PageSize = getEnvInt("PAGE_SIZE", 50)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ViewSessionTTL = getEnvDuration("VIEW_SESSION_TTL", 30*time.Minute)
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr はHTTPサーバーの待ち受けアドレスを返す。
func (c *Config) Addr() string {
	return ":" + c.ServerPort
}

func (c *Config) validate() error {
	var invalid []string

	if port, err := strconv.Atoi(c.ServerPort); err != nil || port < 1 || port > 65535 {
		invalid = append(invalid, "SERVER_PORT")
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Host == "" {
		invalid = append(invalid, "BASE_URL")
	}
	if u, err := url.Parse(c.DisneyAPIBaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		invalid = append(invalid, "DISNEY_API_BASE_URL")
	}
	if c.DisneyAPITimeout <= 0 {
		invalid = append(invalid, "DISNEY_API_TIMEOUT")
	}
	if c.DisneyAPIMaxSize <= 0 {
		invalid = append(invalid, "DISNEY_API_MAX_SIZE")
	}
	if c.DisneyAPIRate <= 0 {
		invalid = append(invalid, "DISNEY_API_RATE")
	}
	if c.PageSize < 1 {
		invalid = append(invalid, "PAGE_SIZE")
	}
	if c.RateLimitGeneral < 1 {
		invalid = append(invalid, "RATE_LIMIT_GENERAL")
	}
	if c.ViewSessionTTL <= 0 {
		invalid = append(invalid, "VIEW_SESSION_TTL")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid environment variables: %v", invalid)
	}
	return nil
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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
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

// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// ストアのバックエンド種別
const (
	StoreBackendPostgres = "postgres"
	StoreBackendRedis    = "redis"
	StoreBackendMemory   = "memory"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	StoreBackend  string `env:"STORE_BACKEND" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	RedisAddr     string `env:"REDIS_ADDR"`
	StoreMaxConn  int    `env:"STORE_MAX_CONNS" envDefault:"25"`
	StoreIdleConn int    `env:"STORE_MAX_IDLE_CONNS" envDefault:"5"`

	// Token
	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"5h"`

	// Password
	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`

	// Rate Limit（1分あたりのリクエスト数）
	RateLimitGeneral    int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitCredential int `env:"RATE_LIMIT_CREDENTIAL" envDefault:"10"`

	// Logging
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	// CORS（カンマ区切りで複数指定可）
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000" envSeparator:","`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は、未設定のものをまとめて1つのエラーとして返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	var missing []string
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	switch cfg.StoreBackend {
	case StoreBackendPostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case StoreBackendRedis:
		if cfg.RedisAddr == "" {
			missing = append(missing, "REDIS_ADDR")
		}
	case StoreBackendMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q: want %s, %s or %s",
			cfg.StoreBackend, StoreBackendPostgres, StoreBackendRedis, StoreBackendMemory)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive: %s", c.JWTTTL)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d: %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}
	if c.RateLimitGeneral <= 0 || c.RateLimitCredential <= 0 {
		return fmt.Errorf("rate limits must be positive: general=%d credential=%d", c.RateLimitGeneral, c.RateLimitCredential)
	}
	if c.StoreMaxConn <= 0 || c.StoreIdleConn < 0 || c.StoreIdleConn > c.StoreMaxConn {
		return fmt.Errorf("invalid store pool size: max=%d idle=%d", c.StoreMaxConn, c.StoreIdleConn)
	}
	return nil
}

// LoadDatabaseURL はマイグレーション用にDATABASE_URLのみを読み込む。
func LoadDatabaseURL() (string, error) {
	var cfg struct {
		DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	}
	if err := env.Parse(&cfg); err != nil {
		return "", fmt.Errorf("failed to parse environment variables: %w", err)
	}
	return cfg.DatabaseURL, nil
}

package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/passgate/internal/config"
	"github.com/hitoshi/passgate/internal/database"
	"github.com/hitoshi/passgate/internal/repository"
)

// accountStore はバックエンドごとに組み立てたアカウントストアとその付随リソース。
type accountStore struct {
	accounts repository.AccountRepository
	health   repository.HealthChecker
	close    func() error
}

// openStore は設定されたバックエンドのアカウントストアを開き、疎通を確認する。
func openStore(ctx context.Context, cfg *config.Config) (*accountStore, error) {
	pool := database.DefaultPoolConfig()
	if cfg.StoreMaxConn > 0 {
		pool.MaxOpen = cfg.StoreMaxConn
		pool.MaxIdle = cfg.StoreIdleConn
	}

	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		db, err := database.Open(cfg.DatabaseURL, pool)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established")
		return &accountStore{
			accounts: repository.NewPostgresAccountRepo(db),
			health:   db,
			close:    db.Close,
		}, nil

	case config.StoreBackendRedis:
		rp := database.OpenRedis(cfg.RedisAddr, pool)
		repo := repository.NewRedisAccountRepo(rp, "")
		if err := repo.PingContext(ctx); err != nil {
			rp.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("redis connection established", slog.String("addr", cfg.RedisAddr))
		return &accountStore{
			accounts: repo,
			health:   repo,
			close:    rp.Close,
		}, nil

	case config.StoreBackendMemory:
		slog.Warn("using in-memory account store; accounts are lost on restart")
		repo := repository.NewMemoryAccountRepo()
		return &accountStore{
			accounts: repo,
			health:   repo,
			close:    func() error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// shutdown はストアの接続を閉じ、失敗した場合はログに残す。
func (s *accountStore) shutdown(l *slog.Logger) {
	if err := s.close(); err != nil {
		l.Error("failed to close account store", slog.String("error", err.Error()))
	}
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"
	"github.com/hitoshi/passgate/internal/model"
)

// Redisのキー構成:
//
//	<prefix>email:<email> → アカウントID（SETNXで一意性を担保）
//	<prefix>id:<id>       → アカウントのJSON
//	<prefix>ids           → 全アカウントIDのSET（件数取得用）
const defaultRedisKeyPrefix = "passgate:account:"

// redisAccountRecord はRedisに保存するアカウントのJSON表現。
type redisAccountRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PhoneNumber  string    `json:"phone_number"`
	BirthDate    time.Time `json:"birth_date"`
	CreatedAt    time.Time `json:"created_at"`
}

// RedisAccountRepo はRedisをキーバリューストアとして使うアカウントリポジトリ。
type RedisAccountRepo struct {
	pool   *redis.Pool
	prefix string
}

// NewRedisAccountRepo はRedisAccountRepoを生成する。prefixが空の場合は既定のプレフィックスを使う。
func NewRedisAccountRepo(pool *redis.Pool, prefix string) *RedisAccountRepo {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &RedisAccountRepo{pool: pool, prefix: prefix}
}

func (r *RedisAccountRepo) emailKey(email string) string { return r.prefix + "email:" + email }
func (r *RedisAccountRepo) idKey(id string) string       { return r.prefix + "id:" + id }
func (r *RedisAccountRepo) idsKey() string               { return r.prefix + "ids" }

// Save はアカウントを作成する。
// メールアドレスのキーをSETNXで確保できた場合のみ本体を書き込む。
func (r *RedisAccountRepo) Save(ctx context.Context, account *model.Account) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get redis connection: %w", err)
	}
	defer conn.Close()

	id := uuid.New().String()
	now := time.Now().UTC()

	data, err := json.Marshal(redisAccountRecord{
		ID:           id,
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		FirstName:    account.FirstName,
		LastName:     account.LastName,
		PhoneNumber:  account.PhoneNumber,
		BirthDate:    account.BirthDate,
		CreatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}

	claimed, err := redis.Int(redis.DoContext(conn, ctx, "SETNX", r.emailKey(account.Email), id))
	if err != nil {
		return fmt.Errorf("failed to reserve email: %w", err)
	}
	if claimed == 0 {
		return ErrDuplicateEmail
	}

	if err := conn.Send("MULTI"); err != nil {
		return r.releaseEmail(ctx, conn, account.Email, fmt.Errorf("failed to begin transaction: %w", err))
	}
	if err := conn.Send("SET", r.idKey(id), data); err != nil {
		return r.releaseEmail(ctx, conn, account.Email, fmt.Errorf("failed to queue account write: %w", err))
	}
	if err := conn.Send("SADD", r.idsKey(), id); err != nil {
		return r.releaseEmail(ctx, conn, account.Email, fmt.Errorf("failed to queue account index: %w", err))
	}
	if _, err := redis.DoContext(conn, ctx, "EXEC"); err != nil {
		return r.releaseEmail(ctx, conn, account.Email, fmt.Errorf("failed to write account: %w", err))
	}

	account.ID = id
	account.CreatedAt = now
	return nil
}

// releaseEmail は書き込み失敗時に確保したメールアドレスのキーを解放し、元のエラーを返す。
func (r *RedisAccountRepo) releaseEmail(ctx context.Context, conn redis.Conn, email string, cause error) error {
	if _, err := redis.DoContext(conn, ctx, "DEL", r.emailKey(email)); err != nil {
		return fmt.Errorf("%w (release email: %v)", cause, err)
	}
	return cause
}

// FindByEmail はメールアドレスでアカウントを取得する。見つからない場合はnilを返す。
func (r *RedisAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get redis connection: %w", err)
	}
	defer conn.Close()

	id, err := redis.String(redis.DoContext(conn, ctx, "GET", r.emailKey(email)))
	if errors.Is(err, redis.ErrNil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}

	return r.load(ctx, conn, id)
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *RedisAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get redis connection: %w", err)
	}
	defer conn.Close()

	return r.load(ctx, conn, id)
}

// ExistsByEmail はメールアドレスが登録済みかを返す。
func (r *RedisAccountRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get redis connection: %w", err)
	}
	defer conn.Close()

	exists, err := redis.Bool(redis.DoContext(conn, ctx, "EXISTS", r.emailKey(email)))
	if err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return exists, nil
}

// Count は登録済みアカウント数を返す。
func (r *RedisAccountRepo) Count(ctx context.Context) (int, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get redis connection: %w", err)
	}
	defer conn.Close()

	count, err := redis.Int(redis.DoContext(conn, ctx, "SCARD", r.idsKey()))
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

// PingContext はRedisへの疎通を確認する。
func (r *RedisAccountRepo) PingContext(ctx context.Context) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get redis connection: %w", err)
	}
	defer conn.Close()

	if _, err := redis.DoContext(conn, ctx, "PING"); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// load はIDでアカウント本体を読み込む。存在しない場合は(nil, nil)を返す。
func (r *RedisAccountRepo) load(ctx context.Context, conn redis.Conn, id string) (*model.Account, error) {
	data, err := redis.Bytes(redis.DoContext(conn, ctx, "GET", r.idKey(id)))
	if errors.Is(err, redis.ErrNil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	var rec redisAccountRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}

	return &model.Account{
		ID:           rec.ID,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		FirstName:    rec.FirstName,
		LastName:     rec.LastName,
		PhoneNumber:  rec.PhoneNumber,
		BirthDate:    rec.BirthDate,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

// compile-time interface check
var _ AccountRepository = (*RedisAccountRepo)(nil)
var _ HealthChecker = (*RedisAccountRepo)(nil)

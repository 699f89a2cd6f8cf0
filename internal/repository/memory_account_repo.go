package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/passgate/internal/model"
)

// MemoryAccountRepo はプロセス内メモリにアカウントを保持するリポジトリ。
// 開発用のSTORE_BACKEND=memoryとテストで使用する。プロセス終了で内容は失われる。
type MemoryAccountRepo struct {
	mu      sync.RWMutex
	byEmail map[string]*model.Account
	byID    map[string]*model.Account
	now     func() time.Time
}

// NewMemoryAccountRepo はMemoryAccountRepoを生成する。
func NewMemoryAccountRepo() *MemoryAccountRepo {
	return &MemoryAccountRepo{
		byEmail: make(map[string]*model.Account),
		byID:    make(map[string]*model.Account),
		now:     time.Now,
	}
}

// Save はアカウントを作成する。一意性の確認と書き込みは同一ロック内で行う。
func (r *MemoryAccountRepo) Save(_ context.Context, account *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[account.Email]; exists {
		return ErrDuplicateEmail
	}

	account.ID = uuid.New().String()
	account.CreatedAt = r.now().UTC()

	stored := *account
	r.byEmail[stored.Email] = &stored
	r.byID[stored.ID] = &stored
	return nil
}

// FindByEmail はメールアドレスでアカウントを取得する。見つからない場合はnilを返す。
func (r *MemoryAccountRepo) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	copied := *stored
	return &copied, nil
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *MemoryAccountRepo) FindByID(_ context.Context, id string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	copied := *stored
	return &copied, nil
}

// ExistsByEmail はメールアドレスが登録済みかを返す。
func (r *MemoryAccountRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byEmail[email]
	return ok, nil
}

// Count は登録済みアカウント数を返す。
func (r *MemoryAccountRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byEmail), nil
}

// DeleteByEmail はアカウントを削除する。管理操作およびテスト用。
// 削除した場合はtrueを返す。
func (r *MemoryAccountRepo) DeleteByEmail(_ context.Context, email string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byEmail[email]
	if !ok {
		return false
	}
	delete(r.byEmail, email)
	delete(r.byID, stored.ID)
	return true
}

// PingContext はHealthCheckerを実装する。メモリストアは常に応答可能。
func (r *MemoryAccountRepo) PingContext(_ context.Context) error {
	return nil
}

// compile-time interface check
var _ AccountRepository = (*MemoryAccountRepo)(nil)
var _ HealthChecker = (*MemoryAccountRepo)(nil)
